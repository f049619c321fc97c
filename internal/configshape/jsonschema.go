package configshape

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

const draft = "https://json-schema.org/draft/2020-12/schema"

// Schema is the JSON Schema rendering of a configuration shape.
type Schema struct {
	Schema string             `json:"$schema,omitempty"`
	Ref    string             `json:"$ref,omitempty"`
	Defs   map[string]*Schema `json:"$defs,omitempty"`

	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`
	Enum        []any  `json:"enum,omitempty"`
	Minimum     *int   `json:"minimum,omitempty"`

	// Object
	Properties           map[string]*Schema `json:"properties,omitempty"`
	AdditionalProperties *bool              `json:"additionalProperties,omitempty"`

	// Array
	Items       *Schema   `json:"items,omitempty"`
	PrefixItems []*Schema `json:"prefixItems,omitempty"`
	MaxItems    *int      `json:"maxItems,omitempty"`
	UniqueItems bool      `json:"uniqueItems,omitempty"`

	Not *Schema `json:"not,omitempty"`
}

// JSONSchema renders s as a standalone draft 2020-12 document. Shapes of
// named types are emitted once under $defs and referenced from every use.
func JSONSchema(s *Shape) *Schema {
	e := &exporter{defs: map[string]*Schema{}}
	root := e.schema(s)
	if root.Ref != "" {
		root = &Schema{Ref: root.Ref}
	}
	root.Schema = draft
	if len(e.defs) > 0 {
		root.Defs = e.defs
	}
	return root
}

// MarshalSchema renders the JSON Schema of s as indented JSON.
func MarshalSchema(s *Shape) ([]byte, error) {
	raw, err := json.Marshal(JSONSchema(s))
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode config schema")
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, errors.Wrap(err, "failed to indent config schema")
	}
	return buf.Bytes(), nil
}

type exporter struct {
	defs map[string]*Schema
}

var defNameUnsafe = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

func defName(id string) string {
	return defNameUnsafe.ReplaceAllString(id, "_")
}

func (e *exporter) schema(s *Shape) *Schema {
	if s.ID == "" {
		return e.inline(s)
	}
	name := defName(s.ID)
	ref := &Schema{Ref: "#/$defs/" + name}
	if _, ok := e.defs[name]; ok {
		return ref
	}
	def := &Schema{}
	e.defs[name] = def
	*def = *e.inline(s)
	def.Description = s.ID
	return ref
}

func (e *exporter) inline(s *Shape) *Schema {
	switch s.Kind {
	case KindNever:
		return &Schema{Not: &Schema{}}
	case KindEmpty, KindString, KindNumber, KindStringNumber:
		props := map[string]*Schema{}
		if s.AcceptsString() {
			props["escapeHtml"] = &Schema{Type: "boolean"}
			props["escapeNonAscii"] = &Schema{Type: "boolean"}
		}
		if s.AcceptsNumber() {
			props["maxPrecision"] = &Schema{Type: "integer", Minimum: intPtr(0)}
		}
		return object(props)
	case KindObject:
		names := make([]any, 0, len(s.Fields))
		fields := make(map[string]*Schema, len(s.Fields))
		for _, f := range s.Fields {
			names = append(names, f.Name)
			fields[f.Name] = e.schema(f.Shape)
		}
		keyOrder := &Schema{Type: "array", UniqueItems: true, Items: &Schema{Enum: names}}
		if len(names) == 0 {
			keyOrder.MaxItems = intPtr(0)
			keyOrder.Items = nil
		}
		return object(map[string]*Schema{
			"keyOrder": keyOrder,
			"fields":   object(fields),
		})
	case KindTuple:
		positions := make([]*Schema, 0, len(s.Elements))
		for _, el := range s.Elements {
			positions = append(positions, e.schema(el))
		}
		props := map[string]*Schema{
			"tuple": {Type: "array", PrefixItems: positions, MaxItems: intPtr(len(positions))},
		}
		if s.Rest != nil {
			rest := e.schema(s.Rest)
			props["restPrefix"] = &Schema{Type: "array", Items: rest}
			props["rest"] = rest
		}
		return object(props)
	case KindUnion:
		variants := make(map[string]*Schema, len(s.Fields))
		for _, f := range s.Fields {
			variants[f.Name] = e.schema(f.Shape)
		}
		return object(variants)
	}
	return &Schema{Not: &Schema{}}
}

func object(props map[string]*Schema) *Schema {
	closed := false
	if len(props) == 0 {
		props = nil
	}
	return &Schema{Type: "object", Properties: props, AdditionalProperties: &closed}
}

func intPtr(v int) *int { return &v }

// Problem is one failed JSON Schema check.
type Problem struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (p Problem) String() string {
	if p.Path != "" {
		return p.Path + ": " + p.Message
	}
	return p.Message
}

// Checker validates configuration documents against the JSON Schema of a
// shape. It is an independent check of the same rules the validate package
// applies, used by the shape command.
type Checker struct {
	schema *jsonschema.Schema
}

const checkerResource = "ftson-config.json"

// NewChecker compiles the JSON Schema of s.
func NewChecker(s *Shape) (*Checker, error) {
	raw, err := json.Marshal(JSONSchema(s))
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode config schema")
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode config schema")
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(checkerResource, doc); err != nil {
		return nil, errors.Wrap(err, "failed to add config schema")
	}
	compiled, err := c.Compile(checkerResource)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compile config schema")
	}
	return &Checker{schema: compiled}, nil
}

// Check validates a decoded document. A nil document is an absent
// configuration and always passes.
func (c *Checker) Check(doc any) []Problem {
	if doc == nil {
		return nil
	}
	err := c.schema.Validate(doc)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []Problem{{Message: err.Error()}}
	}
	return collectProblems(ve)
}

func collectProblems(ve *jsonschema.ValidationError) []Problem {
	if len(ve.Causes) == 0 {
		path := ""
		if len(ve.InstanceLocation) > 0 {
			path = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		return []Problem{{Path: path, Message: ve.Error()}}
	}
	var problems []Problem
	for _, cause := range ve.Causes {
		problems = append(problems, collectProblems(cause)...)
	}
	return problems
}
