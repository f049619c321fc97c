package gen

import (
	"fmt"
	"strings"

	"github.com/ftson/ftson/escape"
	"github.com/ftson/ftson/internal/registry"
	"github.com/ftson/ftson/internal/typeshape"
	"github.com/ftson/ftson/internal/validate"
)

// Function is one generated serializer.
type Function struct {
	Name string
	// TypePackage and TypeName identify the parameter type; the qualified
	// ParameterType is filled in once the file's imports are known.
	TypePackage   string
	TypeName      string
	ParameterType string
	Body          string
	UsesEscape    bool
	UsesEncode    bool
	Type          *typeshape.Object
	Registration  registry.Registration
}

// Generate builds the body of a serializer for obj. Fields listed in the
// key order come first, then the others in declaration order. String fields
// are escaped with their own flags, falling back to global; numbers are
// formatted directly; everything else goes through the fallback encoder.
func Generate(name string, obj *typeshape.Object, cfg *validate.Config, global *validate.Global) *Function {
	fn := &Function{Name: name, Type: obj}

	var body Body
	for i, f := range orderedFields(obj, cfg) {
		sep := ","
		if i == 0 {
			sep = "{"
		}
		body.Text(sep + `"` + escape.String(f.Name, escape.Options{}) + `":`)
		fn.field(&body, f, cfg.Field(f.Name), global)
	}
	if len(body) == 0 {
		body.Text("{")
	}
	body.Text("}")

	fn.Body = body.Emit()
	return fn
}

func (fn *Function) field(body *Body, f typeshape.Field, cfg *validate.Config, global *validate.Global) {
	expr := "input." + f.GoName

	p, ok := f.Shape.(*typeshape.Primitive)
	if !ok {
		fn.UsesEncode = true
		body.Value("encode.Any(" + expr + ")")
		return
	}

	switch p.Prim {
	case typeshape.PrimString:
		if p.Named {
			expr = "string(" + expr + ")"
		}
		fn.UsesEscape = true
		body.Text(`"`)
		body.Value("escape.String(" + expr + ", " + optionsLiteral(cfg.EscapeOptions(global)) + ")")
		body.Text(`"`)
		return
	case typeshape.PrimNumber:
		fn.UsesEncode = true
		switch p.Number {
		case typeshape.NumInt:
			body.Value("encode.Int(" + expr + ")")
		case typeshape.NumUint:
			body.Value("encode.Uint(" + expr + ")")
		case typeshape.NumFloat32, typeshape.NumFloat64:
			body.Value("encode.Float(" + expr + ")")
		default:
			body.Value("encode.Any(" + expr + ")")
		}
		return
	}
	fn.UsesEncode = true
	body.Value("encode.Any(" + expr + ")")
}

// orderedFields applies the key order: listed fields first, then the rest
// in declaration order.
func orderedFields(obj *typeshape.Object, cfg *validate.Config) []typeshape.Field {
	var keyOrder []string
	if cfg != nil {
		keyOrder = cfg.KeyOrder
	}
	out := make([]typeshape.Field, 0, len(obj.Fields))
	placed := map[string]bool{}
	for _, name := range keyOrder {
		if f, ok := obj.Field(name); ok && !placed[name] {
			placed[name] = true
			out = append(out, f)
		}
	}
	for _, f := range obj.Fields {
		if !placed[f.Name] {
			out = append(out, f)
		}
	}
	return out
}

func optionsLiteral(opts escape.Options) string {
	var set []string
	if opts.HTML {
		set = append(set, "HTML: true")
	}
	if opts.NonASCII {
		set = append(set, "NonASCII: true")
	}
	return fmt.Sprintf("escape.Options{%s}", strings.Join(set, ", "))
}
