// Package configshape computes which configuration is legal for a type.
//
// A Shape mirrors the structure of a typeshape.Shape but only keeps what can
// be configured: string escaping, number precision, object key order and the
// recursive configuration of members.
package configshape

import "fmt"

// Kind is the kind of configuration a position accepts.
type Kind uint8

const (
	// KindNever accepts no configuration at all. It is the zero value so
	// that an unfinished placeholder reads as unconfigurable.
	KindNever Kind = iota
	// KindEmpty accepts an absent or empty configuration.
	KindEmpty
	KindString
	KindNumber
	// KindStringNumber accepts the options of both strings and numbers.
	KindStringNumber
	KindObject
	KindTuple
	KindUnion
)

var kindNames = [...]string{
	KindNever:        "never",
	KindEmpty:        "empty",
	KindString:       "string",
	KindNumber:       "number",
	KindStringNumber: "string|number",
	KindObject:       "object",
	KindTuple:        "tuple",
	KindUnion:        "union",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Field names a member configuration: an object field or a union variant.
type Field struct {
	Name  string
	Shape *Shape
}

// Shape describes the configuration accepted at one position.
type Shape struct {
	Kind Kind
	// ID is the named type the shape was resolved from, if any.
	ID string

	// Fields holds object fields in declaration order, or union variants.
	Fields []Field

	// Tuple positions and the optional tail.
	Elements []*Shape
	Rest     *Shape
}

// Member returns the configuration of an object field or union variant.
func (s *Shape) Member(name string) (*Shape, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Shape, true
		}
	}
	return nil, false
}

// Names returns the field or variant names in order.
func (s *Shape) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// AcceptsString reports whether escape options are legal.
func (s *Shape) AcceptsString() bool {
	return s.Kind == KindString || s.Kind == KindStringNumber
}

// AcceptsNumber reports whether maxPrecision is legal.
func (s *Shape) AcceptsNumber() bool {
	return s.Kind == KindNumber || s.Kind == KindStringNumber
}

func (s *Shape) String() string {
	if s.ID != "" {
		return s.Kind.String() + " " + s.ID
	}
	return s.Kind.String()
}

func never() *Shape { return &Shape{Kind: KindNever} }
