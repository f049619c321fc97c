// Package typeshape describes the JSON-relevant structure of Go types.
//
// A Shape is a small tagged union (primitive, object, array, tuple, union,
// nullable, opaque) that the configuration resolver and the generator work
// on instead of go/types. Named types are represented by a Ref into a
// Universe and built lazily, so recursive types never expand eagerly.
package typeshape

import (
	"fmt"
	"strings"
)

// Kind identifies the variant of a Shape.
type Kind uint8

const (
	KindPrimitive Kind = iota
	KindOpaque
	KindNullable
	KindObject
	KindArray
	KindTuple
	KindUnion
	KindRef
)

var kindNames = [...]string{
	KindPrimitive: "primitive",
	KindOpaque:    "opaque",
	KindNullable:  "nullable",
	KindObject:    "object",
	KindArray:     "array",
	KindTuple:     "tuple",
	KindUnion:     "union",
	KindRef:       "ref",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Shape is implemented by every shape variant.
type Shape interface {
	Kind() Kind
	String() string
}

// PrimitiveKind classifies scalar values.
type PrimitiveKind uint8

const (
	PrimString PrimitiveKind = iota
	PrimNumber
	// PrimStringOrNumber is a value that may be either, such as json.Number.
	PrimStringOrNumber
	PrimBoolean
	// PrimOther covers data the generator hands to the fallback encoder
	// without configuration: maps, byte slices, marshalers, empty interfaces.
	PrimOther
)

// NumberKind selects how a number is written.
type NumberKind uint8

const (
	NumUnknown NumberKind = iota
	NumInt
	NumUint
	NumFloat32
	NumFloat64
)

// Primitive is a scalar.
type Primitive struct {
	Prim   PrimitiveKind
	Number NumberKind
	// Named reports a defined type (type Status string) that generated code
	// must convert before handing it to a function taking the basic type.
	Named bool
}

func (*Primitive) Kind() Kind { return KindPrimitive }

func (p *Primitive) String() string {
	switch p.Prim {
	case PrimString:
		return "string"
	case PrimNumber:
		return "number"
	case PrimStringOrNumber:
		return "string|number"
	case PrimBoolean:
		return "boolean"
	}
	return "other"
}

// Opaque is a member that has no JSON representation, such as a func or chan.
type Opaque struct {
	Reason string
}

func (*Opaque) Kind() Kind       { return KindOpaque }
func (o *Opaque) String() string { return "opaque(" + o.Reason + ")" }

// Nullable is a value that may be absent.
type Nullable struct {
	Inner Shape
}

func (*Nullable) Kind() Kind       { return KindNullable }
func (n *Nullable) String() string { return "nullable(" + n.Inner.String() + ")" }

// Field is one member of an Object.
type Field struct {
	// Name is the JSON key.
	Name string
	// GoName is the selector used to read the field.
	GoName string
	Shape  Shape
}

// Object is a struct with its serialized fields in declaration order.
type Object struct {
	ID     string
	Fields []Field
}

func (*Object) Kind() Kind { return KindObject }

func (o *Object) String() string {
	if o.ID != "" {
		return "object " + o.ID
	}
	return "object{" + strings.Join(o.Names(), ",") + "}"
}

// Field returns the field with the given JSON name.
func (o *Object) Field(name string) (Field, bool) {
	for _, f := range o.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Names returns the JSON names in declaration order.
func (o *Object) Names() []string {
	names := make([]string, len(o.Fields))
	for i, f := range o.Fields {
		names[i] = f.Name
	}
	return names
}

// Array is a homogeneous sequence.
type Array struct {
	Elem Shape
}

func (*Array) Kind() Kind       { return KindArray }
func (a *Array) String() string { return "array(" + a.Elem.String() + ")" }

// Tuple is a fixed sequence of positions followed by an optional tail of
// uniformly typed elements.
type Tuple struct {
	ID       string
	Elements []Shape
	Rest     Shape
}

func (*Tuple) Kind() Kind { return KindTuple }

func (t *Tuple) String() string {
	parts := make([]string, 0, len(t.Elements)+1)
	for _, e := range t.Elements {
		parts = append(parts, e.String())
	}
	if t.Rest != nil {
		parts = append(parts, "..."+t.Rest.String())
	}
	return "tuple[" + strings.Join(parts, ",") + "]"
}

// Variant is one member of a Union. Name is its discriminant value.
type Variant struct {
	Name  string
	Shape Shape
}

// Union is a closed set of alternatives.
type Union struct {
	ID       string
	Variants []Variant
}

func (*Union) Kind() Kind { return KindUnion }

func (u *Union) String() string {
	names := make([]string, len(u.Variants))
	for i, v := range u.Variants {
		names[i] = v.Name
	}
	return "union(" + strings.Join(names, "|") + ")"
}

// Ref points at a named type defined in a Universe.
type Ref struct {
	ID       string
	universe *Universe
}

func (*Ref) Kind() Kind       { return KindRef }
func (r *Ref) String() string { return r.ID }

// Resolve returns the definition the reference points at.
func (r *Ref) Resolve() Shape {
	return r.universe.Resolve(r)
}
