package configshape

import (
	"github.com/ftson/ftson/internal/typeshape"
)

// DefaultMaxDepth bounds anonymous nesting: the shape at depth MaxDepth and
// below is Never. Named types reset the depth, since the memo already
// terminates recursion through them.
const DefaultMaxDepth = 64

// Resolver maps type shapes to configuration shapes. It memoizes named
// types, so one Resolver serves a whole run.
type Resolver struct {
	MaxDepth int

	universe *typeshape.Universe
	memo     map[string]*Shape
}

// NewResolver returns a Resolver over the named types of u.
func NewResolver(u *typeshape.Universe) *Resolver {
	return &Resolver{
		MaxDepth: DefaultMaxDepth,
		universe: u,
		memo:     map[string]*Shape{},
	}
}

// Resolve returns the configuration shape of s.
func (r *Resolver) Resolve(s typeshape.Shape) *Shape {
	return r.resolve(s, 0)
}

func (r *Resolver) resolve(s typeshape.Shape, depth int) *Shape {
	if depth >= r.MaxDepth {
		return never()
	}

	switch s := s.(type) {
	case *typeshape.Ref:
		if cs, ok := r.memo[s.ID]; ok {
			return cs
		}
		// the placeholder is what self-references see; it is filled in
		// place once the definition is resolved
		ph := &Shape{}
		r.memo[s.ID] = ph
		computed := r.resolve(r.universe.Resolve(s), 0)
		*ph = *computed
		ph.ID = s.ID
		return ph

	case *typeshape.Primitive:
		switch s.Prim {
		case typeshape.PrimString:
			return &Shape{Kind: KindString}
		case typeshape.PrimNumber:
			return &Shape{Kind: KindNumber}
		case typeshape.PrimStringOrNumber:
			return &Shape{Kind: KindStringNumber}
		}
		return &Shape{Kind: KindEmpty}

	case *typeshape.Opaque:
		return never()

	case *typeshape.Nullable:
		return r.resolve(s.Inner, depth+1)

	case *typeshape.Array:
		return r.resolve(s.Elem, depth+1)

	case *typeshape.Object:
		cs := &Shape{Kind: KindObject, ID: s.ID, Fields: make([]Field, 0, len(s.Fields))}
		for _, f := range s.Fields {
			cs.Fields = append(cs.Fields, Field{Name: f.Name, Shape: r.resolve(f.Shape, depth+1)})
		}
		return cs

	case *typeshape.Tuple:
		cs := &Shape{Kind: KindTuple, ID: s.ID, Elements: make([]*Shape, 0, len(s.Elements))}
		for _, e := range s.Elements {
			cs.Elements = append(cs.Elements, r.resolve(e, depth+1))
		}
		if s.Rest != nil {
			cs.Rest = r.resolve(s.Rest, depth+1)
		}
		return cs

	case *typeshape.Union:
		if !r.configurableUnion(s) {
			return never()
		}
		cs := &Shape{Kind: KindUnion, ID: s.ID, Fields: make([]Field, 0, len(s.Variants))}
		for _, v := range s.Variants {
			cs.Fields = append(cs.Fields, Field{Name: v.Name, Shape: r.resolve(v.Shape, depth+1)})
		}
		return cs
	}
	return never()
}

// configurableUnion reports whether every variant is an object free of
// non-data members and the variants share at least one field name.
func (r *Resolver) configurableUnion(u *typeshape.Union) bool {
	if len(u.Variants) == 0 {
		return false
	}
	var shared map[string]bool
	for _, v := range u.Variants {
		obj, ok := r.universe.Resolve(v.Shape).(*typeshape.Object)
		if !ok {
			return false
		}
		if r.universe.ContainsOpaque(v.Shape) {
			return false
		}
		names := make(map[string]bool, len(obj.Fields))
		for _, f := range obj.Fields {
			if shared == nil || shared[f.Name] {
				names[f.Name] = true
			}
		}
		shared = names
	}
	return len(shared) > 0
}
