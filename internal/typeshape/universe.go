package typeshape

// Universe is the per-run resolution context: it owns the definitions of
// named types and builds each one at most once, on first use.
type Universe struct {
	defs map[string]*definition
}

type definition struct {
	build    func() Shape
	shape    Shape
	building bool
}

// NewUniverse returns an empty Universe.
func NewUniverse() *Universe {
	return &Universe{defs: map[string]*definition{}}
}

// Define registers a lazily built definition for id and returns a reference
// to it. The first definition for an id wins; later ones are ignored.
func (u *Universe) Define(id string, build func() Shape) *Ref {
	if _, ok := u.defs[id]; !ok {
		u.defs[id] = &definition{build: build}
	}
	return u.Ref(id)
}

// Ref returns a reference to id without defining it.
func (u *Universe) Ref(id string) *Ref {
	return &Ref{ID: id, universe: u}
}

// Lookup builds the definition of id if needed and returns it.
func (u *Universe) Lookup(id string) (Shape, bool) {
	if _, ok := u.defs[id]; !ok {
		return nil, false
	}
	return u.definition(id), true
}

// Resolve follows references until it reaches a non-reference shape.
// Unknown or self-defining references resolve to an Opaque shape.
func (u *Universe) Resolve(s Shape) Shape {
	seen := map[string]bool{}
	for {
		ref, ok := s.(*Ref)
		if !ok {
			return s
		}
		if seen[ref.ID] {
			return &Opaque{Reason: "cyclic definition of " + ref.ID}
		}
		seen[ref.ID] = true
		s = u.definition(ref.ID)
	}
}

func (u *Universe) definition(id string) Shape {
	d, ok := u.defs[id]
	if !ok {
		return &Opaque{Reason: "unresolved reference " + id}
	}
	if d.shape != nil {
		return d.shape
	}
	if d.building {
		return &Opaque{Reason: "cyclic definition of " + id}
	}
	d.building = true
	d.shape = d.build()
	d.building = false
	return d.shape
}

// ContainsOpaque reports whether a non-data member occurs anywhere in s.
func (u *Universe) ContainsOpaque(s Shape) bool {
	return u.containsOpaque(s, map[string]bool{})
}

func (u *Universe) containsOpaque(s Shape, visited map[string]bool) bool {
	switch s := s.(type) {
	case *Opaque:
		return true
	case *Ref:
		if visited[s.ID] {
			return false
		}
		visited[s.ID] = true
		return u.containsOpaque(u.Resolve(s), visited)
	case *Nullable:
		return u.containsOpaque(s.Inner, visited)
	case *Array:
		return u.containsOpaque(s.Elem, visited)
	case *Object:
		for _, f := range s.Fields {
			if u.containsOpaque(f.Shape, visited) {
				return true
			}
		}
	case *Tuple:
		for _, e := range s.Elements {
			if u.containsOpaque(e, visited) {
				return true
			}
		}
		if s.Rest != nil {
			return u.containsOpaque(s.Rest, visited)
		}
	case *Union:
		for _, v := range s.Variants {
			if u.containsOpaque(v.Shape, visited) {
				return true
			}
		}
	}
	return false
}
