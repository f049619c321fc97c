package typeshape

import (
	"go/types"
	"reflect"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/tools/go/packages"
)

// ErrTypeNotFound is returned when a registered type cannot be located among
// the loaded packages.
var ErrTypeNotFound = errors.New("type not found")

const schemaPkgPath = "github.com/ftson/ftson/schema"

// Introspector builds shapes from go/types and records named types in its
// Universe.
type Introspector struct {
	universe *Universe
	dir      string
	pkgs     map[string]*packages.Package
}

// NewIntrospector returns an Introspector that loads packages relative to dir.
func NewIntrospector(u *Universe, dir string) *Introspector {
	return &Introspector{universe: u, dir: dir, pkgs: map[string]*packages.Package{}}
}

// Universe returns the resolution context shapes are recorded in.
func (in *Introspector) Universe() *Universe { return in.universe }

// Load type-checks the given import paths. Packages that fail to load are
// kept so Find can report their errors per type.
func (in *Introspector) Load(pkgPaths ...string) error {
	var missing []string
	for _, p := range pkgPaths {
		if _, ok := in.pkgs[p]; !ok {
			missing = append(missing, p)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedTypes | packages.NeedSyntax |
			packages.NeedTypesInfo | packages.NeedImports | packages.NeedDeps,
		Dir: in.dir,
	}
	pkgs, err := packages.Load(cfg, missing...)
	if err != nil {
		return errors.Wrapf(err, "failed to load packages %s", strings.Join(missing, ", "))
	}
	for _, pkg := range pkgs {
		in.pkgs[pkg.PkgPath] = pkg
	}
	return nil
}

// Package returns a loaded package.
func (in *Introspector) Package(pkgPath string) (*packages.Package, bool) {
	pkg, ok := in.pkgs[pkgPath]
	return pkg, ok
}

// Find returns the shape of the named type pkgPath.name.
func (in *Introspector) Find(pkgPath, name string) (Shape, error) {
	pkg, ok := in.pkgs[pkgPath]
	if !ok || pkg.Types == nil {
		return nil, errors.Wrapf(ErrTypeNotFound, "%s.%s: package not loaded", pkgPath, name)
	}
	obj := pkg.Types.Scope().Lookup(name)
	tn, ok := obj.(*types.TypeName)
	if !ok {
		err := errors.Wrapf(ErrTypeNotFound, "%s.%s", pkgPath, name)
		if len(pkg.Errors) > 0 {
			err = errors.WithDetailf(err, "package errors: %v", pkg.Errors)
		}
		return nil, err
	}
	return in.ShapeOf(tn.Type()), nil
}

// ShapeOf returns the shape of t.
func (in *Introspector) ShapeOf(t types.Type) Shape {
	switch t := t.(type) {
	case *types.Alias:
		return in.ShapeOf(types.Unalias(t))
	case *types.Named:
		return in.named(t)
	case *types.Basic:
		return basicShape(t, false)
	case *types.Pointer:
		return &Nullable{Inner: in.ShapeOf(t.Elem())}
	case *types.Slice:
		if isByte(t.Elem()) {
			return &Primitive{Prim: PrimOther}
		}
		return &Array{Elem: in.ShapeOf(t.Elem())}
	case *types.Array:
		return &Array{Elem: in.ShapeOf(t.Elem())}
	case *types.Struct:
		return in.structShape("", t)
	case *types.Signature:
		return &Opaque{Reason: "func"}
	case *types.Chan:
		return &Opaque{Reason: "chan"}
	case *types.TypeParam:
		return typeParamShape(t)
	}
	// maps and anonymous interfaces
	return &Primitive{Prim: PrimOther}
}

func (in *Introspector) named(t *types.Named) Shape {
	switch {
	case isNamed(t, "encoding/json", "Number"):
		return &Primitive{Prim: PrimStringOrNumber}
	case isNamed(t, schemaPkgPath, "Tuple"):
		return &Primitive{Prim: PrimOther}
	}

	if st, ok := t.Underlying().(*types.Struct); ok && hasTupleMarker(st) {
		id := types.TypeString(t, nil)
		return in.universe.Define(id, func() Shape { return in.tupleShape(id, st) })
	}
	if implementsMarshaler(t) {
		return &Primitive{Prim: PrimOther}
	}
	if b, ok := t.Underlying().(*types.Basic); ok {
		return basicShape(b, true)
	}

	id := types.TypeString(t, nil)
	return in.universe.Define(id, func() Shape {
		switch u := t.Underlying().(type) {
		case *types.Struct:
			return in.structShape(id, u)
		case *types.Interface:
			return in.unionShape(id, t, u)
		default:
			return in.ShapeOf(u)
		}
	})
}

func (in *Introspector) structShape(id string, st *types.Struct) Shape {
	var found []candidate
	collectFields(st, nil, nil, map[*types.Struct]bool{}, &found)

	// a name is taken by its shallowest fields: one tagged field wins over
	// untagged ones at that depth, otherwise more than one drops the name
	byName := map[string][]candidate{}
	for _, c := range found {
		byName[c.name] = append(byName[c.name], c)
	}
	var kept []candidate
	for _, c := range found {
		if winner, ok := dominant(byName[c.name]); ok && slices.Equal(winner.index, c.index) {
			kept = append(kept, c)
		}
	}

	obj := &Object{ID: id}
	for _, c := range kept {
		obj.Fields = append(obj.Fields, Field{Name: c.name, GoName: strings.Join(c.path, "."), Shape: in.ShapeOf(c.typ)})
	}
	return obj
}

// candidate is a field reachable from a struct through untagged value
// embeds.
type candidate struct {
	name   string
	tagged bool
	// index and path locate the field; path holds the Go selector parts.
	index []int
	path  []string
	typ   types.Type
}

// collectFields appends every serialized field of st, descending into
// untagged value-embedded structs, in declaration order.
func collectFields(st *types.Struct, index []int, path []string, visiting map[*types.Struct]bool, out *[]candidate) {
	if visiting[st] {
		return
	}
	visiting[st] = true
	defer delete(visiting, st)

	for i := 0; i < st.NumFields(); i++ {
		f := st.Field(i)
		tag := parseJSONTag(st.Tag(i))
		if tag.skip {
			continue
		}
		fIndex := append(append([]int(nil), index...), i)
		fPath := append(append([]string(nil), path...), f.Name())
		if f.Embedded() && tag.name == "" {
			if _, isPtr := f.Type().(*types.Pointer); !isPtr {
				if inner, ok := f.Type().Underlying().(*types.Struct); ok && !implementsMarshaler(f.Type()) {
					collectFields(inner, fIndex, fPath, visiting, out)
					continue
				}
			}
		}
		if !f.Exported() {
			continue
		}
		name := tag.name
		if name == "" {
			name = f.Name()
		}
		*out = append(*out, candidate{name: name, tagged: tag.name != "", index: fIndex, path: fPath, typ: f.Type()})
	}
}

// dominant picks the field that owns a JSON name, following encoding/json:
// the shallowest depth wins, and at that depth a single tagged field beats
// untagged ones. Any other tie hides the name.
func dominant(cs []candidate) (candidate, bool) {
	depth := len(cs[0].index)
	for _, c := range cs[1:] {
		depth = min(depth, len(c.index))
	}
	var shallow []candidate
	for _, c := range cs {
		if len(c.index) == depth {
			shallow = append(shallow, c)
		}
	}
	if len(shallow) == 1 {
		return shallow[0], true
	}
	var tagged []candidate
	for _, c := range shallow {
		if c.tagged {
			tagged = append(tagged, c)
		}
	}
	if len(tagged) == 1 {
		return tagged[0], true
	}
	return candidate{}, false
}

func (in *Introspector) tupleShape(id string, st *types.Struct) Shape {
	tuple := &Tuple{ID: id}
	for i := 1; i < st.NumFields(); i++ {
		f := st.Field(i)
		if !f.Exported() || parseJSONTag(st.Tag(i)).skip {
			continue
		}
		if sl, ok := f.Type().Underlying().(*types.Slice); ok && isRestTag(st.Tag(i)) {
			tuple.Rest = in.ShapeOf(sl.Elem())
			continue
		}
		tuple.Elements = append(tuple.Elements, in.ShapeOf(f.Type()))
	}
	return tuple
}

// unionShape collects the named types of the interface's package that
// implement it. Variants are ordered by name.
func (in *Introspector) unionShape(id string, named *types.Named, iface *types.Interface) Shape {
	if iface.NumMethods() == 0 || named.Obj().Pkg() == nil {
		return &Primitive{Prim: PrimOther}
	}
	union := &Union{ID: id}
	scope := named.Obj().Pkg().Scope()
	for _, name := range scope.Names() {
		tn, ok := scope.Lookup(name).(*types.TypeName)
		if !ok || tn.IsAlias() {
			continue
		}
		vt, ok := tn.Type().(*types.Named)
		if !ok || vt == named || vt.TypeParams().Len() > 0 || types.IsInterface(vt) {
			continue
		}
		if types.Implements(vt, iface) || types.Implements(types.NewPointer(vt), iface) {
			union.Variants = append(union.Variants, Variant{Name: name, Shape: in.ShapeOf(vt)})
		}
	}
	return union
}

func basicShape(b *types.Basic, named bool) Shape {
	info := b.Info()
	switch {
	case info&types.IsString != 0:
		return &Primitive{Prim: PrimString, Named: named}
	case info&types.IsBoolean != 0:
		return &Primitive{Prim: PrimBoolean, Named: named}
	case info&types.IsInteger != 0:
		if info&types.IsUnsigned != 0 {
			return &Primitive{Prim: PrimNumber, Number: NumUint, Named: named}
		}
		return &Primitive{Prim: PrimNumber, Number: NumInt, Named: named}
	case info&types.IsFloat != 0:
		if b.Kind() == types.Float32 {
			return &Primitive{Prim: PrimNumber, Number: NumFloat32, Named: named}
		}
		return &Primitive{Prim: PrimNumber, Number: NumFloat64, Named: named}
	case b.Kind() == types.UnsafePointer:
		return &Opaque{Reason: "unsafe.Pointer"}
	}
	return &Primitive{Prim: PrimOther}
}

// typeParamShape classifies a type parameter by the terms of its constraint.
func typeParamShape(tp *types.TypeParam) Shape {
	iface, ok := tp.Constraint().Underlying().(*types.Interface)
	if !ok {
		return &Primitive{Prim: PrimOther}
	}
	var str, num, other bool
	for i := 0; i < iface.NumEmbeddeds(); i++ {
		union, ok := iface.EmbeddedType(i).(*types.Union)
		if !ok {
			other = true
			continue
		}
		for j := 0; j < union.Len(); j++ {
			b, ok := union.Term(j).Type().Underlying().(*types.Basic)
			switch {
			case !ok:
				other = true
			case b.Info()&types.IsString != 0:
				str = true
			case b.Info()&types.IsNumeric != 0 && b.Info()&types.IsComplex == 0:
				num = true
			default:
				other = true
			}
		}
	}
	switch {
	case other || !str && !num:
		return &Primitive{Prim: PrimOther}
	case str && num:
		return &Primitive{Prim: PrimStringOrNumber}
	case str:
		return &Primitive{Prim: PrimString, Named: true}
	}
	return &Primitive{Prim: PrimNumber, Number: NumUnknown}
}

func isByte(t types.Type) bool {
	b, ok := t.Underlying().(*types.Basic)
	return ok && b.Kind() == types.Byte
}

func isNamed(t *types.Named, pkgPath, name string) bool {
	obj := t.Obj()
	return obj.Pkg() != nil && obj.Pkg().Path() == pkgPath && obj.Name() == name
}

func hasTupleMarker(st *types.Struct) bool {
	if st.NumFields() == 0 || !st.Field(0).Embedded() {
		return false
	}
	n, ok := st.Field(0).Type().(*types.Named)
	return ok && isNamed(n, schemaPkgPath, "Tuple")
}

// implementsMarshaler reports whether t or *t has MarshalJSON or MarshalText.
func implementsMarshaler(t types.Type) bool {
	for _, method := range []string{"MarshalJSON", "MarshalText"} {
		for _, recv := range []types.Type{t, types.NewPointer(t)} {
			obj, _, _ := types.LookupFieldOrMethod(recv, true, nil, method)
			fn, ok := obj.(*types.Func)
			if !ok {
				continue
			}
			sig := fn.Type().(*types.Signature)
			if sig.Params().Len() == 0 && sig.Results().Len() == 2 {
				return true
			}
		}
	}
	return false
}

type jsonTag struct {
	name string
	skip bool
}

func parseJSONTag(tag string) jsonTag {
	v, ok := reflect.StructTag(tag).Lookup("json")
	if !ok {
		return jsonTag{}
	}
	if v == "-" {
		return jsonTag{skip: true}
	}
	name, _, _ := strings.Cut(v, ",")
	return jsonTag{name: name}
}

func isRestTag(tag string) bool {
	opts := strings.Split(reflect.StructTag(tag).Get("ftson"), ",")
	for _, o := range opts[1:] {
		if o == "rest" {
			return true
		}
	}
	return false
}
