package registry

import (
	"go/ast"
	"go/parser"
	"go/token"
	"path/filepath"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/ftson/ftson/schema"
)

const schemaImportPath = "github.com/ftson/ftson/schema"

// schemaConstants maps the key constants of the schema package to their
// values so declarations may write schema.KeyOrder instead of "keyOrder".
var schemaConstants = map[string]string{
	"KeyOrder":       schema.KeyOrder,
	"Fields":         schema.Fields,
	"EscapeHTML":     schema.EscapeHTML,
	"EscapeNonASCII": schema.EscapeNonASCII,
	"MaxPrecision":   schema.MaxPrecision,
	"TupleKey":       schema.TupleKey,
	"RestPrefix":     schema.RestPrefix,
	"Rest":           schema.Rest,
}

type importSpec struct {
	Name string
	Path string
}

// declFile walks a parsed Go declaration file.
type declFile struct {
	path    string
	pkgPath string
	varName string
	fset    *token.FileSet
	imports []importSpec
	set     *Set
	found   bool
	err     error
}

// ExtractGo reads the registrations assigned to varName in a Go file. The
// file is parsed, never compiled or run.
func ExtractGo(path, varName string) (*Set, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve %s", path)
	}
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, abs, nil, parser.SkipObjectResolution)
	if err != nil {
		return nil, errors.Wrapf(err, "can't parse file %q", abs)
	}

	mod, err := FindModule(filepath.Dir(abs))
	if err != nil {
		return nil, err
	}
	pkgPath, err := mod.PackagePath(filepath.Dir(abs))
	if err != nil {
		return nil, err
	}

	d := &declFile{path: abs, pkgPath: pkgPath, varName: varName, fset: fset, set: NewSet()}
	ast.Walk(d, f)
	if d.err != nil {
		return nil, d.err
	}
	if !d.found {
		return nil, errors.WithHintf(
			errors.Newf("%s declares no variable %s", abs, varName),
			"declare `var %s = schema.Registrations{...}`", varName)
	}
	return d.set, nil
}

// Visit collects imports and the registrations variable.
func (d *declFile) Visit(n ast.Node) ast.Visitor {
	if d.err != nil {
		return nil
	}
	switch n := n.(type) {
	case *ast.FuncDecl:
		// only package-level declarations count
		return nil
	case *ast.ImportSpec:
		p, _ := strconv.Unquote(n.Path.Value)
		name := DefaultImportName(p)
		if n.Name != nil {
			name = n.Name.Name
		}
		d.imports = append(d.imports, importSpec{Name: name, Path: p})
	case *ast.GenDecl:
		if n.Tok != token.VAR {
			return d
		}
		for _, spec := range n.Specs {
			vs, ok := spec.(*ast.ValueSpec)
			if !ok {
				continue
			}
			for i, name := range vs.Names {
				if name.Name != d.varName || i >= len(vs.Values) {
					continue
				}
				cl, ok := vs.Values[i].(*ast.CompositeLit)
				if !ok {
					d.err = errors.Newf("%s: %s must be a schema.Registrations literal", d.pos(vs.Values[i]), d.varName)
					return nil
				}
				d.found = true
				d.err = d.registrations(cl)
			}
		}
		return nil
	}
	return d
}

func (d *declFile) pos(n ast.Node) string {
	p := d.fset.Position(n.Pos())
	return filepath.Base(p.Filename) + ":" + strconv.Itoa(p.Line)
}

// importPath resolves a file-level qualifier. Blank and dot imports never
// match.
func (d *declFile) importPath(name string) (string, bool) {
	for _, imp := range d.imports {
		if imp.Name == name && imp.Name != "_" && imp.Name != "." {
			return imp.Path, true
		}
	}
	return "", false
}

// isSchema reports whether expr is schema.<sel> for the schema package.
func (d *declFile) isSchema(expr ast.Expr, sel string) bool {
	se, ok := expr.(*ast.SelectorExpr)
	if !ok || se.Sel.Name != sel {
		return false
	}
	id, ok := se.X.(*ast.Ident)
	if !ok {
		return false
	}
	p, ok := d.importPath(id.Name)
	return ok && p == schemaImportPath
}

func (d *declFile) registrations(cl *ast.CompositeLit) error {
	if cl.Type != nil && !d.isSchema(cl.Type, "Registrations") {
		return errors.Newf("%s: %s must be a schema.Registrations literal", d.pos(cl), d.varName)
	}
	for _, elt := range cl.Elts {
		kv, ok := elt.(*ast.KeyValueExpr)
		if !ok {
			return errors.Newf("%s: expected \"target\": {...}", d.pos(elt))
		}
		target, err := d.stringKey(kv.Key)
		if err != nil {
			return err
		}
		fns, ok := unparen(kv.Value).(*ast.CompositeLit)
		if !ok || fns.Type != nil && !d.isSchema(fns.Type, "Functions") {
			return errors.Newf("%s: functions of %q must be a schema.Functions literal", d.pos(kv.Value), target)
		}
		for _, fe := range fns.Elts {
			fkv, ok := fe.(*ast.KeyValueExpr)
			if !ok {
				return errors.Newf("%s: expected \"FunctionName\": schema.For[T]()(...)", d.pos(fe))
			}
			name, err := d.stringKey(fkv.Key)
			if err != nil {
				return err
			}
			r, ok, err := d.registration(fkv.Value)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			r.OutputTarget = target
			r.FunctionName = name
			d.set.Add(r)
		}
	}
	return nil
}

// registration decodes schema.For[T](global...)(config...). ok is false for
// type arguments that are neither T nor pkg.T.
func (d *declFile) registration(expr ast.Expr) (Registration, bool, error) {
	r := Registration{Pos: d.pos(expr)}

	outer, ok := unparen(expr).(*ast.CallExpr)
	if !ok {
		return r, false, errors.Newf("%s: expected schema.For[T]()(...)", r.Pos)
	}
	inner, ok := unparen(outer.Fun).(*ast.CallExpr)
	if !ok {
		return r, false, errors.Newf("%s: expected schema.For[T]()(...)", r.Pos)
	}
	index, ok := unparen(inner.Fun).(*ast.IndexExpr)
	if !ok || !d.isSchema(index.X, "For") {
		return r, false, errors.Newf("%s: expected schema.For[T]()(...)", r.Pos)
	}

	switch t := index.Index.(type) {
	case *ast.Ident:
		r.TypePackage, r.TypeName = d.pkgPath, t.Name
	case *ast.SelectorExpr:
		q, ok := t.X.(*ast.Ident)
		if !ok {
			return r, false, nil
		}
		p, ok := d.importPath(q.Name)
		if !ok {
			return r, false, errors.WithHintf(
				errors.Wrapf(ErrImportNotResolved, "%s: qualifier %q in %s.%s", r.Pos, q.Name, q.Name, t.Sel.Name),
				"import the package declaring %s in %s", t.Sel.Name, filepath.Base(d.path))
		}
		r.TypePackage, r.TypeName = p, t.Sel.Name
	default:
		return r, false, nil
	}

	var err error
	if r.Global, err = d.optionalArg(inner.Args); err != nil {
		return r, false, err
	}
	if r.Config, err = d.optionalArg(outer.Args); err != nil {
		return r, false, err
	}
	return r, true, nil
}

func (d *declFile) optionalArg(args []ast.Expr) (any, error) {
	if len(args) == 0 {
		return nil, nil
	}
	if len(args) > 1 {
		return nil, errors.Newf("%s: at most one configuration argument is allowed", d.pos(args[1]))
	}
	return d.literal(args[0])
}

func (d *declFile) stringKey(expr ast.Expr) (string, error) {
	v, err := d.literal(expr)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", errors.Newf("%s: key must be a string", d.pos(expr))
	}
	return s, nil
}

// literal converts a constant expression into a raw configuration value.
func (d *declFile) literal(expr ast.Expr) (any, error) {
	switch e := unparen(expr).(type) {
	case *ast.BasicLit:
		return basicLiteral(e, false)
	case *ast.UnaryExpr:
		if bl, ok := unparen(e.X).(*ast.BasicLit); ok && (e.Op == token.SUB || e.Op == token.ADD) {
			return basicLiteral(bl, e.Op == token.SUB)
		}
	case *ast.Ident:
		switch e.Name {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "nil":
			return nil, nil
		}
	case *ast.SelectorExpr:
		if id, ok := e.X.(*ast.Ident); ok {
			if p, ok := d.importPath(id.Name); ok && p == schemaImportPath {
				if v, ok := schemaConstants[e.Sel.Name]; ok {
					return v, nil
				}
			}
		}
	case *ast.CompositeLit:
		return d.composite(e)
	}
	return nil, errors.Newf("%s: unsupported expression in configuration; only literals are allowed", d.pos(expr))
}

func (d *declFile) composite(cl *ast.CompositeLit) (any, error) {
	isList := false
	switch t := cl.Type.(type) {
	case *ast.ArrayType:
		isList = true
	case nil:
		isList = len(cl.Elts) > 0
		if isList {
			_, isKV := cl.Elts[0].(*ast.KeyValueExpr)
			isList = !isKV
		}
	default:
		isList = d.isSchema(t, "List")
	}

	if isList {
		list := make([]any, 0, len(cl.Elts))
		for _, elt := range cl.Elts {
			if _, ok := elt.(*ast.KeyValueExpr); ok {
				return nil, errors.Newf("%s: indexed list elements are not supported", d.pos(elt))
			}
			v, err := d.literal(elt)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil
	}

	m := make(map[string]any, len(cl.Elts))
	for _, elt := range cl.Elts {
		kv, ok := elt.(*ast.KeyValueExpr)
		if !ok {
			return nil, errors.Newf("%s: expected key: value", d.pos(elt))
		}
		k, err := d.stringKey(kv.Key)
		if err != nil {
			return nil, err
		}
		v, err := d.literal(kv.Value)
		if err != nil {
			return nil, err
		}
		m[k] = v
	}
	return m, nil
}

func basicLiteral(bl *ast.BasicLit, negate bool) (any, error) {
	switch bl.Kind {
	case token.STRING:
		if negate {
			break
		}
		v, err := strconv.Unquote(bl.Value)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid string %s", bl.Value)
		}
		return v, nil
	case token.INT:
		n, err := strconv.ParseInt(bl.Value, 0, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid integer %s", bl.Value)
		}
		if negate {
			n = -n
		}
		return n, nil
	case token.FLOAT:
		f, err := strconv.ParseFloat(bl.Value, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid number %s", bl.Value)
		}
		if negate {
			f = -f
		}
		return f, nil
	}
	return nil, errors.Newf("unsupported literal %s", bl.Value)
}

func unparen(e ast.Expr) ast.Expr {
	for {
		p, ok := e.(*ast.ParenExpr)
		if !ok {
			return e
		}
		e = p.X
	}
}
