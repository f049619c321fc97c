package gen

import (
	"bytes"
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/cockroachdb/errors"
	"golang.org/x/tools/imports"

	"github.com/ftson/ftson/internal/registry"
)

// ErrIO marks failures to create, read or write output files.
var ErrIO = errors.New("output file error")

// Import paths of the runtime packages generated code calls into.
const (
	escapeImportPath = "github.com/ftson/ftson/escape"
	encodeImportPath = "github.com/ftson/ftson/encode"
)

var tmpl = template.Must(template.New("file").Parse(pkgTmpl))

// File is one output target and the functions generated into it.
type File struct {
	// Target is the output target as declared.
	Target string
	// Path is the absolute file path.
	Path      string
	Package   string
	Imports   []Import
	Functions []*Function

	// pkgPath is the import path of the output directory, if known.
	pkgPath string
}

type Import struct {
	Name string
	Path string
}

// ImportPath returns formatted import path string for template generation
func (p Import) ImportPath() string {
	if registry.DefaultImportName(p.Path) == p.Name {
		return strconv.Quote(p.Path)
	}
	return fmt.Sprintf("%s %q", p.Name, p.Path)
}

// outputPath resolves a declared target against the declaration file's
// directory and appends .go when missing.
func outputPath(declDir, target string) string {
	p := target
	if !filepath.IsAbs(p) {
		p = filepath.Join(declDir, filepath.FromSlash(target))
	}
	if filepath.Ext(p) != ".go" {
		p += ".go"
	}
	return filepath.Clean(p)
}

// packageNamer reports the package name for an import path.
type packageNamer func(pkgPath string) string

// assemble computes the package clause, the imports and the qualified
// parameter types of f.
func (f *File) assemble(override string, nameOf packageNamer) {
	f.Package = f.packageName(override, nameOf)

	var usesEscape, usesEncode bool
	for _, fn := range f.Functions {
		usesEscape = usesEscape || fn.UsesEscape
		usesEncode = usesEncode || fn.UsesEncode
	}

	f.Imports = nil
	taken := map[string]string{}
	add := func(name, p string) string {
		for n, existing := range taken {
			if existing == p {
				return n
			}
		}
		alias := name
		for i := 2; taken[alias] != ""; i++ {
			alias = name + strconv.Itoa(i)
		}
		taken[alias] = p
		f.Imports = append(f.Imports, Import{Name: alias, Path: p})
		return alias
	}
	// reserve the runtime names first so user packages get the alias
	if usesEncode {
		add("encode", encodeImportPath)
	}
	if usesEscape {
		add("escape", escapeImportPath)
	}

	for _, fn := range f.Functions {
		if fn.TypePackage == f.pkgPath {
			fn.ParameterType = fn.TypeName
			continue
		}
		name := nameOf(fn.TypePackage)
		if name == "" {
			name = registry.DefaultImportName(fn.TypePackage)
		}
		if name == "input" || token.IsKeyword(name) {
			name += "pkg"
		}
		fn.ParameterType = add(name, fn.TypePackage) + "." + fn.TypeName
	}
}

// packageName picks the package clause: the override, else the package of a
// type declared in the output directory, else the clause of Go files
// already there, else the directory name.
func (f *File) packageName(override string, nameOf packageNamer) string {
	if override != "" {
		return override
	}
	if f.pkgPath != "" {
		for _, fn := range f.Functions {
			if fn.TypePackage == f.pkgPath {
				if name := nameOf(fn.TypePackage); name != "" {
					return name
				}
			}
		}
	}
	if name := existingPackage(filepath.Dir(f.Path)); name != "" {
		return name
	}
	return sanitizePackageName(filepath.Base(filepath.Dir(f.Path)))
}

// existingPackage returns the package clause of the first non-test Go file
// in dir.
func existingPackage(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	fset := token.NewFileSet()
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		af, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.PackageClauseOnly)
		if err == nil && af.Name != nil {
			return af.Name.Name
		}
	}
	return ""
}

func sanitizePackageName(base string) string {
	name := registry.DefaultImportName(base)
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if r == '_' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "" || s[0] >= '0' && s[0] <= '9' || token.IsKeyword(s) {
		s = "p" + s
	}
	return s
}

// render executes the template and formats the result.
func (f *File) render() ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, f); err != nil {
		return nil, errors.Wrapf(err, "failed to render template for %s", f.Target)
	}
	out, err := imports.Process(f.Path, buf.Bytes(), &imports.Options{
		FormatOnly: true,
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to format generated code for %s", f.Target)
	}
	return out, nil
}

// isGenerated reports whether the file at p carries the generated header.
func isGenerated(content []byte) bool {
	for _, line := range strings.SplitN(string(content), "\n", 10) {
		if strings.TrimSpace(line) == generatedHeader {
			return true
		}
	}
	return false
}

// writeFile writes content to p. A file that exists without the generated
// header is never overwritten.
func writeFile(p string, content []byte) error {
	existing, err := os.ReadFile(p)
	switch {
	case err == nil:
		if !isGenerated(existing) {
			return errors.WithHint(
				errors.Mark(errors.Newf("refusing to overwrite %s: not a generated file", p), ErrIO),
				"choose another output target or delete the file")
		}
	case !os.IsNotExist(err):
		return errors.Mark(errors.Wrapf(err, "failed to read %s", p), ErrIO)
	}

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errors.Mark(errors.Wrapf(err, "failed to create directory for %s", p), ErrIO)
	}
	if err := os.WriteFile(p, content, 0o644); err != nil {
		return errors.Mark(errors.Wrapf(err, "failed to write %s", p), ErrIO)
	}
	return nil
}
