package gen

import (
	"bytes"
	"fmt"
	"go/token"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/ftson/ftson/internal/configshape"
	"github.com/ftson/ftson/internal/logger"
	"github.com/ftson/ftson/internal/registry"
	"github.com/ftson/ftson/internal/typeshape"
	"github.com/ftson/ftson/internal/validate"
)

// Generator runs one generation: it reads a declaration file, resolves and
// validates every registration, and produces the output files.
type Generator struct {
	// Project is the module directory packages are loaded from.
	Project string
	// Declaration is the declaration file.
	Declaration string
	// VarName is the variable read from Go declaration files.
	VarName string
	// Package overrides the package clause of every output file.
	Package string
	// SkipRejected drops rejected registrations instead of failing.
	SkipRejected bool
	// Stdout receives one line per written file.
	Stdout io.Writer

	Files []*File

	introspector *typeshape.Introspector
	resolver     *configshape.Resolver
	modules      map[string]*registry.Module
}

// Stats counts what Process did with the registrations.
type Stats struct {
	Registrations int
	Generated     int
	Skipped       int
	Rejected      int
}

// Process extracts the registrations and generates every function in
// memory. Nothing is written.
func (g *Generator) Process() (Stats, error) {
	var stats Stats

	decl, err := filepath.Abs(g.Declaration)
	if err != nil {
		return stats, errors.Wrapf(err, "failed to resolve %s", g.Declaration)
	}
	set, err := registry.Extract(decl, registry.Options{VarName: g.VarName})
	if err != nil {
		return stats, err
	}
	stats.Registrations = set.Len()
	logger.Logger.Debugw("extracted registrations", "file", decl, "count", set.Len())

	for _, r := range set.All() {
		if !token.IsIdentifier(r.FunctionName) {
			return stats, errors.WithHint(
				errors.Newf("%s: %q is not a valid Go function name", r.Pos, r.FunctionName),
				"function names must be Go identifiers")
		}
	}

	if err := g.load(set.Packages()); err != nil {
		return stats, err
	}

	g.Files = nil
	byPath := map[string]*File{}
	declDir := filepath.Dir(decl)

	for _, r := range set.All() {
		log := logger.Logger.With("target", r.OutputTarget, "function", r.FunctionName, "type", r.TypeRef(), "pos", r.Pos)

		shape, err := g.introspector.Find(r.TypePackage, r.TypeName)
		if err != nil {
			stats.Skipped++
			log.Errorw("Type not found, function skipped", "error", err)
			continue
		}
		obj, ok := g.introspector.Universe().Resolve(shape).(*typeshape.Object)
		if !ok {
			stats.Skipped++
			log.Errorw("Type is not a struct, function skipped", "shape", shape.String())
			continue
		}

		global, gerr := validate.ValidateGlobal(r.Global)
		cfg, cerr := validate.Validate(g.resolver.Resolve(shape), r.Config)
		if gerr != nil || cerr != nil {
			stats.Rejected++
			logRejections(log, "global", gerr)
			logRejections(log, "config", cerr)
			continue
		}

		fn := Generate(r.FunctionName, obj, cfg, global)
		fn.TypePackage, fn.TypeName, fn.Registration = r.TypePackage, r.TypeName, r
		stats.Generated++

		p := outputPath(declDir, r.OutputTarget)
		f, ok := byPath[p]
		if !ok {
			f = &File{Target: r.OutputTarget, Path: p, pkgPath: g.packagePath(filepath.Dir(p))}
			byPath[p] = f
			g.Files = append(g.Files, f)
		}
		f.Functions = append(f.Functions, fn)
		log.Debugw("Generated function")
	}

	if stats.Rejected > 0 && !g.SkipRejected {
		return stats, errors.WithHint(
			errors.Mark(errors.Newf("%d of %d registrations rejected", stats.Rejected, stats.Registrations),
				validate.ErrConfigShapeRejected),
			"fix the configurations above or pass --skip-rejected to generate the rest")
	}

	for _, f := range g.Files {
		f.assemble(g.Package, g.packageName)
	}
	return stats, nil
}

func (g *Generator) load(pkgs []string) error {
	project, err := filepath.Abs(g.Project)
	if err != nil {
		return errors.Wrapf(err, "failed to resolve %s", g.Project)
	}
	u := typeshape.NewUniverse()
	g.introspector = typeshape.NewIntrospector(u, project)
	g.resolver = configshape.NewResolver(u)
	g.modules = map[string]*registry.Module{}

	if len(pkgs) == 0 {
		return nil
	}
	logger.Logger.Debugw("loading packages", "dir", project, "packages", pkgs)
	return g.introspector.Load(pkgs...)
}

func (g *Generator) packageName(pkgPath string) string {
	if pkg, ok := g.introspector.Package(pkgPath); ok {
		return pkg.Name
	}
	return ""
}

// packagePath returns the import path of dir, or "" outside a module.
func (g *Generator) packagePath(dir string) string {
	mod, ok := g.modules[dir]
	if !ok {
		var err error
		if mod, err = registry.FindModule(dir); err != nil {
			logger.Logger.Debugw("output directory is outside a module", "dir", dir, "error", err)
		}
		g.modules[dir] = mod
	}
	if mod == nil {
		return ""
	}
	p, err := mod.PackagePath(dir)
	if err != nil {
		return ""
	}
	return p
}

type sugaredLogger interface {
	Errorw(msg string, keysAndValues ...any)
}

func logRejections(log sugaredLogger, scope string, err error) {
	if err == nil {
		return
	}
	rs, ok := validate.AsRejections(err)
	if !ok {
		log.Errorw("Configuration rejected", "scope", scope, "error", err)
		return
	}
	for _, r := range rs {
		log.Errorw("Configuration rejected",
			"scope", scope,
			"path", r.Path.String(),
			"code", r.Code,
			"expected", r.Expected,
			"found", r.Found,
		)
	}
}

// Render produces the formatted content of every output file.
func (g *Generator) Render() (map[string][]byte, error) {
	out := make(map[string][]byte, len(g.Files))
	for _, f := range g.Files {
		content, err := f.render()
		if err != nil {
			return nil, err
		}
		out[f.Path] = content
	}
	return out, nil
}

// Gen renders every file and then writes them.
func (g *Generator) Gen() error {
	rendered, err := g.Render()
	if err != nil {
		return err
	}
	stdout := g.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	for _, f := range g.Files {
		if err := writeFile(f.Path, rendered[f.Path]); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "✅ Wrote: %s\n", f.Target)
	}
	return nil
}

// Stale returns the targets whose file content differs from what Gen would
// write.
func (g *Generator) Stale() ([]string, error) {
	rendered, err := g.Render()
	if err != nil {
		return nil, err
	}
	var stale []string
	for _, f := range g.Files {
		existing, err := os.ReadFile(f.Path)
		if err != nil && !os.IsNotExist(err) {
			return nil, errors.Mark(errors.Wrapf(err, "failed to read %s", f.Path), ErrIO)
		}
		if !bytes.Equal(existing, rendered[f.Path]) {
			stale = append(stale, f.Target)
		}
	}
	return stale, nil
}
