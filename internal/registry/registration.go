// Package registry reads the list of functions to generate from a
// declaration file.
//
// A declaration is either a Go file holding a schema.Registrations variable
// or a YAML, JSON or TOML document of the same structure. Both produce an
// ordered Set of Registration values.
package registry

import (
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrImportNotResolved is returned when a type reference names a package
// the declaration file does not import.
var ErrImportNotResolved = errors.New("import not resolved")

// DefaultVarName is the variable read from Go declaration files.
const DefaultVarName = "Stringify"

// Registration asks for one generated function.
type Registration struct {
	// OutputTarget is the file the function is written to, as declared.
	OutputTarget string
	FunctionName string
	TypeName     string
	// TypePackage is the import path of the package declaring TypeName.
	TypePackage string
	// Config and Global are raw trees of map[string]any, []any, string,
	// bool, int64, float64 and nil.
	Config any
	Global any
	// Pos is the file:line the registration was declared at.
	Pos string
}

// TypeRef returns the qualified type name.
func (r Registration) TypeRef() string {
	return r.TypePackage + "." + r.TypeName
}

type key struct {
	target, function string
}

// Set is an ordered collection of registrations keyed by output target and
// function name.
type Set struct {
	order []key
	items map[key]Registration
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{items: map[key]Registration{}}
}

// Add inserts r. A registration for the same target and function replaces
// the earlier one but keeps its position.
func (s *Set) Add(r Registration) {
	k := key{r.OutputTarget, r.FunctionName}
	if prev, ok := s.items[k]; ok {
		r.Pos = prev.Pos + " (overridden at " + r.Pos + ")"
	} else {
		s.order = append(s.order, k)
	}
	s.items[k] = r
}

// All returns the registrations in declaration order.
func (s *Set) All() []Registration {
	out := make([]Registration, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.items[k])
	}
	return out
}

// Len returns the number of registrations.
func (s *Set) Len() int { return len(s.order) }

// Packages returns the distinct type packages in first-use order.
func (s *Set) Packages() []string {
	var pkgs []string
	seen := map[string]bool{}
	for _, k := range s.order {
		p := s.items[k].TypePackage
		if !seen[p] {
			seen[p] = true
			pkgs = append(pkgs, p)
		}
	}
	return pkgs
}

// Options control extraction.
type Options struct {
	// VarName is the Go variable holding the registrations.
	VarName string
}

// Extract reads the declaration file at path, choosing the format by file
// extension.
func Extract(path string, opts Options) (*Set, error) {
	if opts.VarName == "" {
		opts.VarName = DefaultVarName
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".go":
		return ExtractGo(path, opts.VarName)
	case ".yaml", ".yml", ".json":
		return ExtractYAML(path)
	case ".toml":
		return ExtractTOML(path)
	default:
		return nil, errors.WithHint(
			errors.Newf("unsupported declaration file %s", path),
			"use a .go, .yaml, .yml, .json or .toml file")
	}
}
