package registry

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/mod/modfile"
)

// Module is the Go module enclosing a directory.
type Module struct {
	Dir  string
	Path string
}

// FindModule walks up from dir to the nearest go.mod.
func FindModule(dir string) (*Module, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve %s", dir)
	}
	for d := abs; ; d = filepath.Dir(d) {
		data, err := os.ReadFile(filepath.Join(d, "go.mod"))
		if err == nil {
			modPath := modfile.ModulePath(data)
			if modPath == "" {
				return nil, errors.Newf("%s has no module directive", filepath.Join(d, "go.mod"))
			}
			return &Module{Dir: d, Path: modPath}, nil
		}
		if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to read go.mod in %s", d)
		}
		if filepath.Dir(d) == d {
			return nil, errors.WithHint(
				errors.Newf("no go.mod found above %s", abs),
				"declaration files and output targets must live inside a Go module")
		}
	}
}

// PackagePath returns the import path of the package in dir.
func (m *Module) PackagePath(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.Wrapf(err, "failed to resolve %s", dir)
	}
	rel, err := filepath.Rel(m.Dir, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Newf("%s is outside module %s", abs, m.Path)
	}
	if rel == "." {
		return m.Path, nil
	}
	return path.Join(m.Path, filepath.ToSlash(rel)), nil
}

// DefaultImportName guesses the package name of an import path: the last
// element, skipping a major version suffix and a gopkg.in style ".vN".
func DefaultImportName(importPath string) string {
	name := path.Base(importPath)
	if isMajorVersion(name) && path.Dir(importPath) != "." {
		name = path.Base(path.Dir(importPath))
	}
	if i := strings.Index(name, ".v"); i > 0 && isMajorVersion(name[i+1:]) {
		name = name[:i]
	}
	name = strings.TrimPrefix(name, "go-")
	name = strings.TrimSuffix(name, "-go")
	return strings.ReplaceAll(name, "-", "_")
}

func isMajorVersion(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
