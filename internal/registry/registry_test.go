package registry

import (
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	modelsPkg   = "github.com/ftson/ftson/examples/models"
	testdataPkg = "github.com/ftson/ftson/internal/registry/testdata"
)

func functions(s *Set) []string {
	var out []string
	for _, r := range s.All() {
		out = append(out, r.OutputTarget+"#"+r.FunctionName)
	}
	return out
}

func TestExtractGo(t *testing.T) {
	set, err := Extract("testdata/decl.go", Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"out/articles.go#EncodeArticle",
		"out/articles.go#EncodeAuthor",
		"out/articles.go#EncodeLocal",
		"out/nodes#EncodeNode",
	}, functions(set), "generic type arguments are skipped")

	all := set.All()
	article := all[0]
	assert.Equal(t, modelsPkg, article.TypePackage)
	assert.Equal(t, "Article", article.TypeName)
	assert.Equal(t, modelsPkg+".Article", article.TypeRef())
	assert.Equal(t, map[string]any{"escapeHtml": true}, article.Global)
	assert.Equal(t, map[string]any{
		"keyOrder": []any{"title", "id"},
		"fields":   map[string]any{"rating": map[string]any{"maxPrecision": int64(2)}},
	}, article.Config)
	assert.Regexp(t, `^decl\.go:\d+$`, article.Pos)

	author := all[1]
	assert.Equal(t, modelsPkg, author.TypePackage, "aliased import")
	assert.Nil(t, author.Config)
	assert.Nil(t, author.Global)

	local := all[2]
	assert.Equal(t, testdataPkg, local.TypePackage)
	assert.Equal(t, map[string]any{
		"n": int64(-3),
		"f": -1.5,
		"z": nil,
		"l": []any{"x", int64(16)},
	}, local.Config)

	assert.Equal(t, []string{modelsPkg, testdataPkg}, set.Packages())
}

func TestExtractGoOtherVariable(t *testing.T) {
	set, err := Extract("testdata/decl.go", Options{VarName: "Other"})
	require.NoError(t, err)
	assert.Equal(t, []string{"out/other.go#EncodeInner"}, functions(set))

	_, err = Extract("testdata/decl.go", Options{VarName: "Missing"})
	require.Error(t, err)
	assert.Contains(t, errors.FlattenHints(err), "schema.Registrations")
}

func TestExtractGoImportNotResolved(t *testing.T) {
	_, err := Extract("testdata/unresolved.go", Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrImportNotResolved))
	assert.Contains(t, err.Error(), `qualifier "models"`)
	assert.Contains(t, errors.FlattenHints(err), "unresolved.go")
}

func TestExtractGoIgnoresFunctionLocals(t *testing.T) {
	set, err := Extract("testdata/funclocal.go", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"out.go#EncodeLocal"}, functions(set))
}

func TestExtractGoRejectsNonLiterals(t *testing.T) {
	_, err := Extract("testdata/computed.go", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only literals are allowed")
}

func TestExtractYAML(t *testing.T) {
	set, err := Extract("testdata/decl.yaml", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"out/articles.go#EncodeArticle",
		"out/articles.go#EncodeLocal",
		"out/nodes.go#EncodeNode",
	}, functions(set))

	all := set.All()
	assert.Equal(t, "Article", all[0].TypeName)
	assert.Equal(t, map[string]any{"escapeNonAscii": true}, all[0].Global)
	assert.Equal(t, map[string]any{
		"keyOrder": []any{"title", "id"},
		"fields":   map[string]any{"rating": map[string]any{"maxPrecision": int64(2)}},
	}, all[0].Config)
	assert.Equal(t, "decl.yaml:3", all[0].Pos)

	assert.Equal(t, testdataPkg, all[1].TypePackage)
	assert.Equal(t, "Local", all[1].TypeName)
}

func TestExtractJSONKeepsDocumentOrder(t *testing.T) {
	set, err := Extract("testdata/decl.json", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"out/nodes.go#EncodeNode", "out/articles.go#EncodeArticle"}, functions(set))
	assert.Equal(t, map[string]any{
		"keyOrder": []any{"id"},
		"fields":   map[string]any{"title": map[string]any{"escapeHtml": true}},
	}, set.All()[1].Config)
}

func TestExtractTOML(t *testing.T) {
	set, err := Extract("testdata/decl.toml", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"out/articles.go#EncodeArticle", "out/nodes.go#EncodeNode"}, functions(set))

	article := set.All()[0]
	assert.Equal(t, map[string]any{"escapeHtml": true}, article.Global)
	assert.Equal(t, map[string]any{
		"keyOrder": []any{"title", "id"},
		"fields":   map[string]any{"rating": map[string]any{"maxPrecision": int64(2)}},
	}, article.Config)
}

func TestExtractErrors(t *testing.T) {
	_, err := Extract("testdata/badentry.yaml", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown key "confg"`)

	_, err = Extract("testdata/decl.txt", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported declaration file")
}

func TestSetLastWriterWins(t *testing.T) {
	s := NewSet()
	s.Add(Registration{OutputTarget: "a.go", FunctionName: "F", TypeName: "T1", Pos: "x.go:1"})
	s.Add(Registration{OutputTarget: "a.go", FunctionName: "G", TypeName: "T2", Pos: "x.go:2"})
	s.Add(Registration{OutputTarget: "a.go", FunctionName: "F", TypeName: "T3", Pos: "x.go:3"})

	all := s.All()
	require.Len(t, all, 2)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, "F", all[0].FunctionName)
	assert.Equal(t, "T3", all[0].TypeName)
	assert.Equal(t, "x.go:1 (overridden at x.go:3)", all[0].Pos)
	assert.Equal(t, "G", all[1].FunctionName)
}

func TestDefaultImportName(t *testing.T) {
	tests := map[string]string{
		"github.com/ftson/ftson/schema":            "schema",
		"github.com/santhosh-tekuri/jsonschema/v6": "jsonschema",
		"gopkg.in/yaml.v3":                         "yaml",
		"github.com/goccy/go-json":                 "json",
		"github.com/mattn/go-sqlite3":              "sqlite3",
		"example.com/some-lib":                     "some_lib",
		"fmt":                                      "fmt",
	}
	for in, want := range tests {
		assert.Equal(t, want, DefaultImportName(in), in)
	}
}

func TestModulePackagePath(t *testing.T) {
	mod, err := FindModule("testdata")
	require.NoError(t, err)
	assert.Equal(t, "github.com/ftson/ftson", mod.Path)

	p, err := mod.PackagePath("testdata")
	require.NoError(t, err)
	assert.Equal(t, testdataPkg, p)

	p, err = mod.PackagePath(mod.Dir)
	require.NoError(t, err)
	assert.Equal(t, "github.com/ftson/ftson", p)

	_, err = mod.PackagePath(filepath.Dir(mod.Dir))
	assert.Error(t, err)
}

func TestSplitTypeRef(t *testing.T) {
	pkg, name := SplitTypeRef("gopkg.in/yaml.v3.Node", "def")
	assert.Equal(t, "gopkg.in/yaml.v3", pkg)
	assert.Equal(t, "Node", name)

	pkg, name = SplitTypeRef("Local", "def")
	assert.Equal(t, "def", pkg)
	assert.Equal(t, "Local", name)
}
