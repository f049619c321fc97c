package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("ftson", pflag.ContinueOnError)
	fs.StringP("project", "p", ".", "")
	fs.StringP("config", "c", "ftson.go", "")
	fs.String("var", "Stringify", "")
	fs.String("package", "", "")
	fs.Bool("skip-rejected", false, "")
	fs.Bool("log-json", false, "")
	fs.String("log-level", "info", "")
	return fs
}

func TestLoadDefaults(t *testing.T) {
	s, err := Load(t.TempDir(), nil)
	require.NoError(t, err)
	assert.Equal(t, &Settings{
		Project: ".",
		Config:  "ftson.go",
		Var:     "Stringify",
		Log:     LogSettings{Level: "info"},
	}, s)
}

func TestLoadProjectFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ProjectFile), []byte(`
config = "decl/ftson.yaml"
var = "Encoders"
skip_rejected = true

[log]
level = "debug"
`), 0o644))
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	assert.Equal(t, filepath.Join(root, ProjectFile), FindProjectFile(nested))

	s, err := Load(nested, newFlags())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "decl", "ftson.yaml"), s.Config)
	assert.Equal(t, ".", s.Project)
	assert.Equal(t, "Encoders", s.Var)
	assert.True(t, s.SkipRejected)
	assert.Equal(t, "debug", s.Log.Level)
}

func TestLoadPrecedence(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ProjectFile), []byte(`var = "FromFile"
package = "fromfile"
`), 0o644))

	t.Setenv("FTSON_VAR", "FromEnv")
	t.Setenv("FTSON_LOG_LEVEL", "warn")

	flags := newFlags()
	require.NoError(t, flags.Parse([]string{"--package", "fromflag", "--log-json"}))

	s, err := Load(root, flags)
	require.NoError(t, err)
	assert.Equal(t, "FromEnv", s.Var)
	assert.Equal(t, "fromflag", s.Package)
	assert.Equal(t, "warn", s.Log.Level)
	assert.True(t, s.Log.JSON)
}
