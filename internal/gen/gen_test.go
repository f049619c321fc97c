package gen

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftson/ftson/internal/logger"
	"github.com/ftson/ftson/internal/validate"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	prev := logger.Logger
	t.Cleanup(func() { logger.Logger = prev })

	var out bytes.Buffer
	cmd := New()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestShapeCommand(t *testing.T) {
	out, err := execute(t, "shape", "github.com/ftson/ftson/examples/models.ArbitraryType", "-p", "../..", "--log-level", "error")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "#/$defs/github.com_ftson_ftson_examples_models.ArbitraryType", doc["$ref"])
	assert.Contains(t, out, `"keyOrder"`)
	assert.Less(t, len(out), 16<<10)
}

func TestShapeCommandCheck(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(good, []byte("keyOrder: [b]\nfields:\n  b:\n    fields:\n      c: {escapeHtml: true}\n"), 0o644))
	require.NoError(t, os.WriteFile(bad, []byte("keyOrder: [z]\n"), 0o644))

	ref := "github.com/ftson/ftson/examples/models.ArbitraryType"

	out, err := execute(t, "shape", ref, "-p", "../..", "--log-level", "error", "--check", good)
	require.NoError(t, err)
	assert.Contains(t, out, "fits")

	out, err = execute(t, "shape", ref, "-p", "../..", "--log-level", "error", "--check", bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, validate.ErrConfigShapeRejected))
	assert.Contains(t, out, "schema: ")
	assert.Contains(t, out, "config: invalid_enum at keyOrder[0]")
}

func TestCheckCommand(t *testing.T) {
	out, err := execute(t, "check", "-p", "../..", "-c", "../../examples/ftson.go", "--log-level", "error")
	require.NoError(t, err)
	assert.Equal(t, "✅ Up to date: 1 files\n", out)
}

func TestCheckCommandStale(t *testing.T) {
	dir := t.TempDir()
	decl := filepath.Join(dir, "ftson.yaml")
	require.NoError(t, os.WriteFile(decl, []byte("enc.go:\n  EncodeNode:\n    type: github.com/ftson/ftson/examples/models.Node\n"), 0o644))

	out, err := execute(t, "check", "-p", "../..", "-c", decl, "--package", "enc", "--log-level", "error")
	require.Error(t, err)
	assert.Equal(t, "❌ Stale: enc.go\n", out)
	assert.NotEmpty(t, errors.GetAllHints(err))

	out, err = execute(t, "-p", "../..", "-c", decl, "--package", "enc", "--log-level", "error")
	require.NoError(t, err)
	assert.Equal(t, "✅ Wrote: enc.go\n", out)

	out, err = execute(t, "check", "-p", "../..", "-c", decl, "--package", "enc", "--log-level", "error")
	require.NoError(t, err)
	assert.Equal(t, "✅ Up to date: 1 files\n", out)
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := execute(t, "check", "--log-level", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}
