package validate

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftson/ftson/internal/configshape"
)

func leaf(k configshape.Kind) *configshape.Shape { return &configshape.Shape{Kind: k} }

func obj(fields ...configshape.Field) *configshape.Shape {
	return &configshape.Shape{Kind: configshape.KindObject, Fields: fields}
}

func f(name string, s *configshape.Shape) configshape.Field {
	return configshape.Field{Name: name, Shape: s}
}

// arbitrary is the configuration shape of {a: number, b: {c: string, d: string}}.
func arbitrary() *configshape.Shape {
	return obj(
		f("a", leaf(configshape.KindNumber)),
		f("b", obj(f("c", leaf(configshape.KindString)), f("d", leaf(configshape.KindString)))),
	)
}

func rejectionsOf(t *testing.T, err error) Rejections {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfigShapeRejected))
	rs, ok := AsRejections(err)
	require.True(t, ok)
	return rs
}

func TestValidateAccepts(t *testing.T) {
	cfg, err := Validate(arbitrary(), map[string]any{
		"keyOrder": []any{"b"},
		"fields": map[string]any{
			"a": map[string]any{"maxPrecision": int64(2)},
			"b": map[string]any{
				"keyOrder": []any{"d", "c"},
				"fields":   map[string]any{"c": map[string]any{"escapeHtml": true, "escapeNonAscii": false}},
			},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"b"}, cfg.KeyOrder)
	require.NotNil(t, cfg.Field("a").MaxPrecision)
	assert.Equal(t, uint64(2), *cfg.Field("a").MaxPrecision)

	b := cfg.Field("b")
	assert.Equal(t, []string{"d", "c"}, b.KeyOrder)
	assert.True(t, *b.Field("c").EscapeHTML)
	assert.False(t, *b.Field("c").EscapeNonASCII)
	assert.Nil(t, b.Field("d"))
}

func TestValidateAbsent(t *testing.T) {
	for _, raw := range []any{nil, map[string]any{}} {
		cfg, err := Validate(arbitrary(), raw)
		require.NoError(t, err)
		assert.Empty(t, cfg.KeyOrder)
		assert.Nil(t, cfg.Fields)
		assert.Nil(t, cfg.Field("a"))
	}

	cfg, err := Validate(leaf(configshape.KindNever), nil)
	require.NoError(t, err)
	assert.NotNil(t, cfg)
}

func TestValidateUnknownKeyPath(t *testing.T) {
	_, err := Validate(arbitrary(), map[string]any{
		"fields": map[string]any{"b": map[string]any{"fields": map[string]any{"z": map[string]any{}}}},
	})
	rs := rejectionsOf(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, CodeUnknownKey, rs[0].Code)
	assert.Equal(t, "fields.b.fields.z", rs[0].Path.String())
	assert.Equal(t, "one of c, d", rs[0].Expected)
}

func TestValidateKeyOrder(t *testing.T) {
	_, err := Validate(arbitrary(), map[string]any{
		"fields": map[string]any{"b": map[string]any{"keyOrder": []any{"c", "x", "c", true}}},
	})
	rs := rejectionsOf(t, err)
	require.Len(t, rs, 3)

	assert.Equal(t, CodeInvalidEnum, rs[0].Code)
	assert.Equal(t, "fields.b.keyOrder[1]", rs[0].Path.String())
	assert.Equal(t, "x", rs[0].Found)

	assert.Equal(t, CodeDuplicateKey, rs[1].Code)
	assert.Equal(t, "fields.b.keyOrder[2]", rs[1].Path.String())

	assert.Equal(t, CodeInvalidType, rs[2].Code)
	assert.Equal(t, "boolean", rs[2].Found)
}

func TestValidateCollectsInSortedOrder(t *testing.T) {
	_, err := Validate(arbitrary(), map[string]any{
		"zeta":     1,
		"fields":   "nope",
		"keyOrder": "a",
	})
	rs := rejectionsOf(t, err)
	require.Len(t, rs, 3)
	assert.Equal(t, "fields", rs[0].Path.String())
	assert.Equal(t, "keyOrder", rs[1].Path.String())
	assert.Equal(t, "zeta", rs[2].Path.String())
	assert.Contains(t, err.Error(), "unknown_key at zeta")
}

func TestValidatePrimitiveOptions(t *testing.T) {
	tests := []struct {
		name  string
		shape *configshape.Shape
		raw   map[string]any
		code  string
	}{
		{"escape on number", leaf(configshape.KindNumber), map[string]any{"escapeHtml": true}, CodeUnknownKey},
		{"precision on string", leaf(configshape.KindString), map[string]any{"maxPrecision": 1}, CodeUnknownKey},
		{"anything on empty", leaf(configshape.KindEmpty), map[string]any{"escapeHtml": true}, CodeUnknownKey},
		{"non-bool flag", leaf(configshape.KindString), map[string]any{"escapeHtml": "yes"}, CodeInvalidType},
		{"negative precision", leaf(configshape.KindNumber), map[string]any{"maxPrecision": int64(-1)}, CodeTooSmall},
		{"fractional precision", leaf(configshape.KindNumber), map[string]any{"maxPrecision": 1.5}, CodeInvalidType},
		{"never", leaf(configshape.KindNever), map[string]any{}, CodeUnconfigurable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.shape, tt.raw)
			rs := rejectionsOf(t, err)
			require.Len(t, rs, 1)
			assert.Equal(t, tt.code, rs[0].Code)
		})
	}

	cfg, err := Validate(leaf(configshape.KindStringNumber), map[string]any{"escapeNonAscii": true, "maxPrecision": 3.0})
	require.NoError(t, err)
	assert.True(t, *cfg.EscapeNonASCII)
	assert.Equal(t, uint64(3), *cfg.MaxPrecision)
}

func TestValidateNotAnObject(t *testing.T) {
	_, err := Validate(arbitrary(), []any{"a"})
	rs := rejectionsOf(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, CodeInvalidType, rs[0].Code)
	assert.Equal(t, "list", rs[0].Found)
	assert.Contains(t, rs[0].String(), "<root>")
}

func TestValidateTuple(t *testing.T) {
	withRest := &configshape.Shape{
		Kind:     configshape.KindTuple,
		Elements: []*configshape.Shape{leaf(configshape.KindString), leaf(configshape.KindNumber)},
		Rest:     leaf(configshape.KindString),
	}
	cfg, err := Validate(withRest, map[string]any{
		"tuple":      []any{map[string]any{"escapeHtml": true}},
		"restPrefix": []any{nil, map[string]any{"escapeNonAscii": true}},
		"rest":       map[string]any{"escapeHtml": false},
	})
	require.NoError(t, err)
	require.Len(t, cfg.Tuple, 1)
	assert.True(t, *cfg.Tuple[0].EscapeHTML)
	require.Len(t, cfg.RestPrefix, 2)
	assert.Nil(t, cfg.RestPrefix[0])
	assert.True(t, *cfg.RestPrefix[1].EscapeNonASCII)
	assert.False(t, *cfg.Rest.EscapeHTML)

	_, err = Validate(withRest, map[string]any{"tuple": []any{nil, nil, nil}})
	rs := rejectionsOf(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, CodeTooLong, rs[0].Code)
	assert.Equal(t, "tuple", rs[0].Path.String())

	fixed := &configshape.Shape{Kind: configshape.KindTuple, Elements: []*configshape.Shape{leaf(configshape.KindString)}}
	_, err = Validate(fixed, map[string]any{"rest": map[string]any{}, "restPrefix": []any{}})
	rs = rejectionsOf(t, err)
	require.Len(t, rs, 2)
	assert.Equal(t, CodeUnknownKey, rs[0].Code)
	assert.Equal(t, "rest", rs[0].Path.String())
	assert.Equal(t, "restPrefix", rs[1].Path.String())
}

func TestValidateUnion(t *testing.T) {
	union := &configshape.Shape{Kind: configshape.KindUnion, Fields: []configshape.Field{
		f("Circle", obj(f("radius", leaf(configshape.KindNumber)))),
		f("Square", obj(f("side", leaf(configshape.KindNumber)))),
	}}

	cfg, err := Validate(union, map[string]any{"Square": map[string]any{"keyOrder": []any{"side"}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"side"}, cfg.Variants["Square"].KeyOrder)

	_, err = Validate(union, map[string]any{"Triangle": map[string]any{}})
	rs := rejectionsOf(t, err)
	assert.Equal(t, "Triangle", rs[0].Path.String())
	assert.Equal(t, "one of Circle, Square", rs[0].Expected)
}

func TestValidateRecursiveShape(t *testing.T) {
	node := obj(f("label", leaf(configshape.KindString)))
	node.Fields = append(node.Fields, f("children", node))

	cfg, err := Validate(node, map[string]any{
		"fields": map[string]any{"children": map[string]any{
			"fields": map[string]any{"children": map[string]any{"keyOrder": []any{"children"}}},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"children"}, cfg.Field("children").Field("children").KeyOrder)
}

func TestValidateGlobal(t *testing.T) {
	g, err := ValidateGlobal(map[string]any{"escapeHtml": true, "maxPrecision": int64(4)})
	require.NoError(t, err)
	assert.True(t, *g.EscapeHTML)
	assert.Nil(t, g.EscapeNonASCII)
	assert.Equal(t, uint64(4), *g.MaxPrecision)

	g, err = ValidateGlobal(nil)
	require.NoError(t, err)
	assert.Nil(t, g.EscapeHTML)

	_, err = ValidateGlobal(map[string]any{"keyOrder": []any{}})
	rs := rejectionsOf(t, err)
	assert.Equal(t, CodeUnknownKey, rs[0].Code)
}

func TestEscapeOptions(t *testing.T) {
	yes, no := true, false
	g := &Global{EscapeHTML: &yes, EscapeNonASCII: &yes}

	var absent *Config
	assert.True(t, absent.EscapeOptions(g).HTML)
	assert.True(t, absent.EscapeOptions(g).NonASCII)

	own := &Config{EscapeHTML: &no}
	opts := own.EscapeOptions(g)
	assert.False(t, opts.HTML)
	assert.True(t, opts.NonASCII)

	assert.False(t, own.EscapeOptions(nil).NonASCII)
}
