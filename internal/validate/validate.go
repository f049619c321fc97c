// Package validate checks raw configuration trees against the configuration
// shape of their type and builds the accepted Config.
//
// Raw trees are made of map[string]any, []any, string, bool, int64, float64
// and nil. A nil value anywhere means the option is absent.
package validate

import (
	"math"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/ftson/ftson/internal/configshape"
	"github.com/ftson/ftson/schema"
)

// Validate checks raw against s. All rejections are collected; map keys are
// visited in sorted order so the result is deterministic.
func Validate(s *configshape.Shape, raw any) (*Config, error) {
	v := &validator{}
	cfg := v.config(s, raw, nil)
	if err := v.err(); err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = &Config{}
	}
	return cfg, nil
}

// ValidateGlobal checks the defaults passed alongside a registration.
func ValidateGlobal(raw any) (*Global, error) {
	v := &validator{}
	g := &Global{}
	if m, ok := v.object(raw, nil); ok {
		for _, k := range sortedKeys(m) {
			path := Path{k}
			switch k {
			case schema.EscapeHTML:
				g.EscapeHTML = v.boolean(m[k], path)
			case schema.EscapeNonASCII:
				g.EscapeNonASCII = v.boolean(m[k], path)
			case schema.MaxPrecision:
				g.MaxPrecision = v.precision(m[k], path)
			default:
				v.unknown(path, schema.EscapeHTML, schema.EscapeNonASCII, schema.MaxPrecision)
			}
		}
	}
	if err := v.err(); err != nil {
		return nil, err
	}
	return g, nil
}

type validator struct {
	rejections Rejections
}

func (v *validator) err() error {
	if len(v.rejections) == 0 {
		return nil
	}
	return errors.Mark(v.rejections, ErrConfigShapeRejected)
}

func (v *validator) reject(r Rejection) {
	v.rejections = append(v.rejections, r)
}

func (v *validator) unknown(path Path, allowed ...string) {
	expected := "no keys"
	if len(allowed) > 0 {
		expected = "one of " + strings.Join(allowed, ", ")
	}
	v.reject(Rejection{Path: path, Code: CodeUnknownKey, Expected: expected, Found: path[len(path)-1].(string)})
}

// object asserts raw is a map. A nil raw is absent and reports false
// without a rejection.
func (v *validator) object(raw any, path Path) (map[string]any, bool) {
	if raw == nil {
		return nil, false
	}
	m, ok := raw.(map[string]any)
	if !ok {
		v.reject(Rejection{Path: path, Code: CodeInvalidType, Expected: "object", Found: describe(raw)})
		return nil, false
	}
	return m, true
}

func (v *validator) list(raw any, path Path) ([]any, bool) {
	if raw == nil {
		return nil, false
	}
	l, ok := raw.([]any)
	if !ok {
		v.reject(Rejection{Path: path, Code: CodeInvalidType, Expected: "list", Found: describe(raw)})
		return nil, false
	}
	return l, true
}

func (v *validator) boolean(raw any, path Path) *bool {
	if raw == nil {
		return nil
	}
	b, ok := raw.(bool)
	if !ok {
		v.reject(Rejection{Path: path, Code: CodeInvalidType, Expected: "boolean", Found: describe(raw)})
		return nil
	}
	return &b
}

func (v *validator) precision(raw any, path Path) *uint64 {
	if raw == nil {
		return nil
	}
	n, ok := number(raw)
	switch {
	case !ok:
		v.reject(Rejection{Path: path, Code: CodeInvalidType, Expected: "non-negative integer", Found: describe(raw)})
	case n < 0:
		v.reject(Rejection{Path: path, Code: CodeTooSmall, Expected: "non-negative integer", Found: "negative number",
			Message: "maxPrecision must not be negative"})
	case n != math.Trunc(n):
		v.reject(Rejection{Path: path, Code: CodeInvalidType, Expected: "non-negative integer", Found: "fractional number"})
	default:
		p := uint64(n)
		return &p
	}
	return nil
}

func (v *validator) config(s *configshape.Shape, raw any, path Path) *Config {
	if raw == nil {
		return nil
	}
	if s.Kind == configshape.KindNever {
		v.reject(Rejection{Path: path, Code: CodeUnconfigurable, Expected: "no configuration", Found: describe(raw),
			Message: "type " + s.String() + " cannot be configured"})
		return nil
	}
	m, ok := v.object(raw, path)
	if !ok {
		return nil
	}

	cfg := &Config{}
	switch s.Kind {
	case configshape.KindEmpty, configshape.KindString, configshape.KindNumber, configshape.KindStringNumber:
		v.primitive(s, m, path, cfg)
	case configshape.KindObject:
		v.objectConfig(s, m, path, cfg)
	case configshape.KindTuple:
		v.tupleConfig(s, m, path, cfg)
	case configshape.KindUnion:
		v.unionConfig(s, m, path, cfg)
	}
	return cfg
}

func (v *validator) primitive(s *configshape.Shape, m map[string]any, path Path, cfg *Config) {
	var allowed []string
	if s.AcceptsString() {
		allowed = append(allowed, schema.EscapeHTML, schema.EscapeNonASCII)
	}
	if s.AcceptsNumber() {
		allowed = append(allowed, schema.MaxPrecision)
	}
	for _, k := range sortedKeys(m) {
		p := path.key(k)
		switch {
		case s.AcceptsString() && k == schema.EscapeHTML:
			cfg.EscapeHTML = v.boolean(m[k], p)
		case s.AcceptsString() && k == schema.EscapeNonASCII:
			cfg.EscapeNonASCII = v.boolean(m[k], p)
		case s.AcceptsNumber() && k == schema.MaxPrecision:
			cfg.MaxPrecision = v.precision(m[k], p)
		default:
			v.unknown(p, allowed...)
		}
	}
}

func (v *validator) objectConfig(s *configshape.Shape, m map[string]any, path Path, cfg *Config) {
	for _, k := range sortedKeys(m) {
		p := path.key(k)
		switch k {
		case schema.KeyOrder:
			cfg.KeyOrder = v.keyOrder(s, m[k], p)
		case schema.Fields:
			fields, ok := v.object(m[k], p)
			if !ok {
				continue
			}
			for _, name := range sortedKeys(fields) {
				fs, ok := s.Member(name)
				if !ok {
					v.unknown(p.key(name), s.Names()...)
					continue
				}
				if fc := v.config(fs, fields[name], p.key(name)); fc != nil {
					if cfg.Fields == nil {
						cfg.Fields = map[string]*Config{}
					}
					cfg.Fields[name] = fc
				}
			}
		default:
			v.unknown(p, schema.KeyOrder, schema.Fields)
		}
	}
}

func (v *validator) keyOrder(s *configshape.Shape, raw any, path Path) []string {
	l, ok := v.list(raw, path)
	if !ok {
		return nil
	}
	order := make([]string, 0, len(l))
	seen := map[string]bool{}
	for i, item := range l {
		p := path.index(i)
		name, ok := item.(string)
		if !ok {
			v.reject(Rejection{Path: p, Code: CodeInvalidType, Expected: "field name", Found: describe(item)})
			continue
		}
		if _, ok := s.Member(name); !ok {
			v.reject(Rejection{Path: p, Code: CodeInvalidEnum, Expected: "one of " + strings.Join(s.Names(), ", "), Found: name})
			continue
		}
		if seen[name] {
			v.reject(Rejection{Path: p, Code: CodeDuplicateKey, Expected: "each field at most once", Found: name})
			continue
		}
		seen[name] = true
		order = append(order, name)
	}
	return order
}

func (v *validator) tupleConfig(s *configshape.Shape, m map[string]any, path Path, cfg *Config) {
	allowed := []string{schema.TupleKey}
	if s.Rest != nil {
		allowed = append(allowed, schema.RestPrefix, schema.Rest)
	}
	for _, k := range sortedKeys(m) {
		p := path.key(k)
		switch {
		case k == schema.TupleKey:
			l, ok := v.list(m[k], p)
			if !ok {
				continue
			}
			if len(l) > len(s.Elements) {
				v.reject(Rejection{Path: p, Code: CodeTooLong, Expected: "at most " + itoa(len(s.Elements)) + " positions",
					Found: itoa(len(l)) + " positions"})
				l = l[:len(s.Elements)]
			}
			cfg.Tuple = make([]*Config, len(l))
			for i, item := range l {
				cfg.Tuple[i] = v.config(s.Elements[i], item, p.index(i))
			}
		case k == schema.RestPrefix && s.Rest != nil:
			l, ok := v.list(m[k], p)
			if !ok {
				continue
			}
			cfg.RestPrefix = make([]*Config, len(l))
			for i, item := range l {
				cfg.RestPrefix[i] = v.config(s.Rest, item, p.index(i))
			}
		case k == schema.Rest && s.Rest != nil:
			cfg.Rest = v.config(s.Rest, m[k], p)
		default:
			v.unknown(p, allowed...)
		}
	}
}

func (v *validator) unionConfig(s *configshape.Shape, m map[string]any, path Path, cfg *Config) {
	for _, k := range sortedKeys(m) {
		p := path.key(k)
		vs, ok := s.Member(k)
		if !ok {
			v.unknown(p, s.Names()...)
			continue
		}
		if vc := v.config(vs, m[k], p); vc != nil {
			if cfg.Variants == nil {
				cfg.Variants = map[string]*Config{}
			}
			cfg.Variants[k] = vc
		}
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
