package validate

import "github.com/ftson/ftson/escape"

// Config is an accepted configuration. Absent options are nil or empty and
// impose no constraint.
type Config struct {
	EscapeHTML     *bool
	EscapeNonASCII *bool
	MaxPrecision   *uint64

	KeyOrder []string
	Fields   map[string]*Config

	Tuple      []*Config
	RestPrefix []*Config
	Rest       *Config

	Variants map[string]*Config
}

// Field returns the configuration of an object field; nil when absent.
func (c *Config) Field(name string) *Config {
	if c == nil {
		return nil
	}
	return c.Fields[name]
}

// Global holds defaults inherited by every field of a registration.
type Global struct {
	EscapeHTML     *bool
	EscapeNonASCII *bool
	MaxPrecision   *uint64
}

// EscapeOptions combines the string flags of c with the defaults of g.
// Flags set on c win.
func (c *Config) EscapeOptions(g *Global) escape.Options {
	var opts escape.Options
	if g != nil {
		opts.HTML = deref(g.EscapeHTML)
		opts.NonASCII = deref(g.EscapeNonASCII)
	}
	if c != nil {
		if c.EscapeHTML != nil {
			opts.HTML = *c.EscapeHTML
		}
		if c.EscapeNonASCII != nil {
			opts.NonASCII = *c.EscapeNonASCII
		}
	}
	return opts
}

func deref(b *bool) bool { return b != nil && *b }
