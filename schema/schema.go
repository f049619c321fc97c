// Package schema is the declaration API read by the ftson generator.
//
// Registrations are declared in an ordinary Go file that the generator reads
// as source, e.g.:
//
//	import (
//	    "github.com/ftson/ftson/schema"
//	    "example.com/app/models"
//	)
//
//	var Stringify = schema.Registrations{
//	    "internal/jsonenc/user.go": {
//	        "EncodeUser": schema.For[models.User]()(schema.Config{
//	            "keyOrder": schema.List{"id", "name"},
//	            "fields": schema.Config{
//	                "name": schema.Config{"escapeHtml": true},
//	            },
//	        }),
//	    },
//	}
//
// The generator never runs this code. It reads the composite literal from the
// AST, so configuration values must be literals: Config and List literals,
// other map and slice literals, strings, numbers, booleans and nil.
package schema

// Configuration keys understood by the generator.
const (
	KeyOrder       = "keyOrder"
	Fields         = "fields"
	EscapeHTML     = "escapeHtml"
	EscapeNonASCII = "escapeNonAscii"
	MaxPrecision   = "maxPrecision"
	TupleKey       = "tuple"
	RestPrefix     = "restPrefix"
	Rest           = "rest"
)

// Config is one level of a configuration tree.
type Config map[string]any

// List is a sequence inside a Config, such as a key order.
type List []any

// Registration binds a type to its configuration. It is produced by For.
type Registration struct {
	global Config
	config Config
}

// Global returns the defaults passed to For.
func (r Registration) Global() Config { return r.global }

// Config returns the type configuration.
func (r Registration) Config() Config { return r.config }

// Functions maps generated function names to registrations.
type Functions map[string]Registration

// Registrations maps output files to the functions generated into them.
type Registrations map[string]Functions

// For starts a registration for T. The optional global config supplies
// escapeHtml, escapeNonAscii and maxPrecision defaults for every field of T;
// the returned function takes the per-type configuration.
//
// Example:
//
//	schema.For[models.User](schema.Config{"escapeHtml": true})()
func For[T any](global ...Config) func(config ...Config) Registration {
	var g Config
	if len(global) > 0 {
		g = global[0]
	}
	return func(config ...Config) Registration {
		r := Registration{global: g}
		if len(config) > 0 {
			r.config = config[0]
		}
		return r
	}
}
