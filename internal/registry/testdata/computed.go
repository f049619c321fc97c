package testdata

import "github.com/ftson/ftson/schema"

var order = schema.List{"a"}

var Stringify = schema.Registrations{
	"out.go": {
		"EncodeLocal": schema.For[Local]()(schema.Config{"keyOrder": order}),
	},
}
