package testdata

import "github.com/ftson/ftson/schema"

func build() schema.Registrations {
	var Stringify = schema.Registrations{
		"ignored.go": {
			"EncodeIgnored": schema.For[Local]()(),
		},
	}
	return Stringify
}

var Stringify = schema.Registrations{
	"out.go": {
		"EncodeLocal": schema.For[Local]()(),
	},
}
