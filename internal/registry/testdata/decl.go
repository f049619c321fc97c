package testdata

import (
	"github.com/ftson/ftson/examples/models"
	m "github.com/ftson/ftson/examples/models"
	"github.com/ftson/ftson/schema"
)

type Local struct {
	N int `json:"n"`
}

var Stringify = schema.Registrations{
	"out/articles.go": {
		"EncodeArticle": schema.For[models.Article](schema.Config{"escapeHtml": true})(schema.Config{
			schema.KeyOrder: schema.List{"title", "id"},
			"fields":        schema.Config{"rating": schema.Config{"maxPrecision": 2}},
		}),
		"EncodeAuthor":  schema.For[m.Author]()(),
		"EncodeLocal":   schema.For[Local]()(schema.Config{"n": -3, "f": -1.5, "z": nil, "l": []any{"x", 0x10}}),
		"EncodeGeneric": schema.For[models.Pair[int]]()(),
	},
	"out/nodes": schema.Functions{
		"EncodeNode": (schema.For[models.Node]())(),
	},
}

var Other = schema.Registrations{
	"out/other.go": {
		"EncodeInner": schema.For[models.Inner]()(),
	},
}
