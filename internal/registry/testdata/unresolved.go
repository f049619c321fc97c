package testdata

import (
	. "github.com/ftson/ftson/examples/models"
	"github.com/ftson/ftson/schema"
)

var Stringify = schema.Registrations{
	"out.go": {
		"EncodeArticle": schema.For[Article]()(),
		"EncodeUser":    schema.For[models.User]()(),
	},
}
