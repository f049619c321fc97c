package schema

import (
	"bytes"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/goccy/go-json"
)

// Tuple marks a struct as a heterogeneous JSON array. Embed it as the first
// field; the remaining exported fields are the positions in order. A trailing
// slice field tagged `ftson:",rest"` holds the variable-length tail.
//
//	type Sample struct {
//	    schema.Tuple
//	    Label string
//	    Value float64
//	    Tags  []string `ftson:",rest"`
//	}
//
//	func (s Sample) MarshalJSON() ([]byte, error) { return schema.MarshalTuple(s) }
type Tuple struct{}

var tupleType = reflect.TypeOf(Tuple{})

// IsRestTag reports whether a struct tag marks a tuple rest field.
func IsRestTag(tag reflect.StructTag) bool {
	opts := strings.Split(tag.Get("ftson"), ",")
	for _, o := range opts[1:] {
		if o == "rest" {
			return true
		}
	}
	return false
}

// MarshalTuple encodes a struct embedding Tuple as a JSON array.
func MarshalTuple(v any) ([]byte, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return []byte("null"), nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, errors.Newf("schema: %s is not a tuple struct", rv.Type())
	}
	rt := rv.Type()
	if rt.NumField() == 0 || !rt.Field(0).Anonymous || rt.Field(0).Type != tupleType {
		return nil, errors.Newf("schema: %s does not embed schema.Tuple", rt)
	}

	var items []any
	for i := 1; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() || f.Tag.Get("json") == "-" {
			continue
		}
		fv := rv.Field(i)
		if IsRestTag(f.Tag) && fv.Kind() == reflect.Slice {
			for j := 0; j < fv.Len(); j++ {
				items = append(items, fv.Index(j).Interface())
			}
			continue
		}
		items = append(items, fv.Interface())
	}
	if items == nil {
		items = []any{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(items); err != nil {
		return nil, errors.Wrapf(err, "schema: failed to encode %s", rt)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
