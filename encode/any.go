package encode

import (
	"bytes"

	"github.com/goccy/go-json"
)

// Any is the generic fallback used for every value a generated encoder does
// not write itself: nested structs, slices, maps, pointers, unions and
// booleans. It does not HTML-escape and knows nothing about field
// configuration. Values that cannot be marshaled render as null.
//
// Example:
//
//	encode.Any([]string{"a", "b"}) // `["a","b"]`
//	encode.Any((*int)(nil))        // "null"
func Any(v any) string {
	b, err := marshalNoHTML(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

// marshalNoHTML encodes v without HTML escaping at any depth.
// json.MarshalNoEscape only covers top level strings.
func marshalNoHTML(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
