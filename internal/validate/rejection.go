package validate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrConfigShapeRejected marks every error returned for a configuration that
// does not fit its type.
var ErrConfigShapeRejected = errors.New("configuration rejected")

// Rejection codes.
const (
	CodeInvalidType    = "invalid_type"
	CodeUnknownKey     = "unknown_key"
	CodeDuplicateKey   = "duplicate_key"
	CodeInvalidEnum    = "invalid_enum"
	CodeTooLong        = "too_long"
	CodeTooSmall       = "too_small"
	CodeUnconfigurable = "unconfigurable"
)

// Path locates a value inside a configuration tree. Elements are map keys
// (string) or list indices (int).
type Path []any

func (p Path) String() string {
	var b strings.Builder
	for _, seg := range p {
		switch seg := seg.(type) {
		case int:
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(seg))
			b.WriteByte(']')
		default:
			if b.Len() > 0 {
				b.WriteByte('.')
			}
			fmt.Fprint(&b, seg)
		}
	}
	return b.String()
}

func (p Path) key(k string) Path { return append(p[:len(p):len(p)], k) }
func (p Path) index(i int) Path  { return append(p[:len(p):len(p)], i) }

// Rejection is one reason a configuration was refused.
type Rejection struct {
	Path     Path
	Code     string
	Expected string
	Found    string
	Message  string
}

func (r Rejection) String() string {
	loc := r.Path.String()
	if loc == "" {
		loc = "<root>"
	}
	msg := r.Message
	if msg == "" {
		msg = fmt.Sprintf("expected %s, found %s", r.Expected, r.Found)
	}
	return fmt.Sprintf("%s at %s: %s", r.Code, loc, msg)
}

// Rejections is the error returned by Validate and ValidateGlobal.
type Rejections []Rejection

func (rs Rejections) Error() string {
	if len(rs) == 0 {
		return ""
	}
	const maxShown = 3
	parts := make([]string, 0, maxShown)
	for i, r := range rs {
		if i == maxShown {
			break
		}
		parts = append(parts, r.String())
	}
	msg := strings.Join(parts, "; ")
	if len(rs) > maxShown {
		msg += fmt.Sprintf("; ... (total %d)", len(rs))
	}
	return msg
}

// AsRejections extracts the rejections from an error returned by this
// package.
func AsRejections(err error) (Rejections, bool) {
	var rs Rejections
	if errors.As(err, &rs) {
		return rs, true
	}
	return nil, false
}

// describe names the kind of a raw value for rejection messages.
func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case map[string]any:
		return "object"
	case []any:
		return "list"
	}
	if _, ok := number(v); ok {
		return "number"
	}
	return fmt.Sprintf("%T", v)
}

func itoa(n int) string { return strconv.Itoa(n) }

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
