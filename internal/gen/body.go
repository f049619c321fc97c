package gen

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Node is one piece of a generated function body. Emit returns a Go
// expression of type string.
type Node interface {
	Emit() string
}

// TextNode holds output known at generation time.
type TextNode struct {
	Text string
}

func (t *TextNode) Emit() string {
	return goString(t.Text)
}

// ValueNode holds an expression evaluated at serialization time.
type ValueNode struct {
	Expr string
}

func (v *ValueNode) Emit() string {
	return v.Expr
}

// Body is a concatenation of nodes. Adjacent text is merged so each
// constant run becomes a single literal.
type Body []Node

// Text appends constant output.
func (b *Body) Text(s string) {
	if s == "" {
		return
	}
	if n := len(*b); n > 0 {
		if last, ok := (*b)[n-1].(*TextNode); ok {
			last.Text += s
			return
		}
	}
	*b = append(*b, &TextNode{Text: s})
}

// Value appends a string-valued expression.
func (b *Body) Value(expr string) {
	*b = append(*b, &ValueNode{Expr: expr})
}

// Emit joins the nodes with +.
func (b Body) Emit() string {
	if len(b) == 0 {
		return `""`
	}
	parts := make([]string, len(b))
	for i, n := range b {
		parts[i] = n.Emit()
	}
	return strings.Join(parts, " + ")
}

// goString renders s as a raw string literal when it can be written
// verbatim, and as an interpreted literal otherwise.
func goString(s string) string {
	if strings.ContainsRune(s, '`') || !utf8.ValidString(s) {
		return strconv.Quote(s)
	}
	for _, r := range s {
		if r == utf8.RuneError || r == 0xFEFF || unicode.IsControl(r) {
			return strconv.Quote(s)
		}
	}
	return "`" + s + "`"
}
