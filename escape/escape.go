// Package escape transcodes Go strings into the body of a JSON string literal.
//
// Generated encoders call String for every string field. The surrounding
// quotes are part of the generated code, not of the escaped text.
package escape

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// Options selects the optional escaping rules. The zero value escapes only
// what JSON requires.
type Options struct {
	// HTML escapes & < > " ' and / as unicode escapes so the output can be
	// embedded in HTML. It takes precedence over the default \" form.
	HTML bool

	// NonASCII escapes every code point above 127 as a lowercase unicode
	// escape. Code points outside the basic multilingual plane are written
	// as a surrogate pair.
	NonASCII bool
}

const lowerHex = "0123456789abcdef"

// htmlEscapes holds the hex digits written after the unicode escape prefix
// for the characters rewritten by Options.HTML.
var htmlEscapes = map[rune]string{
	'&':  "0026",
	'<':  "003C",
	'>':  "003E",
	'"':  "0022",
	'\'': "0027",
	'/':  "002F",
}

// shortEscapes are always applied unless an HTML escape wins.
var shortEscapes = map[rune]string{
	'"':  `\"`,
	'\\': `\\`,
	'\b': `\b`,
	'\f': `\f`,
	'\n': `\n`,
	'\r': `\r`,
	'\t': `\t`,
}

// String escapes input according to opts. It never fails and returns input
// unchanged when nothing needs escaping.
func String(input string, opts Options) string {
	i := firstEscape(input, opts)
	if i < 0 {
		return input
	}

	var b strings.Builder
	b.Grow(len(input) + 16)
	b.WriteString(input[:i])
	for _, r := range input[i:] {
		writeRune(&b, r, opts)
	}
	return b.String()
}

func firstEscape(input string, opts Options) int {
	for i, r := range input {
		if needsEscape(r, opts) {
			return i
		}
	}
	return -1
}

func needsEscape(r rune, opts Options) bool {
	if opts.HTML {
		if _, ok := htmlEscapes[r]; ok {
			return true
		}
	}
	if _, ok := shortEscapes[r]; ok {
		return true
	}
	return opts.NonASCII && r > utf8.RuneSelf-1
}

func writeRune(b *strings.Builder, r rune, opts Options) {
	if opts.HTML {
		if code, ok := htmlEscapes[r]; ok {
			writeUnicodePrefix(b)
			b.WriteString(code)
			return
		}
	}
	if s, ok := shortEscapes[r]; ok {
		b.WriteString(s)
		return
	}
	if opts.NonASCII && r > utf8.RuneSelf-1 {
		if r > 0xFFFF {
			hi, lo := utf16.EncodeRune(r)
			writeUnicode(b, hi)
			writeUnicode(b, lo)
			return
		}
		writeUnicode(b, r)
		return
	}
	b.WriteRune(r)
}

func writeUnicodePrefix(b *strings.Builder) {
	b.WriteByte('\\')
	b.WriteByte('u')
}

func writeUnicode(b *strings.Builder, r rune) {
	writeUnicodePrefix(b)
	b.WriteByte(lowerHex[(r>>12)&0xF])
	b.WriteByte(lowerHex[(r>>8)&0xF])
	b.WriteByte(lowerHex[(r>>4)&0xF])
	b.WriteByte(lowerHex[r&0xF])
}
