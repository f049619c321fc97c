// Package encode provides the value writers used by generated encoders.
package encode

import (
	"math"
	"strconv"
	"unsafe"

	"golang.org/x/exp/constraints"
)

// Int renders a signed integer as a JSON number.
//
// Example:
//
//	encode.Int(int8(-3)) // "-3"
func Int[T constraints.Signed](v T) string {
	return strconv.FormatInt(int64(v), 10)
}

// Uint renders an unsigned integer as a JSON number.
//
// Example:
//
//	encode.Uint(uint16(42)) // "42"
func Uint[T constraints.Unsigned](v T) string {
	return strconv.FormatUint(uint64(v), 10)
}

// Float renders a floating point number the way encoding/json does: plain
// decimal notation for ordinary magnitudes, exponent notation for very large
// or very small ones. NaN and infinities have no JSON form; they are written
// as NaN, +Inf and -Inf, so the result is not valid JSON for them.
//
// Example:
//
//	encode.Float(1.5)       // "1.5"
//	encode.Float(1e21)      // "1e+21"
//	encode.Float(0.0000001) // "1e-7"
func Float[T constraints.Float](v T) string {
	bits := 64
	if unsafe.Sizeof(v) == 4 {
		bits = 32
	}
	return formatFloat(float64(v), bits)
}

func formatFloat(f float64, bits int) string {
	abs := math.Abs(f)
	fmtByte := byte('f')
	if abs != 0 {
		if bits == 64 && (abs < 1e-6 || abs >= 1e21) ||
			bits == 32 && (float32(abs) < 1e-6 || float32(abs) >= 1e21) {
			fmtByte = 'e'
		}
	}
	b := strconv.AppendFloat(nil, f, fmtByte, -1, bits)
	if fmtByte == 'e' {
		// e-09 -> e-9
		n := len(b)
		if n >= 4 && b[n-4] == 'e' && b[n-3] == '-' && b[n-2] == '0' {
			b[n-2] = b[n-1]
			b = b[:n-1]
		}
	}
	return string(b)
}
