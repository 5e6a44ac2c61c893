package snbt

import (
	"math"
	"strconv"
)

// Scalar text forms. Integers carry the suffix of their width (B, S, none,
// L); floats carry F and doubles none, and always contain a decimal point
// so they read back as floating point.

func AppendByte(dst []byte, v int8) []byte {
	return append(strconv.AppendInt(dst, int64(v), 10), 'B')
}

func AppendShort(dst []byte, v int16) []byte {
	return append(strconv.AppendInt(dst, int64(v), 10), 'S')
}

func AppendInt(dst []byte, v int32) []byte {
	return strconv.AppendInt(dst, int64(v), 10)
}

func AppendLong(dst []byte, v int64) []byte {
	return append(strconv.AppendInt(dst, v, 10), 'L')
}

func AppendFloat(dst []byte, v float32) []byte {
	return append(appendDecimal(dst, float64(v), 32), 'F')
}

func AppendDouble(dst []byte, v float64) []byte {
	return appendDecimal(dst, v, 64)
}

// AppendBool renders a byte as a boolean. The binary format has no boolean
// type, so this is only used when the caller knows a byte is one; the
// encoder's byte handler always prints the number.
func AppendBool(dst []byte, v int8) []byte {
	if v != 0 {
		return append(dst, "true"...)
	}
	return append(dst, "false"...)
}

// appendDecimal uses the shortest representation that round-trips at the
// given precision, inserting ".0" when it would otherwise look like an
// integer: 1 -> 1.0, 1e+21 -> 1.0e+21.
func appendDecimal(dst []byte, f float64, bits int) []byte {
	// NaN and the infinities have no SNBT literal; these spellings are for
	// display and do not read back.
	switch {
	case math.IsNaN(f):
		return append(dst, "NaN"...)
	case math.IsInf(f, 1):
		return append(dst, "Infinity"...)
	case math.IsInf(f, -1):
		return append(dst, "-Infinity"...)
	}
	start := len(dst)
	dst = strconv.AppendFloat(dst, f, 'g', -1, bits)
	exp := len(dst)
	for i := start; i < len(dst); i++ {
		switch dst[i] {
		case '.':
			return dst
		case 'e':
			exp = i
		}
	}
	if exp == len(dst) {
		return append(dst, ".0"...)
	}
	// insert before the exponent
	dst = append(dst, ".0"...)
	copy(dst[exp+2:], dst[exp:len(dst)-2])
	dst[exp], dst[exp+1] = '.', '0'
	return dst
}
