package comm

const hexDigits = "0123456789ABCDEF"

// HexDigit converts the low nibble of v to an uppercase hex digit.
func HexDigit(v byte) byte {
	return hexDigits[v&0x0f]
}

// HexValue converts an ASCII hex digit (either case) to its value.
// Invalid characters convert to 0.
func HexValue(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	}
	return 0
}

// ScanHex parses count (at most 8) hex characters starting at offset.
// Positions beyond s read as 0.
func ScanHex(s []byte, offset, count int) uint32 {
	var v uint32
	for i := offset; i < offset+count; i++ {
		v <<= 4
		if i >= 0 && i < len(s) {
			v |= uint32(HexValue(s[i]))
		}
	}
	return v
}

// AppendHex appends v as digits uppercase hex characters.
func AppendHex(dst []byte, v uint32, digits int) []byte {
	for shift := (digits - 1) * 4; shift >= 0; shift -= 4 {
		dst = append(dst, HexDigit(byte(v>>uint(shift))))
	}
	return dst
}

// AppendHex32 appends v as 8 uppercase hex characters.
func AppendHex32(dst []byte, v uint32) []byte {
	return AppendHex(dst, v, 8)
}
