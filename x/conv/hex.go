package conv

const hexDigits = "0123456789ABCDEF"

// Hex writes n as uppercase hex without 0x, zero-padded to digits (1..16).
// Higher digits of n are dropped.
func Hex(buf []byte, n uint64, digits int) []byte {
	if digits < 1 || digits > 16 || len(buf) < digits {
		return buf[:0]
	}
	i := len(buf)
	for j := 0; j < digits; j++ {
		i--
		buf[i] = hexDigits[n&0xF]
		n >>= 4
	}
	return buf[i:]
}
