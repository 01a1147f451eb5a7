package conv

// Utoa writes base-10 representation of n into the end of buf and returns
// the used slice. buf should be length >= 20 for uint64.
func Utoa(buf []byte, n uint64) []byte {
	i := len(buf)
	if i == 0 {
		return buf[:0]
	}
	for {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
		if n == 0 || i == 0 {
			break
		}
	}
	return buf[i:]
}
