package conv

// Itoa is Utoa with a leading '-' for negative n. buf should be length >= 20.
// No allocations; no fmt/strconv dependency.
func Itoa(buf []byte, n int64) []byte {
	if n >= 0 {
		return Utoa(buf, uint64(n))
	}
	if len(buf) < 2 {
		return buf[:0]
	}
	// uint64(-n) is correct for math.MinInt64 too.
	d := Utoa(buf[1:], uint64(-n))
	start := len(buf) - len(d) - 1
	buf[start] = '-'
	return buf[start:]
}
