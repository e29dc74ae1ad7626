package core

// Number formatting without the fmt package, appending to a caller-owned
// buffer so report generation does not allocate on the hot path.

// appendUint appends the decimal form of n
func appendUint(b []byte, n uint32) []byte {
	var buf [10]byte
	pos := len(buf)
	for {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
		if n == 0 {
			break
		}
	}
	return append(b, buf[pos:]...)
}

// appendInt appends the decimal form of n, with a leading '-' if negative
func appendInt(b []byte, n int) []byte {
	if n < 0 {
		b = append(b, '-')
		return appendUint(b, uint32(-n))
	}
	return appendUint(b, uint32(n))
}

const hexDigits = "0123456789abcdef"

// appendHex appends n in lower-case hexadecimal without a prefix
func appendHex(b []byte, n uint32) []byte {
	var buf [8]byte
	pos := len(buf)
	for {
		pos--
		buf[pos] = hexDigits[n&0xF]
		n >>= 4
		if n == 0 {
			break
		}
	}
	return append(b, buf[pos:]...)
}

// itoa converts an integer to a string
func itoa(n int) string {
	var buf [12]byte
	return string(appendInt(buf[:0], n))
}
