package hexconv

// Halfbyte maps an ASCII character into its hexadecimal value. Non-hex characters
// are mapped into 0xFF
var Halfbyte = func() (table [256]byte) {
	for i := range table {
		table[i] = 0xFF
	}

	for c := '0'; c <= '9'; c++ {
		table[c] = byte(c - '0')
	}

	for c := 'a'; c <= 'f'; c++ {
		table[c] = byte(c-'a') + 10
		table[c-'a'+'A'] = byte(c-'a') + 10
	}

	return table
}()

// Is reports whether the character is a valid hexadecimal digit
func Is(char byte) bool {
	return Halfbyte[char] != 0xFF
}

// Parse interprets the whole string as a hexadecimal number. Returns false if the string
// is empty, contains non-hex characters or the value overflows 64 bits.
func Parse(str []byte) (value uint64, ok bool) {
	if len(str) == 0 || len(str) > 16 {
		return 0, false
	}

	for _, char := range str {
		half := Halfbyte[char]
		if half == 0xFF {
			return 0, false
		}

		value = value<<4 | uint64(half)
	}

	return value, true
}
