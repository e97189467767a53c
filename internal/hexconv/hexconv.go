package hexconv

// Invalid is the Halfbyte value of every character, that isn't a hex digit.
const Invalid = 0xFF

// Halfbyte maps a character to the value of the hex digit it represents.
var Halfbyte = func() (table [256]byte) {
	for i := range table {
		table[i] = Invalid
	}

	for c := byte('0'); c <= '9'; c++ {
		table[c] = c - '0'
	}

	for c := byte('a'); c <= 'f'; c++ {
		table[c] = c - 'a' + 10
		table[c-'a'+'A'] = c - 'a' + 10
	}

	return table
}()
