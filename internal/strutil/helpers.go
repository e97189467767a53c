package strutil

func LStripWS(str string) string {
	for i := 0; i < len(str); i++ {
		switch str[i] {
		case ' ', '\t':
		default:
			return str[i:]
		}
	}

	return ""
}

func RStripWS(str string) string {
	for i := len(str); i > 0; i-- {
		switch str[i-1] {
		case ' ', '\t':
		default:
			return str[:i]
		}
	}

	return ""
}

// StripWS strips spaces and horizontal tabs on both ends.
func StripWS(str string) string {
	return RStripWS(LStripWS(str))
}

// IsASCII reports whether every byte of the data is a 7-bit character.
func IsASCII(data []byte) bool {
	for _, c := range data {
		if c >= 0x80 {
			return false
		}
	}

	return true
}
