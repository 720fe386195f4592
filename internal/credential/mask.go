package credential

// DefaultShowChars is the number of leading and trailing characters
// MaskSecret keeps visible.
const DefaultShowChars = 4

// MaskSecret masks a secret value for diagnostics, keeping showChars
// characters at each end ("abcdefghijklmnop" -> "abcd...mnop"). Values too
// short to mask meaningfully render as "***". showChars <= 0 uses
// DefaultShowChars.
func MaskSecret(value string, showChars int) string {
	if showChars <= 0 {
		showChars = DefaultShowChars
	}

	// Showing both ends of a short value would reveal most of it.
	if len(value) <= showChars*2 {
		return "***"
	}

	return value[:showChars] + "..." + value[len(value)-showChars:]
}
