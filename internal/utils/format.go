package utils

import "strconv"

// Thresholds above which token counts switch to shorthand notation.
const (
	tokenThousand = 1_000
	tokenMillion  = 1_000_000
)

// FormatTokenCount renders a token count in compact human-readable form.
// Counts of one million or more use an "M" suffix, counts of one thousand
// or more use a "k" suffix, and smaller counts are rendered verbatim.
func FormatTokenCount(tokenCount int) string {
	switch {
	case tokenCount >= tokenMillion:
		return strconv.FormatFloat(float64(tokenCount)/tokenMillion, 'f', 1, 64) + "M"
	case tokenCount >= tokenThousand:
		return strconv.FormatFloat(float64(tokenCount)/tokenThousand, 'f', 1, 64) + "k"
	default:
		return strconv.Itoa(tokenCount)
	}
}
