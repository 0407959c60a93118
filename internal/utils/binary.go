package utils

import (
	"bytes"
	"unicode/utf8"
)

// BinarySniffLength is the number of leading bytes sampled when deciding
// whether a file is text before reading it whole.
const BinarySniffLength = 8000

// IsBinary reports whether data looks like binary rather than text: any NUL
// byte or an invalid UTF-8 sequence disqualifies it. Empty input is text.
func IsBinary(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return true
	}
	return !utf8.Valid(data)
}
