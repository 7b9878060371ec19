package utils

import "unicode/utf8"

// Truncate shortens s to at most n runes, appending an ellipsis marker when
// truncation actually occurs. Used for log previews of arguments/results
// that may be arbitrarily large.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "...(truncated)"
}
