// Package utils provides shared helpers for text previews, vector math and logging.
package utils

import "strings"

// Snippet returns s on a single line with runs of whitespace collapsed, cut to at
// most maxLen characters with "..." appended when cut. maxLen <= 0 disables the cut.
func Snippet(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	if maxLen <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
