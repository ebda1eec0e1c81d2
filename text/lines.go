package text

import "strings"

// FirstLine returns the text before the first newline, or all of s when it
// has none.
func FirstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// LastLine returns the text after the last newline, or all of s when it has
// none.
func LastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// LineCount returns the number of lines in s. The empty string has zero
// lines; a trailing newline starts a new one.
func LineCount(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}
