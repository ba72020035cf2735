package helper

import "unicode/utf8"

// Truncate returns at most max runes of s.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

// Ellipsis truncates s to max runes and appends "..." if anything was cut.
func Ellipsis(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return Truncate(s, max) + "..."
}
