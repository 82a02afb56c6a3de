package utils

import (
	"strings"
	"unicode/utf8"
)

// Truncate shortens s to at most maxLength runes, appending an ellipsis when
// something was cut.
func Truncate(s string, maxLength int) string {
	defaultString := "Unknown"

	if strings.TrimSpace(s) == "" {
		return defaultString
	}

	if utf8.RuneCountInString(s) <= maxLength {
		return s
	}

	runes := []rune(s)
	return string(runes[:maxLength]) + "..."
}

// RuneAt returns the i-th rune of s as a string, or "" when s is shorter.
func RuneAt(s string, i int) string {
	for pos, r := range []rune(s) {
		if pos == i {
			return string(r)
		}
	}
	return ""
}
