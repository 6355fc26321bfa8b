package utils

import (
	"strings"
	"unicode/utf8"
)

const maskRune = "•"

// MaskSecret hides a secret for display, one dot per character up to 12.
// Empty secrets stay empty so that missing values remain visible.
func MaskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	n := utf8.RuneCountInString(secret)
	if n > 12 {
		n = 12
	}
	return strings.Repeat(maskRune, n)
}

// Truncate shortens s to at most max runes, marking the cut with an ellipsis.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	if max == 1 {
		return "…"
	}
	return string(runes[:max-1]) + "…"
}
