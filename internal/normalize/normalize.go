package normalize

import (
	"strings"
	"unicode/utf8"
)

// Body returns the form of a message body suitable for storage and for the
// non-empty check: surrounding whitespace is trimmed.
func Body(s string) string {
	return strings.TrimSpace(s)
}

// Preview shortens s to at most n runes, ending in "…" when it was cut.
func Preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
