// Package compare checks program output against recorded answers.
package compare

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Equal strips leading and trailing whitespace from each whole string and
// compares the remainder byte for byte. Interior whitespace and line
// endings are significant.
func Equal(actual, expected string) bool {
	return strings.TrimSpace(actual) == strings.TrimSpace(expected)
}

// Diff describes the first difference between the trimmed strings, or
// returns "" when they are equal.
func Diff(actual, expected string) string {
	a := strings.TrimSpace(actual)
	e := strings.TrimSpace(expected)
	if a == e {
		return ""
	}
	n := min(len(a), len(e))
	i := 0
	for i < n && a[i] == e[i] {
		i++
	}
	// Start both snippets on a whole character when the difference falls
	// inside a multi-byte rune.
	for i > 0 && (i < len(e) && !utf8.RuneStart(e[i]) || i < len(a) && !utf8.RuneStart(a[i])) {
		i--
	}
	line := strings.Count(e[:i], "\n") + 1
	return fmt.Sprintf("line %d: expected %q, got %q", line, snippet(e, i), snippet(a, i))
}

func snippet(s string, at int) string {
	const width = 24
	if at >= len(s) {
		return "<eof>"
	}
	end := min(at+width, len(s))
	for end < len(s) && !utf8.RuneStart(s[end]) {
		end++
	}
	return s[at:end]
}
