package matching

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// normalizeText lowercases, strips diacritics, and collapses whitespace.
// Alias resolution happens on top of this form, so the output of
// normalizeText is always a fixed point of itself.
func normalizeText(s string) string {
	if s == "" {
		return ""
	}
	s = stripDiacritics(s)
	s = strings.ToLower(strings.TrimSpace(s))
	return collapseWhitespace(s)
}

func stripDiacritics(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range norm.NFD.String(s) {
		if !unicode.Is(unicode.Mn, r) { // Mn = Mark, Nonspacing (combining accents)
			b.WriteRune(r)
		}
	}
	return b.String()
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
