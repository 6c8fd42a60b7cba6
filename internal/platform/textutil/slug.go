package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const slugDelimiter = '-'

// Slugify normalises free text into a lowercase, URL-safe identifier. Diacritics are folded to their
// base letters, punctuation is dropped, and whitespace or separator runs collapse into a single hyphen.
func Slugify(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), text)
	if err != nil {
		folded = text
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	pending := false
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pending && b.Len() > 0 {
				b.WriteRune(slugDelimiter)
			}
			pending = false
			b.WriteRune(r)
		case isSlugSeparator(r):
			pending = true
		}
	}
	return b.String()
}

func isSlugSeparator(r rune) bool {
	if unicode.IsSpace(r) {
		return true
	}
	switch r {
	case '-', '_', '/', '\\', '|', '&', '+', '.', ',', ':', ';':
		return true
	}
	return false
}
