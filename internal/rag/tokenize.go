package rag

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const minTokenLen = 3

// Tokenize returns the set of lower-cased alphanumeric tokens in s longer
// than two characters. Accents are folded before filtering.
func Tokenize(s string) map[string]struct{} {
	folded, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn))), s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)

	clean := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, folded)

	out := make(map[string]struct{})
	for _, tok := range strings.Fields(clean) {
		if len(tok) >= minTokenLen {
			out[tok] = struct{}{}
		}
	}
	return out
}
