// Package resolve maps free-text director names onto registry entries using
// weighted fuzzy string similarity.
package resolve

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Process standardizes a name for scoring by:
//  1. Stripping diacritics (Almodóvar -> Almodovar)
//  2. Case folding
//  3. Replacing every non letter/digit rune with a space
//  4. Collapsing runs of whitespace and trimming
//
// Transformers are built per call; they carry state and are not safe to
// share between goroutines.
func Process(name string) string {
	if strings.TrimSpace(name) == "" {
		return ""
	}

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, name)
	if err != nil {
		stripped = name
	}

	folded := cases.Fold().String(stripped)

	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, folded)

	return strings.Join(strings.Fields(cleaned), " ")
}
