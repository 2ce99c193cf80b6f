// Package normalize holds the text transforms shared by catalog queries and
// candidate scoring. Both sides must normalize identically or exact-match
// lookups drift away from what the catalog builder stored.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/codyseavey/card-resolver/internal/models"
)

var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Name normalizes a card name for matching: lowercase, collapsed whitespace,
// and diacritics folded for Latin scripts. Japanese input (either by language
// tag or detected CJK content) is only lowercased, since diacritic folding is
// meaningless there and would corrupt kana.
func Name(name string, lang *models.Language) string {
	lowered := strings.ToLower(name)

	if (lang != nil && *lang == models.LanguageJapanese) || HasCJK(name) {
		return collapseWhitespace(lowered)
	}

	folded, _, err := transform.String(stripDiacritics, lowered)
	if err != nil {
		return collapseWhitespace(lowered)
	}
	return collapseWhitespace(folded)
}

// HasCJK reports whether the string contains any Hiragana, Katakana, or CJK
// Unified Ideograph codepoints.
func HasCJK(s string) bool {
	for _, r := range s {
		if (r >= 0x3040 && r <= 0x309F) || // Hiragana
			(r >= 0x30A0 && r <= 0x30FF) || // Katakana
			(r >= 0x4E00 && r <= 0x9FFF) { // CJK Unified Ideographs
			return true
		}
	}
	return false
}

// Number canonicalizes a card number by trimming '#', '0', and whitespace
// from both ends. Catalogs store "4" where the printed card says "#004".
// A number that trims away to nothing becomes "0".
func Number(raw string) string {
	trimmed := strings.Trim(raw, "#0 \t\r\n")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
