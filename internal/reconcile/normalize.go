// Package reconcile builds cross-source vessel confirmation state: it
// clusters current intelligence records that co-refer to one physical
// vessel and grades each cluster by how many independent sources back it.
package reconcile

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks removes combining diacritical marks after NFD decomposition,
// so "Ñ" and "N" compare equal.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeName canonicalizes a vessel name for matching: uppercase,
// trimmed, internal whitespace collapsed, diacritics stripped. Matching is
// exact on the normalized form; there is no fuzzy matching.
func NormalizeName(name string) string {
	s, _, err := transform.String(stripMarks, name)
	if err != nil {
		s = name
	}
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), " ")
}
