// Package similarity computes the deterministic visual and aural similarity
// signals between two wordmarks.
//
// Both functions are total: they never fail and always return a score in
// [0.0, 1.0]. Strings are trimmed and lower-cased before comparison.
package similarity

import (
	"strings"
	"unicode/utf8"

	"github.com/agext/levenshtein"
	"github.com/antzucaro/matchr"
)

// indelParams makes a substitution cost as much as a delete plus an insert,
// which turns the Levenshtein distance into an indel distance. The classic
// normalized "ratio" is defined on that distance.
var indelParams = levenshtein.NewParams().SubCost(2)

// Ratio returns the normalized similarity of a and b:
//
//	(len(a) + len(b) - indel(a, b)) / (len(a) + len(b))
//
// Lengths are counted in runes. Two empty strings are identical.
func Ratio(a, b string) float64 {
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 1.0
	}
	dist := levenshtein.Distance(a, b, indelParams)
	return float64(total-dist) / float64(total)
}

// normalize trims surrounding whitespace and case-folds.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// edgeCase handles the empty-string rules shared by Visual and Aural.
// ok is false when both strings are non-empty and a real comparison is needed.
func edgeCase(a, b string) (score float64, ok bool) {
	switch {
	case a == "" && b == "":
		return 1.0, true
	case a == "" || b == "":
		return 0.0, true
	default:
		return 0, false
	}
}

// Visual scores how alike two marks look, using the edit-distance ratio of
// their normalized spellings.
func Visual(a, b string) float64 {
	a, b = normalize(a), normalize(b)
	if score, ok := edgeCase(a, b); ok {
		return score
	}
	return Ratio(a, b)
}

// Aural scores how alike two marks sound. Each mark is encoded with Double
// Metaphone; the result is the best ratio across the primary codes and,
// where a mark has one, its alternate code.
func Aural(a, b string) float64 {
	a, b = normalize(a), normalize(b)
	if score, ok := edgeCase(a, b); ok {
		return score
	}

	codesA := phoneticCodes(a)
	codesB := phoneticCodes(b)

	best := Ratio(codesA[0], codesB[0])
	for _, ca := range codesA {
		for _, cb := range codesB {
			if r := Ratio(ca, cb); r > best {
				best = r
			}
		}
	}
	return best
}

// phoneticCodes returns the primary Double Metaphone code followed by the
// alternate code when it exists and differs from the primary.
func phoneticCodes(s string) []string {
	primary, alternate := matchr.DoubleMetaphone(s)
	if alternate == "" || alternate == primary {
		return []string{primary}
	}
	return []string{primary, alternate}
}
