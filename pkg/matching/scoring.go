package matching

import (
	"strings"
	"unicode"
)

// Scorer provides the string comparison algorithms the matcher uses.
type Scorer struct{}

// NewScorer creates a new Scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// ExactMatch returns 1.0 for exact match, 0.0 otherwise
func (s *Scorer) ExactMatch(a, b string, caseSensitive bool) float64 {
	if !caseSensitive {
		a = strings.ToLower(a)
		b = strings.ToLower(b)
	}
	if a == b {
		return 1.0
	}
	return 0.0
}

// TrigramSimilarity returns the trigram set similarity of a and b in
// [0,1]. Trigrams are built the way pg_trgm builds them, lowercased
// words padded with two leading and one trailing space, so scores here
// line up with similarity() computed in SQL.
func (s *Scorer) TrigramSimilarity(a, b string) float64 {
	if a == b {
		if a == "" {
			return 0.0
		}
		return 1.0
	}

	trigramsA := trigrams(a)
	trigramsB := trigrams(b)
	if len(trigramsA) == 0 || len(trigramsB) == 0 {
		return 0.0
	}

	shared := 0
	for t := range trigramsA {
		if _, ok := trigramsB[t]; ok {
			shared++
		}
	}

	union := len(trigramsA) + len(trigramsB) - shared
	if union == 0 {
		return 0.0
	}
	return float64(shared) / float64(union)
}

// GreatestSimilarity scores candidate against each of the targets and
// returns the best score. Empty targets are ignored.
func (s *Scorer) GreatestSimilarity(candidate string, targets ...string) float64 {
	best := 0.0
	for _, target := range targets {
		if target == "" {
			continue
		}
		if score := s.TrigramSimilarity(candidate, target); score > best {
			best = score
		}
	}
	return best
}

// trigrams returns the unique padded trigrams of every word in s.
func trigrams(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, word := range splitWords(strings.ToLower(s)) {
		padded := "  " + word + " "
		for i := 0; i+3 <= len(padded); i++ {
			set[padded[i:i+3]] = struct{}{}
		}
	}
	return set
}

// splitWords keeps runs of letters and digits, dropping everything else.
func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
