// Package fuzzy implements typo detection, query rewriting, and the term
// co-occurrence graph behind "did you mean" suggestions.
package fuzzy

import (
	"strings"

	"github.com/hbollon/go-edlib"
)

// Distance returns the case-insensitive Levenshtein distance between a and b.
func Distance(a, b string) int {
	return edlib.LevenshteinDistance(strings.ToLower(a), strings.ToLower(b))
}

// Similarity returns 1 - distance/max(len(a), len(b)), clamped to [0, 1].
// Two empty strings are identical.
func Similarity(a, b string) float64 {
	maxLen := max(len([]rune(a)), len([]rune(b)))
	if maxLen == 0 {
		return 1.0
	}
	sim := 1.0 - float64(Distance(a, b))/float64(maxLen)
	return min(max(sim, 0), 1)
}

// IsTransposition reports whether b is a with exactly one pair of adjacent
// characters swapped, ignoring case.
func IsTransposition(a, b string) bool {
	ra := []rune(strings.ToLower(a))
	rb := []rune(strings.ToLower(b))
	if len(ra) != len(rb) {
		return false
	}

	first := -1
	for i := range ra {
		if ra[i] == rb[i] {
			continue
		}
		if first >= 0 {
			if i != first+1 || ra[first] != rb[i] || ra[i] != rb[first] {
				return false
			}
			// any later difference disqualifies
			for j := i + 1; j < len(ra); j++ {
				if ra[j] != rb[j] {
					return false
				}
			}
			return true
		}
		first = i
	}
	return false
}

// IsTypo reports whether candidate looks like what query meant to type.
func (c Config) IsTypo(query, candidate string) bool {
	if strings.EqualFold(query, candidate) {
		return false
	}
	sim := Similarity(query, candidate)
	if sim >= c.TypoThreshold {
		return true
	}
	if sim >= c.TypoOneEditThreshold && Distance(query, candidate) == 1 {
		return true
	}
	return IsTransposition(query, candidate)
}

// plausible is a cheap length filter run before computing distances: a
// candidate whose length differs by more than the largest distance IsTypo
// could accept cannot qualify.
func (c Config) plausible(query, candidate string) bool {
	lq, lc := len([]rune(query)), len([]rune(candidate))
	maxLen := max(lq, lc)
	budget := int((1 - min(c.TypoThreshold, c.TypoOneEditThreshold)) * float64(maxLen))
	budget = max(budget, 1)
	diff := lq - lc
	if diff < 0 {
		diff = -diff
	}
	return diff <= budget
}
