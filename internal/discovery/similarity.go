// Package discovery - similarity.go implements the fuzzy name match used by
// the last resolution tier.
package discovery

import "github.com/jonathan/talent-sourcer/internal/db"

// FuzzyThreshold is the minimum similarity for a fuzzy name match to count
// as a resolution. Below it, the company stays unresolved rather than risk
// billing searches against the wrong employer.
const FuzzyThreshold = 0.75

// NameSimilarity returns a 0..1 similarity between two company names,
// computed as normalized Levenshtein distance over the normalized forms
// (lowercased, punctuation stripped). Identical normalized names score 1.
func NameSimilarity(a, b string) float64 {
	na := db.NormalizeName(a)
	nb := db.NormalizeName(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}

	dist := levenshtein(na, nb)
	longest := len(na)
	if len(nb) > longest {
		longest = len(nb)
	}
	return 1 - float64(dist)/float64(longest)
}

// levenshtein computes edit distance with a two-row table.
func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
