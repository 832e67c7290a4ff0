package matching

import (
	"strings"

	"github.com/visionscan/pos-backend/pkg/db/models"
)

// DefaultFuzzyThreshold is the minimum similarity score accepted when
// no exact or alias match is found.
const DefaultFuzzyThreshold = 0.6

// Match resolves a detected label against a catalog snapshot. Resolution
// order, first hit wins: exact SKU (case-sensitive), exact name
// (case-insensitive), alias equality (case-insensitive), then fuzzy
// similarity against names and aliases accepted at or above threshold.
// Ties are broken by catalog iteration order. A nil return means no
// match; that is a valid outcome, not an error. The catalog is never
// mutated and identical inputs always produce identical results.
func Match(label string, catalog []models.InventoryItem, threshold float64) *models.InventoryItem {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" || len(catalog) == 0 {
		return nil
	}
	if threshold <= 0 {
		threshold = DefaultFuzzyThreshold
	}
	lowered := strings.ToLower(trimmed)

	for i := range catalog {
		if catalog[i].SKU == trimmed {
			return &catalog[i]
		}
	}

	for i := range catalog {
		if strings.ToLower(strings.TrimSpace(catalog[i].Name)) == lowered {
			return &catalog[i]
		}
	}

	for i := range catalog {
		for _, alias := range catalog[i].Aliases {
			if strings.ToLower(strings.TrimSpace(alias)) == lowered {
				return &catalog[i]
			}
		}
	}

	var best *models.InventoryItem
	bestScore := 0.0
	for i := range catalog {
		score := Ratio(lowered, strings.ToLower(catalog[i].Name))
		if score > bestScore {
			bestScore = score
			best = &catalog[i]
		}
		for _, alias := range catalog[i].Aliases {
			score = Ratio(lowered, strings.ToLower(alias))
			if score > bestScore {
				bestScore = score
				best = &catalog[i]
			}
		}
	}
	if bestScore >= threshold {
		return best
	}
	return nil
}

// Ratio computes a normalized similarity score in [0,1] between two
// strings: twice the number of characters in common (over recursively
// found longest matching blocks) divided by the total length.
func Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1.0
	}
	return 2 * float64(matchingChars(ra, rb)) / float64(total)
}

func matchingChars(a, b []rune) int {
	i, j, size := longestMatch(a, b)
	if size == 0 {
		return 0
	}
	return size + matchingChars(a[:i], b[:j]) + matchingChars(a[i+size:], b[j+size:])
}

// longestMatch finds the longest contiguous block common to a and b,
// preferring the earliest block on ties.
func longestMatch(a, b []rune) (bestA, bestB, bestSize int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > bestSize {
					bestSize = curr[j]
					bestA = i - curr[j]
					bestB = j - curr[j]
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}
	return bestA, bestB, bestSize
}
