package suggest

import (
	"strings"
)

// MinScore is the similarity below which no suggestion is made.
const MinScore = 0.6

// Closest returns the candidate most similar to name. Ties keep the earlier
// candidate. ok is false when no candidate reaches MinScore.
func Closest(name string, candidates []string) (best string, ok bool) {
	bestScore := MinScore
	norm := Normalize(name)

	for _, c := range candidates {
		if c == name {
			continue
		}

		score := Similarity(norm, Normalize(c))
		if score > bestScore || (score == bestScore && !ok) {
			best, bestScore, ok = c, score, true
		}
	}

	return best, ok
}

// Normalize case-folds an identifier and drops '_', '-' and spaces.
func Normalize(s string) string {
	var sb strings.Builder

	sb.Grow(len(s))

	for _, r := range strings.ToLower(s) {
		if r == '_' || r == '-' || r == ' ' {
			continue
		}

		sb.WriteRune(r)
	}

	return sb.String()
}

// Similarity maps the edit distance of a and b onto [0, 1], 1 meaning equal.
func Similarity(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}

	return 1.0 - float64(Distance(a, b))/float64(max(len(a), len(b)))
}

// Distance is the Levenshtein distance between a and b, counted in bytes.
func Distance(a, b string) int {
	if len(a) > len(b) {
		a, b = b, a
	}

	if len(a) == 0 {
		return len(b)
	}

	// two rows of the edit matrix, sized by the shorter string
	prev := make([]int, len(a)+1)
	curr := make([]int, len(a)+1)

	for i := range prev {
		prev[i] = i
	}

	for j := 1; j <= len(b); j++ {
		curr[0] = j

		for i := 1; i <= len(a); i++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}

			curr[i] = min(prev[i]+1, curr[i-1]+1, prev[i-1]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(a)]
}
