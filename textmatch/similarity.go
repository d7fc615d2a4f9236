// Package textmatch provides the string-similarity primitive shared by drug
// resolution and fuzzy answer matching.
package textmatch

import "strings"

// Similarity computes a normalized edit-distance similarity between two strings,
// in [0,1]. Identical strings score 1 (two empty strings are a match by
// definition); the score decreases with edit distance relative to the longer
// string's length.
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	longer := len(a)
	if len(b) > longer {
		longer = len(b)
	}
	if longer == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein(a, b))/float64(longer)
}

// Normalize lowercases and trims input before comparison. Matching throughout
// the engine is case- and whitespace-insensitive.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// levenshtein computes edit distance with the classic two-row DP table.
func levenshtein(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
