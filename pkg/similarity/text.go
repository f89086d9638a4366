// Package similarity provides the string and set similarity metrics the
// duplicate-detection comparators are built on. All functions are pure and
// symmetric in their arguments.
package similarity

import (
	"regexp"
	"strings"
)

var punctuationPattern = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)

// Normalize lowercases a string, replaces punctuation with single spaces and
// collapses whitespace runs. Comparisons always operate on normalized text.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = punctuationPattern.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// Text returns a blended similarity in [0,1] between two strings.
// Exact normalized equality scores 1.0; otherwise the result is a weighted
// blend of Jaro-Winkler (0.5), token Jaccard (0.3) and substring containment
// (0.2). An empty string against a non-empty one scores 0.
func Text(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1.0
	}
	return 0.5*JaroWinkler(na, nb) + 0.3*jaccard(na, nb) + 0.2*containment(na, nb)
}

// JaroWinkler computes standard Jaro similarity with the Winkler prefix
// bonus of 0.1 per common leading character, capped at four characters.
func JaroWinkler(a, b string) float64 {
	j := jaro(a, b)
	if j == 0 {
		return 0
	}
	r1, r2 := []rune(a), []rune(b)
	prefix := 0
	for i := 0; i < len(r1) && i < len(r2) && i < 4; i++ {
		if r1[i] != r2[i] {
			break
		}
		prefix++
	}
	return j + 0.1*float64(prefix)*(1-j)
}

func jaro(a, b string) float64 {
	r1, r2 := []rune(a), []rune(b)
	len1, len2 := len(r1), len(r2)
	if len1 == 0 || len2 == 0 {
		return 0
	}

	window := max(len1, len2)/2 - 1
	if window < 0 {
		window = 0
	}

	matched1 := make([]bool, len1)
	matched2 := make([]bool, len2)
	matches := 0

	for i := 0; i < len1; i++ {
		lo := i - window
		if lo < 0 {
			lo = 0
		}
		hi := i + window + 1
		if hi > len2 {
			hi = len2
		}
		for j := lo; j < hi; j++ {
			if matched2[j] || r1[i] != r2[j] {
				continue
			}
			matched1[i] = true
			matched2[j] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0
	}

	// Transpositions: walk the matched characters of both strings left to
	// right and count positions where they disagree.
	transpositions := 0
	k := 0
	for i := 0; i < len1; i++ {
		if !matched1[i] {
			continue
		}
		for !matched2[k] {
			k++
		}
		if r1[i] != r2[k] {
			transpositions++
		}
		k++
	}
	t := float64(transpositions) / 2

	m := float64(matches)
	return (m/float64(len1) + m/float64(len2) + (m-t)/m) / 3
}

// jaccard is the token-set overlap |A∩B| / |A∪B| of two normalized strings.
func jaccard(a, b string) float64 {
	tokensA := strings.Fields(a)
	tokensB := strings.Fields(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(tokensA))
	for _, t := range tokensA {
		setA[t] = struct{}{}
	}
	union := make(map[string]struct{}, len(tokensA)+len(tokensB))
	for t := range setA {
		union[t] = struct{}{}
	}
	intersection := 0
	for _, t := range tokensB {
		if _, seen := union[t]; !seen {
			union[t] = struct{}{}
			continue
		}
		if _, ok := setA[t]; ok {
			// Count each shared token once.
			delete(setA, t)
			intersection++
		}
	}
	return float64(intersection) / float64(len(union))
}

// containment returns the length ratio of whichever normalized string is a
// substring of the other, or 0 when neither contains the other.
func containment(a, b string) float64 {
	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if !strings.Contains(longer, shorter) {
		return 0
	}
	return float64(len(shorter)) / float64(len(longer))
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
