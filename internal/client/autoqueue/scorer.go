package autoqueue

import (
	"strings"
	"unicode/utf8"
)

const (
	minDiffLength      = 10
	minWordLength      = 3
	wordOverlapMinimum = 0.7
)

var versionKeywords = []string{"remix", "live", "acoustic", "version", "edit", "mix", "remaster", "remastered"}

// Scorer decides whether two normalized titles name the same song.
type Scorer interface {
	Similar(a, b string) bool
}

type ScorerFunc func(a, b string) bool

func (f ScorerFunc) Similar(a, b string) bool {
	return f(a, b)
}

var DefaultScorer Scorer = ScorerFunc(TitlesSimilar)

// TitlesSimilar compares two normalized titles. They match when equal, when
// one contains the other and the remainder is short or a version marker
// like "remix", or when most of their longer words are shared.
func TitlesSimilar(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}

	if strings.Contains(a, b) || strings.Contains(b, a) {
		longer, shorter := b, a
		if len(a) > len(b) {
			longer, shorter = a, b
		}
		diff := strings.TrimSpace(strings.Replace(longer, shorter, "", 1))

		lowerDiff := strings.ToLower(diff)
		for _, keyword := range versionKeywords {
			if strings.Contains(lowerDiff, keyword) {
				return true
			}
		}

		if utf8.RuneCountInString(diff) < minDiffLength {
			return true
		}
	}

	return wordOverlap(a, b) > wordOverlapMinimum
}

func wordOverlap(a, b string) float64 {
	words1 := wordSet(a)
	words2 := wordSet(b)

	shared := 0
	for w := range words1 {
		if _, ok := words2[w]; ok && utf8.RuneCountInString(w) >= minWordLength {
			shared++
		}
	}

	return float64(shared) / float64(max(len(words1), len(words2)))
}

func wordSet(s string) map[string]struct{} {
	words := strings.Split(s, " ")
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
