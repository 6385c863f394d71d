package search

import (
	"slices"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Highlight returns the rune positions in text matched by query, or nil.
// Each whitespace-separated token is matched on its own so "robot mr"
// still highlights both words of "Mr. Robot".
func Highlight(query, text string) []int {
	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) == 0 || text == "" {
		return nil
	}

	lower := []string{strings.ToLower(text)}
	seen := make(map[int]bool)
	var out []int
	for _, tok := range tokens {
		matches := fuzzy.Find(tok, lower)
		if len(matches) == 0 {
			continue
		}
		for _, idx := range byteToRune(lower[0], matches[0].MatchedIndexes) {
			if !seen[idx] {
				seen[idx] = true
				out = append(out, idx)
			}
		}
	}
	slices.Sort(out)
	return out
}

func byteToRune(s string, byteIdx []int) []int {
	if len(byteIdx) == 0 {
		return nil
	}
	want := make(map[int]bool, len(byteIdx))
	for _, b := range byteIdx {
		want[b] = true
	}
	out := make([]int, 0, len(byteIdx))
	r := 0
	for b := range s {
		if want[b] {
			out = append(out, r)
		}
		r++
	}
	return out
}
