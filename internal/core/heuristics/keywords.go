package heuristics

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// MaxKeywords is the number of keywords kept per chunk.
const MaxKeywords = 5

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}]+)*`)

var stopwords = func() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by",
		"with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those",
		"from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about",
		"between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too",
		"very", "can", "will", "just", "should", "now", "have", "has", "had", "does", "did", "doing", "would",
		"could", "shall", "must", "also", "each", "which", "there", "their", "them", "they", "what", "when",
		"where", "while", "who", "whom", "your", "yours", "ours", "other", "some", "only", "more", "most",
		"here", "upon", "within", "without", "because", "until", "both", "either", "neither",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

// Tokens lower-cases text and returns word tokens in order.
func Tokens(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// QueryTerms returns the distinct tokens longer than three characters.
func QueryTerms(query string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range Tokens(query) {
		if utf8.RuneCountInString(t) <= 3 {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// ExtractKeywords returns up to MaxKeywords tokens longer than three characters,
// stop-words removed, ordered by frequency with ties broken by first appearance.
func ExtractKeywords(text string) []string {
	type entry struct {
		word  string
		count int
	}
	idx := make(map[string]int)
	var entries []entry
	for _, t := range Tokens(text) {
		if utf8.RuneCountInString(t) <= 3 {
			continue
		}
		if _, stop := stopwords[t]; stop {
			continue
		}
		if i, ok := idx[t]; ok {
			entries[i].count++
			continue
		}
		idx[t] = len(entries)
		entries = append(entries, entry{word: t, count: 1})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].count > entries[j].count
	})
	n := min(len(entries), MaxKeywords)
	out := make([]string, n)
	for i := range n {
		out[i] = entries[i].word
	}
	return out
}

// EstimateTokens is the ceil(len/3) estimate used for chunk budgets.
func EstimateTokens(s string) int {
	n := utf8.RuneCountInString(s)
	return (n + 2) / 3
}
