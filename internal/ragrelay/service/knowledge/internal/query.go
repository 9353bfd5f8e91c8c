package internal

import (
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "did": true, "do": true, "does": true, "for": true,
	"from": true, "how": true, "in": true, "is": true, "it": true, "of": true,
	"on": true, "or": true, "the": true, "to": true, "was": true, "were": true,
	"what": true, "when": true, "where": true, "which": true, "who": true,
	"why": true, "with": true,
}

// Tokenize lower-cases raw and returns its distinct non-stop-word tokens
// in first-seen order.
func Tokenize(raw string) []string {
	seen := make(map[string]bool)
	var tokens []string
	for _, t := range tokenPattern.FindAllString(strings.ToLower(raw), -1) {
		if stopWords[t] || seen[t] {
			continue
		}
		seen[t] = true
		tokens = append(tokens, t)
	}
	return tokens
}

// BuildFTSQuery quotes every token and joins them with OR, so that any
// matching chunk is a candidate and bm25 does the ranking.
func BuildFTSQuery(tokens []string) string {
	quoted := make([]string, 0, len(tokens))
	for _, t := range tokens {
		quoted = append(quoted, `"`+strings.ReplaceAll(t, `"`, "")+`"`)
	}
	return strings.Join(quoted, " OR ")
}

// RankToScore maps an FTS5 bm25 rank (negative, lower is better) onto
// [0, 1) with higher meaning more relevant.
func RankToScore(rank float64) float64 {
	s := max(0, -rank)
	return s / (1 + s)
}

// EscapeLike escapes LIKE wildcards; use with ESCAPE '\'.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// TruncateRunes cuts s to at most n runes.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
