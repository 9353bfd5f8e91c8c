package runtime

import (
	"strings"
	"unicode"
)

// MatchRules returns the tools of every rule text mentions, in rule order.
func MatchRules(rules []Rule, text string) []string {
	lower := strings.ToLower(text)
	words := wordSet(lower)
	var out []string
	for _, r := range rules {
		for _, kw := range r.Keywords {
			if mentions(lower, words, strings.ToLower(kw)) {
				out = append(out, r.Tool)
				break
			}
		}
	}
	return out
}

func mentions(lower string, words map[string]bool, kw string) bool {
	if strings.ContainsFunc(kw, func(r rune) bool { return !isWordRune(r) }) {
		return strings.Contains(lower, kw)
	}
	return words[kw]
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.FieldsFunc(s, func(r rune) bool { return !isWordRune(r) }) {
		set[w] = true
	}
	return set
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
