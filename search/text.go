package search

import (
	"slices"
	"strings"
	"unicode"
)

// stopWords never count as a term match when highlighting results.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"but": {}, "by": {}, "do": {}, "does": {}, "for": {}, "from": {}, "how": {},
	"in": {}, "is": {}, "it": {}, "not": {}, "of": {}, "on": {}, "that": {},
	"the": {}, "this": {}, "to": {}, "was": {}, "what": {}, "with": {}, "you": {},
}

// terms lowercases text and splits it on anything that is not a letter or
// digit, dropping stop words.
func terms(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if _, stop := stopWords[f]; !stop {
			out = append(out, f)
		}
	}
	return out
}

// MatchedTerms returns the query words, minus stop words, that appear
// verbatim in content. Order follows the query; duplicates are dropped.
func MatchedTerms(content, query string) []string {
	inContent := make(map[string]struct{})
	for _, t := range terms(content) {
		inContent[t] = struct{}{}
	}

	matched := []string{}
	for _, t := range terms(query) {
		if _, ok := inContent[t]; !ok {
			continue
		}
		if !slices.Contains(matched, t) {
			matched = append(matched, t)
		}
	}
	return matched
}
