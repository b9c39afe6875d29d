// Package symptom turns delimited symptom text into normalised token sets.
// Tokens are split on commas, trimmed, lower-cased and de-duplicated; there
// is no stemming or fuzzy matching, so two symptoms match only when their
// tokens are equal.
package symptom

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Delimiter separates symptoms in user input and catalog records.
const Delimiter = ","

// Set is a set of normalised symptom tokens.
type Set map[string]struct{}

// Parse splits raw on Delimiter and returns the normalised token set. Empty
// tokens are dropped, so Parse("") and Parse(" , ") return an empty set.
func Parse(raw string) Set {
	parts := strings.Split(raw, Delimiter)
	set := make(Set, len(parts))
	lower := cases.Lower(language.Und)
	for _, part := range parts {
		token := Normalize(lower, part)
		if token == "" {
			continue
		}
		set[token] = struct{}{}
	}
	return set
}

// Normalize trims and lower-cases a single token.
func Normalize(lower cases.Caser, token string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return ""
	}
	return lower.String(token)
}

// FromTokens builds a Set from already separated tokens, normalising each.
func FromTokens(tokens ...string) Set {
	set := make(Set, len(tokens))
	lower := cases.Lower(language.Und)
	for _, t := range tokens {
		if token := Normalize(lower, t); token != "" {
			set[token] = struct{}{}
		}
	}
	return set
}

func (s Set) Len() int {
	return len(s)
}

func (s Set) Contains(token string) bool {
	_, ok := s[token]
	return ok
}

// IntersectCount returns |s ∩ other|.
func (s Set) IntersectCount(other Set) int {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	n := 0
	for token := range small {
		if _, ok := large[token]; ok {
			n++
		}
	}
	return n
}

// Sorted returns the tokens in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for token := range s {
		out = append(out, token)
	}
	sort.Strings(out)
	return out
}

// Equal reports whether both sets hold exactly the same tokens.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for token := range s {
		if _, ok := other[token]; !ok {
			return false
		}
	}
	return true
}
