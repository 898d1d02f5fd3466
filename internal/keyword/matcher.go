// Package keyword decides which vocabulary terms occur in a text.
//
// Terms are matched against the lowercased text in one of three tiers:
//
//   - multi-word terms (containing a space) match as substrings;
//   - single words of at least SubstringMinLen runes match as substrings,
//     so "launch" also finds "launches" and "launched";
//   - shorter single words (3 runes up to the threshold) must equal a whole
//     token, so "bot" does not match inside "robot".
//
// Terms of one or two runes are rejected when the matcher is built.
package keyword

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"feedwatch/internal/utils/text"
)

// DefaultSubstringMinLen is the shortest single word matched as a substring.
const DefaultSubstringMinLen = 5

// MinTermLen is the shortest term the matcher accepts.
const MinTermLen = 3

var (
	// ErrTermTooShort is returned for terms of fewer than MinTermLen runes.
	ErrTermTooShort = errors.New("keyword term too short")

	// ErrInvalidThreshold is returned when the substring threshold would leave no token tier.
	ErrInvalidThreshold = errors.New("substring threshold must be at least 4")
)

type tier int

const (
	tierPhrase tier = iota
	tierSubstring
	tierToken
)

type term struct {
	original string
	lower    string
	tier     tier
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithSubstringMinLen sets the rune count from which single words match as substrings.
func WithSubstringMinLen(n int) Option {
	return func(m *Matcher) {
		m.substringMinLen = n
	}
}

// Matcher holds a compiled vocabulary. It is safe for concurrent use.
type Matcher struct {
	terms           []term
	substringMinLen int
	hasTokenTier    bool
}

// New compiles a vocabulary. Blank terms are ignored and case-insensitive
// duplicates keep their first spelling.
func New(terms []string, opts ...Option) (*Matcher, error) {
	m := &Matcher{substringMinLen: DefaultSubstringMinLen}
	for _, opt := range opts {
		opt(m)
	}
	if m.substringMinLen < MinTermLen+1 {
		return nil, ErrInvalidThreshold
	}

	seen := make(map[string]struct{}, len(terms))
	for _, raw := range terms {
		original := strings.TrimSpace(raw)
		if original == "" {
			continue
		}
		if text.CountRunes(original) < MinTermLen {
			return nil, fmt.Errorf("%w: %q", ErrTermTooShort, original)
		}

		lower := strings.ToLower(original)
		if _, dup := seen[lower]; dup {
			continue
		}
		seen[lower] = struct{}{}

		t := term{original: original, lower: lower, tier: m.classify(original)}
		if t.tier == tierToken {
			m.hasTokenTier = true
		}
		m.terms = append(m.terms, t)
	}
	return m, nil
}

func (m *Matcher) classify(term string) tier {
	switch {
	case strings.ContainsRune(term, ' '):
		return tierPhrase
	case text.CountRunes(term) >= m.substringMinLen:
		return tierSubstring
	default:
		return tierToken
	}
}

// Terms returns the compiled vocabulary in its configured casing.
func (m *Matcher) Terms() []string {
	out := make([]string, len(m.terms))
	for i, t := range m.terms {
		out[i] = t.original
	}
	return out
}

// Len returns the number of compiled terms.
func (m *Matcher) Len() int {
	return len(m.terms)
}

// Match returns the terms found in s, in vocabulary order and configured
// casing. It returns nil when nothing matches.
func (m *Matcher) Match(s string) []string {
	if len(m.terms) == 0 || s == "" {
		return nil
	}

	lower := strings.ToLower(s)
	var tokens map[string]struct{}
	if m.hasTokenTier {
		tokens = tokenSet(lower)
	}

	var matched []string
	for _, t := range m.terms {
		var ok bool
		if t.tier == tierToken {
			_, ok = tokens[t.lower]
		} else {
			ok = strings.Contains(lower, t.lower)
		}
		if ok {
			matched = append(matched, t.original)
		}
	}
	return matched
}

// TermMatches reports whether an already lowercased term occurs in an
// already lowercased text under the default thresholds.
func TermMatches(textLower, termLower string) bool {
	switch {
	case strings.ContainsRune(termLower, ' '):
		return strings.Contains(textLower, termLower)
	case text.CountRunes(termLower) >= DefaultSubstringMinLen:
		return strings.Contains(textLower, termLower)
	case text.CountRunes(termLower) < MinTermLen:
		return false
	default:
		_, ok := tokenSet(textLower)[termLower]
		return ok
	}
}

// Tokens splits s into maximal runs of word characters.
func Tokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return !isWordRune(r) })
}

func tokenSet(s string) map[string]struct{} {
	tokens := Tokens(s)
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	return set
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}
