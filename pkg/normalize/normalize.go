// Package normalize provides text normalization and tokenization for matching.
// Containment of normalized substrings/tokens is the only comparison primitive
// used by the scorer; there is no stemming or edit-distance similarity.
package normalize

import (
	"strings"
	"unicode"
)

// MinTokenLength is the shortest token kept by Tokenize. Single characters
// match almost anything and only add noise.
const MinTokenLength = 2

// Text lowercases a string, replaces punctuation with spaces, and collapses
// internal whitespace. The result is the canonical form used for containment
// checks.
func Text(s string) string {
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	prevSpace := true
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			prevSpace = false
			continue
		}
		if !prevSpace {
			b.WriteRune(' ')
			prevSpace = true
		}
	}

	return strings.TrimSpace(b.String())
}

// Tokenize splits a string on whitespace/punctuation and drops tokens shorter
// than MinTokenLength. Input does not need to be normalized first.
func Tokenize(s string) []string {
	fields := strings.Fields(Text(s))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) >= MinTokenLength {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// NameKey produces the identity key used for duplicate clustering: the
// normalized name with all whitespace removed. Two entities share a key only
// when their names are equal after case folding and punctuation stripping.
func NameKey(name string) string {
	return strings.ReplaceAll(Text(name), " ", "")
}

// Document is a content record's text prepared for scoring: the normalized
// string for substring checks plus a token set for token-overlap checks.
type Document struct {
	Text   string
	Tokens []string

	tokenSet map[string]struct{}
}

// NewDocument normalizes and tokenizes raw text once so every signal
// extractor can reuse the same preparation.
func NewDocument(raw string) *Document {
	tokens := Tokenize(raw)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return &Document{
		Text:     Text(raw),
		Tokens:   tokens,
		tokenSet: set,
	}
}

// Contains reports whether the normalized document text contains the
// normalized form of s as a substring.
func (d *Document) Contains(s string) bool {
	n := Text(s)
	if n == "" {
		return false
	}
	return strings.Contains(d.Text, n)
}

// HasToken reports whether the document contains the exact normalized token.
func (d *Document) HasToken(token string) bool {
	_, ok := d.tokenSet[Text(token)]
	return ok
}
