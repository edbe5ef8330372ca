package entities

import (
	"strings"

	"phrasely-backend/domain/core/valueobjects"
	pkgerrors "phrasely-backend/pkg/errors"
)

// Segment is one unit of the output document: either a real sentence
// (one or more word tokens, none of them newline placeholders) or
// exactly one newline token standing for a paragraph break. Segments
// are never reordered; they are appended while streaming and replaced
// in place while editing.
type Segment struct {
	tokens []valueobjects.WordToken
}

// NewSentence creates a sentence segment from the given tokens.
func NewSentence(tokens []valueobjects.WordToken) (*Segment, error) {
	if len(tokens) == 0 {
		return nil, pkgerrors.NewValidationError("sentence segment requires at least one token")
	}
	for _, tok := range tokens {
		if tok.IsNewline() {
			return nil, pkgerrors.NewValidationError("sentence segment cannot contain newline tokens")
		}
	}
	return &Segment{tokens: append([]valueobjects.WordToken(nil), tokens...)}, nil
}

// NewLineBreak creates the paragraph-break segment.
func NewLineBreak() *Segment {
	return &Segment{tokens: []valueobjects.WordToken{valueobjects.NewNewlineToken()}}
}

// IsLineBreak reports whether the segment is a paragraph break.
func (s *Segment) IsLineBreak() bool {
	return len(s.tokens) == 1 && s.tokens[0].IsNewline()
}

// IsHeading reports whether the segment renders as a heading block.
// Heading segments start with a markdown-style marker token.
func (s *Segment) IsHeading() bool {
	if s.IsLineBreak() || len(s.tokens) == 0 {
		return false
	}
	word := s.tokens[0].Word
	if word == "" || word[0] != '#' {
		return false
	}
	return strings.Trim(word, "#") == ""
}

// Tokens returns a copy of the segment's tokens.
func (s *Segment) Tokens() []valueobjects.WordToken {
	return append([]valueobjects.WordToken(nil), s.tokens...)
}

// Token returns the token at the given index.
func (s *Segment) Token(index int) (valueobjects.WordToken, bool) {
	if index < 0 || index >= len(s.tokens) {
		return valueobjects.WordToken{}, false
	}
	return s.tokens[index], true
}

// TokenCount returns the number of tokens in the segment.
func (s *Segment) TokenCount() int {
	return len(s.tokens)
}

// ReplaceToken overwrites one token in place. Used for single-word
// replacement; the caller builds the new token via the With* helpers so
// tags and annotation flags survive.
func (s *Segment) ReplaceToken(index int, token valueobjects.WordToken) error {
	if index < 0 || index >= len(s.tokens) {
		return pkgerrors.NewNotFoundError("word token")
	}
	if token.IsNewline() != s.tokens[index].IsNewline() {
		return pkgerrors.NewValidationError("replacement cannot change a token's newline role")
	}
	s.tokens[index] = token
	return nil
}

// SetTokens overwrites all tokens of a sentence segment, preserving the
// sentence/line-break invariant.
func (s *Segment) SetTokens(tokens []valueobjects.WordToken) error {
	if s.IsLineBreak() {
		return pkgerrors.NewValidationError("cannot overwrite a line-break segment")
	}
	if len(tokens) == 0 {
		return pkgerrors.NewValidationError("sentence segment requires at least one token")
	}
	for _, tok := range tokens {
		if tok.IsNewline() {
			return pkgerrors.NewValidationError("sentence segment cannot contain newline tokens")
		}
	}
	s.tokens = append([]valueobjects.WordToken(nil), tokens...)
	return nil
}

// Text reconstructs the segment's plain text. Punctuation tokens attach
// to the preceding word without a separating space.
func (s *Segment) Text() string {
	if s.IsLineBreak() {
		return "\n"
	}
	var b strings.Builder
	for i, tok := range s.tokens {
		if i > 0 && !tok.IsPunctuation() {
			b.WriteByte(' ')
		}
		b.WriteString(tok.Word)
	}
	return b.String()
}

// Words returns the lower-cased non-punctuation words of the segment,
// the unit the diff annotator matches on.
func (s *Segment) Words() []string {
	words := make([]string, 0, len(s.tokens))
	for _, tok := range s.tokens {
		if tok.IsNewline() || tok.IsPunctuation() {
			continue
		}
		words = append(words, strings.ToLower(tok.Word))
	}
	return words
}

// Clone returns a deep copy of the segment.
func (s *Segment) Clone() *Segment {
	return &Segment{tokens: append([]valueobjects.WordToken(nil), s.tokens...)}
}

// Equals checks token-wise equality of two segments.
func (s *Segment) Equals(other *Segment) bool {
	if other == nil || len(s.tokens) != len(other.tokens) {
		return false
	}
	for i := range s.tokens {
		if !s.tokens[i].Equals(other.tokens[i]) {
			return false
		}
	}
	return true
}
