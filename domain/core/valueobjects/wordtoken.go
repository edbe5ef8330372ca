package valueobjects

import (
	"strings"
)

// WordToken is a value object for a single word or punctuation unit in
// the output document. Tokens are immutable; replacement produces a new
// token via the With* helpers.
type WordToken struct {
	Word             string   `json:"word"`
	Tag              Tag      `json:"type"`
	Synonyms         []string `json:"synonyms,omitempty"`
	StructuralChange bool     `json:"structuralChange"`
	UnchangedLongest bool     `json:"unchangedLongest"`
}

// NewWordToken creates a token with the given word and tag. Freeze
// markers are stripped from the stored word; a word that arrived fully
// brace-wrapped keeps the freeze tag so the projection can style it.
func NewWordToken(word string, tag Tag) WordToken {
	stripped := StripFreezeMarkers(word)
	if stripped != word && tag == TagNone {
		tag = TagFreeze
	}
	return WordToken{
		Word: stripped,
		Tag:  tag,
	}
}

// NewNewlineToken creates the placeholder token for a paragraph break.
func NewNewlineToken() WordToken {
	return WordToken{Word: "\n", Tag: TagNewline}
}

// IsNewline reports whether the token is a paragraph-break placeholder.
func (t WordToken) IsNewline() bool {
	return t.Tag == TagNewline
}

// WithWord returns a copy of the token with the word overwritten. Tag,
// synonyms and annotation flags are preserved untouched.
func (t WordToken) WithWord(word string) WordToken {
	t.Word = word
	return t
}

// WithSynonyms returns a copy of the token carrying the given candidate
// substitutions, in upstream order.
func (t WordToken) WithSynonyms(synonyms []string) WordToken {
	t.Synonyms = append([]string(nil), synonyms...)
	return t
}

// WithStructuralChange returns a copy with the structural-change flag set.
func (t WordToken) WithStructuralChange(changed bool) WordToken {
	t.StructuralChange = changed
	return t
}

// WithUnchangedLongest returns a copy with the longest-unchanged flag set.
func (t WordToken) WithUnchangedLongest(unchanged bool) WordToken {
	t.UnchangedLongest = unchanged
	return t
}

// Equals checks if two tokens are equal, ignoring synonym order only in
// so far as both lists must match element-wise.
func (t WordToken) Equals(other WordToken) bool {
	if t.Word != other.Word || t.Tag != other.Tag ||
		t.StructuralChange != other.StructuralChange ||
		t.UnchangedLongest != other.UnchangedLongest {
		return false
	}
	if len(t.Synonyms) != len(other.Synonyms) {
		return false
	}
	for i := range t.Synonyms {
		if t.Synonyms[i] != other.Synonyms[i] {
			return false
		}
	}
	return true
}

// IsPunctuation reports whether the token carries no letters or digits.
func (t WordToken) IsPunctuation() bool {
	if t.Tag == TagPunctuation {
		return true
	}
	for _, r := range t.Word {
		if isWordRune(r) {
			return false
		}
	}
	return t.Word != ""
}

// StripFreezeMarkers removes brace-delimited freeze wrappers from a
// word, e.g. "{Brand}" becomes "Brand". Braces are literal protocol
// markers; user text never legitimately contains them mid-word.
func StripFreezeMarkers(word string) string {
	if !strings.ContainsAny(word, "{}") {
		return word
	}
	return strings.Map(func(r rune) rune {
		if r == '{' || r == '}' {
			return -1
		}
		return r
	}, word)
}

func isWordRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') || r > 127
}
