package valueobjects

// Tag represents the grammatical role assigned to a word token by the
// upstream tagging service, or one of the structural pseudo-tags used
// for layout and freeze handling.
type Tag string

const (
	TagNoun         Tag = "noun"
	TagVerb         Tag = "verb"
	TagAdjective    Tag = "adjective"
	TagAdverb       Tag = "adverb"
	TagPronoun      Tag = "pronoun"
	TagPreposition  Tag = "preposition"
	TagConjunction  Tag = "conjunction"
	TagDeterminer   Tag = "determiner"
	TagInterjection Tag = "interjection"
	TagNumber       Tag = "number"
	TagPunctuation  Tag = "punctuation"

	// Structural pseudo-tags
	TagNone    Tag = "none"
	TagNewline Tag = "newline"
	TagFreeze  Tag = "freeze"
)

// validTags is the closed vocabulary accepted at the boundary.
var validTags = map[Tag]bool{
	TagNoun:         true,
	TagVerb:         true,
	TagAdjective:    true,
	TagAdverb:       true,
	TagPronoun:      true,
	TagPreposition:  true,
	TagConjunction:  true,
	TagDeterminer:   true,
	TagInterjection: true,
	TagNumber:       true,
	TagPunctuation:  true,
	TagNone:         true,
	TagNewline:      true,
	TagFreeze:       true,
}

// ParseTag maps a raw tag string to a known Tag, falling back to TagNone
// for anything outside the vocabulary. Unknown tags never fail: the
// upstream service may grow its tag set independently of this client.
func ParseTag(raw string) Tag {
	t := Tag(raw)
	if validTags[t] {
		return t
	}
	return TagNone
}

// IsValid reports whether the tag belongs to the known vocabulary.
func (t Tag) IsValid() bool {
	return validTags[t]
}

// IsStructural reports whether the tag is a layout pseudo-tag rather
// than a grammatical role.
func (t Tag) IsStructural() bool {
	return t == TagNewline || t == TagFreeze || t == TagNone
}

// String returns the string representation of the tag.
func (t Tag) String() string {
	return string(t)
}
