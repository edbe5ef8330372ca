package aggregates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phrasely-backend/domain/core/entities"
	"phrasely-backend/domain/core/valueobjects"
)

func sentence(t *testing.T, words ...string) *entities.Segment {
	t.Helper()
	tokens := make([]valueobjects.WordToken, len(words))
	for i, w := range words {
		tokens[i] = valueobjects.NewWordToken(w, valueobjects.TagNone)
	}
	seg, err := entities.NewSentence(tokens)
	require.NoError(t, err)
	return seg
}

func TestDocument_MapSentenceIndex_SkipsLineBreaks(t *testing.T) {
	doc := NewDocument()
	doc.AppendSegment(sentence(t, "First", "sentence"))
	doc.AppendSegment(entities.NewLineBreak())
	doc.AppendSegment(entities.NewLineBreak())
	doc.AppendSegment(sentence(t, "Second", "sentence"))
	doc.AppendSegment(sentence(t, "Third", "sentence"))

	tests := []struct {
		name          string
		sentenceIndex int
		wantDocIndex  int
		wantOK        bool
	}{
		{"first sentence", 0, 0, true},
		{"second sentence after breaks", 1, 3, true},
		{"third sentence", 2, 4, true},
		{"index past the end", 3, 0, false},
		{"negative index", -1, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docIndex, ok := doc.MapSentenceIndex(tt.sentenceIndex)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantDocIndex, docIndex)
			}
		})
	}
}

func TestDocument_MapSentenceIndex_IsMonotonic(t *testing.T) {
	doc := NewDocument()
	doc.AppendSegment(sentence(t, "a"))
	doc.AppendSegment(entities.NewLineBreak())
	doc.AppendSegment(sentence(t, "b"))
	doc.AppendSegment(sentence(t, "c"))
	doc.AppendSegment(entities.NewLineBreak())
	doc.AppendSegment(sentence(t, "d"))

	prev := -1
	for i := 0; i < doc.SentenceCount(); i++ {
		docIndex, ok := doc.MapSentenceIndex(i)
		require.True(t, ok)
		assert.Greater(t, docIndex, prev, "mapping must preserve order")
		prev = docIndex
	}
}

func TestDocument_OverwriteSentence_UnresolvedIndexIsNotAnError(t *testing.T) {
	doc := NewDocument()
	doc.AppendSegment(sentence(t, "only", "one"))

	applied, err := doc.OverwriteSentence(5, []valueobjects.WordToken{
		valueobjects.NewWordToken("late", valueobjects.TagNone),
	})

	assert.NoError(t, err)
	assert.False(t, applied)
}

func TestDocument_OverwriteSentence_IsIdempotent(t *testing.T) {
	doc := NewDocument()
	doc.AppendSegment(sentence(t, "raw", "words"))

	tokens := []valueobjects.WordToken{
		valueobjects.NewWordToken("tagged", valueobjects.TagNoun),
		valueobjects.NewWordToken("words", valueobjects.TagNoun),
	}

	applied, err := doc.OverwriteSentence(0, tokens)
	require.NoError(t, err)
	require.True(t, applied)
	first, _ := doc.Segment(0)
	firstTokens := first.Tokens()

	applied, err = doc.OverwriteSentence(0, tokens)
	require.NoError(t, err)
	require.True(t, applied)
	second, _ := doc.Segment(0)

	assert.Equal(t, firstTokens, second.Tokens())
}

func TestDocument_ReplaceWord_PreservesTagAndSynonyms(t *testing.T) {
	doc := NewDocument()
	tok := valueobjects.NewWordToken("happy", valueobjects.TagAdjective).
		WithSynonyms([]string{"glad", "joyful"})
	seg, err := entities.NewSentence([]valueobjects.WordToken{tok})
	require.NoError(t, err)
	doc.AppendSegment(seg)

	err = doc.ReplaceWord(0, 0, "glad")
	require.NoError(t, err)

	got, _ := doc.Segment(0)
	replaced, ok := got.Token(0)
	require.True(t, ok)
	assert.Equal(t, "glad", replaced.Word)
	assert.Equal(t, valueobjects.TagAdjective, replaced.Tag)
	assert.Equal(t, []string{"glad", "joyful"}, replaced.Synonyms)
}

func TestDocument_ReplaceWord_UnknownSentence(t *testing.T) {
	doc := NewDocument()
	err := doc.ReplaceWord(0, 0, "anything")
	assert.Error(t, err)
}

func TestDocument_ReplaceSentence_StripsFreezeMarkers(t *testing.T) {
	doc := NewDocument()
	doc.AppendSegment(sentence(t, "old", "words"))

	err := doc.ReplaceSentence(0, []valueobjects.WordToken{
		{Word: "{Brand}", Tag: valueobjects.TagNoun},
		{Word: "new", Tag: valueobjects.TagAdjective},
	})
	require.NoError(t, err)

	got, _ := doc.Segment(0)
	first, _ := got.Token(0)
	assert.Equal(t, "Brand", first.Word)
}

func TestDocument_UndoRestoresReplacedSentence(t *testing.T) {
	doc := NewDocument()
	doc.AppendSegment(sentence(t, "keep", "me"))
	doc.AppendSegment(sentence(t, "replace", "me"))

	before, _ := doc.Segment(1)
	beforeTokens := before.Tokens()

	err := doc.ReplaceSentence(1, []valueobjects.WordToken{
		valueobjects.NewWordToken("Hi", valueobjects.TagNone),
		valueobjects.NewWordToken("there", valueobjects.TagNone),
	})
	require.NoError(t, err)

	replaced, _ := doc.Segment(1)
	assert.Equal(t, "Hi there", replaced.Text())

	require.True(t, doc.Undo())

	restored, _ := doc.Segment(1)
	assert.Equal(t, beforeTokens, restored.Tokens())

	// Word replacement takes no snapshot, so nothing else to undo.
	assert.False(t, doc.Undo())
}

func TestDocument_ReplaceWordTakesNoSnapshot(t *testing.T) {
	doc := NewDocument()
	doc.AppendSegment(sentence(t, "some", "word"))

	require.NoError(t, doc.ReplaceWord(0, 1, "term"))
	assert.False(t, doc.Undo())
}

func TestDocument_RevisionIncrementsOnMutation(t *testing.T) {
	doc := NewDocument()
	start := doc.Revision()

	doc.AppendSegment(sentence(t, "a"))
	assert.Equal(t, start+1, doc.Revision())

	require.NoError(t, doc.ReplaceWord(0, 0, "b"))
	assert.Equal(t, start+2, doc.Revision())
}

func TestDocument_PlainText(t *testing.T) {
	doc := NewDocument()
	seg, err := entities.NewSentence([]valueobjects.WordToken{
		valueobjects.NewWordToken("Hello", valueobjects.TagNone),
		valueobjects.NewWordToken("world", valueobjects.TagNone),
		valueobjects.NewWordToken(".", valueobjects.TagPunctuation),
	})
	require.NoError(t, err)
	doc.AppendSegment(seg)
	doc.AppendSegment(entities.NewLineBreak())
	doc.AppendSegment(sentence(t, "Next"))

	assert.Equal(t, "Hello world.\nNext", doc.PlainText())
}

func TestDocument_CloneIsDeep(t *testing.T) {
	doc := NewDocument()
	doc.AppendSegment(sentence(t, "original"))

	clone := doc.Clone()
	require.NoError(t, clone.ReplaceWord(0, 0, "mutated"))

	got, _ := doc.Segment(0)
	tok, _ := got.Token(0)
	assert.Equal(t, "original", tok.Word)
}
