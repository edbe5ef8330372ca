package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phrasely-backend/domain/core/valueobjects"
)

func TestSegmenter_Split_English(t *testing.T) {
	s := NewSegmenter()

	segments := s.Split("First sentence. Second one! Third?", valueobjects.LanguageEnglish)

	require.Len(t, segments, 3)
	assert.Equal(t, "First sentence.", segments[0].Text())
	assert.Equal(t, "Second one!", segments[1].Text())
	assert.Equal(t, "Third?", segments[2].Text())
}

func TestSegmenter_Split_NewlinesBecomeLineBreaks(t *testing.T) {
	s := NewSegmenter()

	segments := s.Split("Paragraph one.\nParagraph two.", valueobjects.LanguageEnglish)

	require.Len(t, segments, 3)
	assert.False(t, segments[0].IsLineBreak())
	assert.True(t, segments[1].IsLineBreak())
	assert.False(t, segments[2].IsLineBreak())
}

func TestSegmenter_Split_TrailingPartialSentence(t *testing.T) {
	s := NewSegmenter()

	segments := s.Split("Complete sentence. Still stream", valueobjects.LanguageEnglish)

	require.Len(t, segments, 2)
	assert.Equal(t, "Still stream", segments[1].Text())
}

func TestSegmenter_Split_JapaneseTerminators(t *testing.T) {
	s := NewSegmenter()

	segments := s.Split("これは文です。次の文！", valueobjects.LanguageJapanese)

	require.Len(t, segments, 2)
}

func TestSegmenter_Split_EmptyInput(t *testing.T) {
	s := NewSegmenter()
	assert.Nil(t, s.Split("   \n  ", valueobjects.LanguageEnglish))
	assert.Nil(t, s.Split("", valueobjects.LanguageEnglish))
}

func TestTokenize(t *testing.T) {
	tokens := Tokenize("Hello there, world.")

	require.Len(t, tokens, 5)
	assert.Equal(t, "Hello", tokens[0].Word)
	assert.Equal(t, "there", tokens[1].Word)
	assert.Equal(t, ",", tokens[2].Word)
	assert.Equal(t, valueobjects.TagPunctuation, tokens[2].Tag)
	assert.Equal(t, "world", tokens[3].Word)
	assert.Equal(t, ".", tokens[4].Word)
}

func TestTokenize_FreezeMarkers(t *testing.T) {
	tokens := Tokenize("Visit {Paris} today.")

	require.Len(t, tokens, 4)
	assert.Equal(t, "Paris", tokens[1].Word)
	assert.Equal(t, valueobjects.TagFreeze, tokens[1].Tag)
}
