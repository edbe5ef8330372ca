package upstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phrasely-backend/domain/core/valueobjects"
)

func TestStreamParser_ChunkBoundaries(t *testing.T) {
	p := NewStreamParser(valueobjects.LanguageEnglish)

	assert.Empty(t, p.Feed("The first sen"))
	assert.Empty(t, p.Feed("tence keeps goi"))

	sentences := p.Feed("ng. The second one ends! And a tail")
	require.Len(t, sentences, 2)
	assert.Equal(t, "The first sentence keeps going.", sentences[0])
	assert.Equal(t, "The second one ends!", sentences[1])

	assert.Equal(t, "And a tail", p.Flush())
	assert.Equal(t, "", p.Flush(), "flush drains the buffer")
}

func TestStreamParser_TerminatorInsideFreezeMarkerHeldBack(t *testing.T) {
	p := NewStreamParser(valueobjects.LanguageEnglish)

	// The period inside {Inc.} must not terminate the sentence.
	assert.Empty(t, p.Feed("We acquired {Inc"))
	assert.Empty(t, p.Feed(".} last year"))

	sentences := p.Feed(".")
	require.Len(t, sentences, 1)
	assert.Equal(t, "We acquired {Inc.} last year.", sentences[0])
}

func TestStreamParser_JapaneseTerminators(t *testing.T) {
	p := NewStreamParser(valueobjects.LanguageJapanese)

	sentences := p.Feed("これは文です。まだ続く")
	require.Len(t, sentences, 1)
	assert.Equal(t, "これは文です。", sentences[0])
	assert.Equal(t, "まだ続く", p.Flush())
}

func TestTokens(t *testing.T) {
	tokens := Tokens("Visit {New York} next spring.")

	assert.Equal(t, []string{"Visit", "{New York}", "next", "spring."}, tokens)
}
