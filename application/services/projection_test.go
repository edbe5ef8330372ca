package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phrasely-backend/domain/core/aggregates"
	"phrasely-backend/domain/core/entities"
	"phrasely-backend/domain/core/valueobjects"
)

func words(t *testing.T, ws ...string) *entities.Segment {
	t.Helper()
	tokens := make([]valueobjects.WordToken, 0, len(ws))
	for _, w := range ws {
		tokens = append(tokens, valueobjects.NewWordToken(w, valueobjects.TagNone))
	}
	seg, err := entities.NewSentence(tokens)
	require.NoError(t, err)
	return seg
}

func projectionFixture(t *testing.T) *aggregates.Document {
	t.Helper()
	doc := aggregates.NewDocument()
	doc.AppendSegment(words(t, "#", "Results"))
	doc.AppendSegment(words(t, "First", "sentence"))
	doc.AppendSegment(entities.NewLineBreak())
	doc.AppendSegment(words(t, "Second", "sentence"))
	return doc
}

func TestProjector_Project(t *testing.T) {
	doc := projectionFixture(t)

	out := NewProjector().Project(doc, DefaultProjectionOptions())

	require.Len(t, out.Blocks, 3)
	assert.Equal(t, BlockHeading, out.Blocks[0].Kind)
	assert.Equal(t, "Results", out.Blocks[0].Heading)

	// The newline splits the two sentences into separate paragraphs.
	first := out.Blocks[1]
	second := out.Blocks[2]
	assert.Equal(t, BlockParagraph, first.Kind)
	require.Len(t, first.Spans, 2)
	require.Len(t, second.Spans, 2)

	// Click indices skip the heading; backend indices do not.
	assert.Equal(t, 0, first.Spans[0].ClickIndex)
	assert.Equal(t, 1, first.Spans[0].BackendIndex)
	assert.Equal(t, 1, second.Spans[0].ClickIndex)
	assert.Equal(t, 2, second.Spans[0].BackendIndex)
}

func TestProjector_StyleChannelsToggle(t *testing.T) {
	doc := aggregates.NewDocument()
	tok := valueobjects.NewWordToken("fox", valueobjects.TagNoun).
		WithStructuralChange(true).
		WithUnchangedLongest(true)
	seg, err := entities.NewSentence([]valueobjects.WordToken{tok})
	require.NoError(t, err)
	doc.AppendSegment(seg)

	all := NewProjector().Project(doc, DefaultProjectionOptions())
	assert.ElementsMatch(t, []string{"tag-noun", "changed", "unchanged-run"}, all.Blocks[0].Spans[0].Classes)

	bare := NewProjector().Project(doc, ProjectionOptions{})
	assert.Empty(t, bare.Blocks[0].Spans[0].Classes)
}

func TestProjector_ResolveClick(t *testing.T) {
	doc := projectionFixture(t)
	p := NewProjector()

	tok, backendIndex, err := p.ResolveClick(doc, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, "Second", tok.Word)
	assert.Equal(t, 2, backendIndex, "backend index counts the heading and skips the newline")

	_, _, err = p.ResolveClick(doc, 1, 9)
	assert.Error(t, err, "word index out of range")

	_, _, err = p.ResolveClick(doc, 5, 0)
	assert.Error(t, err, "click index beyond the document")
}
