package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phrasely-backend/domain/config"
	"phrasely-backend/domain/core/aggregates"
	"phrasely-backend/domain/core/entities"
	"phrasely-backend/domain/core/valueobjects"
)

func buildDocument(t *testing.T, text string) *aggregates.Document {
	t.Helper()
	doc := aggregates.NewDocument()
	doc.SetSegments(NewSegmenter().Split(text, "en"))
	require.Positive(t, doc.SentenceCount())
	return doc
}

type tokenFlags struct {
	word      string
	changed   bool
	unchanged bool
}

func collectFlags(doc *aggregates.Document) []tokenFlags {
	var flags []tokenFlags
	for _, seg := range doc.Segments() {
		if seg.IsLineBreak() {
			continue
		}
		for _, tok := range seg.Tokens() {
			flags = append(flags, tokenFlags{
				word:      tok.Word,
				changed:   tok.StructuralChange,
				unchanged: tok.UnchangedLongest,
			})
		}
	}
	return flags
}

func newTestAnnotator() *Annotator {
	return NewAnnotator(NewAnnotationCache(10), config.DefaultDomainConfig(), nil)
}

func TestAnnotator_SingleWordChange(t *testing.T) {
	input := "The quick brown fox jumps over the lazy dog without fail."
	output := "The quick brown fox jumps over the lazy dog without failing."

	annotated := newTestAnnotator().Annotate(buildDocument(t, output), input)

	flags := collectFlags(annotated)
	require.Len(t, flags, 12) // 11 words and the trailing period

	for i := 0; i < 10; i++ {
		assert.False(t, flags[i].changed, "word %q should be unchanged", flags[i].word)
		assert.True(t, flags[i].unchanged, "word %q sits in a long equal run", flags[i].word)
	}
	failing := flags[10]
	assert.Equal(t, "failing", failing.word)
	assert.True(t, failing.changed)
	assert.False(t, failing.unchanged)
}

func TestAnnotator_UnchangedRunBoundary(t *testing.T) {
	t.Run("run of seven is flagged", func(t *testing.T) {
		input := "one two three four five six seven eight."
		output := "one two three four five six seven nine."

		flags := collectFlags(newTestAnnotator().Annotate(buildDocument(t, output), input))

		for i := 0; i < 7; i++ {
			assert.True(t, flags[i].unchanged, "position %d", i)
		}
		assert.False(t, flags[7].unchanged)
	})

	t.Run("run of six is below the minimum", func(t *testing.T) {
		input := "one two three four five six seven."
		output := "one two three four five six extra."

		flags := collectFlags(newTestAnnotator().Annotate(buildDocument(t, output), input))

		for _, f := range flags {
			assert.False(t, f.unchanged, "word %q", f.word)
		}
	})
}

func TestAnnotator_RewrittenSentence(t *testing.T) {
	input := "Totally different source material here."
	output := "The weather is nice today."

	flags := collectFlags(newTestAnnotator().Annotate(buildDocument(t, output), input))

	for _, f := range flags {
		if f.word == "." {
			continue
		}
		assert.True(t, f.changed, "word %q in a wholesale rewrite", f.word)
	}
}

func TestAnnotator_IsDeterministic(t *testing.T) {
	input := "The committee reviewed the proposal carefully before voting."
	output := "The committee examined the proposal thoroughly before voting."

	first := collectFlags(newTestAnnotator().Annotate(buildDocument(t, output), input))
	second := collectFlags(newTestAnnotator().Annotate(buildDocument(t, output), input))

	assert.Equal(t, first, second)
}

func TestAnnotator_MemoizesOnTextPair(t *testing.T) {
	cache := NewAnnotationCache(10)
	annotator := NewAnnotator(cache, config.DefaultDomainConfig(), nil)

	input := "Some input text."
	doc := buildDocument(t, "Some output text.")

	annotator.Annotate(doc, input)
	require.Equal(t, 1, cache.Len())

	annotator.Annotate(doc, input)
	assert.Equal(t, 1, cache.Len(), "second call hits the memo")
}

func TestAnnotator_MemoHitKeepsEnrichment(t *testing.T) {
	cache := NewAnnotationCache(10)
	annotator := NewAnnotator(cache, config.DefaultDomainConfig(), nil)
	input := "The cat sat."
	doc := buildDocument(t, "The cat sat.")

	annotator.Annotate(doc, input)
	require.Equal(t, 1, cache.Len())

	// Tagging and synonyms stream in after the text has settled; the
	// overwrite changes tokens but not the rendered text.
	applied, err := doc.OverwriteSentence(0, []valueobjects.WordToken{
		valueobjects.NewWordToken("The", valueobjects.TagNone),
		valueobjects.NewWordToken("cat", valueobjects.TagNoun).WithSynonyms([]string{"feline"}),
		valueobjects.NewWordToken("sat", valueobjects.TagVerb),
		valueobjects.NewWordToken(".", valueobjects.TagPunctuation),
	})
	require.NoError(t, err)
	require.True(t, applied)

	annotated := annotator.Annotate(doc, input)
	assert.Equal(t, 1, cache.Len(), "same text pair stays a memo hit")

	seg, ok := annotated.Segment(0)
	require.True(t, ok)
	tok, _ := seg.Token(1)
	assert.Equal(t, "cat", tok.Word)
	assert.Equal(t, valueobjects.TagNoun, tok.Tag, "memo hit must not shed the applied tag")
	assert.Equal(t, []string{"feline"}, tok.Synonyms)
	assert.False(t, tok.StructuralChange, "flags still come from the memoized annotation")
}

func TestAnnotator_MultiWordTokenOverlap(t *testing.T) {
	buildFrozen := func(t *testing.T) *aggregates.Document {
		t.Helper()
		doc := aggregates.NewDocument()
		seg, err := entities.NewSentence([]valueobjects.WordToken{
			valueobjects.NewWordToken("We", valueobjects.TagNone),
			valueobjects.NewWordToken("visited", valueobjects.TagVerb),
			valueobjects.NewWordToken("{New York City}", valueobjects.TagNone),
			valueobjects.NewWordToken(".", valueobjects.TagPunctuation),
		})
		require.NoError(t, err)
		doc.AppendSegment(seg)
		return doc
	}
	frozenToken := func(doc *aggregates.Document) valueobjects.WordToken {
		seg, _ := doc.Segment(0)
		tok, _ := seg.Token(2)
		return tok
	}

	t.Run("majority of constituent words present", func(t *testing.T) {
		annotated := newTestAnnotator().Annotate(buildFrozen(t), "We visited New York previously.")

		tok := frozenToken(annotated)
		assert.Equal(t, "New York City", tok.Word)
		assert.False(t, tok.StructuralChange, "2 of 3 words present clears the overlap threshold")
	})

	t.Run("minority of constituent words present", func(t *testing.T) {
		annotated := newTestAnnotator().Annotate(buildFrozen(t), "We visited York yesterday.")

		tok := frozenToken(annotated)
		assert.True(t, tok.StructuralChange, "1 of 3 words present falls below the overlap threshold")
	})
}

func TestAnnotator_DoesNotMutateInput(t *testing.T) {
	doc := buildDocument(t, "Entirely new words appear here.")

	newTestAnnotator().Annotate(doc, "Original text was something else.")

	for _, f := range collectFlags(doc) {
		assert.False(t, f.changed, "annotation works on a clone, %q must stay clean", f.word)
	}
}
