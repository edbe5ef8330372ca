package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"phrasely-backend/application/ports"
	"phrasely-backend/domain/config"
	"phrasely-backend/domain/core/aggregates"
	"phrasely-backend/domain/core/valueobjects"
	"phrasely-backend/domain/events"
	"phrasely-backend/infrastructure/persistence/memory"
)

type capturePusher struct {
	mu     sync.Mutex
	pushes int
}

func (p *capturePusher) Push(ctx context.Context, sessionID valueobjects.SessionID, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushes++
	return nil
}

func (p *capturePusher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pushes
}

type nopEventBus struct{}

func (nopEventBus) Publish(ctx context.Context, event events.DomainEvent) error { return nil }
func (nopEventBus) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	return nil
}
func (nopEventBus) Subscribe(eventType string, handler ports.EventHandler) error   { return nil }
func (nopEventBus) Unsubscribe(eventType string, handler ports.EventHandler) error { return nil }

type assemblerFixture struct {
	assembler *StreamAssembler
	store     *memory.SessionStore
	pusher    *capturePusher
	session   *aggregates.ParaphraseSession
	runID     valueobjects.CorrelationID
}

func newAssemblerFixture(t *testing.T) *assemblerFixture {
	t.Helper()
	cfg := config.DefaultDomainConfig()
	store := memory.NewSessionStore(zap.NewNop())
	pusher := &capturePusher{}

	session, err := aggregates.NewParaphraseSession("user-1", "sock1", cfg)
	require.NoError(t, err)
	runID, err := session.BeginRun("Some input text.", valueobjects.LanguageEnglish, "standard", "medium", nil)
	require.NoError(t, err)
	session.DomainEvents()
	require.NoError(t, store.Save(context.Background(), session))

	assembler := NewStreamAssembler(
		store,
		NewSegmenter(),
		NewAnnotator(NewAnnotationCache(10), cfg, nil),
		NewProjector(),
		pusher,
		nopEventBus{},
		nil,
		cfg,
		zap.NewNop(),
	)
	return &assemblerFixture{
		assembler: assembler,
		store:     store,
		pusher:    pusher,
		session:   session,
		runID:     runID,
	}
}

func (f *assemblerFixture) document(t *testing.T) *aggregates.Document {
	t.Helper()
	session, err := f.store.GetByID(context.Background(), f.session.ID())
	require.NoError(t, err)
	return session.Document()
}

func TestStreamAssembler_PlainChunkBuildsDocument(t *testing.T) {
	f := newAssemblerFixture(t)
	ctx := context.Background()

	err := f.assembler.HandlePlainChunk(ctx, PlainChunk{
		SessionID:     f.session.ID(),
		CorrelationID: f.runID,
		Text:          "First sentence. Sec",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, f.document(t).SentenceCount(), "partial trailing text forms a sentence")

	err = f.assembler.HandlePlainChunk(ctx, PlainChunk{
		SessionID:     f.session.ID(),
		CorrelationID: f.runID,
		Text:          "ond sentence.",
	})
	require.NoError(t, err)

	doc := f.document(t)
	assert.Equal(t, 2, doc.SentenceCount())
	assert.Equal(t, "First sentence. Second sentence.", doc.PlainText())
	assert.Equal(t, 2, f.pusher.count())
}

func TestStreamAssembler_StaleCorrelationIsDropped(t *testing.T) {
	f := newAssemblerFixture(t)
	ctx := context.Background()

	stale, err := valueobjects.NewCorrelationIDFromString("sock1-000000000000")
	require.NoError(t, err)

	err = f.assembler.HandlePlainChunk(ctx, PlainChunk{
		SessionID:     f.session.ID(),
		CorrelationID: stale,
		Text:          "Should never appear.",
	})
	require.NoError(t, err)

	assert.Equal(t, 0, f.document(t).SentenceCount())
	assert.Equal(t, 0, f.pusher.count(), "stale events push nothing")
}

func TestStreamAssembler_DuplicateEnrichmentIgnored(t *testing.T) {
	f := newAssemblerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.assembler.HandlePlainChunk(ctx, PlainChunk{
		SessionID:     f.session.ID(),
		CorrelationID: f.runID,
		Text:          "Raw words here.",
	}))

	first := EnrichmentEvent{
		SessionID:     f.session.ID(),
		CorrelationID: f.runID,
		Index:         0,
		Tokens: []valueobjects.WordToken{
			valueobjects.NewWordToken("Tagged", valueobjects.TagAdjective),
			valueobjects.NewWordToken("words", valueobjects.TagNoun),
			valueobjects.NewWordToken("here", valueobjects.TagAdverb),
		},
	}
	require.NoError(t, f.assembler.HandleTagging(ctx, first))

	duplicate := first
	duplicate.Tokens = []valueobjects.WordToken{
		valueobjects.NewWordToken("Overwritten", valueobjects.TagNoun),
	}
	require.NoError(t, f.assembler.HandleTagging(ctx, duplicate))

	seg, ok := f.document(t).Segment(0)
	require.True(t, ok)
	tok, _ := seg.Token(0)
	assert.Equal(t, "Tagged", tok.Word, "first delivery wins, duplicate dropped")
	assert.Equal(t, valueobjects.TagAdjective, tok.Tag)
}

func TestStreamAssembler_DefersEventUntilIndexResolves(t *testing.T) {
	f := newAssemblerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.assembler.HandlePlainChunk(ctx, PlainChunk{
		SessionID:     f.session.ID(),
		CorrelationID: f.runID,
		Text:          "Only one sentence so far.",
	}))

	// Tagging for sentence 1 races ahead of the plain channel.
	racing := EnrichmentEvent{
		SessionID:     f.session.ID(),
		CorrelationID: f.runID,
		Index:         1,
		Tokens: []valueobjects.WordToken{
			valueobjects.NewWordToken("Second", valueobjects.TagAdjective),
			valueobjects.NewWordToken("sentence", valueobjects.TagNoun),
		},
	}
	require.NoError(t, f.assembler.HandleTagging(ctx, racing))
	assert.Equal(t, 1, f.document(t).SentenceCount(), "event parked, document untouched")

	// The plain channel catches up and the deferred event applies.
	require.NoError(t, f.assembler.HandlePlainChunk(ctx, PlainChunk{
		SessionID:     f.session.ID(),
		CorrelationID: f.runID,
		Text:          " Second sentence arrives.",
	}))

	doc := f.document(t)
	require.Equal(t, 2, doc.SentenceCount())
	docIndex, ok := doc.MapSentenceIndex(1)
	require.True(t, ok)
	seg, _ := doc.Segment(docIndex)
	tok, _ := seg.Token(0)
	assert.Equal(t, "Second", tok.Word)
	assert.Equal(t, valueobjects.TagAdjective, tok.Tag)
}

func TestStreamAssembler_GrowingSentenceKeepsStreamedText(t *testing.T) {
	f := newAssemblerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.assembler.HandlePlainChunk(ctx, PlainChunk{
		SessionID:     f.session.ID(),
		CorrelationID: f.runID,
		Text:          "Hello world",
	}))

	// Tagging lands while the sentence is still growing on the plain
	// channel.
	early := EnrichmentEvent{
		SessionID:     f.session.ID(),
		CorrelationID: f.runID,
		Index:         0,
		Tokens: []valueobjects.WordToken{
			valueobjects.NewWordToken("Hello", valueobjects.TagNone),
			valueobjects.NewWordToken("world", valueobjects.TagNoun),
		},
	}
	require.NoError(t, f.assembler.HandleTagging(ctx, early))

	require.NoError(t, f.assembler.HandlePlainChunk(ctx, PlainChunk{
		SessionID:     f.session.ID(),
		CorrelationID: f.runID,
		Text:          " again today.",
	}))

	doc := f.document(t)
	require.Equal(t, 1, doc.SentenceCount())
	assert.Equal(t, "Hello world again today.", doc.PlainText(),
		"streamed text survives enrichment that raced the plain channel")

	// The index was unmarked, so the upstream redelivery reapplies to
	// the final sentence instead of being dropped as a duplicate.
	full := early
	full.Tokens = []valueobjects.WordToken{
		valueobjects.NewWordToken("Hello", valueobjects.TagNone),
		valueobjects.NewWordToken("world", valueobjects.TagNoun),
		valueobjects.NewWordToken("again", valueobjects.TagAdverb),
		valueobjects.NewWordToken("today", valueobjects.TagAdverb),
		valueobjects.NewWordToken(".", valueobjects.TagPunctuation),
	}
	require.NoError(t, f.assembler.HandleTagging(ctx, full))

	seg, ok := f.document(t).Segment(0)
	require.True(t, ok)
	tok, _ := seg.Token(1)
	assert.Equal(t, valueobjects.TagNoun, tok.Tag)
}

func TestStreamAssembler_SynonymsDoneCompletesRun(t *testing.T) {
	f := newAssemblerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.assembler.HandlePlainChunk(ctx, PlainChunk{
		SessionID:     f.session.ID(),
		CorrelationID: f.runID,
		Text:          "All the text.",
	}))
	require.NoError(t, f.assembler.HandlePlainDone(ctx, f.session.ID(), f.runID))
	require.NoError(t, f.assembler.HandleTaggingDone(ctx, f.session.ID(), f.runID))
	require.NoError(t, f.assembler.HandleSynonymsDone(ctx, f.session.ID(), f.runID))

	session, err := f.store.GetByID(ctx, f.session.ID())
	require.NoError(t, err)
	assert.Equal(t, aggregates.StatusCompleted, session.Status())
}

func TestStreamAssembler_RunFailedKeepsVisibleText(t *testing.T) {
	f := newAssemblerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.assembler.HandlePlainChunk(ctx, PlainChunk{
		SessionID:     f.session.ID(),
		CorrelationID: f.runID,
		Text:          "Partial output.",
	}))
	require.NoError(t, f.assembler.HandleRunFailed(ctx, f.session.ID(), f.runID, "upstream died"))

	session, err := f.store.GetByID(ctx, f.session.ID())
	require.NoError(t, err)
	assert.Equal(t, aggregates.StatusFailed, session.Status())
	assert.Equal(t, 1, session.Document().SentenceCount())
}
