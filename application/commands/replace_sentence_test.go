package commands

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"phrasely-backend/application/ports"
	"phrasely-backend/domain/config"
	"phrasely-backend/domain/core/aggregates"
	"phrasely-backend/domain/core/entities"
	"phrasely-backend/domain/core/valueobjects"
	"phrasely-backend/domain/events"
	"phrasely-backend/infrastructure/persistence/memory"
)

type stubGateway struct {
	retagErr error
	retags   []ports.RetagRequest
}

func (g *stubGateway) StartParaphrase(ctx context.Context, req ports.UpstreamRequest) error {
	return nil
}

func (g *stubGateway) RequestRetag(ctx context.Context, req ports.RetagRequest) error {
	g.retags = append(g.retags, req)
	return g.retagErr
}

type recordingBus struct {
	published []events.DomainEvent
}

func (b *recordingBus) Publish(ctx context.Context, event events.DomainEvent) error {
	b.published = append(b.published, event)
	return nil
}

func (b *recordingBus) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	b.published = append(b.published, batch...)
	return nil
}

func (b *recordingBus) Subscribe(eventType string, handler ports.EventHandler) error   { return nil }
func (b *recordingBus) Unsubscribe(eventType string, handler ports.EventHandler) error { return nil }

func (b *recordingBus) eventTypes() []string {
	types := make([]string, 0, len(b.published))
	for _, e := range b.published {
		types = append(types, e.GetEventType())
	}
	return types
}

func newReplaceSentenceFixture(t *testing.T) (*memory.SessionStore, *aggregates.ParaphraseSession) {
	t.Helper()
	store := memory.NewSessionStore(zap.NewNop())

	session, err := aggregates.NewParaphraseSession("user-1", "sock1", config.DefaultDomainConfig())
	require.NoError(t, err)
	_, err = session.BeginRun("Some input text.", valueobjects.LanguageEnglish, "standard", "medium", nil)
	require.NoError(t, err)

	seg, err := entities.NewSentence([]valueobjects.WordToken{
		valueobjects.NewWordToken("Old", valueobjects.TagAdjective),
		valueobjects.NewWordToken("sentence", valueobjects.TagNoun),
		valueobjects.NewWordToken(".", valueobjects.TagPunctuation),
	})
	require.NoError(t, err)
	session.Document().AppendSegment(seg)
	session.DomainEvents()

	require.NoError(t, store.Save(context.Background(), session))
	return store, session
}

func TestReplaceSentence_RequestsRetagWithFreshCorrelation(t *testing.T) {
	store, session := newReplaceSentenceFixture(t)
	gateway := &stubGateway{}
	bus := &recordingBus{}
	handler := NewReplaceSentenceHandler(store, gateway, bus, zap.NewNop())

	err := handler.Handle(context.Background(), ReplaceSentenceCommand{
		SessionID:     session.ID().String(),
		OwnerID:       "user-1",
		SentenceIndex: 0,
		Words:         []string{"Fresh", "words", "."},
	})
	require.NoError(t, err)

	require.Len(t, gateway.retags, 1)
	retag := gateway.retags[0]
	assert.Equal(t, 0, retag.SentenceIndex)
	assert.Contains(t, retag.Sentence, "Fresh")

	updated, err := store.GetByID(context.Background(), session.ID())
	require.NoError(t, err)
	assert.Equal(t, aggregates.StatusEnriching, updated.Status())
	assert.True(t, updated.Accepts(retag.CorrelationID), "re-tag events must pass the staleness guard")
	assert.Contains(t, bus.eventTypes(), "sentence.replaced")
}

func TestReplaceSentence_RetagFailureMarksProcessingFailed(t *testing.T) {
	store, session := newReplaceSentenceFixture(t)
	gateway := &stubGateway{retagErr: errors.New("upstream down")}
	bus := &recordingBus{}
	handler := NewReplaceSentenceHandler(store, gateway, bus, zap.NewNop())

	err := handler.Handle(context.Background(), ReplaceSentenceCommand{
		SessionID:     session.ID().String(),
		OwnerID:       "user-1",
		SentenceIndex: 0,
		Words:         []string{"Fresh", "words", "."},
	})
	require.NoError(t, err, "a failed re-tag request is non-blocking")

	updated, err := store.GetByID(context.Background(), session.ID())
	require.NoError(t, err)
	assert.Equal(t, aggregates.StatusFailed, updated.Status())
	assert.Contains(t, bus.eventTypes(), "run.failed")

	// The replacement itself stays visible.
	seg, ok := updated.Document().Segment(0)
	require.True(t, ok)
	tok, _ := seg.Token(0)
	assert.Equal(t, "Fresh", tok.Word)
}

func TestReplaceSentence_RejectsForeignOwner(t *testing.T) {
	store, session := newReplaceSentenceFixture(t)
	gateway := &stubGateway{}
	handler := NewReplaceSentenceHandler(store, gateway, &recordingBus{}, zap.NewNop())

	err := handler.Handle(context.Background(), ReplaceSentenceCommand{
		SessionID:     session.ID().String(),
		OwnerID:       "someone-else",
		SentenceIndex: 0,
		Words:         []string{"Fresh", "words", "."},
	})
	assert.Error(t, err)
	assert.Empty(t, gateway.retags)
}
