package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"phrasely-backend/domain/core/valueobjects"
	"phrasely-backend/domain/events"
)

func updatedEvent(t *testing.T, revision int) events.DocumentUpdated {
	t.Helper()
	id := valueobjects.NewSessionID()
	return events.NewDocumentUpdated(id, "user-1", revision, time.Now())
}

func TestInProcessBus_TypedDelivery(t *testing.T) {
	bus := NewInProcessBus(zap.NewNop())
	ctx := context.Background()

	var received []string
	handler := NewEventHandlerFunc(func(ctx context.Context, event events.DomainEvent) error {
		received = append(received, event.GetEventType())
		return nil
	}, "document.updated")
	require.NoError(t, bus.Subscribe("document.updated", handler))

	require.NoError(t, bus.Publish(ctx, updatedEvent(t, 1)))
	require.NoError(t, bus.Publish(ctx, events.NewRunCompleted(valueobjects.NewSessionID(), 3, time.Now())))

	assert.Equal(t, []string{"document.updated"}, received, "unsubscribed types do not reach the handler")
}

func TestInProcessBus_WildcardSubscription(t *testing.T) {
	bus := NewInProcessBus(zap.NewNop())
	ctx := context.Background()

	var received []string
	handler := NewEventHandlerFunc(func(ctx context.Context, event events.DomainEvent) error {
		received = append(received, event.GetEventType())
		return nil
	})
	require.NoError(t, bus.Subscribe("*", handler))

	require.NoError(t, bus.Publish(ctx, updatedEvent(t, 1)))
	require.NoError(t, bus.Publish(ctx, events.NewRunFailed(valueobjects.NewSessionID(), "boom", time.Now())))

	assert.Equal(t, []string{"document.updated", "run.failed"}, received)
}

func TestInProcessBus_HandlerErrorNotPropagated(t *testing.T) {
	bus := NewInProcessBus(zap.NewNop())
	ctx := context.Background()

	failing := NewEventHandlerFunc(func(ctx context.Context, event events.DomainEvent) error {
		return assert.AnError
	}, "document.updated")
	calls := 0
	after := NewEventHandlerFunc(func(ctx context.Context, event events.DomainEvent) error {
		calls++
		return nil
	}, "document.updated")
	require.NoError(t, bus.Subscribe("document.updated", failing))
	require.NoError(t, bus.Subscribe("document.updated", after))

	err := bus.Publish(ctx, updatedEvent(t, 1))

	assert.NoError(t, err, "a failing handler must not fail the publish")
	assert.Equal(t, 1, calls, "later handlers still run")
}

func TestInProcessBus_PublishBatchPreservesOrder(t *testing.T) {
	bus := NewInProcessBus(zap.NewNop())
	ctx := context.Background()

	var revisions []int
	handler := NewEventHandlerFunc(func(ctx context.Context, event events.DomainEvent) error {
		revisions = append(revisions, event.(events.DocumentUpdated).Revision)
		return nil
	}, "document.updated")
	require.NoError(t, bus.Subscribe("document.updated", handler))

	batch := []events.DomainEvent{updatedEvent(t, 1), updatedEvent(t, 2), updatedEvent(t, 3)}
	require.NoError(t, bus.PublishBatch(ctx, batch))

	assert.Equal(t, []int{1, 2, 3}, revisions)
}

func TestInProcessBus_Unsubscribe(t *testing.T) {
	bus := NewInProcessBus(zap.NewNop())
	ctx := context.Background()

	calls := 0
	handler := NewEventHandlerFunc(func(ctx context.Context, event events.DomainEvent) error {
		calls++
		return nil
	}, "document.updated")
	require.NoError(t, bus.Subscribe("document.updated", handler))
	require.NoError(t, bus.Publish(ctx, updatedEvent(t, 1)))

	require.NoError(t, bus.Unsubscribe("document.updated", handler))
	require.NoError(t, bus.Publish(ctx, updatedEvent(t, 2)))

	assert.Equal(t, 1, calls)
}
