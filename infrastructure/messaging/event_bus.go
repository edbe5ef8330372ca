// Package messaging provides the in-process event bus. Domain events
// fan out synchronously to subscribed handlers; there is no external
// broker because every consumer lives in this process.
package messaging

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"phrasely-backend/application/ports"
	"phrasely-backend/domain/events"
)

// InProcessBus implements ports.EventBus with a type-keyed subscriber
// map. Handler errors are logged, not propagated; a failing projection
// push must not roll back the document mutation that caused it.
type InProcessBus struct {
	mu       sync.RWMutex
	handlers map[string][]ports.EventHandler
	logger   *zap.Logger
}

// NewInProcessBus creates a new in-process event bus
func NewInProcessBus(logger *zap.Logger) *InProcessBus {
	return &InProcessBus{
		handlers: make(map[string][]ports.EventHandler),
		logger:   logger,
	}
}

var _ ports.EventBus = (*InProcessBus)(nil)

// Publish sends a single event to all matching subscribers
func (b *InProcessBus) Publish(ctx context.Context, event events.DomainEvent) error {
	eventType := event.GetEventType()

	b.mu.RLock()
	subscribers := make([]ports.EventHandler, 0, len(b.handlers[eventType])+len(b.handlers["*"]))
	subscribers = append(subscribers, b.handlers[eventType]...)
	subscribers = append(subscribers, b.handlers["*"]...)
	b.mu.RUnlock()

	for _, handler := range subscribers {
		if !handler.CanHandle(eventType) {
			continue
		}
		if err := handler.Handle(ctx, event); err != nil {
			b.logger.Warn("Event handler failed",
				zap.String("eventType", eventType),
				zap.String("aggregateID", event.GetAggregateID()),
				zap.Error(err),
			)
		}
	}

	b.logger.Debug("Event published",
		zap.String("eventType", eventType),
		zap.String("aggregateID", event.GetAggregateID()),
		zap.Int("subscribers", len(subscribers)),
	)
	return nil
}

// PublishBatch sends multiple events in order
func (b *InProcessBus) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	for _, event := range domainEvents {
		if err := b.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe registers a handler for an event type. The event type "*"
// subscribes to everything.
func (b *InProcessBus) Subscribe(eventType string, handler ports.EventHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
	b.logger.Debug("Handler subscribed", zap.String("eventType", eventType))
	return nil
}

// Unsubscribe removes a handler
func (b *InProcessBus) Unsubscribe(eventType string, handler ports.EventHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	subscribers := b.handlers[eventType]
	for i, h := range subscribers {
		if h == handler {
			b.handlers[eventType] = append(subscribers[:i], subscribers[i+1:]...)
			break
		}
	}
	return nil
}

// EventHandlerFunc adapts a function to the ports.EventHandler
// interface for a fixed set of event types.
type EventHandlerFunc struct {
	Types map[string]bool
	Fn    func(ctx context.Context, event events.DomainEvent) error
}

// NewEventHandlerFunc creates a function-backed handler for the given
// event types. An empty list handles everything.
func NewEventHandlerFunc(fn func(ctx context.Context, event events.DomainEvent) error, eventTypes ...string) *EventHandlerFunc {
	types := make(map[string]bool, len(eventTypes))
	for _, t := range eventTypes {
		types[t] = true
	}
	return &EventHandlerFunc{Types: types, Fn: fn}
}

// Handle processes an event
func (h *EventHandlerFunc) Handle(ctx context.Context, event events.DomainEvent) error {
	return h.Fn(ctx, event)
}

// CanHandle checks if this handler can process the event
func (h *EventHandlerFunc) CanHandle(eventType string) bool {
	if len(h.Types) == 0 {
		return true
	}
	return h.Types[eventType]
}
