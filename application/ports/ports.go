package ports

import (
	"context"
	"time"

	"phrasely-backend/domain/core/aggregates"
	"phrasely-backend/domain/core/valueobjects"
	"phrasely-backend/domain/events"
)

// SessionRepository defines the interface for session persistence
// This is a port in hexagonal architecture - the domain doesn't know about the implementation
type SessionRepository interface {
	// Save persists a session (create or update)
	Save(ctx context.Context, session *aggregates.ParaphraseSession) error

	// GetByID retrieves a session by its ID
	GetByID(ctx context.Context, id valueobjects.SessionID) (*aggregates.ParaphraseSession, error)

	// GetByOwnerID retrieves all sessions for a user
	GetByOwnerID(ctx context.Context, ownerID string) ([]*aggregates.ParaphraseSession, error)

	// GetBySocketID retrieves the session bound to a socket connection
	GetBySocketID(ctx context.Context, socketID string) (*aggregates.ParaphraseSession, error)

	// Update loads the session, applies fn under the store's per-session
	// lock and persists the result. All mutations of a session's document
	// go through here so concurrent stream events serialize.
	Update(ctx context.Context, id valueobjects.SessionID, fn func(*aggregates.ParaphraseSession) error) error

	// Delete removes a session
	Delete(ctx context.Context, id valueobjects.SessionID) error

	// DeleteExpired removes sessions not touched since the given time
	// and returns how many were removed
	DeleteExpired(ctx context.Context, olderThan time.Time) (int, error)

	// Count returns the number of stored sessions for a user
	Count(ctx context.Context, ownerID string) (int, error)
}

// UpstreamRequest describes one paraphrase request sent to the NLP
// service. The correlation id travels with it and comes back on every
// stream event.
type UpstreamRequest struct {
	CorrelationID valueobjects.CorrelationID
	Text          string
	Language      valueobjects.Language
	Mode          string
	SynonymLevel  string
	FreezeWords   []string
}

// RetagRequest asks the upstream service to re-run enrichment for a
// single already-paraphrased sentence.
type RetagRequest struct {
	CorrelationID valueobjects.CorrelationID
	Language      valueobjects.Language
	SentenceIndex int
	Sentence      string
}

// UpstreamGateway opens streaming paraphrase runs against the NLP
// service. Responses arrive asynchronously on the stream event source,
// not on these calls.
type UpstreamGateway interface {
	// StartParaphrase submits text for a full streaming run
	StartParaphrase(ctx context.Context, req UpstreamRequest) error

	// RequestRetag asks for fresh tagging and synonyms for one sentence
	RequestRetag(ctx context.Context, req RetagRequest) error
}

// ProjectionPusher delivers rendered document projections to the
// session's connected browser sockets.
type ProjectionPusher interface {
	// Push sends a payload to every socket subscribed to the session
	Push(ctx context.Context, sessionID valueobjects.SessionID, payload interface{}) error
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// EventBus defines the interface for publishing domain events
type EventBus interface {
	EventPublisher

	// Subscribe registers a handler for an event type
	Subscribe(eventType string, handler EventHandler) error

	// Unsubscribe removes a handler
	Unsubscribe(eventType string, handler EventHandler) error
}

// EventHandler defines the interface for handling domain events
type EventHandler interface {
	// Handle processes an event
	Handle(ctx context.Context, event events.DomainEvent) error

	// CanHandle checks if this handler can process the event
	CanHandle(eventType string) bool
}
