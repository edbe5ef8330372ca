package events

import (
	"time"

	"phrasely-backend/domain/core/valueobjects"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// Run events

// RunStarted is raised when a paraphrase run begins streaming
type RunStarted struct {
	BaseEvent
	SessionID     valueobjects.SessionID     `json:"session_id"`
	OwnerID       string                     `json:"owner_id"`
	CorrelationID valueobjects.CorrelationID `json:"correlation_id"`
	Language      valueobjects.Language      `json:"language"`
	Mode          string                     `json:"mode"`
}

// NewRunStarted creates a RunStarted event
func NewRunStarted(sessionID valueobjects.SessionID, ownerID string, correlationID valueobjects.CorrelationID, language valueobjects.Language, mode string, timestamp time.Time) RunStarted {
	return RunStarted{
		BaseEvent: BaseEvent{
			AggregateID: sessionID.String(),
			EventType:   "run.started",
			Timestamp:   timestamp,
			Version:     1,
		},
		SessionID:     sessionID,
		OwnerID:       ownerID,
		CorrelationID: correlationID,
		Language:      language,
		Mode:          mode,
	}
}

// RunSuperseded is raised when a new run abandons an in-flight one.
// The abandoned correlation id's late events are dropped from then on.
type RunSuperseded struct {
	BaseEvent
	SessionID        valueobjects.SessionID     `json:"session_id"`
	OldCorrelationID valueobjects.CorrelationID `json:"old_correlation_id"`
	NewCorrelationID valueobjects.CorrelationID `json:"new_correlation_id"`
}

// NewRunSuperseded creates a RunSuperseded event
func NewRunSuperseded(sessionID valueobjects.SessionID, oldID, newID valueobjects.CorrelationID, timestamp time.Time) RunSuperseded {
	return RunSuperseded{
		BaseEvent: BaseEvent{
			AggregateID: sessionID.String(),
			EventType:   "run.superseded",
			Timestamp:   timestamp,
			Version:     1,
		},
		SessionID:        sessionID,
		OldCorrelationID: oldID,
		NewCorrelationID: newID,
	}
}

// RunCompleted is raised when the synonym channel's terminal sentinel
// closes the enrichment phase
type RunCompleted struct {
	BaseEvent
	SessionID valueobjects.SessionID `json:"session_id"`
	Sentences int                    `json:"sentences"`
}

// NewRunCompleted creates a RunCompleted event
func NewRunCompleted(sessionID valueobjects.SessionID, sentences int, timestamp time.Time) RunCompleted {
	return RunCompleted{
		BaseEvent: BaseEvent{
			AggregateID: sessionID.String(),
			EventType:   "run.completed",
			Timestamp:   timestamp,
			Version:     1,
		},
		SessionID: sessionID,
		Sentences: sentences,
	}
}

// RunFailed is raised when a run or re-tag request fails upstream
type RunFailed struct {
	BaseEvent
	SessionID valueobjects.SessionID `json:"session_id"`
	Reason    string                 `json:"reason"`
}

// NewRunFailed creates a RunFailed event
func NewRunFailed(sessionID valueobjects.SessionID, reason string, timestamp time.Time) RunFailed {
	return RunFailed{
		BaseEvent: BaseEvent{
			AggregateID: sessionID.String(),
			EventType:   "run.failed",
			Timestamp:   timestamp,
			Version:     1,
		},
		SessionID: sessionID,
		Reason:    reason,
	}
}

// Document events

// DocumentUpdated is raised after every successful document mutation.
// It drives the WebSocket projection push.
type DocumentUpdated struct {
	BaseEvent
	SessionID valueobjects.SessionID `json:"session_id"`
	OwnerID   string                 `json:"owner_id"`
	Revision  int                    `json:"revision"`
}

// NewDocumentUpdated creates a DocumentUpdated event
func NewDocumentUpdated(sessionID valueobjects.SessionID, ownerID string, revision int, timestamp time.Time) DocumentUpdated {
	return DocumentUpdated{
		BaseEvent: BaseEvent{
			AggregateID: sessionID.String(),
			EventType:   "document.updated",
			Timestamp:   timestamp,
			Version:     1,
		},
		SessionID: sessionID,
		OwnerID:   ownerID,
		Revision:  revision,
	}
}

// SentenceReplaced is raised when a user replaces a whole sentence
type SentenceReplaced struct {
	BaseEvent
	SessionID     valueobjects.SessionID     `json:"session_id"`
	SentenceIndex int                        `json:"sentence_index"`
	CorrelationID valueobjects.CorrelationID `json:"correlation_id"`
}

// NewSentenceReplaced creates a SentenceReplaced event
func NewSentenceReplaced(sessionID valueobjects.SessionID, sentenceIndex int, correlationID valueobjects.CorrelationID, timestamp time.Time) SentenceReplaced {
	return SentenceReplaced{
		BaseEvent: BaseEvent{
			AggregateID: sessionID.String(),
			EventType:   "sentence.replaced",
			Timestamp:   timestamp,
			Version:     1,
		},
		SessionID:     sessionID,
		SentenceIndex: sentenceIndex,
		CorrelationID: correlationID,
	}
}

// WordReplaced is raised when a user replaces a single word
type WordReplaced struct {
	BaseEvent
	SessionID     valueobjects.SessionID `json:"session_id"`
	SentenceIndex int                    `json:"sentence_index"`
	WordIndex     int                    `json:"word_index"`
	NewWord       string                 `json:"new_word"`
}

// NewWordReplaced creates a WordReplaced event
func NewWordReplaced(sessionID valueobjects.SessionID, sentenceIndex, wordIndex int, newWord string, timestamp time.Time) WordReplaced {
	return WordReplaced{
		BaseEvent: BaseEvent{
			AggregateID: sessionID.String(),
			EventType:   "word.replaced",
			Timestamp:   timestamp,
			Version:     1,
		},
		SessionID:     sessionID,
		SentenceIndex: sentenceIndex,
		WordIndex:     wordIndex,
		NewWord:       newWord,
	}
}
