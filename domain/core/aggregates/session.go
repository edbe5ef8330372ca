package aggregates

import (
	"strings"
	"time"

	"phrasely-backend/domain/config"
	"phrasely-backend/domain/core/valueobjects"
	"phrasely-backend/domain/events"
	pkgerrors "phrasely-backend/pkg/errors"
)

// SessionStatus represents the processing state of a paraphrase session
type SessionStatus string

const (
	StatusIdle      SessionStatus = "idle"
	StatusStreaming SessionStatus = "streaming"
	StatusEnriching SessionStatus = "enriching"
	StatusCompleted SessionStatus = "completed"
	StatusFailed    SessionStatus = "failed"
)

// ChannelState tracks one named event channel of a streaming run
type ChannelState string

const (
	ChannelIdle      ChannelState = "idle"
	ChannelActive    ChannelState = "active"
	ChannelCompleted ChannelState = "completed"
)

// StreamingRun holds the per-request streaming state: the live
// correlation id, the raw plain-text buffer, channel states and the
// per-channel processed-index sets used for duplicate suppression.
type StreamingRun struct {
	correlationID valueobjects.CorrelationID
	startedAt     time.Time
	buffer        strings.Builder
	plain         ChannelState
	tagging       ChannelState
	synonyms      ChannelState
	taggedIdx     map[int]bool
	synonymIdx    map[int]bool
}

func newStreamingRun(correlationID valueobjects.CorrelationID) *StreamingRun {
	return &StreamingRun{
		correlationID: correlationID,
		startedAt:     time.Now(),
		plain:         ChannelIdle,
		tagging:       ChannelIdle,
		synonyms:      ChannelIdle,
		taggedIdx:     make(map[int]bool),
		synonymIdx:    make(map[int]bool),
	}
}

// CorrelationID returns the run's correlation id.
func (r *StreamingRun) CorrelationID() valueobjects.CorrelationID { return r.correlationID }

// StartedAt returns when the run was created.
func (r *StreamingRun) StartedAt() time.Time { return r.startedAt }

// AppendPlain appends a raw chunk and returns the accumulated buffer.
func (r *StreamingRun) AppendPlain(chunk string) string {
	r.plain = ChannelActive
	r.buffer.WriteString(chunk)
	return r.buffer.String()
}

// CompletePlain closes the plain channel and resets the buffer for the
// next run.
func (r *StreamingRun) CompletePlain() {
	r.plain = ChannelCompleted
	r.buffer.Reset()
}

// Buffer returns the accumulated raw text.
func (r *StreamingRun) Buffer() string { return r.buffer.String() }

// MarkTagged records a tagging index as processed; returns false when
// the index was already seen (duplicate delivery).
func (r *StreamingRun) MarkTagged(index int) bool {
	if r.taggedIdx[index] {
		return false
	}
	r.tagging = ChannelActive
	r.taggedIdx[index] = true
	return true
}

// MarkSynonyms records a synonym index as processed; returns false for
// duplicates.
func (r *StreamingRun) MarkSynonyms(index int) bool {
	if r.synonymIdx[index] {
		return false
	}
	r.synonyms = ChannelActive
	r.synonymIdx[index] = true
	return true
}

// IsTagged reports whether a tagging index was already processed.
func (r *StreamingRun) IsTagged(index int) bool { return r.taggedIdx[index] }

// HasSynonyms reports whether a synonym index was already processed.
func (r *StreamingRun) HasSynonyms(index int) bool { return r.synonymIdx[index] }

// UnmarkTagged forgets a processed tagging index, so a deferred event
// that expired can be retried if redelivered.
func (r *StreamingRun) UnmarkTagged(index int) { delete(r.taggedIdx, index) }

// UnmarkSynonyms forgets a processed synonym index.
func (r *StreamingRun) UnmarkSynonyms(index int) { delete(r.synonymIdx, index) }

// CompleteTagging closes the tagging channel.
func (r *StreamingRun) CompleteTagging() { r.tagging = ChannelCompleted }

// CompleteSynonyms closes the synonyms channel; this is the run's
// overall enrichment sentinel.
func (r *StreamingRun) CompleteSynonyms() { r.synonyms = ChannelCompleted }

// PlainState returns the plain channel's state.
func (r *StreamingRun) PlainState() ChannelState { return r.plain }

// TaggingState returns the tagging channel's state.
func (r *StreamingRun) TaggingState() ChannelState { return r.tagging }

// SynonymsState returns the synonyms channel's state.
func (r *StreamingRun) SynonymsState() ChannelState { return r.synonyms }

// ParaphraseSession is the aggregate owning one user-visible paraphrase
// editor: its document, the live streaming run, and the processing
// status surfaced to the client. A document is never shared across
// sessions.
type ParaphraseSession struct {
	id          valueobjects.SessionID
	ownerID     string
	socketID    string
	language    valueobjects.Language
	mode        string
	synonym     string
	inputText   string
	freezeWords []string
	document    *Document
	run         *StreamingRun
	status      SessionStatus
	createdAt   time.Time
	updatedAt   time.Time
	cfg         *config.DomainConfig

	// Domain events that occurred during this aggregate's lifetime
	events []events.DomainEvent
}

// NewParaphraseSession creates a session for one owner and socket
// connection.
func NewParaphraseSession(ownerID, socketID string, cfg *config.DomainConfig) (*ParaphraseSession, error) {
	if ownerID == "" {
		return nil, pkgerrors.NewValidationError("ownerID cannot be empty")
	}
	if socketID == "" {
		return nil, pkgerrors.NewValidationError("socketID cannot be empty")
	}
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	now := time.Now()
	return &ParaphraseSession{
		id:        valueobjects.NewSessionID(),
		ownerID:   ownerID,
		socketID:  socketID,
		language:  valueobjects.LanguageEnglish,
		document:  NewDocumentWithConfig(cfg),
		status:    StatusIdle,
		createdAt: now,
		updatedAt: now,
		cfg:       cfg,
	}, nil
}

// ID returns the session id.
func (s *ParaphraseSession) ID() valueobjects.SessionID { return s.id }

// OwnerID returns the owning user's id.
func (s *ParaphraseSession) OwnerID() string { return s.ownerID }

// SocketID returns the socket connection id used to mint correlation ids.
func (s *ParaphraseSession) SocketID() string { return s.socketID }

// Language returns the run's output language.
func (s *ParaphraseSession) Language() valueobjects.Language { return s.language }

// Mode returns the paraphrase mode of the current run.
func (s *ParaphraseSession) Mode() string { return s.mode }

// SynonymLevel returns the synonym aggressiveness of the current run.
func (s *ParaphraseSession) SynonymLevel() string { return s.synonym }

// InputText returns the original text submitted for the current run.
func (s *ParaphraseSession) InputText() string { return s.inputText }

// FreezeWords returns the words the upstream service must not alter.
func (s *ParaphraseSession) FreezeWords() []string {
	return append([]string(nil), s.freezeWords...)
}

// Document returns the session's document aggregate.
func (s *ParaphraseSession) Document() *Document { return s.document }

// Run returns the live streaming run, nil before the first submission.
func (s *ParaphraseSession) Run() *StreamingRun { return s.run }

// Status returns the session's processing status.
func (s *ParaphraseSession) Status() SessionStatus { return s.status }

// CreatedAt returns the session creation time.
func (s *ParaphraseSession) CreatedAt() time.Time { return s.createdAt }

// UpdatedAt returns the last mutation time.
func (s *ParaphraseSession) UpdatedAt() time.Time { return s.updatedAt }

// BeginRun starts a new streaming run, superseding (not destroying) any
// in-flight one. The fresh correlation id becomes the only id whose
// events may mutate the document; no cancel is sent upstream for the
// superseded request.
func (s *ParaphraseSession) BeginRun(inputText string, language valueobjects.Language, mode, synonym string, freezeWords []string) (valueobjects.CorrelationID, error) {
	if strings.TrimSpace(inputText) == "" && !s.cfg.AllowEmptyInput {
		return valueobjects.CorrelationID{}, pkgerrors.NewValidationError("input text cannot be empty")
	}
	if len(inputText) > s.cfg.MaxInputLength {
		return valueobjects.CorrelationID{}, pkgerrors.NewValidationError("input text exceeds maximum length")
	}
	if len(freezeWords) > s.cfg.MaxFreezeWords {
		return valueobjects.CorrelationID{}, pkgerrors.NewValidationError("too many freeze words")
	}

	correlationID := valueobjects.NewCorrelationID(s.socketID)
	if s.run != nil && s.status == StatusStreaming {
		s.raise(events.NewRunSuperseded(s.id, s.run.CorrelationID(), correlationID, time.Now()))
	}

	s.inputText = inputText
	s.language = language
	s.mode = mode
	s.synonym = synonym
	s.freezeWords = append([]string(nil), freezeWords...)
	s.run = newStreamingRun(correlationID)
	s.document = NewDocumentWithConfig(s.cfg)
	s.status = StatusStreaming
	s.touch()

	s.raise(events.NewRunStarted(s.id, s.ownerID, correlationID, language, mode, time.Now()))
	return correlationID, nil
}

// BeginRetag mints a fresh correlation id for a single-sentence re-tag
// without resetting the document. Subsequent tagging and synonym events
// for that id flow back through the assembler.
func (s *ParaphraseSession) BeginRetag() (valueobjects.CorrelationID, error) {
	if s.run == nil {
		return valueobjects.CorrelationID{}, pkgerrors.NewConflictError("no run to re-tag")
	}
	correlationID := valueobjects.NewCorrelationID(s.socketID)
	old := s.run
	s.run = newStreamingRun(correlationID)
	// Keep the document: only enrichment restarts. The old run's
	// processed sets die with it, which is what makes re-delivered
	// indices applicable again.
	s.run.plain = old.plain
	s.status = StatusEnriching
	s.touch()
	return correlationID, nil
}

// Accepts reports whether events tagged with the given correlation id
// may mutate the document. This comparison is the sole staleness guard.
func (s *ParaphraseSession) Accepts(id valueobjects.CorrelationID) bool {
	return s.run != nil && s.run.CorrelationID().Equals(id)
}

// ReconnectSocket invalidates the live correlation id: any in-flight
// request is treated as abandoned and the caller must resubmit.
func (s *ParaphraseSession) ReconnectSocket(newSocketID string) {
	if newSocketID == "" {
		return
	}
	s.socketID = newSocketID
	if s.run != nil && (s.status == StatusStreaming || s.status == StatusEnriching) {
		s.status = StatusIdle
	}
	s.run = nil
	s.touch()
}

// MarkEnriching transitions the session into the tagging/synonym phase.
func (s *ParaphraseSession) MarkEnriching() {
	s.status = StatusEnriching
	s.touch()
}

// MarkCompleted closes the run.
func (s *ParaphraseSession) MarkCompleted() {
	s.status = StatusCompleted
	s.touch()
	s.raise(events.NewRunCompleted(s.id, s.document.SentenceCount(), time.Now()))
}

// MarkFailed records a processing failure. The document keeps whatever
// text is already visible; nothing is reverted.
func (s *ParaphraseSession) MarkFailed(reason string) {
	s.status = StatusFailed
	s.touch()
	s.raise(events.NewRunFailed(s.id, reason, time.Now()))
}

// RaiseDocumentUpdated records a document.updated event for the push
// layer. Called by the application layer after successful mutations.
func (s *ParaphraseSession) RaiseDocumentUpdated() {
	s.touch()
	s.raise(events.NewDocumentUpdated(s.id, s.ownerID, s.document.Revision(), time.Now()))
}

// DomainEvents returns and clears the uncommitted events.
func (s *ParaphraseSession) DomainEvents() []events.DomainEvent {
	evts := s.events
	s.events = nil
	return evts
}

func (s *ParaphraseSession) raise(event events.DomainEvent) {
	s.events = append(s.events, event)
}

func (s *ParaphraseSession) touch() {
	s.updatedAt = time.Now()
}
