package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"phrasely-backend/application/ports"
	"phrasely-backend/domain/config"
	"phrasely-backend/domain/core/aggregates"
	"phrasely-backend/domain/core/entities"
	"phrasely-backend/domain/core/valueobjects"
	"phrasely-backend/pkg/observability"
)

// Channel names as they appear upstream and in metrics.
const (
	ChannelPlain    = "plain"
	ChannelTagging  = "tagging"
	ChannelSynonyms = "synonyms"
)

// Drop reasons for metrics.
const (
	dropStale     = "stale"
	dropDuplicate = "duplicate"
	dropTimeout   = "deferred_timeout"
	dropOverflow  = "deferred_overflow"
)

// PlainChunk is one raw text delta from the plain channel.
type PlainChunk struct {
	SessionID     valueobjects.SessionID
	CorrelationID valueobjects.CorrelationID
	Text          string
}

// EnrichmentEvent is one validated tagging or synonyms event. The
// boundary parser has already rejected malformed payloads, so tokens
// here are well-formed.
type EnrichmentEvent struct {
	SessionID     valueobjects.SessionID
	CorrelationID valueobjects.CorrelationID
	Index         int
	Tokens        []valueobjects.WordToken
}

// deferredEvent parks an enrichment event whose sentence index raced
// ahead of the plain-text channel. It is retried after every plain
// mutation until its deadline passes.
type deferredEvent struct {
	channel  string
	event    EnrichmentEvent
	deadline time.Time
}

// StreamAssembler consumes the three upstream event channels and
// incrementally mutates session documents. Per-session serialization
// comes from the repository's Update closure; the assembler itself only
// guards its deferred-event queues.
type StreamAssembler struct {
	sessions  ports.SessionRepository
	segmenter *Segmenter
	annotator *Annotator
	projector *Projector
	pusher    ports.ProjectionPusher
	eventBus  ports.EventBus
	metrics   *observability.Collector
	logger    *zap.Logger
	cfg       *config.DomainConfig

	mu       sync.Mutex
	deferred map[string][]deferredEvent
}

// NewStreamAssembler creates an assembler.
func NewStreamAssembler(
	sessions ports.SessionRepository,
	segmenter *Segmenter,
	annotator *Annotator,
	projector *Projector,
	pusher ports.ProjectionPusher,
	eventBus ports.EventBus,
	metrics *observability.Collector,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *StreamAssembler {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &StreamAssembler{
		sessions:  sessions,
		segmenter: segmenter,
		annotator: annotator,
		projector: projector,
		pusher:    pusher,
		eventBus:  eventBus,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
		deferred:  make(map[string][]deferredEvent),
	}
}

// HandlePlainChunk appends a raw chunk, re-derives the segment list
// from the full buffer, carries enrichment already applied to earlier
// sentences over to the fresh segments, and retries deferred events
// that may now resolve.
func (a *StreamAssembler) HandlePlainChunk(ctx context.Context, chunk PlainChunk) error {
	return a.sessions.Update(ctx, chunk.SessionID, func(session *aggregates.ParaphraseSession) error {
		if !session.Accepts(chunk.CorrelationID) {
			a.drop(ChannelPlain, dropStale, session, chunk.CorrelationID)
			return nil
		}

		run := session.Run()
		buffer := run.AppendPlain(chunk.Text)
		doc := session.Document()

		segments := a.segmenter.Split(buffer, session.Language())
		carryOverEnrichment(doc, segments, run)
		doc.SetSegments(segments)

		if a.metrics != nil {
			a.metrics.ObserveApplied(ChannelPlain)
		}

		a.retryDeferred(ctx, session)
		a.push(ctx, session)
		return nil
	})
}

// HandlePlainDone handles the plain channel's terminal sentinel: the
// buffer resets for the next run and the session moves to enriching.
func (a *StreamAssembler) HandlePlainDone(ctx context.Context, sessionID valueobjects.SessionID, correlationID valueobjects.CorrelationID) error {
	return a.sessions.Update(ctx, sessionID, func(session *aggregates.ParaphraseSession) error {
		if !session.Accepts(correlationID) {
			a.drop(ChannelPlain, dropStale, session, correlationID)
			return nil
		}
		session.Run().CompletePlain()
		session.MarkEnriching()
		a.publishEvents(ctx, session)
		return nil
	})
}

// HandleTagging applies one tagging event: stale and duplicate events
// are dropped, unresolvable indices are parked on the deferred queue.
func (a *StreamAssembler) HandleTagging(ctx context.Context, event EnrichmentEvent) error {
	return a.handleEnrichment(ctx, ChannelTagging, event)
}

// HandleSynonyms applies one synonyms event with the same guards as
// tagging.
func (a *StreamAssembler) HandleSynonyms(ctx context.Context, event EnrichmentEvent) error {
	return a.handleEnrichment(ctx, ChannelSynonyms, event)
}

func (a *StreamAssembler) handleEnrichment(ctx context.Context, channel string, event EnrichmentEvent) error {
	return a.sessions.Update(ctx, event.SessionID, func(session *aggregates.ParaphraseSession) error {
		if !session.Accepts(event.CorrelationID) {
			a.drop(channel, dropStale, session, event.CorrelationID)
			return nil
		}

		run := session.Run()
		marked := false
		if channel == ChannelTagging {
			marked = run.MarkTagged(event.Index)
		} else {
			marked = run.MarkSynonyms(event.Index)
		}
		if !marked {
			a.drop(channel, dropDuplicate, session, event.CorrelationID)
			return nil
		}

		applied, err := session.Document().OverwriteSentence(event.Index, event.Tokens)
		if err != nil {
			return err
		}
		if !applied {
			a.park(channel, session, event)
			return nil
		}

		if a.metrics != nil {
			a.metrics.ObserveApplied(channel)
		}
		a.push(ctx, session)
		return nil
	})
}

// HandleTaggingDone handles the tagging channel's terminal sentinel.
func (a *StreamAssembler) HandleTaggingDone(ctx context.Context, sessionID valueobjects.SessionID, correlationID valueobjects.CorrelationID) error {
	return a.sessions.Update(ctx, sessionID, func(session *aggregates.ParaphraseSession) error {
		if !session.Accepts(correlationID) {
			a.drop(ChannelTagging, dropStale, session, correlationID)
			return nil
		}
		session.Run().CompleteTagging()
		return nil
	})
}

// HandleSynonymsDone handles the synonyms channel's terminal sentinel,
// which is the run's overall enrichment completion signal.
func (a *StreamAssembler) HandleSynonymsDone(ctx context.Context, sessionID valueobjects.SessionID, correlationID valueobjects.CorrelationID) error {
	return a.sessions.Update(ctx, sessionID, func(session *aggregates.ParaphraseSession) error {
		if !session.Accepts(correlationID) {
			a.drop(ChannelSynonyms, dropStale, session, correlationID)
			return nil
		}
		session.Run().CompleteSynonyms()
		session.MarkCompleted()
		if a.metrics != nil {
			a.metrics.RunsCompleted.Inc()
			a.metrics.StreamDuration.Observe(time.Since(session.Run().StartedAt()).Seconds())
		}
		a.dropDeferredFor(session.ID())
		a.publishEvents(ctx, session)
		a.push(ctx, session)
		return nil
	})
}

// HandleRunFailed marks the run failed. Visible text stays; nothing is
// reverted.
func (a *StreamAssembler) HandleRunFailed(ctx context.Context, sessionID valueobjects.SessionID, correlationID valueobjects.CorrelationID, reason string) error {
	return a.sessions.Update(ctx, sessionID, func(session *aggregates.ParaphraseSession) error {
		if !session.Accepts(correlationID) {
			return nil
		}
		session.MarkFailed(reason)
		if a.metrics != nil {
			a.metrics.RunsFailed.Inc()
		}
		a.dropDeferredFor(session.ID())
		a.publishEvents(ctx, session)
		return nil
	})
}

// Sweep expires deferred events whose deadline passed without the plain
// channel ever catching up. Run periodically by the server.
func (a *StreamAssembler) Sweep(ctx context.Context) {
	a.mu.Lock()
	now := time.Now()
	expired := make(map[string][]deferredEvent)
	for sessionKey, queue := range a.deferred {
		var keep []deferredEvent
		for _, d := range queue {
			if now.After(d.deadline) {
				expired[sessionKey] = append(expired[sessionKey], d)
			} else {
				keep = append(keep, d)
			}
		}
		if len(keep) == 0 {
			delete(a.deferred, sessionKey)
		} else {
			a.deferred[sessionKey] = keep
		}
	}
	a.mu.Unlock()

	for sessionKey, queue := range expired {
		for _, d := range queue {
			a.expireDeferred(ctx, sessionKey, d)
		}
	}
}

// park holds an event whose index has no mapping yet instead of
// dropping it outright. The queue is bounded; overflow drops the
// event.
func (a *StreamAssembler) park(channel string, session *aggregates.ParaphraseSession, event EnrichmentEvent) {
	key := session.ID().String()

	a.mu.Lock()
	if len(a.deferred[key]) >= a.cfg.MaxDeferredEvents {
		a.mu.Unlock()
		a.unmark(session, channel, event.Index)
		a.drop(channel, dropOverflow, session, event.CorrelationID)
		return
	}
	a.deferred[key] = append(a.deferred[key], deferredEvent{
		channel:  channel,
		event:    event,
		deadline: time.Now().Add(a.cfg.DeferredEventTTL),
	})
	a.mu.Unlock()

	if a.metrics != nil {
		a.metrics.EventsDeferred.Inc()
	}
	a.logger.Debug("Event deferred awaiting plain text",
		zap.String("channel", channel),
		zap.String("sessionID", key),
		zap.Int("index", event.Index),
	)
}

// retryDeferred re-applies parked events after a plain mutation. Runs
// inside the caller's Update closure, so document access is serialized.
func (a *StreamAssembler) retryDeferred(ctx context.Context, session *aggregates.ParaphraseSession) {
	key := session.ID().String()

	a.mu.Lock()
	queue := a.deferred[key]
	delete(a.deferred, key)
	a.mu.Unlock()

	if len(queue) == 0 {
		return
	}

	now := time.Now()
	var requeue []deferredEvent
	for _, d := range queue {
		if now.After(d.deadline) {
			a.unmark(session, d.channel, d.event.Index)
			a.drop(d.channel, dropTimeout, session, d.event.CorrelationID)
			continue
		}
		if !session.Accepts(d.event.CorrelationID) {
			a.drop(d.channel, dropStale, session, d.event.CorrelationID)
			continue
		}
		applied, err := session.Document().OverwriteSentence(d.event.Index, d.event.Tokens)
		if err != nil || !applied {
			requeue = append(requeue, d)
			continue
		}
		if a.metrics != nil {
			a.metrics.ObserveApplied(d.channel)
		}
	}

	if len(requeue) > 0 {
		a.mu.Lock()
		a.deferred[key] = append(requeue, a.deferred[key]...)
		a.mu.Unlock()
	}
}

func (a *StreamAssembler) expireDeferred(ctx context.Context, sessionKey string, d deferredEvent) {
	sessionID, err := valueobjects.NewSessionIDFromString(sessionKey)
	if err != nil {
		return
	}
	_ = a.sessions.Update(ctx, sessionID, func(session *aggregates.ParaphraseSession) error {
		a.unmark(session, d.channel, d.event.Index)
		a.drop(d.channel, dropTimeout, session, d.event.CorrelationID)
		return nil
	})
}

// unmark forgets a processed index so a later redelivery is applicable
// again after its deferred copy expired.
func (a *StreamAssembler) unmark(session *aggregates.ParaphraseSession, channel string, index int) {
	run := session.Run()
	if run == nil {
		return
	}
	if channel == ChannelTagging {
		run.UnmarkTagged(index)
	} else {
		run.UnmarkSynonyms(index)
	}
}

func (a *StreamAssembler) dropDeferredFor(sessionID valueobjects.SessionID) {
	a.mu.Lock()
	delete(a.deferred, sessionID.String())
	a.mu.Unlock()
}

func (a *StreamAssembler) drop(channel, reason string, session *aggregates.ParaphraseSession, correlationID valueobjects.CorrelationID) {
	if a.metrics != nil {
		a.metrics.ObserveDrop(channel, reason)
	}
	live := ""
	if session.Run() != nil {
		live = session.Run().CorrelationID().String()
	}
	a.logger.Debug("Stream event dropped",
		zap.String("channel", channel),
		zap.String("reason", reason),
		zap.String("sessionID", session.ID().String()),
		zap.String("eventCorrelationID", correlationID.String()),
		zap.String("liveCorrelationID", live),
	)
}

// push annotates, projects and delivers the current document to the
// session's sockets.
func (a *StreamAssembler) push(ctx context.Context, session *aggregates.ParaphraseSession) {
	annotated := a.annotator.Annotate(session.Document(), session.InputText())
	projection := a.projector.Project(annotated, DefaultProjectionOptions())
	if err := a.pusher.Push(ctx, session.ID(), projection); err != nil {
		if a.metrics != nil {
			a.metrics.PushFailures.Inc()
		}
		a.logger.Warn("Projection push failed",
			zap.String("sessionID", session.ID().String()),
			zap.Error(err),
		)
		return
	}
	if a.metrics != nil {
		a.metrics.MessagesPushed.Inc()
	}
}

func (a *StreamAssembler) publishEvents(ctx context.Context, session *aggregates.ParaphraseSession) {
	for _, event := range session.DomainEvents() {
		if err := a.eventBus.Publish(ctx, event); err != nil {
			a.logger.Warn("Failed to publish event", zap.Error(err))
		}
	}
}

// carryOverEnrichment copies already-enriched sentence tokens from the
// old document into the freshly split segments. Without this, every
// plain chunk would wipe the tags and synonyms applied so far. Carry
// over only happens when the sentence text is unchanged by the re-split:
// enrichment that landed on a still-growing sentence is discarded and
// its index unmarked so a redelivery can reapply it to the final text.
func carryOverEnrichment(old *aggregates.Document, segments []*entities.Segment, run *aggregates.StreamingRun) {
	if run == nil {
		return
	}
	sentence := 0
	for _, seg := range segments {
		if seg.IsLineBreak() {
			continue
		}
		if run.IsTagged(sentence) || run.HasSynonyms(sentence) {
			if carried := carrySegment(old, seg, sentence); !carried {
				run.UnmarkTagged(sentence)
				run.UnmarkSynonyms(sentence)
			}
		}
		sentence++
	}
}

// carrySegment moves the old segment's enriched tokens onto the fresh
// segment when both render the same text.
func carrySegment(old *aggregates.Document, seg *entities.Segment, sentence int) bool {
	oldIdx, ok := old.MapSentenceIndex(sentence)
	if !ok {
		return false
	}
	oldSeg, found := old.Segment(oldIdx)
	if !found || oldSeg.Text() != seg.Text() {
		return false
	}
	return seg.SetTokens(oldSeg.Tokens()) == nil
}
