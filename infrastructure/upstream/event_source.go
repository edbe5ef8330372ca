package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"phrasely-backend/application/ports"
	"phrasely-backend/application/services"
	"phrasely-backend/application/tasks"
	"phrasely-backend/domain/core/valueobjects"
	pkgerrors "phrasely-backend/pkg/errors"
)

// doneSentinel terminates a channel's event stream for one run
const doneSentinel = "[DONE]"

// envelope is one raw message from the upstream socket. Channel
// discriminates the payload shape; anything that fails validation is
// dropped without touching any document.
type envelope struct {
	Channel string          `json:"channel"`
	EventID string          `json:"eventId"`
	Index   *int            `json:"index,omitempty"`
	Text    string          `json:"text,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// tokenPayload is one enrichment token as the upstream emits it
type tokenPayload struct {
	Word     string   `json:"word"`
	Type     string   `json:"type"`
	Synonyms []string `json:"synonyms,omitempty"`
}

// EventSource maintains the socket connection to the upstream NLP
// service and dispatches its three event channels into the stream
// assembler. Events are routed to sessions through the socket id
// prefix of their event id.
type EventSource struct {
	url       string
	dialer    *websocket.Dialer
	sessions  ports.SessionRepository
	assembler *services.StreamAssembler
	logger    *zap.Logger
}

// NewEventSource creates a new upstream event source
func NewEventSource(
	url string,
	sessions ports.SessionRepository,
	assembler *services.StreamAssembler,
	logger *zap.Logger,
) *EventSource {
	return &EventSource{
		url:       url,
		dialer:    websocket.DefaultDialer,
		sessions:  sessions,
		assembler: assembler,
		logger:    logger,
	}
}

// Run connects to the upstream socket and consumes events until the
// context is cancelled. Lost connections are re-established with the
// same connect sequence; in-flight runs on the old connection are
// abandoned, their correlation ids go stale on reconnect.
func (s *EventSource) Run(ctx context.Context) error {
	for {
		conn, err := s.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Error("Upstream connection failed, retrying", zap.Error(err))
			select {
			case <-time.After(5 * time.Second):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := s.consume(ctx, conn); err != nil {
			if ctx.Err() != nil {
				conn.Close()
				return ctx.Err()
			}
			s.logger.Warn("Upstream connection lost", zap.Error(err))
		}
		conn.Close()
	}
}

// connect runs the dial sequence with per-step retries
func (s *EventSource) connect(ctx context.Context) (*websocket.Conn, error) {
	seq := tasks.NewSequence("upstream-connect", s.logger)
	seq.AddStep(tasks.Step{
		Name:       "dial",
		MaxRetries: 3,
		RetryDelay: 2 * time.Second,
		Execute: func(ctx context.Context, _ interface{}) (interface{}, error) {
			conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
			if err != nil {
				return nil, fmt.Errorf("failed to dial %s: %w", s.url, err)
			}
			return conn, nil
		},
		Compensate: func(ctx context.Context, data interface{}) error {
			if conn, ok := data.(*websocket.Conn); ok {
				return conn.Close()
			}
			return nil
		},
	})
	seq.AddStep(tasks.Step{
		Name:       "subscribe",
		MaxRetries: 2,
		RetryDelay: time.Second,
		Execute: func(ctx context.Context, data interface{}) (interface{}, error) {
			conn := data.(*websocket.Conn)
			sub := map[string]interface{}{
				"action":   "subscribe",
				"channels": []string{services.ChannelPlain, services.ChannelTagging, services.ChannelSynonyms},
			}
			if err := conn.WriteJSON(sub); err != nil {
				return nil, fmt.Errorf("failed to subscribe: %w", err)
			}
			return conn, nil
		},
	})

	result, err := seq.Execute(ctx, nil)
	if err != nil {
		return nil, err
	}

	conn := result.(*websocket.Conn)
	s.logger.Info("Upstream event source connected", zap.String("url", s.url))
	return conn, nil
}

// consume reads messages until the connection drops
func (s *EventSource) consume(ctx context.Context, conn *websocket.Conn) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		if err := s.dispatch(ctx, raw); err != nil {
			// Malformed or unroutable events are dropped; the
			// document stays untouched.
			s.logger.Warn("Dropped upstream event", zap.Error(err))
		}
	}
}

// dispatch validates one raw message and routes it to the assembler
func (s *EventSource) dispatch(ctx context.Context, raw []byte) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return pkgerrors.NewMalformedPayloadError("envelope", err)
	}
	if env.EventID == "" {
		return pkgerrors.NewMalformedPayloadError(env.Channel, fmt.Errorf("missing eventId"))
	}

	correlationID, err := valueobjects.NewCorrelationIDFromString(env.EventID)
	if err != nil {
		return pkgerrors.NewMalformedPayloadError(env.Channel, err)
	}

	session, err := s.sessions.GetBySocketID(ctx, socketIDOf(env.EventID))
	if err != nil {
		return fmt.Errorf("no session for event %s: %w", env.EventID, err)
	}
	sessionID := session.ID()

	switch env.Channel {
	case services.ChannelPlain:
		if env.Error != "" {
			return s.assembler.HandleRunFailed(ctx, sessionID, correlationID, env.Error)
		}
		if env.Text == doneSentinel {
			return s.assembler.HandlePlainDone(ctx, sessionID, correlationID)
		}
		return s.assembler.HandlePlainChunk(ctx, services.PlainChunk{
			SessionID:     sessionID,
			CorrelationID: correlationID,
			Text:          env.Text,
		})

	case services.ChannelTagging:
		if done, event, err := s.parseEnrichment(env, sessionID, correlationID); err != nil {
			return err
		} else if done {
			return s.assembler.HandleTaggingDone(ctx, sessionID, correlationID)
		} else {
			return s.assembler.HandleTagging(ctx, event)
		}

	case services.ChannelSynonyms:
		if done, event, err := s.parseEnrichment(env, sessionID, correlationID); err != nil {
			return err
		} else if done {
			return s.assembler.HandleSynonymsDone(ctx, sessionID, correlationID)
		} else {
			return s.assembler.HandleSynonyms(ctx, event)
		}

	default:
		return pkgerrors.NewMalformedPayloadError(env.Channel, fmt.Errorf("unknown channel"))
	}
}

// parseEnrichment validates a tagging or synonyms payload. Validation
// fails closed: any missing field rejects the whole event.
func (s *EventSource) parseEnrichment(env envelope, sessionID valueobjects.SessionID, correlationID valueobjects.CorrelationID) (done bool, event services.EnrichmentEvent, err error) {
	if string(env.Data) == fmt.Sprintf("%q", doneSentinel) {
		return true, services.EnrichmentEvent{}, nil
	}
	if env.Index == nil || *env.Index < 0 {
		return false, event, pkgerrors.NewMalformedPayloadError(env.Channel, fmt.Errorf("missing or negative index"))
	}

	var payload []tokenPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return false, event, pkgerrors.NewMalformedPayloadError(env.Channel, err)
	}
	if len(payload) == 0 {
		return false, event, pkgerrors.NewMalformedPayloadError(env.Channel, fmt.Errorf("empty data array"))
	}

	tokens := make([]valueobjects.WordToken, 0, len(payload))
	for i, t := range payload {
		if t.Word == "" {
			return false, event, pkgerrors.NewMalformedPayloadError(env.Channel, fmt.Errorf("empty word at position %d", i))
		}
		token := valueobjects.NewWordToken(t.Word, valueobjects.ParseTag(t.Type))
		if len(t.Synonyms) > 0 {
			token = token.WithSynonyms(t.Synonyms)
		}
		tokens = append(tokens, token)
	}

	return false, services.EnrichmentEvent{
		SessionID:     sessionID,
		CorrelationID: correlationID,
		Index:         *env.Index,
		Tokens:        tokens,
	}, nil
}
