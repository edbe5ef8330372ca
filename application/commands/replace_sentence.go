package commands

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"phrasely-backend/application/ports"
	"phrasely-backend/domain/core/aggregates"
	"phrasely-backend/domain/core/valueobjects"
	"phrasely-backend/domain/events"
	pkgerrors "phrasely-backend/pkg/errors"
	"phrasely-backend/pkg/utils"
)

// ReplaceSentenceCommand represents the command to replace a whole
// paraphrased sentence with an alternate rewrite
type ReplaceSentenceCommand struct {
	SessionID     string   `json:"session_id" validate:"required"`
	OwnerID       string   `json:"owner_id" validate:"required"`
	SentenceIndex int      `json:"sentence_index" validate:"min=0"`
	Words         []string `json:"words" validate:"required,min=1,dive,required"`
}

// Validate validates the command
func (cmd ReplaceSentenceCommand) Validate() error {
	if cmd.SessionID == "" {
		return errors.New("session ID is required")
	}
	if len(cmd.Words) == 0 {
		return errors.New("replacement words are required")
	}
	if cmd.SentenceIndex < 0 {
		return errors.New("sentence index must be non-negative")
	}
	return utils.ValidateStruct(cmd)
}

// ReplaceSentenceHandler handles the ReplaceSentenceCommand
type ReplaceSentenceHandler struct {
	sessions ports.SessionRepository
	upstream ports.UpstreamGateway
	eventBus ports.EventBus
	logger   *zap.Logger
}

// NewReplaceSentenceHandler creates a new handler instance
func NewReplaceSentenceHandler(
	sessions ports.SessionRepository,
	upstream ports.UpstreamGateway,
	eventBus ports.EventBus,
	logger *zap.Logger,
) *ReplaceSentenceHandler {
	return &ReplaceSentenceHandler{
		sessions: sessions,
		upstream: upstream,
		eventBus: eventBus,
		logger:   logger,
	}
}

// Handle executes the replace sentence command. The old sentence goes
// onto the undo stack, the new words land untagged, and a re-tag
// request with a fresh correlation id brings their tags and synonyms
// back through the normal streaming path.
func (h *ReplaceSentenceHandler) Handle(ctx context.Context, cmd ReplaceSentenceCommand) error {
	sessionID, err := valueobjects.NewSessionIDFromString(cmd.SessionID)
	if err != nil {
		return pkgerrors.NewValidationError("invalid session ID")
	}

	var (
		retagID  valueobjects.CorrelationID
		sentence string
		language valueobjects.Language
	)
	err = h.sessions.Update(ctx, sessionID, func(session *aggregates.ParaphraseSession) error {
		if session.OwnerID() != cmd.OwnerID {
			return pkgerrors.NewNotFoundError("session")
		}

		tokens := make([]valueobjects.WordToken, 0, len(cmd.Words))
		for _, w := range cmd.Words {
			tokens = append(tokens, valueobjects.NewWordToken(w, valueobjects.TagNone))
		}

		doc := session.Document()
		if err := doc.ReplaceSentence(cmd.SentenceIndex, tokens); err != nil {
			return err
		}

		retagID, err = session.BeginRetag()
		if err != nil {
			return err
		}

		segIdx, ok := doc.MapSentenceIndex(cmd.SentenceIndex)
		if !ok {
			return pkgerrors.NewUnresolvedIndexError(cmd.SentenceIndex)
		}
		seg, _ := doc.Segment(segIdx)
		sentence = seg.Text()
		language = session.Language()

		session.RaiseDocumentUpdated()
		evts := append(session.DomainEvents(),
			events.NewSentenceReplaced(session.ID(), cmd.SentenceIndex, retagID, time.Now()))
		for _, event := range evts {
			if pubErr := h.eventBus.Publish(ctx, event); pubErr != nil {
				h.logger.Warn("Failed to publish event", zap.Error(pubErr))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	req := ports.RetagRequest{
		CorrelationID: retagID,
		Language:      language,
		SentenceIndex: cmd.SentenceIndex,
		Sentence:      sentence,
	}
	if err := h.upstream.RequestRetag(ctx, req); err != nil {
		// The replacement already happened and stays visible; only the
		// processing state flips so the client can surface the failure.
		h.logger.Warn("Re-tag request failed",
			zap.String("sessionID", cmd.SessionID),
			zap.Int("sentenceIndex", cmd.SentenceIndex),
			zap.Error(err),
		)
		markErr := h.sessions.Update(ctx, sessionID, func(session *aggregates.ParaphraseSession) error {
			session.MarkFailed("re-tag request failed")
			for _, event := range session.DomainEvents() {
				if pubErr := h.eventBus.Publish(ctx, event); pubErr != nil {
					h.logger.Warn("Failed to publish event", zap.Error(pubErr))
				}
			}
			return nil
		})
		if markErr != nil {
			h.logger.Warn("Failed to record re-tag failure",
				zap.String("sessionID", cmd.SessionID),
				zap.Error(markErr),
			)
		}
	}

	h.logger.Info("Sentence replaced",
		zap.String("sessionID", cmd.SessionID),
		zap.Int("sentenceIndex", cmd.SentenceIndex),
		zap.String("correlationID", retagID.String()),
	)
	return nil
}
