package commands

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"phrasely-backend/application/ports"
	"phrasely-backend/domain/core/aggregates"
	"phrasely-backend/domain/core/valueobjects"
	"phrasely-backend/domain/events"
	pkgerrors "phrasely-backend/pkg/errors"
	"phrasely-backend/pkg/utils"
)

// ReplaceWordCommand represents the command to swap one word of a
// paraphrased sentence, typically for a synonym picked from the popup
type ReplaceWordCommand struct {
	SessionID     string `json:"session_id" validate:"required"`
	OwnerID       string `json:"owner_id" validate:"required"`
	SentenceIndex int    `json:"sentence_index" validate:"min=0"`
	WordIndex     int    `json:"word_index" validate:"min=0"`
	Replacement   string `json:"replacement" validate:"required,max=100"`
}

// Validate validates the command
func (cmd ReplaceWordCommand) Validate() error {
	if cmd.SessionID == "" {
		return errors.New("session ID is required")
	}
	if strings.TrimSpace(cmd.Replacement) == "" {
		return errors.New("replacement word is required")
	}
	if cmd.SentenceIndex < 0 || cmd.WordIndex < 0 {
		return errors.New("indices must be non-negative")
	}
	return utils.ValidateStruct(cmd)
}

// ReplaceWordHandler handles the ReplaceWordCommand
type ReplaceWordHandler struct {
	sessions ports.SessionRepository
	eventBus ports.EventBus
	logger   *zap.Logger
}

// NewReplaceWordHandler creates a new handler instance
func NewReplaceWordHandler(
	sessions ports.SessionRepository,
	eventBus ports.EventBus,
	logger *zap.Logger,
) *ReplaceWordHandler {
	return &ReplaceWordHandler{
		sessions: sessions,
		eventBus: eventBus,
		logger:   logger,
	}
}

// Handle executes the replace word command. The word keeps its tag and
// synonym list; only the surface form changes. Word swaps are not
// undoable, matching the sentence-level undo granularity.
func (h *ReplaceWordHandler) Handle(ctx context.Context, cmd ReplaceWordCommand) error {
	sessionID, err := valueobjects.NewSessionIDFromString(cmd.SessionID)
	if err != nil {
		return pkgerrors.NewValidationError("invalid session ID")
	}

	return h.sessions.Update(ctx, sessionID, func(session *aggregates.ParaphraseSession) error {
		if session.OwnerID() != cmd.OwnerID {
			return pkgerrors.NewNotFoundError("session")
		}

		doc := session.Document()
		if err := doc.ReplaceWord(cmd.SentenceIndex, cmd.WordIndex, cmd.Replacement); err != nil {
			return err
		}

		session.RaiseDocumentUpdated()
		evts := append(session.DomainEvents(),
			events.NewWordReplaced(session.ID(), cmd.SentenceIndex, cmd.WordIndex, cmd.Replacement, time.Now()))
		for _, event := range evts {
			if pubErr := h.eventBus.Publish(ctx, event); pubErr != nil {
				h.logger.Warn("Failed to publish event", zap.Error(pubErr))
			}
		}

		h.logger.Debug("Word replaced",
			zap.String("sessionID", cmd.SessionID),
			zap.Int("sentenceIndex", cmd.SentenceIndex),
			zap.Int("wordIndex", cmd.WordIndex),
		)
		return nil
	})
}
