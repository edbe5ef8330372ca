package commands

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"phrasely-backend/application/ports"
	"phrasely-backend/domain/core/aggregates"
	"phrasely-backend/domain/core/valueobjects"
	pkgerrors "phrasely-backend/pkg/errors"
)

// UndoReplacementCommand represents the command to revert the most
// recent sentence replacement
type UndoReplacementCommand struct {
	SessionID string `json:"session_id" validate:"required"`
	OwnerID   string `json:"owner_id" validate:"required"`
}

// Validate validates the command
func (cmd UndoReplacementCommand) Validate() error {
	if cmd.SessionID == "" {
		return errors.New("session ID is required")
	}
	if cmd.OwnerID == "" {
		return errors.New("owner ID is required")
	}
	return nil
}

// UndoReplacementHandler handles the UndoReplacementCommand
type UndoReplacementHandler struct {
	sessions ports.SessionRepository
	eventBus ports.EventBus
	logger   *zap.Logger
}

// NewUndoReplacementHandler creates a new handler instance
func NewUndoReplacementHandler(
	sessions ports.SessionRepository,
	eventBus ports.EventBus,
	logger *zap.Logger,
) *UndoReplacementHandler {
	return &UndoReplacementHandler{
		sessions: sessions,
		eventBus: eventBus,
		logger:   logger,
	}
}

// Handle executes the undo command. Undo restores the previous document
// snapshot, including the replaced sentence's original tags and
// synonyms; no re-tag round trip is needed.
func (h *UndoReplacementHandler) Handle(ctx context.Context, cmd UndoReplacementCommand) error {
	sessionID, err := valueobjects.NewSessionIDFromString(cmd.SessionID)
	if err != nil {
		return pkgerrors.NewValidationError("invalid session ID")
	}

	return h.sessions.Update(ctx, sessionID, func(session *aggregates.ParaphraseSession) error {
		if session.OwnerID() != cmd.OwnerID {
			return pkgerrors.NewNotFoundError("session")
		}

		if !session.Document().Undo() {
			return pkgerrors.NewConflictError("nothing to undo")
		}

		session.RaiseDocumentUpdated()
		for _, event := range session.DomainEvents() {
			if pubErr := h.eventBus.Publish(ctx, event); pubErr != nil {
				h.logger.Warn("Failed to publish event", zap.Error(pubErr))
			}
		}

		h.logger.Debug("Replacement undone", zap.String("sessionID", cmd.SessionID))
		return nil
	})
}
