package commands

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"phrasely-backend/application/ports"
	"phrasely-backend/domain/core/aggregates"
)

// CleanupSessionsCommand represents a command to delete sessions that
// finished long ago and keep the in-memory store bounded
type CleanupSessionsCommand struct {
	OwnerID string
	MaxAge  time.Duration
}

// Validate validates the command
func (c *CleanupSessionsCommand) Validate() error {
	if c.OwnerID == "" {
		return fmt.Errorf("owner ID is required")
	}
	if c.MaxAge <= 0 {
		return fmt.Errorf("max age must be positive")
	}
	return nil
}

// CleanupSessionsHandler handles expired session removal
type CleanupSessionsHandler struct {
	sessions ports.SessionRepository
	logger   *zap.Logger
}

// NewCleanupSessionsHandler creates a new cleanup handler
func NewCleanupSessionsHandler(sessions ports.SessionRepository, logger *zap.Logger) *CleanupSessionsHandler {
	return &CleanupSessionsHandler{sessions: sessions, logger: logger}
}

// Handle executes the cleanup command, returning how many sessions
// were removed
func (h *CleanupSessionsHandler) Handle(ctx context.Context, cmd *CleanupSessionsCommand) (int, error) {
	if err := cmd.Validate(); err != nil {
		return 0, err
	}

	sessions, err := h.sessions.GetByOwnerID(ctx, cmd.OwnerID)
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	cutoff := time.Now().Add(-cmd.MaxAge)
	removed := 0
	for _, session := range sessions {
		if session.Status() == aggregates.StatusStreaming || session.Status() == aggregates.StatusEnriching {
			continue
		}
		if session.UpdatedAt().After(cutoff) {
			continue
		}
		if err := h.sessions.Delete(ctx, session.ID()); err != nil {
			h.logger.Warn("Failed to delete expired session",
				zap.String("sessionID", session.ID().String()),
				zap.Error(err),
			)
			continue
		}
		removed++
	}

	if removed > 0 {
		h.logger.Info("Expired sessions removed",
			zap.String("ownerID", cmd.OwnerID),
			zap.Int("removed", removed),
		)
	}
	return removed, nil
}
