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

// ReconnectSocketCommand rebinds a session to a new WebSocket
// connection after the old one dropped
type ReconnectSocketCommand struct {
	SessionID string `json:"session_id" validate:"required"`
	SocketID  string `json:"socket_id" validate:"required"`
}

// Validate validates the command
func (cmd ReconnectSocketCommand) Validate() error {
	if cmd.SessionID == "" {
		return errors.New("session ID is required")
	}
	if cmd.SocketID == "" {
		return errors.New("socket ID is required")
	}
	return nil
}

// ReconnectSocketHandler handles the ReconnectSocketCommand
type ReconnectSocketHandler struct {
	sessions ports.SessionRepository
	logger   *zap.Logger
}

// NewReconnectSocketHandler creates a new handler instance
func NewReconnectSocketHandler(sessions ports.SessionRepository, logger *zap.Logger) *ReconnectSocketHandler {
	return &ReconnectSocketHandler{sessions: sessions, logger: logger}
}

// Handle rebinds the socket. Any in-flight run is abandoned: its
// correlation id carries the old socket id and can never match one
// minted from the new connection.
func (h *ReconnectSocketHandler) Handle(ctx context.Context, cmd ReconnectSocketCommand) error {
	sessionID, err := valueobjects.NewSessionIDFromString(cmd.SessionID)
	if err != nil {
		return pkgerrors.NewValidationError("invalid session ID")
	}

	return h.sessions.Update(ctx, sessionID, func(session *aggregates.ParaphraseSession) error {
		session.ReconnectSocket(cmd.SocketID)
		h.logger.Info("Socket rebound",
			zap.String("sessionID", cmd.SessionID),
			zap.String("socketID", cmd.SocketID),
		)
		return nil
	})
}
