package commands

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"phrasely-backend/application/ports"
	"phrasely-backend/domain/config"
	"phrasely-backend/domain/core/aggregates"
	"phrasely-backend/pkg/utils"
)

// CreateSessionCommand represents the command to open a new paraphrase session
type CreateSessionCommand struct {
	OwnerID  string `json:"owner_id" validate:"required"`
	SocketID string `json:"socket_id" validate:"required"`
}

// Validate validates the command
func (cmd CreateSessionCommand) Validate() error {
	if cmd.OwnerID == "" {
		return errors.New("owner ID is required")
	}
	if cmd.SocketID == "" {
		return errors.New("socket ID is required")
	}
	return utils.ValidateStruct(cmd)
}

// CreateSessionHandler handles the CreateSessionCommand
type CreateSessionHandler struct {
	sessions ports.SessionRepository
	eventBus ports.EventBus
	cfg      *config.DomainConfig
	logger   *zap.Logger
}

// NewCreateSessionHandler creates a new handler instance
func NewCreateSessionHandler(
	sessions ports.SessionRepository,
	eventBus ports.EventBus,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *CreateSessionHandler {
	return &CreateSessionHandler{
		sessions: sessions,
		eventBus: eventBus,
		cfg:      cfg,
		logger:   logger,
	}
}

// Handle executes the create session command
func (h *CreateSessionHandler) Handle(ctx context.Context, cmd CreateSessionCommand) (*aggregates.ParaphraseSession, error) {
	session, err := aggregates.NewParaphraseSession(cmd.OwnerID, cmd.SocketID, h.cfg)
	if err != nil {
		return nil, err
	}

	if err := h.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	h.logger.Info("Session created",
		zap.String("sessionID", session.ID().String()),
		zap.String("ownerID", cmd.OwnerID),
	)

	return session, nil
}
