package handlers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"phrasely-backend/application/ports"
	"phrasely-backend/application/queries"
	"phrasely-backend/domain/core/valueobjects"
	pkgerrors "phrasely-backend/pkg/errors"
)

// GetSessionStatusHandler handles session status queries
type GetSessionStatusHandler struct {
	sessions ports.SessionRepository
	logger   *zap.Logger
}

// NewGetSessionStatusHandler creates a new status handler
func NewGetSessionStatusHandler(sessions ports.SessionRepository, logger *zap.Logger) *GetSessionStatusHandler {
	return &GetSessionStatusHandler{sessions: sessions, logger: logger}
}

// Handle executes the status query
func (h *GetSessionStatusHandler) Handle(ctx context.Context, query queries.GetSessionStatusQuery) (*queries.GetSessionStatusResult, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	sessionID, err := valueobjects.NewSessionIDFromString(query.SessionID)
	if err != nil {
		return nil, pkgerrors.NewValidationError("invalid session ID")
	}

	session, err := h.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.OwnerID() != query.OwnerID {
		return nil, pkgerrors.NewNotFoundError("session")
	}

	result := &queries.GetSessionStatusResult{
		SessionID:     query.SessionID,
		Status:        string(session.Status()),
		SentenceCount: session.Document().SentenceCount(),
		Revision:      session.Document().Revision(),
		UpdatedAt:     session.UpdatedAt().Format(time.RFC3339),
	}
	if run := session.Run(); run != nil {
		result.CorrelationID = run.CorrelationID().String()
		result.PlainState = string(run.PlainState())
		result.TaggingState = string(run.TaggingState())
		result.SynonymsState = string(run.SynonymsState())
	}
	return result, nil
}
