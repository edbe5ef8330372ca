package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"phrasely-backend/application/ports"
	"phrasely-backend/application/queries"
	"phrasely-backend/application/services"
	"phrasely-backend/domain/core/valueobjects"
	pkgerrors "phrasely-backend/pkg/errors"
)

// GetProjectionHandler handles projection queries: it annotates the
// session's document against the original input and renders it.
type GetProjectionHandler struct {
	sessions  ports.SessionRepository
	annotator *services.Annotator
	projector *services.Projector
	logger    *zap.Logger
}

// NewGetProjectionHandler creates a new projection handler
func NewGetProjectionHandler(
	sessions ports.SessionRepository,
	annotator *services.Annotator,
	projector *services.Projector,
	logger *zap.Logger,
) *GetProjectionHandler {
	return &GetProjectionHandler{
		sessions:  sessions,
		annotator: annotator,
		projector: projector,
		logger:    logger,
	}
}

// Handle executes the projection query
func (h *GetProjectionHandler) Handle(ctx context.Context, query queries.GetProjectionQuery) (*services.ProjectionDocument, error) {
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

	annotated := h.annotator.Annotate(session.Document(), session.InputText())
	projection := h.projector.Project(annotated, services.ProjectionOptions{
		ShowTagColors:     query.ShowTagColors,
		ShowStructural:    query.ShowStructural,
		ShowUnchangedRuns: query.ShowUnchangedRuns,
	})

	h.logger.Debug("Projection rendered",
		zap.String("sessionID", query.SessionID),
		zap.Int("blocks", len(projection.Blocks)),
	)
	return projection, nil
}
