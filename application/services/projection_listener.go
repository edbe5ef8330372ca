package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"phrasely-backend/application/ports"
	"phrasely-backend/domain/events"
)

// ProjectionListener pushes a fresh projection whenever a document
// mutates outside the streaming path, word replacements, sentence
// replacements and undo all publish document.updated.
type ProjectionListener struct {
	sessions  ports.SessionRepository
	annotator *Annotator
	projector *Projector
	pusher    ports.ProjectionPusher
	logger    *zap.Logger
}

// NewProjectionListener creates the document.updated subscriber
func NewProjectionListener(
	sessions ports.SessionRepository,
	annotator *Annotator,
	projector *Projector,
	pusher ports.ProjectionPusher,
	logger *zap.Logger,
) *ProjectionListener {
	return &ProjectionListener{
		sessions:  sessions,
		annotator: annotator,
		projector: projector,
		pusher:    pusher,
		logger:    logger,
	}
}

var _ ports.EventHandler = (*ProjectionListener)(nil)

// CanHandle checks if this handler can process the event
func (l *ProjectionListener) CanHandle(eventType string) bool {
	return eventType == "document.updated"
}

// Handle renders and pushes the projection for the updated document
func (l *ProjectionListener) Handle(ctx context.Context, event events.DomainEvent) error {
	updated, ok := event.(events.DocumentUpdated)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	session, err := l.sessions.GetByID(ctx, updated.SessionID)
	if err != nil {
		return err
	}

	annotated := l.annotator.Annotate(session.Document(), session.InputText())
	projection := l.projector.Project(annotated, DefaultProjectionOptions())

	if err := l.pusher.Push(ctx, updated.SessionID, projection); err != nil {
		l.logger.Warn("Projection push failed",
			zap.String("sessionID", updated.SessionID.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}
