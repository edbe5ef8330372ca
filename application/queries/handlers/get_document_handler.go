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

// GetDocumentHandler handles document read queries
type GetDocumentHandler struct {
	sessions ports.SessionRepository
	logger   *zap.Logger
}

// NewGetDocumentHandler creates a new document handler
func NewGetDocumentHandler(sessions ports.SessionRepository, logger *zap.Logger) *GetDocumentHandler {
	return &GetDocumentHandler{sessions: sessions, logger: logger}
}

// Handle executes the document query
func (h *GetDocumentHandler) Handle(ctx context.Context, query queries.GetDocumentQuery) (*queries.GetDocumentResult, error) {
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

	doc := session.Document()
	result := &queries.GetDocumentResult{
		SessionID: query.SessionID,
		Revision:  doc.Revision(),
		Status:    string(session.Status()),
		PlainText: doc.PlainText(),
		Segments:  make([]queries.DocumentSegment, 0, doc.SegmentCount()),
	}

	for _, seg := range doc.Segments() {
		out := queries.DocumentSegment{
			LineBreak: seg.IsLineBreak(),
			Heading:   seg.IsHeading(),
		}
		if !seg.IsLineBreak() {
			tokens := seg.Tokens()
			out.Tokens = make([]queries.DocumentToken, 0, len(tokens))
			for _, tok := range tokens {
				out.Tokens = append(out.Tokens, queries.DocumentToken{
					Word:             tok.Word,
					Type:             string(tok.Tag),
					Synonyms:         tok.Synonyms,
					StructuralChange: tok.StructuralChange,
					UnchangedLongest: tok.UnchangedLongest,
				})
			}
		}
		result.Segments = append(result.Segments, out)
	}

	h.logger.Debug("Document retrieved",
		zap.String("sessionID", query.SessionID),
		zap.Int("revision", result.Revision),
		zap.Duration("age", time.Since(session.UpdatedAt())),
	)
	return result, nil
}
