package handlers

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"phrasely-backend/application/ports"
	"phrasely-backend/application/queries"
	"phrasely-backend/pkg/common"
)

// ListSessionsHandler handles paged session listings
type ListSessionsHandler struct {
	sessions ports.SessionRepository
	logger   *zap.Logger
}

// NewListSessionsHandler creates a new listing handler
func NewListSessionsHandler(sessions ports.SessionRepository, logger *zap.Logger) *ListSessionsHandler {
	return &ListSessionsHandler{sessions: sessions, logger: logger}
}

// Handle executes the listing query, newest sessions first
func (h *ListSessionsHandler) Handle(ctx context.Context, query queries.ListSessionsQuery) (*queries.ListSessionsResult, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	all, err := h.sessions.GetByOwnerID(ctx, query.OwnerID)
	if err != nil {
		return nil, err
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].UpdatedAt().After(all[j].UpdatedAt())
	})

	params := common.PaginationParams{Page: query.Page, PageSize: query.PageSize}
	offset := params.CalculateOffset()
	result := &queries.ListSessionsResult{
		Page:     query.Page,
		PageSize: query.PageSize,
		Total:    len(all),
		Sessions: []queries.SessionSummary{},
	}

	for i := offset; i < len(all) && i < offset+query.PageSize; i++ {
		session := all[i]
		result.Sessions = append(result.Sessions, queries.SessionSummary{
			SessionID:     session.ID().String(),
			Status:        string(session.Status()),
			Language:      session.Language().String(),
			Mode:          session.Mode(),
			SentenceCount: session.Document().SentenceCount(),
			CreatedAt:     session.CreatedAt().Format(time.RFC3339),
			UpdatedAt:     session.UpdatedAt().Format(time.RFC3339),
		})
	}

	h.logger.Debug("Sessions listed",
		zap.String("ownerID", query.OwnerID),
		zap.Int("total", result.Total),
	)
	return result, nil
}
