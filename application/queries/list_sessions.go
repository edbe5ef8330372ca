package queries

import "errors"

// ListSessionsQuery represents a paged query for a user's sessions
type ListSessionsQuery struct {
	OwnerID  string
	Page     int
	PageSize int
}

// Validate validates the ListSessionsQuery
func (q ListSessionsQuery) Validate() error {
	if q.OwnerID == "" {
		return errors.New("owner ID is required")
	}
	if q.Page < 1 {
		return errors.New("page must be at least 1")
	}
	if q.PageSize < 1 {
		return errors.New("page size must be at least 1")
	}
	return nil
}

// SessionSummary is one session in the listing
type SessionSummary struct {
	SessionID     string `json:"sessionId"`
	Status        string `json:"status"`
	Language      string `json:"language"`
	Mode          string `json:"mode,omitempty"`
	SentenceCount int    `json:"sentenceCount"`
	CreatedAt     string `json:"createdAt"`
	UpdatedAt     string `json:"updatedAt"`
}

// ListSessionsResult represents the paged listing
type ListSessionsResult struct {
	Sessions []SessionSummary `json:"sessions"`
	Page     int              `json:"page"`
	PageSize int              `json:"pageSize"`
	Total    int              `json:"total"`
}
