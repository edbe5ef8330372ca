package queries

import "errors"

// GetProjectionQuery represents a query for the rendered projection of
// a session's document, annotated against the original input
type GetProjectionQuery struct {
	SessionID         string
	OwnerID           string
	ShowTagColors     bool
	ShowStructural    bool
	ShowUnchangedRuns bool
}

// Validate validates the GetProjectionQuery
func (q GetProjectionQuery) Validate() error {
	if q.SessionID == "" {
		return errors.New("session ID is required")
	}
	if q.OwnerID == "" {
		return errors.New("owner ID is required")
	}
	return nil
}
