package queries

import "errors"

// GetSessionStatusQuery represents a query for a session's processing
// state, polled by clients that missed a push
type GetSessionStatusQuery struct {
	SessionID string
	OwnerID   string
}

// Validate validates the GetSessionStatusQuery
func (q GetSessionStatusQuery) Validate() error {
	if q.SessionID == "" {
		return errors.New("session ID is required")
	}
	if q.OwnerID == "" {
		return errors.New("owner ID is required")
	}
	return nil
}

// GetSessionStatusResult represents the session's processing state
type GetSessionStatusResult struct {
	SessionID     string `json:"sessionId"`
	Status        string `json:"status"`
	CorrelationID string `json:"correlationId,omitempty"`
	PlainState    string `json:"plainState"`
	TaggingState  string `json:"taggingState"`
	SynonymsState string `json:"synonymsState"`
	SentenceCount int    `json:"sentenceCount"`
	Revision      int    `json:"revision"`
	UpdatedAt     string `json:"updatedAt"`
}
