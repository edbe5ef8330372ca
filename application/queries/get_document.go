package queries

import "errors"

// GetDocumentQuery represents a query for a session's current document
type GetDocumentQuery struct {
	SessionID string
	OwnerID   string
}

// Validate validates the GetDocumentQuery
func (q GetDocumentQuery) Validate() error {
	if q.SessionID == "" {
		return errors.New("session ID is required")
	}
	if q.OwnerID == "" {
		return errors.New("owner ID is required")
	}
	return nil
}

// DocumentToken is one word token in the result
type DocumentToken struct {
	Word             string   `json:"word"`
	Type             string   `json:"type"`
	Synonyms         []string `json:"synonyms,omitempty"`
	StructuralChange bool     `json:"structuralChange"`
	UnchangedLongest bool     `json:"unchangedLongest"`
}

// DocumentSegment is one sentence or line break in the result
type DocumentSegment struct {
	LineBreak bool            `json:"lineBreak"`
	Heading   bool            `json:"heading"`
	Tokens    []DocumentToken `json:"tokens,omitempty"`
}

// GetDocumentResult represents the result of reading a document
type GetDocumentResult struct {
	SessionID string            `json:"sessionId"`
	Revision  int               `json:"revision"`
	Status    string            `json:"status"`
	PlainText string            `json:"plainText"`
	Segments  []DocumentSegment `json:"segments"`
}
