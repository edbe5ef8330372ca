package valueobjects

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// CorrelationID is a value object pairing a submitted request with the
// asynchronous events that answer it. It is minted as the socket
// connection id joined with a random nonce, and is the sole authority
// for whether an incoming event may mutate a document.
type CorrelationID struct {
	value string
}

// NewCorrelationID mints a fresh correlation id for the given socket
// connection. Every new run (or per-sentence re-tag) gets its own id.
func NewCorrelationID(socketID string) CorrelationID {
	nonce := strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
	return CorrelationID{value: socketID + "-" + nonce}
}

// NewCorrelationIDFromString wraps an existing opaque id string.
func NewCorrelationIDFromString(id string) (CorrelationID, error) {
	if id == "" {
		return CorrelationID{}, errors.New("correlation ID cannot be empty")
	}
	return CorrelationID{value: id}, nil
}

// String returns the string representation of the CorrelationID.
func (id CorrelationID) String() string {
	return id.value
}

// Equals checks if two CorrelationIDs are equal.
func (id CorrelationID) Equals(other CorrelationID) bool {
	return id.value == other.value
}

// IsZero checks if the CorrelationID is the zero value.
func (id CorrelationID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id CorrelationID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *CorrelationID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("CorrelationID must be a string")
	}
	id.value = string(data[1 : len(data)-1])
	return nil
}
