// Package memory provides the in-process session store. Sessions are
// short-lived and bound to a live socket, so they are held in memory
// rather than in a database.
package memory

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"phrasely-backend/application/ports"
	"phrasely-backend/domain/core/aggregates"
	"phrasely-backend/domain/core/valueobjects"
	pkgerrors "phrasely-backend/pkg/errors"
)

// SessionStore implements ports.SessionRepository with per-session
// locking. All mutation goes through Update so a session's document
// and streaming run are never modified concurrently.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
	bySocket map[string]string // socketID -> sessionID
	logger   *zap.Logger
}

type sessionEntry struct {
	mu      sync.Mutex
	session *aggregates.ParaphraseSession
}

// NewSessionStore creates an empty session store
func NewSessionStore(logger *zap.Logger) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*sessionEntry),
		bySocket: make(map[string]string),
		logger:   logger,
	}
}

var _ ports.SessionRepository = (*SessionStore)(nil)

// Save stores a new session or replaces an existing one
func (s *SessionStore) Save(ctx context.Context, session *aggregates.ParaphraseSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := session.ID().String()
	if existing, ok := s.sessions[id]; ok {
		delete(s.bySocket, existing.session.SocketID())
	}
	s.sessions[id] = &sessionEntry{session: session}
	if socketID := session.SocketID(); socketID != "" {
		s.bySocket[socketID] = id
	}

	s.logger.Debug("Session saved",
		zap.String("sessionID", id),
		zap.String("ownerID", session.OwnerID()),
	)
	return nil
}

// GetByID retrieves a session by its ID
func (s *SessionStore) GetByID(ctx context.Context, id valueobjects.SessionID) (*aggregates.ParaphraseSession, error) {
	s.mu.RLock()
	entry, ok := s.sessions[id.String()]
	s.mu.RUnlock()

	if !ok {
		return nil, pkgerrors.NewNotFoundError("session")
	}
	return entry.session, nil
}

// GetByOwnerID retrieves all sessions for a user
func (s *SessionStore) GetByOwnerID(ctx context.Context, ownerID string) ([]*aggregates.ParaphraseSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*aggregates.ParaphraseSession
	for _, entry := range s.sessions {
		if entry.session.OwnerID() == ownerID {
			result = append(result, entry.session)
		}
	}
	return result, nil
}

// GetBySocketID retrieves the session bound to a socket connection
func (s *SessionStore) GetBySocketID(ctx context.Context, socketID string) (*aggregates.ParaphraseSession, error) {
	s.mu.RLock()
	id, ok := s.bySocket[socketID]
	var entry *sessionEntry
	if ok {
		entry, ok = s.sessions[id]
	}
	s.mu.RUnlock()

	if !ok {
		return nil, pkgerrors.NewNotFoundError("session")
	}
	return entry.session, nil
}

// Update applies fn to the session under its lock. The socket index is
// refreshed afterwards because fn may rebind the socket.
func (s *SessionStore) Update(ctx context.Context, id valueobjects.SessionID, fn func(*aggregates.ParaphraseSession) error) error {
	s.mu.RLock()
	entry, ok := s.sessions[id.String()]
	s.mu.RUnlock()

	if !ok {
		return pkgerrors.NewNotFoundError("session")
	}

	entry.mu.Lock()
	oldSocket := entry.session.SocketID()
	err := fn(entry.session)
	newSocket := entry.session.SocketID()
	entry.mu.Unlock()

	if err != nil {
		return err
	}

	if oldSocket != newSocket {
		s.mu.Lock()
		if oldSocket != "" && s.bySocket[oldSocket] == id.String() {
			delete(s.bySocket, oldSocket)
		}
		if newSocket != "" {
			s.bySocket[newSocket] = id.String()
		}
		s.mu.Unlock()
	}
	return nil
}

// Delete removes a session
func (s *SessionStore) Delete(ctx context.Context, id valueobjects.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[id.String()]
	if !ok {
		return pkgerrors.NewNotFoundError("session")
	}
	if socketID := entry.session.SocketID(); socketID != "" && s.bySocket[socketID] == id.String() {
		delete(s.bySocket, socketID)
	}
	delete(s.sessions, id.String())

	s.logger.Debug("Session deleted", zap.String("sessionID", id.String()))
	return nil
}

// DeleteExpired removes sessions not touched since the given time. The
// housekeeping loop calls this on a timer so abandoned sessions do not
// accumulate.
func (s *SessionStore) DeleteExpired(ctx context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, entry := range s.sessions {
		if !entry.session.UpdatedAt().Before(olderThan) {
			continue
		}
		if socketID := entry.session.SocketID(); socketID != "" && s.bySocket[socketID] == id {
			delete(s.bySocket, socketID)
		}
		delete(s.sessions, id)
		removed++
	}

	if removed > 0 {
		s.logger.Info("Expired sessions removed", zap.Int("count", removed))
	}
	return removed, nil
}

// Count returns the number of stored sessions for a user
func (s *SessionStore) Count(ctx context.Context, ownerID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, entry := range s.sessions {
		if entry.session.OwnerID() == ownerID {
			count++
		}
	}
	return count, nil
}
