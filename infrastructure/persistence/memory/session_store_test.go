package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"phrasely-backend/domain/config"
	"phrasely-backend/domain/core/aggregates"
)

func newStoredSession(t *testing.T, store *SessionStore, ownerID, socketID string) *aggregates.ParaphraseSession {
	t.Helper()
	session, err := aggregates.NewParaphraseSession(ownerID, socketID, config.DefaultDomainConfig())
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), session))
	return session
}

func TestSessionStore_SaveAndLookup(t *testing.T) {
	store := NewSessionStore(zap.NewNop())
	ctx := context.Background()
	session := newStoredSession(t, store, "user-1", "sock1")

	byID, err := store.GetByID(ctx, session.ID())
	require.NoError(t, err)
	assert.Equal(t, session.ID(), byID.ID())

	bySocket, err := store.GetBySocketID(ctx, "sock1")
	require.NoError(t, err)
	assert.Equal(t, session.ID(), bySocket.ID())

	_, err = store.GetBySocketID(ctx, "unknown")
	assert.Error(t, err)
}

func TestSessionStore_UpdateRefreshesSocketIndex(t *testing.T) {
	store := NewSessionStore(zap.NewNop())
	ctx := context.Background()
	session := newStoredSession(t, store, "user-1", "sock1")

	err := store.Update(ctx, session.ID(), func(s *aggregates.ParaphraseSession) error {
		s.ReconnectSocket("sock2")
		return nil
	})
	require.NoError(t, err)

	_, err = store.GetBySocketID(ctx, "sock1")
	assert.Error(t, err, "old socket binding removed")

	found, err := store.GetBySocketID(ctx, "sock2")
	require.NoError(t, err)
	assert.Equal(t, session.ID(), found.ID())
}

func TestSessionStore_UpdateErrorLeavesIndexAlone(t *testing.T) {
	store := NewSessionStore(zap.NewNop())
	ctx := context.Background()
	session := newStoredSession(t, store, "user-1", "sock1")

	err := store.Update(ctx, session.ID(), func(s *aggregates.ParaphraseSession) error {
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	_, err = store.GetBySocketID(ctx, "sock1")
	assert.NoError(t, err)
}

func TestSessionStore_Delete(t *testing.T) {
	store := NewSessionStore(zap.NewNop())
	ctx := context.Background()
	session := newStoredSession(t, store, "user-1", "sock1")

	require.NoError(t, store.Delete(ctx, session.ID()))

	_, err := store.GetByID(ctx, session.ID())
	assert.Error(t, err)
	_, err = store.GetBySocketID(ctx, "sock1")
	assert.Error(t, err)

	assert.Error(t, store.Delete(ctx, session.ID()), "second delete reports not found")
}

func TestSessionStore_CountPerOwner(t *testing.T) {
	store := NewSessionStore(zap.NewNop())
	ctx := context.Background()
	newStoredSession(t, store, "user-1", "sock1")
	newStoredSession(t, store, "user-1", "sock2")
	newStoredSession(t, store, "user-2", "sock3")

	count, err := store.Count(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	sessions, err := store.GetByOwnerID(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}

func TestSessionStore_DeleteExpired(t *testing.T) {
	store := NewSessionStore(zap.NewNop())
	ctx := context.Background()
	newStoredSession(t, store, "user-1", "sock1")
	newStoredSession(t, store, "user-2", "sock2")

	removed, err := store.DeleteExpired(ctx, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, removed, "fresh sessions survive a past cutoff")

	removed, err = store.DeleteExpired(ctx, time.Now().Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, err = store.GetBySocketID(ctx, "sock1")
	assert.Error(t, err)
}
