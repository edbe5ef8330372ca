package aggregates

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phrasely-backend/domain/config"
	"phrasely-backend/domain/core/valueobjects"
	"phrasely-backend/domain/events"
)

func newTestSession(t *testing.T) *ParaphraseSession {
	t.Helper()
	session, err := NewParaphraseSession("user-1", "sock1", config.DefaultDomainConfig())
	require.NoError(t, err)
	return session
}

func TestNewParaphraseSession_RequiresOwnerAndSocket(t *testing.T) {
	_, err := NewParaphraseSession("", "sock1", nil)
	assert.Error(t, err)

	_, err = NewParaphraseSession("user-1", "", nil)
	assert.Error(t, err)
}

func TestBeginRun_MintsSocketPrefixedCorrelationID(t *testing.T) {
	session := newTestSession(t)

	id, err := session.BeginRun("Some text.", valueobjects.LanguageEnglish, "standard", "medium", nil)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(id.String(), "sock1-"))
	assert.Equal(t, StatusStreaming, session.Status())
	assert.True(t, session.Accepts(id))
}

func TestBeginRun_SupersedesInFlightRun(t *testing.T) {
	session := newTestSession(t)

	oldID, err := session.BeginRun("First text.", valueobjects.LanguageEnglish, "standard", "medium", nil)
	require.NoError(t, err)
	session.DomainEvents() // drain

	newID, err := session.BeginRun("Second text.", valueobjects.LanguageEnglish, "standard", "medium", nil)
	require.NoError(t, err)

	assert.False(t, session.Accepts(oldID), "superseded id must go stale")
	assert.True(t, session.Accepts(newID))

	raised := session.DomainEvents()
	var superseded bool
	for _, evt := range raised {
		if _, ok := evt.(events.RunSuperseded); ok {
			superseded = true
		}
	}
	assert.True(t, superseded, "resubmission while streaming raises RunSuperseded")
}

func TestBeginRun_ResetsDocument(t *testing.T) {
	session := newTestSession(t)

	_, err := session.BeginRun("First.", valueobjects.LanguageEnglish, "standard", "medium", nil)
	require.NoError(t, err)
	session.Document().AppendSegment(sentence(t, "streamed", "text"))
	require.Equal(t, 1, session.Document().SentenceCount())

	_, err = session.BeginRun("Second.", valueobjects.LanguageEnglish, "standard", "medium", nil)
	require.NoError(t, err)

	assert.Equal(t, 0, session.Document().SentenceCount())
}

func TestBeginRun_Validation(t *testing.T) {
	session := newTestSession(t)

	_, err := session.BeginRun("   ", valueobjects.LanguageEnglish, "standard", "medium", nil)
	assert.Error(t, err, "blank input rejected")

	tooMany := make([]string, 51)
	for i := range tooMany {
		tooMany[i] = "word"
	}
	_, err = session.BeginRun("Some text.", valueobjects.LanguageEnglish, "standard", "medium", tooMany)
	assert.Error(t, err, "freeze word limit enforced")
}

func TestReconnectSocket_InvalidatesLiveRun(t *testing.T) {
	session := newTestSession(t)

	id, err := session.BeginRun("Some text.", valueobjects.LanguageEnglish, "standard", "medium", nil)
	require.NoError(t, err)

	session.ReconnectSocket("sock2")

	assert.False(t, session.Accepts(id))
	assert.Equal(t, StatusIdle, session.Status())
	assert.Equal(t, "sock2", session.SocketID())
	assert.Nil(t, session.Run())
}

func TestBeginRetag_FreshIDKeepsDocument(t *testing.T) {
	session := newTestSession(t)

	oldID, err := session.BeginRun("Some text.", valueobjects.LanguageEnglish, "standard", "medium", nil)
	require.NoError(t, err)
	session.Document().AppendSegment(sentence(t, "kept", "text"))
	require.True(t, session.Run().MarkTagged(0))

	retagID, err := session.BeginRetag()
	require.NoError(t, err)

	assert.False(t, session.Accepts(oldID))
	assert.True(t, session.Accepts(retagID))
	assert.Equal(t, 1, session.Document().SentenceCount(), "document survives re-tag")
	assert.Equal(t, StatusEnriching, session.Status())

	// The processed sets died with the old run, so the same index can
	// be re-applied under the new id.
	assert.True(t, session.Run().MarkTagged(0))
}

func TestBeginRetag_WithoutRun(t *testing.T) {
	session := newTestSession(t)
	_, err := session.BeginRetag()
	assert.Error(t, err)
}

func TestStreamingRun_DuplicateIndexSuppression(t *testing.T) {
	session := newTestSession(t)
	_, err := session.BeginRun("Some text.", valueobjects.LanguageEnglish, "standard", "medium", nil)
	require.NoError(t, err)
	run := session.Run()

	assert.True(t, run.MarkTagged(0))
	assert.False(t, run.MarkTagged(0), "second delivery of the same index is a duplicate")
	assert.True(t, run.MarkSynonyms(0), "channels track indices independently")
	assert.False(t, run.MarkSynonyms(0))

	run.UnmarkTagged(0)
	assert.True(t, run.MarkTagged(0), "unmarked index is applicable again")
}

func TestMarkCompleted_RaisesRunCompleted(t *testing.T) {
	session := newTestSession(t)
	_, err := session.BeginRun("Some text.", valueobjects.LanguageEnglish, "standard", "medium", nil)
	require.NoError(t, err)
	session.DomainEvents()

	session.MarkCompleted()

	raised := session.DomainEvents()
	require.Len(t, raised, 1)
	assert.Equal(t, "run.completed", raised[0].GetEventType())
	assert.Equal(t, StatusCompleted, session.Status())
}

func TestMarkFailed_KeepsDocument(t *testing.T) {
	session := newTestSession(t)
	_, err := session.BeginRun("Some text.", valueobjects.LanguageEnglish, "standard", "medium", nil)
	require.NoError(t, err)
	session.Document().AppendSegment(sentence(t, "partial", "text"))

	session.MarkFailed("upstream error")

	assert.Equal(t, StatusFailed, session.Status())
	assert.Equal(t, 1, session.Document().SentenceCount(), "visible text stays after failure")
}
