// Package integration exercises the full request path: REST surface,
// command and query buses, the stream assembler and the in-memory
// session store, with only the upstream NLP service stubbed out.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phrasely-backend/application/services"
	"phrasely-backend/domain/core/valueobjects"
	"phrasely-backend/infrastructure/config"
	"phrasely-backend/infrastructure/di"
)

type testEnv struct {
	server    *httptest.Server
	container *di.Container
	submits   *atomic.Int64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	var submits atomic.Int64
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/paraphrase" {
			submits.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(upstream.Close)

	t.Setenv("UPSTREAM_BASE_URL", upstream.URL)
	t.Setenv("UPSTREAM_SOCKET_URL", "ws://localhost:0/stream")
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("ENABLE_TRACING", "false")
	t.Setenv("SUBMITS_PER_MINUTE", "100")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	container, err := di.InitializeContainer(cfg)
	require.NoError(t, err)

	api := httptest.NewServer(container.Router.Setup())
	t.Cleanup(api.Close)

	return &testEnv{server: api, container: container, submits: &submits}
}

func (e *testEnv) request(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-1")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// decode unwraps the API response envelope into target
func decode(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.True(t, envelope.Success)
	require.NoError(t, json.Unmarshal(envelope.Data, target))
}

func TestParaphraseFlow(t *testing.T) {
	env := newTestEnv(t)

	// Open a session.
	resp := env.request(t, http.MethodPost, "/api/v1/sessions", map[string]string{"socketId": "sock1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		SessionID string `json:"sessionId"`
		Status    string `json:"status"`
	}
	decode(t, resp, &created)
	require.NotEmpty(t, created.SessionID)
	assert.Equal(t, "idle", created.Status)

	// Submit text for paraphrasing; the stubbed upstream accepts it.
	resp = env.request(t, http.MethodPost, "/api/v1/sessions/"+created.SessionID+"/paraphrase", map[string]interface{}{
		"text": "The committee reviewed the proposal.",
		"mode": "standard",
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var submitted struct {
		CorrelationID string `json:"correlationId"`
		Status        string `json:"status"`
	}
	decode(t, resp, &submitted)
	require.NotEmpty(t, submitted.CorrelationID)
	assert.Equal(t, "streaming", submitted.Status)
	assert.Equal(t, int64(1), env.submits.Load())

	// Simulate the upstream result channels arriving.
	sessionID, err := valueobjects.NewSessionIDFromString(created.SessionID)
	require.NoError(t, err)
	correlationID, err := valueobjects.NewCorrelationIDFromString(submitted.CorrelationID)
	require.NoError(t, err)

	ctx := context.Background()
	assembler := env.container.Assembler
	require.NoError(t, assembler.HandlePlainChunk(ctx, services.PlainChunk{
		SessionID:     sessionID,
		CorrelationID: correlationID,
		Text:          "The committee examined the proposal.",
	}))
	require.NoError(t, assembler.HandlePlainDone(ctx, sessionID, correlationID))
	require.NoError(t, assembler.HandleTaggingDone(ctx, sessionID, correlationID))
	require.NoError(t, assembler.HandleSynonymsDone(ctx, sessionID, correlationID))

	// The document read reflects the streamed result.
	resp = env.request(t, http.MethodGet, "/api/v1/sessions/"+created.SessionID+"/document", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var document struct {
		PlainText string `json:"plainText"`
		Revision  int    `json:"revision"`
	}
	decode(t, resp, &document)
	assert.Equal(t, "The committee examined the proposal.", document.PlainText)

	// Status shows the completed run.
	resp = env.request(t, http.MethodGet, "/api/v1/sessions/"+created.SessionID+"/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var status struct {
		Status string `json:"status"`
	}
	decode(t, resp, &status)
	assert.Equal(t, "completed", status.Status)

	// Replace a single word and read it back.
	resp = env.request(t, http.MethodPost, "/api/v1/sessions/"+created.SessionID+"/words", map[string]interface{}{
		"sentenceIndex": 0,
		"wordIndex":     2,
		"replacement":   "evaluated",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = env.request(t, http.MethodGet, "/api/v1/sessions/"+created.SessionID+"/document", nil)
	decode(t, resp, &document)
	assert.Equal(t, "The committee evaluated the proposal.", document.PlainText)
}

func TestParaphraseFlow_MissingIdentityRejected(t *testing.T) {
	env := newTestEnv(t)

	body := bytes.NewReader([]byte(`{"socketId":"sock1"}`))
	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/api/v1/sessions", body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestParaphraseFlow_ResubmitSupersedesRun(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodPost, "/api/v1/sessions", map[string]string{"socketId": "sock1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		SessionID string `json:"sessionId"`
	}
	decode(t, resp, &created)

	submit := func() string {
		resp := env.request(t, http.MethodPost, "/api/v1/sessions/"+created.SessionID+"/paraphrase", map[string]interface{}{
			"text": "Original input text.",
		})
		require.Equal(t, http.StatusAccepted, resp.StatusCode)
		var submitted struct {
			CorrelationID string `json:"correlationId"`
		}
		decode(t, resp, &submitted)
		return submitted.CorrelationID
	}

	first := submit()
	second := submit()
	require.NotEqual(t, first, second)

	sessionID, err := valueobjects.NewSessionIDFromString(created.SessionID)
	require.NoError(t, err)
	staleID, err := valueobjects.NewCorrelationIDFromString(first)
	require.NoError(t, err)

	// A chunk from the superseded run must not touch the document.
	require.NoError(t, env.container.Assembler.HandlePlainChunk(context.Background(), services.PlainChunk{
		SessionID:     sessionID,
		CorrelationID: staleID,
		Text:          "Stale text that must be dropped.",
	}))

	resp = env.request(t, http.MethodGet, "/api/v1/sessions/"+created.SessionID+"/document", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var document struct {
		PlainText string `json:"plainText"`
	}
	decode(t, resp, &document)
	assert.Empty(t, document.PlainText)
}
