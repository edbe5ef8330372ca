// Package upstream talks to the remote NLP service: submitting runs
// over HTTP and consuming their streamed results over a socket.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"phrasely-backend/application/ports"
	"phrasely-backend/domain/core/valueobjects"
	pkgerrors "phrasely-backend/pkg/errors"
)

// ClientConfig holds upstream HTTP client configuration
type ClientConfig struct {
	BaseURL     string
	Timeout     time.Duration
	Model       string
	MaxRequests uint32
	Interval    time.Duration
	BreakerWait time.Duration
}

// Client implements ports.UpstreamGateway over HTTP. All calls go
// through a circuit breaker so a dead upstream fails fast instead of
// tying up request handlers.
type Client struct {
	httpClient *http.Client
	baseURL    string
	model      string
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

// NewClient creates a new upstream client
func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "upstream-nlp",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.BreakerWait,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		breaker:    breaker,
		logger:     logger,
	}
}

var _ ports.UpstreamGateway = (*Client)(nil)

// submitPayload is the run initiation request body
type submitPayload struct {
	Text     string `json:"text"`
	Freeze   string `json:"freeze"`
	Language string `json:"language"`
	Mode     string `json:"mode"`
	Synonym  string `json:"synonym"`
	SocketID string `json:"socketId"`
	EventID  string `json:"eventId"`
}

// retagPayload is the per-sentence re-tag request body
type retagPayload struct {
	Sentence string `json:"sentence"`
	SocketID string `json:"socketId"`
	Index    int    `json:"index"`
	Language string `json:"language"`
	EventID  string `json:"eventId"`
}

// StartParaphrase submits text for a full streaming run. Results come
// back asynchronously on the socket channels, keyed by the event id.
func (c *Client) StartParaphrase(ctx context.Context, req ports.UpstreamRequest) error {
	payload := submitPayload{
		Text:     req.Text,
		Freeze:   strings.Join(req.FreezeWords, ","),
		Language: req.Language.String(),
		Mode:     req.Mode,
		Synonym:  req.SynonymLevel,
		SocketID: socketIDOf(req.CorrelationID.String()),
		EventID:  req.CorrelationID.String(),
	}

	c.logger.Debug("Submitting paraphrase run",
		zap.String("eventID", payload.EventID),
		zap.String("language", payload.Language),
		zap.String("mode", payload.Mode),
	)
	return c.post(ctx, "/paraphrase", payload)
}

// RequestRetag asks for fresh tagging and synonyms for one sentence
func (c *Client) RequestRetag(ctx context.Context, req ports.RetagRequest) error {
	payload := retagPayload{
		Sentence: req.Sentence,
		SocketID: socketIDOf(req.CorrelationID.String()),
		Index:    req.SentenceIndex,
		Language: req.Language.String(),
		EventID:  req.CorrelationID.String(),
	}

	c.logger.Debug("Submitting re-tag request",
		zap.String("eventID", payload.EventID),
		zap.Int("index", payload.Index),
	)
	return c.post(ctx, "/retag", payload)
}

// RephraseRequest describes one direct streamed rephrase call
type RephraseRequest struct {
	Text         string `json:"text"`
	Mode         string `json:"mode"`
	SynonymLevel string `json:"synonymLevel"`
	Model        string `json:"model"`
	Language     string `json:"language"`
	FreezeWord   string `json:"freezeWord"`
}

// StreamRephrase calls the chunked rephrase endpoint and emits each
// complete sentence as it arrives. The trailing partial sentence, if
// any, is emitted after EOF.
func (c *Client) StreamRephrase(ctx context.Context, req RephraseRequest, emit func(sentence string) error) error {
	if req.Model == "" {
		req.Model = c.model
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal rephrase request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rephrase", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build rephrase request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, fmt.Errorf("upstream returned %d", resp.StatusCode)
		}
		return resp, nil
	})
	if err != nil {
		return c.wrapBreakerError(err)
	}

	resp := result.(*http.Response)
	defer resp.Body.Close()

	parser := NewStreamParser(valueobjects.ParseLanguage(req.Language))
	buf := make([]byte, 4096)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			for _, sentence := range parser.Feed(string(buf[:n])) {
				if err := emit(sentence); err != nil {
					return err
				}
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("rephrase stream read failed: %w", readErr)
		}
	}

	if remainder := parser.Flush(); remainder != "" {
		return emit(remainder)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal upstream payload: %w", err)
	}

	_, err = c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("upstream returned %d for %s", resp.StatusCode, path)
		}
		return nil, nil
	})
	if err != nil {
		return c.wrapBreakerError(err)
	}
	return nil
}

func (c *Client) wrapBreakerError(err error) error {
	switch err {
	case gobreaker.ErrOpenState, gobreaker.ErrTooManyRequests:
		return pkgerrors.NewExternalError("upstream service unavailable", err)
	default:
		return pkgerrors.NewExternalError("upstream request failed", err)
	}
}

// socketIDOf recovers the socket connection id from a correlation id,
// which is minted as "<socketID>-<nonce>".
func socketIDOf(correlationID string) string {
	if i := strings.LastIndex(correlationID, "-"); i > 0 {
		return correlationID[:i]
	}
	return correlationID
}
