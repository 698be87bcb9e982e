package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"nerve/internal/retry"
)

// ErrRetriesExhausted is returned when every attempt failed with a retryable error.
var ErrRetriesExhausted = errors.New("embedding service unavailable")

// APIError is a non-2xx reply from the service.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("nerve returned %d: %s", e.Status, e.Detail)
}

// Temporary reports whether retrying could help.
func (e *APIError) Temporary() bool {
	return e.Status >= http.StatusInternalServerError || e.Status == http.StatusTooManyRequests
}

// Options configures a Client. Zero values pick defaults.
type Options struct {
	Timeout     time.Duration
	Attempts    int
	BaseBackoff time.Duration
	HTTPClient  *http.Client
}

// Client talks to a running nerve service.
type Client struct {
	baseURL     string
	http        *http.Client
	attempts    int
	baseBackoff time.Duration
}

type embedRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// New creates a client for the service at baseURL (e.g. http://localhost:8080).
func New(baseURL string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = 200 * time.Millisecond
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		http:        hc,
		attempts:    opts.Attempts,
		baseBackoff: opts.BaseBackoff,
	}
}

// Embed returns the embedding of text. Transport errors and 5xx replies are
// retried with exponential backoff; 4xx replies are returned immediately.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var vec []float32
	err = retry.Do(ctx, c.attempts, c.baseBackoff, func(ctx context.Context) error {
		var callErr error
		vec, callErr = c.post(ctx, body)
		var apiErr *APIError
		if errors.As(callErr, &apiErr) && !apiErr.Temporary() {
			return retry.Permanent(callErr)
		}
		return callErr
	})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Temporary() {
			return nil, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrRetriesExhausted, err)
	}
	return vec, nil
}

func (c *Client) post(ctx context.Context, body []byte) ([]float32, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nerve offline: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{Status: resp.StatusCode, Detail: strings.TrimSpace(string(msg))}
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode nerve response: %w", err)
	}
	return out.Embedding, nil
}
