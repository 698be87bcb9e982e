package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"nerve/internal/app"
	"nerve/internal/config"
	"nerve/internal/embeddings"
	"nerve/internal/metrics"
)

const testDims = 4

func newTestDeps(e embeddings.Embedder) app.Deps {
	return app.Deps{
		Embedder:   e,
		Dimensions: testDims,
		Workers:    1,
		Metrics:    metrics.NewMetrics(),
		Config: config.Config{
			EmbeddingProvider: "mock",
			MaxRequestBytes:   1024,
			RequestTimeout:    time.Second,
		},
		Log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestEmbedHandler(t *testing.T) {
	vec := embeddings.Vector{0.1, 0.2, 0.3, 0.4}

	tests := []struct {
		name           string
		requestBody    string
		setup          func(*embeddings.MockEmbedder)
		wantStatusCode int
		checkResponse  func(*testing.T, []byte)
	}{
		{
			name:        "hello world returns embedding",
			requestBody: `{"text": "hello world"}`,
			setup: func(e *embeddings.MockEmbedder) {
				e.On("Embed", mock.Anything, "hello world").Return(vec, nil).Once()
			},
			wantStatusCode: http.StatusOK,
			checkResponse: func(t *testing.T, body []byte) {
				var resp embedResponse
				require.NoError(t, json.Unmarshal(body, &resp))
				assert.Equal(t, vec, resp.Embedding)
			},
		},
		{
			name:        "empty text is valid input",
			requestBody: `{"text": ""}`,
			setup: func(e *embeddings.MockEmbedder) {
				e.On("Embed", mock.Anything, "").Return(embeddings.Vector{0, 0, 0, 0}, nil).Once()
			},
			wantStatusCode: http.StatusOK,
			checkResponse: func(t *testing.T, body []byte) {
				var resp map[string][]float64
				require.NoError(t, json.Unmarshal(body, &resp))
				assert.Len(t, resp["embedding"], testDims)
			},
		},
		{
			name:           "missing text returns 422",
			requestBody:    `{}`,
			wantStatusCode: http.StatusUnprocessableEntity,
			checkResponse: func(t *testing.T, body []byte) {
				assert.Contains(t, string(body), `"loc":["body","text"]`)
				assert.Contains(t, string(body), `"type":"missing"`)
			},
		},
		{
			name:           "numeric text returns 422",
			requestBody:    `{"text": 42}`,
			wantStatusCode: http.StatusUnprocessableEntity,
			checkResponse: func(t *testing.T, body []byte) {
				assert.Contains(t, string(body), `"type":"string_type"`)
			},
		},
		{
			name:           "null text returns 422",
			requestBody:    `{"text": null}`,
			wantStatusCode: http.StatusUnprocessableEntity,
		},
		{
			name:           "empty body returns 422",
			requestBody:    ``,
			wantStatusCode: http.StatusUnprocessableEntity,
		},
		{
			name:           "invalid JSON payload returns 422",
			requestBody:    `{invalid json}`,
			wantStatusCode: http.StatusUnprocessableEntity,
			checkResponse: func(t *testing.T, body []byte) {
				assert.Contains(t, string(body), `"type":"json_invalid"`)
			},
		},
		{
			name:           "data after the JSON object returns 422",
			requestBody:    `{"text":"a"} {"text": 5} garbage`,
			wantStatusCode: http.StatusUnprocessableEntity,
			checkResponse: func(t *testing.T, body []byte) {
				assert.Contains(t, string(body), `"type":"json_invalid"`)
			},
		},
		{
			name:           "oversized body returns 413",
			requestBody:    `{"text": "` + strings.Repeat("a", 2048) + `"}`,
			wantStatusCode: http.StatusRequestEntityTooLarge,
		},
		{
			name:        "model failure returns 500",
			requestBody: `{"text": "boom"}`,
			setup: func(e *embeddings.MockEmbedder) {
				e.On("Embed", mock.Anything, "boom").Return(nil, errors.New("inference crashed")).Once()
			},
			wantStatusCode: http.StatusInternalServerError,
			checkResponse: func(t *testing.T, body []byte) {
				assert.JSONEq(t, `{"detail":"embedding failed"}`, string(body))
			},
		},
		{
			name:        "wrong width returns 500",
			requestBody: `{"text": "short"}`,
			setup: func(e *embeddings.MockEmbedder) {
				e.On("Embed", mock.Anything, "short").Return(embeddings.Vector{1, 2}, nil).Once()
				e.On("Model").Return("mock").Once()
			},
			wantStatusCode: http.StatusInternalServerError,
		},
		{
			name:        "timeout returns 503",
			requestBody: `{"text": "slow"}`,
			setup: func(e *embeddings.MockEmbedder) {
				e.On("Embed", mock.Anything, "slow").Return(nil, context.DeadlineExceeded).Once()
			},
			wantStatusCode: http.StatusServiceUnavailable,
			checkResponse: func(t *testing.T, body []byte) {
				assert.JSONEq(t, `{"detail":"embedding timed out"}`, string(body))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockEmbedder := new(embeddings.MockEmbedder)
			if tt.setup != nil {
				tt.setup(mockEmbedder)
			}

			handler := embedHandler(newTestDeps(mockEmbedder))

			req := httptest.NewRequest(http.MethodPost, "/embed", bytes.NewBufferString(tt.requestBody))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			handler(w, req)

			if w.Code != tt.wantStatusCode {
				t.Errorf("Expected status %d, got %d. Body: %s", tt.wantStatusCode, w.Code, w.Body.String())
			}
			if tt.checkResponse != nil {
				tt.checkResponse(t, w.Body.Bytes())
			}

			// validation failures must never reach the model
			mockEmbedder.AssertExpectations(t)
		})
	}
}

func newLocalDeps(t *testing.T) app.Deps {
	t.Helper()
	cfg := config.Config{
		EmbeddingProvider: "local",
		EmbeddingModel:    "all-MiniLM-L6-v2",
		MaxTokens:         256,
		MaxRequestBytes:   1 << 20,
		RequestTimeout:    5 * time.Second,
		Workers:           2,
		WarmupAttempts:    1,
		CacheProvider:     "none",
	}
	deps, err := app.BuildWith(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), metrics.NewMetrics())
	require.NoError(t, err)
	return deps
}

func postEmbed(t *testing.T, srv *httptest.Server, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/embed", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestRouterWithLocalModel(t *testing.T) {
	deps := newLocalDeps(t)
	srv := httptest.NewServer(newRouter(deps))
	defer srv.Close()

	t.Run("fixed width and idempotent", func(t *testing.T) {
		resp, first := postEmbed(t, srv, `{"text": "hello world"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		_, second := postEmbed(t, srv, `{"text": "hello world"}`)

		var a, b embedResponse
		require.NoError(t, json.Unmarshal(first, &a))
		require.NoError(t, json.Unmarshal(second, &b))
		assert.Len(t, a.Embedding, embeddings.DefaultDimensions)
		assert.Equal(t, a.Embedding, b.Embedding)
	})

	t.Run("empty text keeps the width", func(t *testing.T) {
		resp, body := postEmbed(t, srv, `{"text": ""}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var out embedResponse
		require.NoError(t, json.Unmarshal(body, &out))
		assert.Len(t, out.Embedding, embeddings.DefaultDimensions)
	})

	t.Run("large text within the limit is truncated not rejected", func(t *testing.T) {
		resp, body := postEmbed(t, srv, `{"text": "`+strings.Repeat("word ", 100000)+`"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var out embedResponse
		require.NoError(t, json.Unmarshal(body, &out))
		assert.Len(t, out.Embedding, embeddings.DefaultDimensions)
	})

	t.Run("GET on embed is not allowed", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/embed")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})

	t.Run("info reports the loaded model", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/info")
		require.NoError(t, err)
		defer resp.Body.Close()
		var info infoResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
		assert.Equal(t, infoResponse{Provider: "local", Model: "all-MiniLM-L6-v2", Dimensions: embeddings.DefaultDimensions, Workers: 2}, info)
	})

	t.Run("healthz", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/healthz")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("metrics count embed requests", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		assert.Contains(t, string(body), `nerve_http_requests_total{method="POST",route="/embed",status="200"}`)
		assert.Contains(t, string(body), `nerve_embed_duration_seconds_count{model="all-MiniLM-L6-v2"}`)
	})
}
