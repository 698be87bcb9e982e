package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"nerve/internal/app"
	"nerve/internal/embeddings"
	"nerve/internal/httputil"
	"nerve/internal/metrics"
)

const shutdownGrace = 10 * time.Second

type embedRequest struct {
	Text *string `json:"text" validate:"required"`
}

type embedResponse struct {
	Embedding embeddings.Vector `json:"embedding"`
}

type infoResponse struct {
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
	Workers    int    `json:"workers"`
}

func main() {
	if err := run(); err != nil {
		slog.Default().Error("nerve stopped", "err", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.Build(ctx)
	if err != nil {
		return fmt.Errorf("failed to build dependencies: %w", err)
	}
	defer func() {
		if err := deps.Close(); err != nil {
			deps.Log.Warn("failed to close dependencies", "err", err)
		}
	}()

	addr := fmt.Sprintf(":%d", deps.Config.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           newRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		deps.Log.Info("nerve listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		deps.Log.Info("shutting down", "grace", shutdownGrace)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newRouter(deps app.Deps) *chi.Mux {
	// handlers enforce REQUEST_TIMEOUT themselves; the router timeout is a backstop
	r := httputil.NewRouter(deps.Log, deps.Config.RequestTimeout+5*time.Second, deps.Metrics)

	r.Post("/embed", embedHandler(deps))
	r.Get("/info", infoHandler(deps))
	r.Get("/healthz", httputil.HealthHandler(deps.Log))
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics.NewMetricsHandler(deps.Metrics, deps.Log))
	}
	return r
}

func embedHandler(deps app.Deps) http.HandlerFunc {
	maxBytes := deps.Config.MaxRequestBytes
	timeout := deps.Config.RequestTimeout

	return func(w http.ResponseWriter, r *http.Request) {
		if maxBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		}

		var req embedRequest
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.WriteDecodeError(deps.Log, w, err)
			return
		}

		ctx := r.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		vec, err := deps.Embedder.Embed(ctx, *req.Text)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				httputil.Fail(deps.Log, w, "embedding timed out", err, http.StatusServiceUnavailable)
				return
			}
			httputil.Fail(deps.Log, w, "embedding failed", err, http.StatusInternalServerError)
			return
		}
		if deps.Dimensions > 0 && len(vec) != deps.Dimensions {
			err := fmt.Errorf("model %s returned %d dimensions, expected %d", deps.Embedder.Model(), len(vec), deps.Dimensions)
			httputil.Fail(deps.Log, w, "embedding failed", err, http.StatusInternalServerError)
			return
		}

		httputil.WriteJSON(w, http.StatusOK, embedResponse{Embedding: vec})
	}
}

func infoHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, infoResponse{
			Provider:   deps.Config.EmbeddingProvider,
			Model:      deps.Embedder.Model(),
			Dimensions: deps.Dimensions,
			Workers:    deps.Workers,
		})
	}
}
