package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"nerve/internal/cache"
	"nerve/internal/config"
	"nerve/internal/embeddings"
	"nerve/internal/logger"
	"nerve/internal/metrics"
)

// Deps bundles the runtime dependencies of the embedding service.
// The model behind Embedder is loaded once and shared read-only.
type Deps struct {
	Config     config.Config
	Log        *slog.Logger
	Metrics    metrics.Metrics
	Cache      cache.Cache
	Embedder   embeddings.Embedder
	Dimensions int
	Workers    int
}

// Close releases resources held by the dependencies.
func (d Deps) Close() error {
	if d.Cache == nil {
		return nil
	}
	return d.Cache.Close()
}

// Build loads env, config and the model. It fails if the model cannot be
// warmed up, so callers never serve with a broken provider.
func Build(ctx context.Context) (Deps, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Deps{}, fmt.Errorf("failed to load .env file: %w", err)
	}
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)
	return BuildWith(ctx, cfg, log, metrics.NewMetrics())
}

// BuildWith assembles Deps from an explicit configuration.
func BuildWith(ctx context.Context, cfg config.Config, log *slog.Logger, m metrics.Metrics) (Deps, error) {
	base, err := buildEmbedder(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	dims, err := embeddings.Warmup(ctx, base, cfg.WarmupAttempts, cfg.EmbeddingDimensions)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to load model: %w", err)
	}
	log.Info("model ready", "provider", cfg.EmbeddingProvider, "model", base.Model(), "dimensions", dims)

	c, err := buildCache(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize cache: %w", err)
	}

	pool := embeddings.NewPool(base, cfg.Workers, m)
	log.Info("embedding workers", "size", pool.Size())

	var embedder embeddings.Embedder = pool
	if _, noop := c.(*cache.NoOpCache); !noop {
		embedder = embeddings.NewCached(pool, c, cfg.CacheTTL, log, m)
	}

	return Deps{
		Config:     cfg,
		Log:        log,
		Metrics:    m,
		Cache:      c,
		Embedder:   embedder,
		Dimensions: dims,
		Workers:    pool.Size(),
	}, nil
}

// Default model per provider when EMBEDDING_MODEL is unset.
const (
	defaultLocalModel  = "all-MiniLM-L6-v2"
	defaultOpenAIModel = openai.EmbeddingModelTextEmbedding3Small
	defaultOllamaModel = "all-minilm"
)

// modelFor resolves the model name for the configured provider.
func modelFor(cfg config.Config) string {
	if cfg.EmbeddingModel != "" {
		return cfg.EmbeddingModel
	}
	switch cfg.EmbeddingProvider {
	case "local":
		return defaultLocalModel
	case "openai":
		return string(defaultOpenAIModel)
	case "ollama":
		return defaultOllamaModel
	}
	return ""
}

func buildEmbedder(cfg config.Config, log *slog.Logger) (embeddings.Embedder, error) {
	model := modelFor(cfg)
	switch cfg.EmbeddingProvider {
	case "local":
		e, err := embeddings.NewLocalEmbedder(model, cfg.EmbeddingDimensions, cfg.MaxTokens)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize local model: %w", err)
		}
		log.Info("using local embedder", "model", e.Model(), "dimensions", e.Dimensions(), "max_tokens", cfg.MaxTokens)
		return e, nil
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when EMBEDDING_PROVIDER=openai")
		}
		var opts []option.RequestOption
		if cfg.OpenAIBaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.OpenAIBaseURL))
		}
		e, err := embeddings.NewOpenAIEmbedder(cfg.OpenAIKey, openai.EmbeddingModel(model), cfg.EmbeddingDimensions, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI embedder: %w", err)
		}
		log.Info("using OpenAI embedder", "model", e.Model())
		return e, nil
	case "ollama":
		e, err := embeddings.NewOllamaEmbedder(cfg.OllamaURL, model)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Ollama embedder: %w", err)
		}
		log.Info("using Ollama embedder", "model", e.Model(), "url", cfg.OllamaURL)
		return e, nil
	default:
		return nil, fmt.Errorf("invalid EMBEDDING_PROVIDER: %s (valid options: local, openai, ollama)", cfg.EmbeddingProvider)
	}
}

func buildCache(cfg config.Config, log *slog.Logger) (cache.Cache, error) {
	switch cfg.CacheProvider {
	case "", "none":
		return cache.NewNoOpCache(), nil
	case "redis":
		c, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			// the cache is optional; serve uncached
			log.Warn("redis unavailable, continuing without cache", "addr", cfg.RedisAddr, "err", err)
			return cache.NewNoOpCache(), nil
		}
		log.Info("using Redis embedding cache", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
		return c, nil
	default:
		return nil, fmt.Errorf("invalid CACHE_PROVIDER: %s (valid options: none, redis)", cfg.CacheProvider)
	}
}
