package embeddings

import (
	"context"
	"log/slog"
	"time"

	"nerve/internal/cache"
	"nerve/internal/metrics"
)

// Cached serves repeated inputs from a cache. Cache failures are logged and
// treated as misses.
type Cached struct {
	inner   Embedder
	cache   cache.Cache
	ttl     time.Duration
	log     *slog.Logger
	metrics metrics.Metrics
}

// NewCached wraps inner with c. m may be nil.
func NewCached(inner Embedder, c cache.Cache, ttl time.Duration, log *slog.Logger, m metrics.Metrics) *Cached {
	if m == nil {
		m = metrics.NewNoop()
	}
	return &Cached{inner: inner, cache: c, ttl: ttl, log: log, metrics: m}
}

func (c *Cached) Model() string { return c.inner.Model() }

func (c *Cached) Embed(ctx context.Context, text string) (Vector, error) {
	key := cache.GenerateCacheKey(c.inner.Model(), text)

	cached, err := c.cache.GetEmbedding(ctx, key)
	if err != nil {
		c.log.Warn("embedding cache read failed", "err", err)
	} else if cached != nil {
		c.metrics.ObserveCacheResult(true)
		return Vector(cached), nil
	}
	c.metrics.ObserveCacheResult(false)

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := c.cache.SetEmbedding(ctx, key, vec, c.ttl); err != nil {
		c.log.Warn("embedding cache write failed", "err", err)
	}
	return vec, nil
}

var _ Embedder = (*Cached)(nil)
