package embeddings

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/semaphore"

	"nerve/internal/metrics"
)

// Pool bounds how many embeddings are computed at once. Callers over the
// limit wait for a slot until their context ends.
type Pool struct {
	inner   Embedder
	sem     *semaphore.Weighted
	size    int
	metrics metrics.Metrics
}

// NewPool wraps inner with size worker slots. A non-positive size uses the
// number of CPUs. m may be nil.
func NewPool(inner Embedder, size int, m metrics.Metrics) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	if m == nil {
		m = metrics.NewNoop()
	}
	return &Pool{
		inner:   inner,
		sem:     semaphore.NewWeighted(int64(size)),
		size:    size,
		metrics: m,
	}
}

func (p *Pool) Model() string { return p.inner.Model() }

// Size reports the number of worker slots.
func (p *Pool) Size() int { return p.size }

func (p *Pool) Embed(ctx context.Context, text string) (Vector, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for embedding worker: %w", err)
	}
	defer p.sem.Release(1)

	p.metrics.IncrementEmbedInflight()
	defer p.metrics.DecrementEmbedInflight()

	start := time.Now()
	vec, err := p.inner.Embed(ctx, text)
	if err != nil {
		p.metrics.ObserveEmbedError(p.inner.Model())
		return nil, err
	}
	p.metrics.ObserveEmbedDuration(p.inner.Model(), time.Since(start).Seconds())
	return vec, nil
}

var _ Embedder = (*Pool)(nil)
