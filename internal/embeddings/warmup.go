package embeddings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nerve/internal/retry"
)

const warmupProbe = "warmup"

// Warmup embeds a probe text to prove the model is usable and reports its
// output width. When expected is positive a different width is an error.
func Warmup(ctx context.Context, e Embedder, attempts int, expected int) (int, error) {
	var dims int
	err := retry.Do(ctx, attempts, 500*time.Millisecond, func(ctx context.Context) error {
		vec, err := e.Embed(ctx, warmupProbe)
		if errors.Is(err, ErrRejected) {
			return retry.Permanent(err)
		}
		if err != nil {
			return err
		}
		if len(vec) == 0 {
			return retry.Permanent(fmt.Errorf("%w: model %s returned an empty vector", ErrEmbedding, e.Model()))
		}
		if expected > 0 && len(vec) != expected {
			return retry.Permanent(fmt.Errorf("model %s returned %d dimensions, expected %d", e.Model(), len(vec), expected))
		}
		dims = len(vec)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("warm up %s: %w", e.Model(), err)
	}
	return dims, nil
}
