package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache stores computed embeddings keyed by model and input text.
type Cache interface {
	// GetEmbedding retrieves a cached vector by key.
	// Returns nil, nil on a miss.
	GetEmbedding(ctx context.Context, key string) ([]float32, error)

	// SetEmbedding stores a vector with TTL
	SetEmbedding(ctx context.Context, key string, vec []float32, ttl time.Duration) error

	// Close closes the cache connection
	Close() error
}

// GenerateCacheKey derives the key for text under model from a SHA-256
// digest of the text.
func GenerateCacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return model + ":" + hex.EncodeToString(sum[:])
}
