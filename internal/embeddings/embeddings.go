package embeddings

import (
	"context"
	"errors"
	"math"
)

// ErrEmbedding wraps every failure reported by a model provider.
var ErrEmbedding = errors.New("embedding failed")

// ErrRejected marks provider replies that retrying cannot fix, such as a bad
// API key or an unknown model.
var ErrRejected = errors.New("request rejected by provider")

// rejected reports whether an HTTP status from a provider is a client error
// other than rate limiting.
func rejected(status int) bool {
	return status >= 400 && status < 500 && status != 429
}

// Vector is a simple float32 slice wrapper.
type Vector []float32

// Embedder defines the embedding interface.
// Implementations must be safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) (Vector, error)
	Model() string
}

// CosineSimilarity returns the cosine of the angle between a and b.
// Vectors of different length, empty vectors and zero vectors yield 0.
func CosineSimilarity(a, b Vector) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

func normalize(v Vector) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
}
