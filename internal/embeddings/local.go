package embeddings

import (
	"context"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"nerve/internal/tokenize"
)

const (
	// DefaultDimensions is the width of all-MiniLM-L6-v2 vectors.
	DefaultDimensions = 384

	unigramWeight = 1.0
	bigramWeight  = 0.5
	trigramWeight = 0.25
)

// LocalEmbedder is an in-process model that projects stemmed word unigrams,
// word bigrams and character trigrams into a fixed number of signed buckets
// (the hashing trick). Output is L2-normalised so cosine similarity reduces
// to a dot product. It holds no mutable state after construction.
type LocalEmbedder struct {
	model      string
	dimensions int
	maxTokens  int
}

// NewLocalEmbedder creates a local embedder. Zero values pick defaults.
func NewLocalEmbedder(model string, dimensions, maxTokens int) (*LocalEmbedder, error) {
	if dimensions < 0 {
		return nil, fmt.Errorf("dimensions must be positive, got %d", dimensions)
	}
	if dimensions == 0 {
		dimensions = DefaultDimensions
	}
	if maxTokens <= 0 {
		maxTokens = tokenize.DefaultMaxTokens
	}
	if model == "" {
		model = "local-hash"
	}
	return &LocalEmbedder{model: model, dimensions: dimensions, maxTokens: maxTokens}, nil
}

func (e *LocalEmbedder) Model() string { return e.model }

// Dimensions reports the fixed output width.
func (e *LocalEmbedder) Dimensions() int { return e.dimensions }

// Embed never fails except on a cancelled context. Empty text produces a
// zero vector of full width.
func (e *LocalEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}
	vec := make(Vector, e.dimensions)
	tokens := tokenize.Truncate(tokenize.Terms(text), e.maxTokens)
	for i, tok := range tokens {
		e.add(vec, "w:"+tok, unigramWeight)
		if i > 0 {
			e.add(vec, "b:"+tokens[i-1]+" "+tok, bigramWeight)
		}
		for _, g := range tokenize.Trigrams(tok) {
			e.add(vec, "c:"+g, trigramWeight)
		}
	}
	normalize(vec)
	return vec, nil
}

func (e *LocalEmbedder) add(vec Vector, feature string, weight float32) {
	h := xxhash.Sum64String(feature)
	idx := int(h % uint64(e.dimensions))
	// top bit picks the sign
	if h>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

var _ Embedder = (*LocalEmbedder)(nil)
