// Package mock provides a deterministic embedder for tests and for
// running the brand memory stack without a model. Identical texts always
// produce identical vectors, so semantic search behaves repeatably even
// though the "similarity" carries no real meaning.
package mock

import (
	"context"
	"hash/fnv"
	"math"
)

// DefaultDimensions matches all-MiniLM-L6-v2 so mock vectors are
// drop-in compatible with the ONNX embedder.
const DefaultDimensions = 384

// Embedder produces hash-derived unit vectors.
type Embedder struct {
	dimensions int
}

// New creates a mock embedder with DefaultDimensions.
func New() *Embedder {
	return NewWithDimensions(DefaultDimensions)
}

// NewWithDimensions creates a mock embedder with a custom vector size.
func NewWithDimensions(dims int) *Embedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &Embedder{dimensions: dims}
}

// Embed derives a deterministic unit vector from the text. The FNV hash
// of the text seeds an LCG that fills the vector, so equal inputs give
// equal outputs and distinct inputs give effectively uncorrelated ones.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	h.Write([]byte(text))

	vec := make([]float32, e.dimensions)
	state := h.Sum64()
	for i := range vec {
		state = state*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(state)) / float32(math.MaxInt64)
	}

	normalize(vec)
	return vec, nil
}

// Dimensions returns the embedding vector size.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

// normalize scales vec to unit length in place. Zero vectors are left
// untouched.
func normalize(vec []float32) {
	var sum float32
	for _, v := range vec {
		sum += v * v
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(float64(sum)))
	for i := range vec {
		vec[i] /= norm
	}
}
