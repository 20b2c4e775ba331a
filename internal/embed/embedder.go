// Package embed defines the embedding boundary and its providers. Embeddings
// must be deterministic for a given model and input; everything downstream
// (topic matching, the vector index) relies on that.
package embed

import (
	"context"
	"errors"
	"time"
)

// TimeoutEmbedCall bounds a single embedding API call.
const TimeoutEmbedCall = 30 * time.Second

// ErrEmbeddingFailure wraps provider errors so callers can distinguish
// embedding failures from other error classes.
var ErrEmbeddingFailure = errors.New("embedding call failed")

// Embedder converts texts into fixed-length float vectors.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the vector length this embedder produces.
	Dimensions() int
}
