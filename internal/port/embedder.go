package port

import (
	"context"

	"medrag/internal/domain"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed returns one vector for the text. One call is one provider round-trip.
	Embed(ctx context.Context, text string) ([]float32, error)

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// VectorIndex is an immutable nearest-neighbor index over unit vectors.
// Implementations must be safe for concurrent Search calls.
type VectorIndex interface {
	// Search returns at most k neighbors of query by inner product, best first.
	// Fewer than k results are returned when the index holds fewer rows.
	Search(ctx context.Context, query []float32, k int) ([]domain.Neighbor, error)

	// Dimension returns the vector dimension of every row.
	Dimension() int

	// Len returns the number of rows.
	Len() int
}
