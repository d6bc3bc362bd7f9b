package port

import (
	"context"

	"medrag/internal/domain"
)

// Retriever turns a question into ranked evidence passages.
type Retriever interface {
	// RetrieveTopK returns at most k hits in descending similarity.
	RetrieveTopK(ctx context.Context, question string, k int) ([]domain.RetrievalHit, error)
}
