package port

import "medrag/internal/domain"

// CorpusStore is the immutable, positionally addressed document collection
// whose order matches the vector index rows.
type CorpusStore interface {
	// Get returns the document at row. ok is false when row is out of bounds.
	Get(row int) (doc domain.Document, ok bool)

	Len() int
}
