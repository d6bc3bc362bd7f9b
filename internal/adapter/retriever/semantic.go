package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"medrag/internal/domain"
	"medrag/internal/logger"
	"medrag/internal/port"
)

var _ port.Retriever = (*SemanticRetriever)(nil)

// SemanticRetriever embeds a question once and maps the nearest index rows
// back to corpus documents. Index and corpus are shared read-only.
type SemanticRetriever struct {
	index    port.VectorIndex
	embedder port.Embedder
	corpus   port.CorpusStore
}

func NewSemanticRetriever(
	index port.VectorIndex,
	embedder port.Embedder,
	corpus port.CorpusStore,
) *SemanticRetriever {
	return &SemanticRetriever{
		index:    index,
		embedder: embedder,
		corpus:   corpus,
	}
}

// RetrieveTopK returns at most k hits in the order the index produced them.
// k == 0 returns nothing without calling the embedder.
func (r *SemanticRetriever) RetrieveTopK(ctx context.Context, question string, k int) ([]domain.RetrievalHit, error) {
	if k < 0 {
		return nil, fmt.Errorf("%w: k must not be negative, got %d", domain.ErrValidation, k)
	}
	if k == 0 {
		return []domain.RetrievalHit{}, nil
	}

	log := logger.FromContext(ctx)

	vec, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingProvider, err)
	}
	if len(vec) != r.index.Dimension() {
		return nil, fmt.Errorf("%w: embedding has dimension %d, index expects %d",
			domain.ErrEmbeddingProvider, len(vec), r.index.Dimension())
	}

	unit, err := Normalize(vec)
	if err != nil {
		return nil, err
	}

	neighbors, err := r.index.Search(ctx, unit, k)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	hits := make([]domain.RetrievalHit, 0, len(neighbors))
	for _, n := range neighbors {
		doc, ok := r.corpus.Get(n.Row)
		if !ok {
			log.Error("index row outside corpus, index and corpus files are out of sync",
				slog.Int("row", n.Row),
				slog.Int("corpus_len", r.corpus.Len()))
			return nil, fmt.Errorf("%w: row %d outside corpus of %d documents",
				domain.ErrCorpusIndex, n.Row, r.corpus.Len())
		}
		hits = append(hits, domain.RetrievalHit{
			Score: float64(n.Score),
			Title: doc.Title,
			Text:  doc.Text,
			URL:   doc.URL,
		})
	}

	log.Debug("retrieved", slog.Int("k", k), slog.Int("hits", len(hits)))
	return hits, nil
}

// Normalize returns a unit-L2 copy of v. A zero or non-finite norm is an
// ErrInvalidEmbedding.
func Normalize(v []float32) ([]float32, error) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, fmt.Errorf("%w: embedding norm is %v", domain.ErrInvalidEmbedding, norm)
	}

	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out, nil
}
