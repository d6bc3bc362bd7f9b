package vectorindex

import (
	"context"
	"fmt"
	"sort"

	"medrag/internal/domain"
	"medrag/internal/port"
)

var _ port.VectorIndex = (*FlatIndex)(nil)

// FlatIndex is an exact inner-product index over row-major float32 vectors.
// It is never mutated after construction, so Search needs no locking.
type FlatIndex struct {
	dimension int
	rows      int
	data      []float32
}

// NewFlatIndex builds an index from rows, all of which must share one dimension.
func NewFlatIndex(dimension int, rows [][]float32) (*FlatIndex, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid dimension: %d", dimension)
	}
	data := make([]float32, 0, dimension*len(rows))
	for i, r := range rows {
		if len(r) != dimension {
			return nil, fmt.Errorf("row %d dimension mismatch: expected %d, got %d", i, dimension, len(r))
		}
		data = append(data, r...)
	}
	return &FlatIndex{dimension: dimension, rows: len(rows), data: data}, nil
}

func newFlatIndexFromData(dimension int, data []float32) (*FlatIndex, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid dimension: %d", dimension)
	}
	if len(data)%dimension != 0 {
		return nil, fmt.Errorf("vector data length %d is not a multiple of dimension %d", len(data), dimension)
	}
	return &FlatIndex{dimension: dimension, rows: len(data) / dimension, data: data}, nil
}

// Search finds the k rows with the highest inner product (brute force).
func (f *FlatIndex) Search(ctx context.Context, query []float32, k int) ([]domain.Neighbor, error) {
	if len(query) != f.dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", f.dimension, len(query))
	}
	if k <= 0 || f.rows == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scores := make([]domain.Neighbor, f.rows)
	for row := 0; row < f.rows; row++ {
		vec := f.data[row*f.dimension : (row+1)*f.dimension]
		var dot float32
		for i, q := range query {
			dot += q * vec[i]
		}
		scores[row] = domain.Neighbor{Row: row, Score: dot}
	}

	// Sort by score descending, lower row first on ties
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Row < scores[j].Row
	})

	if k > len(scores) {
		k = len(scores)
	}
	return scores[:k], nil
}

func (f *FlatIndex) Dimension() int {
	return f.dimension
}

func (f *FlatIndex) Len() int {
	return f.rows
}

// Row returns a copy of the stored vector at row.
func (f *FlatIndex) Row(row int) ([]float32, bool) {
	if row < 0 || row >= f.rows {
		return nil, false
	}
	out := make([]float32, f.dimension)
	copy(out, f.data[row*f.dimension:(row+1)*f.dimension])
	return out, true
}
