package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"

	"medrag/internal/port"
)

var _ port.Embedder = (*MockEmbedder)(nil)

// MockEmbedder is a deterministic bag-of-words embedder: each lowercased token
// adds one to the bucket its FNV hash selects. Texts sharing words point the
// same way, which is enough to build and query small offline indexes.
type MockEmbedder struct {
	dimension int
}

func NewMockEmbedder(dimension int) *MockEmbedder {
	return &MockEmbedder{dimension: dimension}
}

func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float32, e.dimension)
	if e.dimension == 0 {
		return vec, nil
	}
	for _, tok := range Tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[h.Sum32()%uint32(e.dimension)]++
	}
	return vec, nil
}

func (e *MockEmbedder) Dimension() int {
	return e.dimension
}

func (e *MockEmbedder) ModelName() string {
	return "mock"
}

// Tokenize splits on anything that is not a letter or digit and lowercases.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
