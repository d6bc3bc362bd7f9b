package domain

import (
	"errors"
	"fmt"
	"net/http"
	"unicode/utf8"
)

// Errors for a single answer request. Each aborts only that request.
var (
	// ErrValidation indicates a blank question or a bad k.
	ErrValidation = errors.New("validation error")

	// ErrEmbeddingProvider indicates the embedding call failed or returned a
	// vector of the wrong dimensionality.
	ErrEmbeddingProvider = errors.New("embedding provider error")

	// ErrInvalidEmbedding indicates a degenerate (zero or non-finite norm) embedding.
	ErrInvalidEmbedding = errors.New("invalid embedding")

	// ErrCorpusIndex indicates the index returned a row outside the corpus.
	// The index and corpus files are out of sync.
	ErrCorpusIndex = errors.New("corpus index error")

	// ErrGeneration indicates the answer generation call failed.
	ErrGeneration = errors.New("generation error")
)

// ErrStartupIntegrity is fatal for the whole process: the index and corpus
// disagree and no request may be served.
var ErrStartupIntegrity = errors.New("startup integrity error")

// Kind returns a short stable name for the error class, for metrics and logs.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrEmbeddingProvider):
		return "embedding_provider"
	case errors.Is(err, ErrInvalidEmbedding):
		return "invalid_embedding"
	case errors.Is(err, ErrCorpusIndex):
		return "corpus_index"
	case errors.Is(err, ErrGeneration):
		return "generation"
	case errors.Is(err, ErrStartupIntegrity):
		return "startup_integrity"
	default:
		return "internal"
	}
}

// StatusError is a non-2xx response from a remote provider.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

// maxBodyPreview caps how much of a provider response ends up in errors and logs.
const maxBodyPreview = 200

// BodyPreview returns at most maxBodyPreview bytes of body, cut at a rune
// boundary so the result stays valid UTF-8.
func BodyPreview(body []byte) string {
	if len(body) <= maxBodyPreview {
		return string(body)
	}
	n := maxBodyPreview
	for n > 0 && !utf8.RuneStart(body[n]) {
		n--
	}
	return string(body[:n])
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Permanent reports whether repeating the request cannot succeed.
// Client errors are permanent except timeouts and rate limiting.
func (e *StatusError) Permanent() bool {
	if e.StatusCode == http.StatusRequestTimeout || e.StatusCode == http.StatusTooManyRequests {
		return false
	}
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// IsPermanent reports whether err carries a permanent provider status.
func IsPermanent(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Permanent()
	}
	return false
}
