package resilience

import (
	"context"

	"golang.org/x/time/rate"

	"medrag/internal/port"
)

var _ port.Embedder = (*RetryingEmbedder)(nil)

type RetryingEmbedder struct {
	next    port.Embedder
	policy  Policy
	limiter *rate.Limiter
}

func NewRetryingEmbedder(next port.Embedder, p Policy) *RetryingEmbedder {
	return &RetryingEmbedder{next: next, policy: p, limiter: p.limiter()}
}

func (r *RetryingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return call(ctx, r.policy, r.limiter, "embedding", func(ctx context.Context) ([]float32, error) {
		return r.next.Embed(ctx, text)
	})
}

func (r *RetryingEmbedder) ModelName() string {
	return r.next.ModelName()
}
