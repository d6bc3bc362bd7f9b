package resilience

import (
	"context"

	"golang.org/x/time/rate"

	"medrag/internal/port"
)

var _ port.LLM = (*RetryingLLM)(nil)

type RetryingLLM struct {
	next    port.LLM
	policy  Policy
	limiter *rate.Limiter
}

func NewRetryingLLM(next port.LLM, p Policy) *RetryingLLM {
	return &RetryingLLM{next: next, policy: p, limiter: p.limiter()}
}

func (r *RetryingLLM) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	return call(ctx, r.policy, r.limiter, "llm", func(ctx context.Context) (string, error) {
		return r.next.Complete(ctx, prompt, temperature)
	})
}

func (r *RetryingLLM) ModelName() string {
	return r.next.ModelName()
}
