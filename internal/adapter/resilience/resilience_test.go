package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medrag/internal/domain"
)

type flakyEmbedder struct {
	errs  []error
	calls int
}

func (f *flakyEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.calls <= len(f.errs) {
		return nil, f.errs[f.calls-1]
	}
	return []float32{1, 0}, nil
}

func (f *flakyEmbedder) ModelName() string { return "flaky" }

type flakyLLM struct {
	errs  []error
	calls int
}

func (f *flakyLLM) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	f.calls++
	if f.calls <= len(f.errs) {
		return "", f.errs[f.calls-1]
	}
	return "answer", nil
}

func (f *flakyLLM) ModelName() string { return "flaky" }

func fastPolicy(retries int) Policy {
	return Policy{MaxRetries: retries, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

func TestRetryingEmbedder_RetriesTransient(t *testing.T) {
	next := &flakyEmbedder{errs: []error{
		errors.New("connection reset"),
		&domain.StatusError{Provider: "openai", StatusCode: 503},
	}}
	e := NewRetryingEmbedder(next, fastPolicy(3))

	vec, err := e.Embed(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vec)
	assert.Equal(t, 3, next.calls)
	assert.Equal(t, "flaky", e.ModelName())
}

func TestRetryingEmbedder_PermanentNotRetried(t *testing.T) {
	next := &flakyEmbedder{errs: []error{&domain.StatusError{Provider: "openai", StatusCode: 401}}}
	e := NewRetryingEmbedder(next, fastPolicy(3))

	_, err := e.Embed(context.Background(), "q")
	require.Error(t, err)
	assert.Equal(t, 1, next.calls)

	var se *domain.StatusError
	assert.ErrorAs(t, err, &se)
}

func TestRetryingEmbedder_GivesUp(t *testing.T) {
	boom := errors.New("timeout")
	next := &flakyEmbedder{errs: []error{boom, boom, boom, boom}}
	e := NewRetryingEmbedder(next, fastPolicy(2))

	_, err := e.Embed(context.Background(), "q")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, next.calls)
}

func TestRetryingLLM_NoRetries(t *testing.T) {
	next := &flakyLLM{errs: []error{errors.New("boom")}}
	l := NewRetryingLLM(next, fastPolicy(0))

	_, err := l.Complete(context.Background(), "p", 0.3)
	assert.Error(t, err)
	assert.Equal(t, 1, next.calls)
}

func TestRetryingLLM_Recovers(t *testing.T) {
	next := &flakyLLM{errs: []error{&domain.StatusError{Provider: "openai", StatusCode: 429}}}
	l := NewRetryingLLM(next, fastPolicy(1))

	out, err := l.Complete(context.Background(), "p", 0.3)
	require.NoError(t, err)
	assert.Equal(t, "answer", out)
	assert.Equal(t, 2, next.calls)
}

func TestRetryingLLM_CanceledContext(t *testing.T) {
	next := &flakyLLM{}
	l := NewRetryingLLM(next, Policy{MaxRetries: 3, RequestsPerSecond: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Complete(ctx, "p", 0.3)
	assert.Error(t, err)
	assert.Equal(t, 0, next.calls)
}
