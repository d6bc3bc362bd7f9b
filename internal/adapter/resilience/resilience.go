// Package resilience wraps provider ports with retries and throttling.
// The answer pipeline itself never retries; only these decorators do.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"

	"medrag/internal/domain"
	"medrag/internal/logger"
	"medrag/internal/metrics"
)

type Policy struct {
	MaxRetries        int
	InitialInterval   time.Duration
	MaxInterval       time.Duration
	RequestsPerSecond float64 // 0 = unlimited
}

func (p Policy) limiter() *rate.Limiter {
	if p.RequestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := int(p.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(p.RequestsPerSecond), burst)
}

func (p Policy) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	return b
}

// call runs op under the limiter, retrying transient failures.
func call[T any](ctx context.Context, p Policy, lim *rate.Limiter, provider string, op func(context.Context) (T, error)) (T, error) {
	log := logger.FromContext(ctx)
	attempt := 0

	operation := func() (T, error) {
		var zero T
		if err := lim.Wait(ctx); err != nil {
			return zero, backoff.Permanent(err)
		}
		attempt++
		if attempt > 1 {
			metrics.ProviderRetriesTotal.WithLabelValues(provider).Inc()
		}

		start := time.Now()
		res, err := op(ctx)
		metrics.ProviderCallDuration.WithLabelValues(provider, status(err)).Observe(time.Since(start).Seconds())
		if err != nil {
			if domain.IsPermanent(err) || errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return zero, backoff.Permanent(err)
			}
			return zero, err
		}
		return res, nil
	}

	notify := func(err error, wait time.Duration) {
		log.Warn("provider call failed, retrying",
			slog.String("provider", provider),
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
			slog.String("error", err.Error()))
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(p.backOff()),
		backoff.WithMaxTries(uint(p.MaxRetries+1)),
		backoff.WithNotify(notify),
	)
}

func status(err error) string {
	if err == nil {
		return "ok"
	}
	var se *domain.StatusError
	if errors.As(err, &se) {
		if se.Permanent() {
			return "client_error"
		}
		return "server_error"
	}
	return "error"
}
