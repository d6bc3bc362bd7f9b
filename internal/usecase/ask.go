package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"medrag/internal/domain"
	"medrag/internal/logger"
	"medrag/internal/metrics"
	"medrag/internal/port"
)

// DefaultTopK is the number of passages used when the caller does not choose.
const DefaultTopK = 3

// AskUseCase validates a question, runs the pipeline, times it and records
// the completed interaction.
type AskUseCase struct {
	pipeline    *AnswerPipeline
	log         port.InteractionLog
	defaultTopK int
	now         func() time.Time
}

// NewAskUseCase creates a new ask use case. log may be nil.
func NewAskUseCase(pipeline *AnswerPipeline, log port.InteractionLog, defaultTopK int) *AskUseCase {
	if defaultTopK <= 0 {
		defaultTopK = DefaultTopK
	}
	return &AskUseCase{
		pipeline:    pipeline,
		log:         log,
		defaultTopK: defaultTopK,
		now:         time.Now,
	}
}

// AskResult is an answer plus the wall-clock time spent producing it.
type AskResult struct {
	Question string
	K        int
	Answer   *domain.Answer
	Elapsed  time.Duration
}

// Ask answers question using k passages, or the default when k is 0.
// The interaction is logged only when the pipeline succeeds.
func (u *AskUseCase) Ask(ctx context.Context, question string, k int) (*AskResult, error) {
	log := logger.FromContext(ctx)

	if strings.TrimSpace(question) == "" {
		metrics.PipelineRequestsTotal.WithLabelValues(domain.Kind(domain.ErrValidation)).Inc()
		return nil, fmt.Errorf("%w: question is empty", domain.ErrValidation)
	}
	if k < 0 {
		metrics.PipelineRequestsTotal.WithLabelValues(domain.Kind(domain.ErrValidation)).Inc()
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrValidation, k)
	}
	if k == 0 {
		k = u.defaultTopK
	}

	start := u.now()
	answer, err := u.pipeline.GenerateAnswer(ctx, question, k)
	elapsed := u.now().Sub(start)

	metrics.PipelineRequestsTotal.WithLabelValues(domain.Kind(err)).Inc()
	metrics.PipelineDuration.Observe(elapsed.Seconds())

	if err != nil {
		log.Error("answer failed",
			slog.String("kind", domain.Kind(err)),
			slog.Duration("elapsed", elapsed),
			slog.String("error", err.Error()))
		return nil, err
	}

	metrics.AnswerQuality.Observe(answer.Quality)
	log.Info("answered",
		slog.Int("k", k),
		slog.Int("hits", len(answer.Hits)),
		slog.Float64("quality", answer.Quality),
		slog.Duration("elapsed", elapsed))
	if len(answer.UnverifiedSources) > 0 {
		log.Warn("answer cites sources that were not retrieved",
			slog.Any("sources", answer.UnverifiedSources))
	}

	if u.log != nil {
		in := domain.Interaction{
			Timestamp: u.now(),
			Question:  question,
			Answer:    answer.Text,
			Quality:   answer.Quality,
			Citations: answer.Citations,
		}
		if err := u.log.Append(ctx, in); err != nil {
			log.Error("failed to record interaction", slog.String("error", err.Error()))
		}
	}

	return &AskResult{Question: question, K: k, Answer: answer, Elapsed: elapsed}, nil
}
