package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"medrag/internal/domain"
	"medrag/internal/logger"
	"medrag/internal/port"
	"medrag/internal/prompt"
)

// DefaultTemperature favors factual, repeatable answers.
const DefaultTemperature = 0.3

// AnswerPipeline composes retrieval, prompt rendering and generation.
// It holds no mutable state and never retries.
type AnswerPipeline struct {
	retriever   port.Retriever
	llm         port.LLM
	temperature float64
}

// NewAnswerPipeline creates a new answer pipeline.
func NewAnswerPipeline(retriever port.Retriever, llm port.LLM, temperature float64) *AnswerPipeline {
	return &AnswerPipeline{
		retriever:   retriever,
		llm:         llm,
		temperature: temperature,
	}
}

// GenerateAnswer retrieves k passages, asks the model and scores the evidence.
// Zero hits is not an error: the prompt carries an empty context and quality is 0.
func (p *AnswerPipeline) GenerateAnswer(ctx context.Context, question string, k int) (*domain.Answer, error) {
	log := logger.FromContext(ctx)

	hits, err := p.retriever.RetrieveTopK(ctx, question, k)
	if err != nil {
		return nil, err
	}

	text := prompt.Build(question, hits)
	log.Debug("prompt built", slog.Int("hits", len(hits)), slog.Int("prompt_chars", len(text)))

	answer, err := p.llm.Complete(ctx, text, p.temperature)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}

	return &domain.Answer{
		Text:              answer,
		Quality:           Quality(hits),
		Citations:         Citations(hits),
		Hits:              hits,
		UnverifiedSources: prompt.Unverified(answer, len(hits)),
	}, nil
}

// Quality is the mean hit score rounded to three decimals, 0 for no hits.
func Quality(hits []domain.RetrievalHit) float64 {
	if len(hits) == 0 {
		return 0
	}
	var sum float64
	for _, h := range hits {
		sum += h.Score
	}
	return domain.Round3(sum / float64(len(hits)))
}

// Citations projects hits in retrieval order.
func Citations(hits []domain.RetrievalHit) []domain.Citation {
	out := make([]domain.Citation, len(hits))
	for i, h := range hits {
		out[i] = domain.CitationFromHit(h)
	}
	return out
}
