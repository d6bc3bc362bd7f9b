package usecase

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medrag/internal/adapter/corpus"
	"medrag/internal/adapter/interactionlog"
	"medrag/internal/adapter/llm"
	"medrag/internal/adapter/memstore"
	"medrag/internal/adapter/retriever"
	"medrag/internal/domain"
	"medrag/internal/prompt"
)

type fixedEmbedder struct {
	vec   []float32
	calls atomic.Int32
}

func (f *fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls.Add(1)
	return f.vec, nil
}

func (f *fixedEmbedder) ModelName() string { return "fixed" }

type fixedIndex struct {
	neighbors []domain.Neighbor
}

func (f *fixedIndex) Search(ctx context.Context, query []float32, k int) ([]domain.Neighbor, error) {
	if k < len(f.neighbors) {
		return f.neighbors[:k], nil
	}
	return f.neighbors, nil
}

func (f *fixedIndex) Dimension() int { return 4 }
func (f *fixedIndex) Len() int       { return 6 }

type stubRetriever struct {
	hits []domain.RetrievalHit
	err  error
}

func (s *stubRetriever) RetrieveTopK(ctx context.Context, question string, k int) ([]domain.RetrievalHit, error) {
	return s.hits, s.err
}

func metforminCorpus() *corpus.Store {
	docs := []domain.Document{
		{Title: "Metformin activates AMPK", Text: "Metformin activates AMP-activated protein kinase in hepatocytes.", URL: "https://pubmed.example/0"},
		{Title: "Statins", Text: "Statins lower LDL.", URL: "https://pubmed.example/1"},
		{Title: "Aspirin", Text: "Aspirin inhibits COX.", URL: "https://pubmed.example/2"},
		{Title: "Insulin", Text: "Insulin promotes glucose uptake.", URL: "https://pubmed.example/3"},
		{Title: "GLP-1", Text: "GLP-1 agonists slow gastric emptying.", URL: "https://pubmed.example/4"},
		{Title: "Hepatic gluconeogenesis", Text: "Metformin suppresses hepatic gluconeogenesis.", URL: "https://pubmed.example/5"},
	}
	return corpus.NewStore(docs)
}

func newMetforminPipeline(gen *llm.MockLLM) (*AnswerPipeline, *fixedEmbedder) {
	emb := &fixedEmbedder{vec: []float32{0.5, 0.5, 0.5, 0.5}}
	idx := &fixedIndex{neighbors: []domain.Neighbor{{Row: 0, Score: 0.91}, {Row: 5, Score: 0.77}}}
	r := retriever.NewSemanticRetriever(idx, emb, metforminCorpus())
	return NewAnswerPipeline(r, gen, DefaultTemperature), emb
}

func TestGenerateAnswer_Metformin(t *testing.T) {
	gen := &llm.MockLLM{Response: "Metformin activates AMPK [Source 1] and suppresses gluconeogenesis [Source 2]."}
	p, emb := newMetforminPipeline(gen)

	ans, err := p.GenerateAnswer(context.Background(), "What is the mechanism of action of metformin?", 2)
	require.NoError(t, err)

	assert.Equal(t, 0.84, ans.Quality)
	require.Len(t, ans.Citations, 2)
	assert.Equal(t, domain.Citation{Title: "Metformin activates AMPK", URL: "https://pubmed.example/0", Score: 0.91}, ans.Citations[0])
	assert.Equal(t, domain.Citation{Title: "Hepatic gluconeogenesis", URL: "https://pubmed.example/5", Score: 0.77}, ans.Citations[1])
	assert.Empty(t, ans.UnverifiedSources)
	assert.Equal(t, int32(1), emb.calls.Load())

	prompts, temps := gen.Calls()
	require.Len(t, prompts, 1)
	assert.Equal(t, []float64{0.3}, temps)
	assert.Contains(t, prompts[0], "Question: What is the mechanism of action of metformin?")
	assert.Contains(t, prompts[0], "[Source 1] Metformin activates AMP-activated protein kinase in hepatocytes.\n(Citation: https://pubmed.example/0)")
	assert.Contains(t, prompts[0], "[Source 2] Metformin suppresses hepatic gluconeogenesis.\n(Citation: https://pubmed.example/5)")
}

func TestGenerateAnswer_NoHits(t *testing.T) {
	gen := &llm.MockLLM{Response: prompt.Fallback}
	p := NewAnswerPipeline(&stubRetriever{}, gen, DefaultTemperature)

	ans, err := p.GenerateAnswer(context.Background(), "Does aspirin cure influenza?", 3)
	require.NoError(t, err)
	assert.Equal(t, 0.0, ans.Quality)
	assert.False(t, math.IsNaN(ans.Quality))
	assert.Empty(t, ans.Citations)
	assert.Equal(t, prompt.Fallback, ans.Text)

	prompts, _ := gen.Calls()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], prompt.Fallback)
}

func TestGenerateAnswer_UnverifiedSources(t *testing.T) {
	gen := &llm.MockLLM{Response: "See [Source 1] and [Source 4]."}
	p, _ := newMetforminPipeline(gen)

	ans, err := p.GenerateAnswer(context.Background(), "q", 2)
	require.NoError(t, err)
	assert.Equal(t, []int{4}, ans.UnverifiedSources)
}

func TestGenerateAnswer_Errors(t *testing.T) {
	retrieveErr := &stubRetriever{err: domain.ErrInvalidEmbedding}
	p := NewAnswerPipeline(retrieveErr, llm.NewMockLLM(), DefaultTemperature)
	_, err := p.GenerateAnswer(context.Background(), "q", 2)
	assert.ErrorIs(t, err, domain.ErrInvalidEmbedding)

	gen := &llm.MockLLM{Err: errors.New("upstream 500")}
	p = NewAnswerPipeline(&stubRetriever{hits: []domain.RetrievalHit{{Score: 0.5}}}, gen, DefaultTemperature)
	_, err = p.GenerateAnswer(context.Background(), "q", 2)
	assert.ErrorIs(t, err, domain.ErrGeneration)
	assert.ErrorContains(t, err, "upstream 500")
}

func TestQuality(t *testing.T) {
	tests := []struct {
		scores []float64
		want   float64
	}{
		{nil, 0},
		{[]float64{0.91, 0.77}, 0.84},
		{[]float64{1, 1, 1}, 1},
		{[]float64{-1, -1}, -1},
		{[]float64{0.1234, 0.1235}, 0.123},
		{[]float64{1.0005}, 1.0},
		{[]float64{0.1235}, 0.123},
		{[]float64{0.6665}, 0.666},
		{[]float64{0.0625}, 0.062},
		{[]float64{-0.6665}, -0.666},
	}
	for _, tt := range tests {
		hits := make([]domain.RetrievalHit, len(tt.scores))
		for i, s := range tt.scores {
			hits[i] = domain.RetrievalHit{Score: s}
		}
		q := Quality(hits)
		assert.Equal(t, tt.want, q, "%v", tt.scores)
		assert.GreaterOrEqual(t, q, -1.0)
		assert.LessOrEqual(t, q, 1.0)
	}
}

func TestAsk_Validation(t *testing.T) {
	gen := llm.NewMockLLM()
	p, emb := newMetforminPipeline(gen)
	ask := NewAskUseCase(p, nil, 3)

	for _, q := range []string{"", "   ", "\n\t"} {
		_, err := ask.Ask(context.Background(), q, 2)
		assert.ErrorIs(t, err, domain.ErrValidation)
	}
	_, err := ask.Ask(context.Background(), "q", -2)
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.Equal(t, int32(0), emb.calls.Load())
	prompts, _ := gen.Calls()
	assert.Empty(t, prompts)
}

func TestAsk_DefaultK(t *testing.T) {
	p, _ := newMetforminPipeline(llm.NewMockLLM())
	ask := NewAskUseCase(p, nil, 1)

	res, err := ask.Ask(context.Background(), "metformin?", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.K)
	assert.Len(t, res.Answer.Citations, 1)
	assert.GreaterOrEqual(t, res.Elapsed.Nanoseconds(), int64(0))
}

func TestAsk_LogsOnlySuccess(t *testing.T) {
	sink := memstore.NewMemoryLog()
	gen := llm.NewMockLLM()
	p, _ := newMetforminPipeline(gen)
	ask := NewAskUseCase(p, sink, 3)
	ctx := context.Background()

	_, err := ask.Ask(ctx, "What is the mechanism of action of metformin?", 2)
	require.NoError(t, err)

	gen.Err = errors.New("down")
	_, err = ask.Ask(ctx, "second question", 2)
	require.ErrorIs(t, err, domain.ErrGeneration)

	recorded, err := sink.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.Equal(t, "What is the mechanism of action of metformin?", recorded[0].Question)
	assert.Equal(t, 0.84, recorded[0].Quality)
	assert.Len(t, recorded[0].Citations, 2)
}

func TestAsk_TimestampIsTakenAfterAnswering(t *testing.T) {
	sink := memstore.NewMemoryLog()
	p, _ := newMetforminPipeline(llm.NewMockLLM())
	ask := NewAskUseCase(p, sink, 3)

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.Local)
	var ticks int
	ask.now = func() time.Time {
		ticks++
		return base.Add(time.Duration(ticks) * time.Second)
	}

	res, err := ask.Ask(context.Background(), "What is the mechanism of action of metformin?", 2)
	require.NoError(t, err)
	assert.Equal(t, time.Second, res.Elapsed)

	recorded, err := sink.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.True(t, recorded[0].Timestamp.After(base.Add(2*time.Second)), "got %s", recorded[0].Timestamp)
}

func TestAsk_TwoRunsProduceTwoCSVRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "chat_history.csv")
	p, _ := newMetforminPipeline(llm.NewMockLLM())
	ask := NewAskUseCase(p, interactionlog.NewCSVLog(path, 0), 3)
	ctx := context.Background()

	_, err := ask.Ask(ctx, "first", 2)
	require.NoError(t, err)
	_, err = ask.Ask(ctx, "second", 2)
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, interactionlog.Header, rows[0])
	assert.Equal(t, "first", rows[1][1])
	assert.Equal(t, "second", rows[2][1])
}
