// Package bootstrap loads the startup assets and wires adapters from config.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"medrag/config"
	"medrag/internal/adapter/corpus"
	"medrag/internal/adapter/embedding"
	"medrag/internal/adapter/interactionlog"
	"medrag/internal/adapter/llm"
	"medrag/internal/adapter/memstore"
	"medrag/internal/adapter/resilience"
	"medrag/internal/adapter/retriever"
	"medrag/internal/adapter/store"
	"medrag/internal/adapter/vectorindex"
	"medrag/internal/domain"
	"medrag/internal/logger"
	"medrag/internal/port"
	"medrag/internal/usecase"
)

// Assets are the process-wide read-only index and corpus.
type Assets struct {
	Index  *vectorindex.FlatIndex
	Corpus *corpus.Store
}

// LoadAssets reads both files and verifies they describe the same rows.
// Any failure is fatal for the process.
func LoadAssets(cfg *config.Config, baseDir string) (*Assets, error) {
	indexPath := config.ResolvePath(baseDir, cfg.Index.IndexPath)
	idx, err := vectorindex.LoadFAISS(indexPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStartupIntegrity, err)
	}

	corpusPath := config.ResolvePath(baseDir, cfg.Index.CorpusPath)
	docs, err := corpus.Load(corpusPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStartupIntegrity, err)
	}

	if err := CheckIntegrity(idx, docs, cfg.Index.Dimension); err != nil {
		return nil, err
	}

	logger.Default().Info("assets loaded",
		slog.String("index", indexPath),
		slog.String("corpus", corpusPath),
		slog.Int("rows", idx.Len()),
		slog.Int("dimension", idx.Dimension()))

	return &Assets{Index: idx, Corpus: docs}, nil
}

// CheckIntegrity fails when the index and corpus disagree on row count, or
// when wantDim > 0 and the index has another dimension.
func CheckIntegrity(index port.VectorIndex, docs port.CorpusStore, wantDim int) error {
	if index.Len() != docs.Len() {
		return fmt.Errorf("%w: index has %d rows but corpus has %d documents",
			domain.ErrStartupIntegrity, index.Len(), docs.Len())
	}
	if wantDim > 0 && index.Dimension() != wantDim {
		return fmt.Errorf("%w: index dimension is %d, configured %d",
			domain.ErrStartupIntegrity, index.Dimension(), wantDim)
	}
	return nil
}

// Policy maps the resilience section to a retry policy.
func Policy(cfg *config.Config) resilience.Policy {
	return resilience.Policy{
		MaxRetries:        cfg.Resilience.MaxRetries,
		InitialInterval:   cfg.Resilience.InitialInterval,
		MaxInterval:       cfg.Resilience.MaxInterval,
		RequestsPerSecond: cfg.Resilience.RequestsPerSecond,
	}
}

// NewEmbedder builds the configured embedder. Remote providers are wrapped
// with retries; the mock needs the index dimension.
func NewEmbedder(cfg *config.Config, dimension int) (port.Embedder, error) {
	ec := cfg.Embedding
	switch ec.Provider {
	case "mock":
		return embedding.NewMockEmbedder(dimension), nil
	case "ollama":
		baseURL := ec.BaseURL
		if baseURL == embedding.DefaultOpenAIBaseURL {
			baseURL = ""
		}
		return resilience.NewRetryingEmbedder(embedding.NewOllamaEmbedder(ec.Model, baseURL, ec.Timeout), Policy(cfg)), nil
	case "openai":
		e, err := embedding.NewOpenAIEmbedder(ec.APIKeyEnv, ec.Model, ec.BaseURL, ec.Timeout)
		if err != nil {
			return nil, err
		}
		return resilience.NewRetryingEmbedder(e, Policy(cfg)), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", ec.Provider)
	}
}

// NewLLM builds the configured answer generator.
func NewLLM(cfg *config.Config) (port.LLM, error) {
	lc := cfg.LLM
	switch lc.Provider {
	case "mock":
		return llm.NewMockLLM(), nil
	case "ollama":
		baseURL := lc.BaseURL
		if baseURL == llm.DefaultOpenAIBaseURL {
			baseURL = ""
		}
		return resilience.NewRetryingLLM(llm.NewOllamaClient(lc.Model, baseURL, lc.MaxTokens, lc.Timeout), Policy(cfg)), nil
	case "openai":
		c, err := llm.NewOpenAIClient(lc.APIKeyEnv, lc.Model, lc.BaseURL, lc.MaxTokens, lc.Timeout)
		if err != nil {
			return nil, err
		}
		return resilience.NewRetryingLLM(c, Policy(cfg)), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", lc.Provider)
	}
}

// InteractionSink is a log that can also be read back.
type InteractionSink interface {
	port.InteractionLog
	port.InteractionHistory
}

// NewInteractionLog opens the configured sink. Backend "none" returns nil.
func NewInteractionLog(ctx context.Context, cfg *config.Config, baseDir string) (InteractionSink, error) {
	lc := cfg.InteractionLog
	switch lc.Backend {
	case "none":
		return nil, nil
	case "memory":
		return memstore.NewMemoryLog(), nil
	case "csv":
		return interactionlog.NewCSVLog(config.ResolvePath(baseDir, lc.Path), lc.MaxBytes), nil
	case "bolt":
		st, err := store.NewBoltStore(config.ResolvePath(baseDir, lc.Path))
		if err != nil {
			return nil, err
		}
		return st, nil
	case "redis":
		rl, err := interactionlog.NewRedisLog(ctx, lc.RedisURL, lc.RedisKey)
		if err != nil {
			return nil, err
		}
		return rl, nil
	default:
		return nil, fmt.Errorf("unsupported interaction log backend: %s", lc.Backend)
	}
}

// App is the fully wired pipeline.
type App struct {
	Config    *config.Config
	Assets    *Assets
	Retriever port.Retriever
	Pipeline  *usecase.AnswerPipeline
	Ask       *usecase.AskUseCase
	Log       InteractionSink
}

// New loads assets and wires every collaborator.
func New(ctx context.Context, cfg *config.Config, baseDir string) (*App, error) {
	assets, err := LoadAssets(cfg, baseDir)
	if err != nil {
		return nil, err
	}

	emb, err := NewEmbedder(cfg, assets.Index.Dimension())
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	gen, err := NewLLM(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm: %w", err)
	}

	sink, err := NewInteractionLog(ctx, cfg, baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open interaction log: %w", err)
	}

	r := retriever.NewSemanticRetriever(assets.Index, emb, assets.Corpus)
	pipeline := usecase.NewAnswerPipeline(r, gen, cfg.LLM.Temperature)

	var log port.InteractionLog
	if sink != nil {
		log = sink
	}

	return &App{
		Config:    cfg,
		Assets:    assets,
		Retriever: r,
		Pipeline:  pipeline,
		Ask:       usecase.NewAskUseCase(pipeline, log, cfg.Retrieve.TopK),
		Log:       sink,
	}, nil
}

func (a *App) Close() error {
	if a.Log == nil {
		return nil
	}
	return a.Log.Close()
}

// IsStartupError reports whether err must stop the process.
func IsStartupError(err error) bool {
	return errors.Is(err, domain.ErrStartupIntegrity)
}
