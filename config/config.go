package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the medical RAG assistant.
type Config struct {
	Index          IndexConfig          `yaml:"index"`
	Embedding      EmbeddingConfig      `yaml:"embedding"`
	LLM            LLMConfig            `yaml:"llm"`
	Retrieve       RetrieveConfig       `yaml:"retrieve"`
	Resilience     ResilienceConfig     `yaml:"resilience"`
	InteractionLog InteractionLogConfig `yaml:"interaction_log"`
	Server         ServerConfig         `yaml:"server"`
	Logging        LoggingConfig        `yaml:"logging"`
}

// IndexConfig locates the prebuilt startup assets.
type IndexConfig struct {
	IndexPath  string `yaml:"index_path"`
	CorpusPath string `yaml:"corpus_path"`
	Dimension  int    `yaml:"dimension"` // 0 = take from the index file
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider  string        `yaml:"provider"` // "openai", "ollama", "mock"
	Model     string        `yaml:"model"`
	BaseURL   string        `yaml:"base_url"`
	APIKeyEnv string        `yaml:"api_key_env"` // Environment variable for API key
	Timeout   time.Duration `yaml:"timeout"`
}

// LLMConfig holds answer generation configuration.
type LLMConfig struct {
	Provider    string        `yaml:"provider"` // "openai", "mock"
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	APIKeyEnv   string        `yaml:"api_key_env"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK int `yaml:"top_k"`
}

// ResilienceConfig controls retries and throttling at the provider boundary.
type ResilienceConfig struct {
	MaxRetries        int           `yaml:"max_retries"` // 0 = no retries
	InitialInterval   time.Duration `yaml:"initial_interval"`
	MaxInterval       time.Duration `yaml:"max_interval"`
	RequestsPerSecond float64       `yaml:"requests_per_second"` // 0 = unlimited
}

// InteractionLogConfig selects the sink for completed interactions.
type InteractionLogConfig struct {
	Backend  string `yaml:"backend"` // "csv", "bolt", "redis", "memory", "none"
	Path     string `yaml:"path"`
	MaxBytes int64  `yaml:"max_bytes"` // csv rotation threshold, 0 = never rotate
	RedisURL string `yaml:"redis_url"`
	RedisKey string `yaml:"redis_key"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			IndexPath:  filepath.Join("indexes", "pubmed.index"),
			CorpusPath: filepath.Join("indexes", "corpus.json"),
		},
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			BaseURL:   "https://api.openai.com/v1",
			APIKeyEnv: "OPENAI_API_KEY",
			Timeout:   60 * time.Second,
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			BaseURL:     "https://api.openai.com/v1",
			APIKeyEnv:   "OPENAI_API_KEY",
			Temperature: 0.3,
			MaxTokens:   1024,
			Timeout:     120 * time.Second,
		},
		Retrieve: RetrieveConfig{
			TopK: 3,
		},
		Resilience: ResilienceConfig{
			MaxRetries:      3,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     10 * time.Second,
		},
		InteractionLog: InteractionLogConfig{
			Backend:  "csv",
			Path:     filepath.Join("logs", "chat_history.csv"),
			RedisKey: "medrag:interactions",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for medrag.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "medrag.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".medrag", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Retrieve.TopK < 1 {
		return fmt.Errorf("retrieve.top_k must be >= 1, got %d", c.Retrieve.TopK)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be within [0, 2], got %g", c.LLM.Temperature)
	}
	if c.Index.Dimension < 0 {
		return fmt.Errorf("index.dimension must not be negative")
	}
	if c.Resilience.MaxRetries < 0 {
		return fmt.Errorf("resilience.max_retries must not be negative")
	}
	switch c.Embedding.Provider {
	case "openai", "ollama", "mock":
	default:
		return fmt.Errorf("unsupported embedding provider: %s", c.Embedding.Provider)
	}
	switch c.LLM.Provider {
	case "openai", "ollama", "mock":
	default:
		return fmt.Errorf("unsupported llm provider: %s", c.LLM.Provider)
	}
	switch c.InteractionLog.Backend {
	case "csv", "bolt":
		if c.InteractionLog.Path == "" {
			return fmt.Errorf("interaction_log.path is required for backend %s", c.InteractionLog.Backend)
		}
	case "redis":
		if c.InteractionLog.RedisURL == "" {
			return fmt.Errorf("interaction_log.redis_url is required for backend redis")
		}
	case "memory", "none":
	default:
		return fmt.Errorf("unsupported interaction log backend: %s", c.InteractionLog.Backend)
	}
	return nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ResolvePath makes a relative asset path relative to dir.
func ResolvePath(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
