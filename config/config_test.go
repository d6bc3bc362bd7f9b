package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Retrieve.TopK != 3 {
		t.Errorf("expected TopK=3, got %d", cfg.Retrieve.TopK)
	}
	if cfg.LLM.Temperature != 0.3 {
		t.Errorf("expected Temperature=0.3, got %f", cfg.LLM.Temperature)
	}
	if cfg.Embedding.Model != "text-embedding-3-small" {
		t.Errorf("expected embedding model text-embedding-3-small, got %s", cfg.Embedding.Model)
	}
	if cfg.InteractionLog.Backend != "csv" {
		t.Errorf("expected csv interaction log, got %s", cfg.InteractionLog.Backend)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Errorf("expected no error for non-existent file, got %v", err)
	}
	if cfg == nil {
		t.Error("expected default config, got nil")
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "medrag.yaml")

	content := `
retrieve:
  top_k: 5
llm:
  temperature: 0.1
  timeout: 45s
interaction_log:
  backend: bolt
  path: logs/interactions.db
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Retrieve.TopK != 5 {
		t.Errorf("expected TopK=5, got %d", cfg.Retrieve.TopK)
	}
	if cfg.LLM.Temperature != 0.1 {
		t.Errorf("expected Temperature=0.1, got %f", cfg.LLM.Temperature)
	}
	if cfg.LLM.Timeout != 45*time.Second {
		t.Errorf("expected Timeout=45s, got %s", cfg.LLM.Timeout)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("expected untouched default model, got %s", cfg.LLM.Model)
	}
	if cfg.InteractionLog.Backend != "bolt" {
		t.Errorf("expected bolt backend, got %s", cfg.InteractionLog.Backend)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"zero top_k":      "retrieve:\n  top_k: 0\n",
		"hot temperature": "llm:\n  temperature: 3\n",
		"bad backend":     "interaction_log:\n  backend: kafka\n",
		"redis no url":    "interaction_log:\n  backend: redis\n",
		"bad provider":    "embedding:\n  provider: word2vec\n",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "medrag.yaml")
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

func TestLoadFromDir(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, ".medrag"), 0755); err != nil {
		t.Fatal(err)
	}
	configPath := filepath.Join(tmpDir, ".medrag", "config.yaml")

	content := `
server:
  addr: 127.0.0.1:9000
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("expected Addr=127.0.0.1:9000, got %s", cfg.Server.Addr)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "medrag.yaml")
	cfg := DefaultConfig()
	cfg.Retrieve.TopK = 7

	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Retrieve.TopK != 7 {
		t.Errorf("expected TopK=7, got %d", loaded.Retrieve.TopK)
	}
	if loaded.Embedding.Timeout != cfg.Embedding.Timeout {
		t.Errorf("expected timeout %s, got %s", cfg.Embedding.Timeout, loaded.Embedding.Timeout)
	}
}

func TestResolvePath(t *testing.T) {
	if got := ResolvePath("/srv/medrag", "indexes/pubmed.index"); got != filepath.Join("/srv/medrag", "indexes", "pubmed.index") {
		t.Errorf("unexpected relative resolution: %s", got)
	}
	if got := ResolvePath("/srv/medrag", "/data/pubmed.index"); got != "/data/pubmed.index" {
		t.Errorf("absolute path should be kept, got %s", got)
	}
}
