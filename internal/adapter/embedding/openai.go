package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"medrag/internal/domain"
	"medrag/internal/port"
)

var _ port.Embedder = (*OpenAIEmbedder)(nil)

const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOllamaBaseURL = "http://localhost:11434/v1"
)

type OpenAIEmbedder struct {
	apiKey   string
	model    string
	baseURL  string
	provider string
	client   *http.Client
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data  []embeddingData `json:"data"`
	Error *apiError       `json:"error,omitempty"`
}

type embeddingData struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func NewOpenAIEmbedder(apiKeyEnv, model, baseURL string, timeout time.Duration) (*OpenAIEmbedder, error) {
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", apiKeyEnv)
	}
	return newEmbedder("openai", apiKey, model, baseURL, timeout), nil
}

func NewOllamaEmbedder(model, baseURL string, timeout time.Duration) *OpenAIEmbedder {
	if baseURL == "" {
		baseURL = DefaultOllamaBaseURL
	}
	return newEmbedder("ollama", "ollama", model, baseURL, timeout)
}

func newEmbedder(provider, apiKey, model, baseURL string, timeout time.Duration) *OpenAIEmbedder {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIEmbedder{
		apiKey:   apiKey,
		model:    model,
		baseURL:  baseURL,
		provider: provider,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Embed performs exactly one /embeddings round-trip for text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody := embeddingRequest{
		Input: []string{text},
		Model: e.model,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.StatusError{Provider: e.provider, StatusCode: resp.StatusCode, Body: domain.BodyPreview(body)}
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, fmt.Errorf("failed to parse response (body: %s): %w", domain.BodyPreview(body), err)
	}

	if embResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", embResp.Error.Message)
	}

	for _, data := range embResp.Data {
		if data.Index == 0 {
			if len(data.Embedding) == 0 {
				return nil, fmt.Errorf("API returned an empty embedding")
			}
			return data.Embedding, nil
		}
	}
	return nil, fmt.Errorf("API returned no embedding")
}

func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}
