package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"medrag/internal/domain"
	"medrag/internal/port"
)

var _ port.LLM = (*ChatClient)(nil)

const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOllamaBaseURL = "http://localhost:11434/v1"
)

// ChatClient is an OpenAI-compatible chat completions client.
type ChatClient struct {
	baseURL   string
	apiKey    string
	model     string
	provider  string
	maxTokens int
	client    *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Temperature is always sent: zero is a meaningful value.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewOpenAIClient(apiKeyEnv, model, baseURL string, maxTokens int, timeout time.Duration) (*ChatClient, error) {
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found. Set %s environment variable", apiKeyEnv)
	}
	return newClient("openai", apiKey, model, baseURL, maxTokens, timeout), nil
}

func NewOllamaClient(model, baseURL string, maxTokens int, timeout time.Duration) *ChatClient {
	if baseURL == "" {
		baseURL = DefaultOllamaBaseURL
	}
	return newClient("ollama", "", model, baseURL, maxTokens, timeout)
}

func newClient(provider, apiKey, model, baseURL string, maxTokens int, timeout time.Duration) *ChatClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ChatClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		model:     model,
		provider:  provider,
		maxTokens: maxTokens,
		client:    &http.Client{Timeout: timeout},
	}
}

// Complete sends prompt as the only user message and returns the first choice.
func (c *ChatClient) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	req := chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: temperature,
		MaxTokens:   c.maxTokens,
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &domain.StatusError{Provider: c.provider, StatusCode: resp.StatusCode, Body: domain.BodyPreview(body)}
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("API error: %s", chatResp.Error.Message)
	}

	if len(chatResp.Choices) == 0 {
		return "", errors.New("no response from LLM")
	}

	return chatResp.Choices[0].Message.Content, nil
}

func (c *ChatClient) ModelName() string {
	return c.model
}
