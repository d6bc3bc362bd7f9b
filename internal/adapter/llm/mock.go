package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"medrag/internal/port"
)

var _ port.LLM = (*MockLLM)(nil)

// MockLLM answers offline. With a fixed Response it echoes that; otherwise it
// cites the first retrieved source found in the prompt.
type MockLLM struct {
	Response string
	Err      error

	mu      sync.Mutex
	prompts []string
	temps   []float64
}

func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

func (m *MockLLM) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.temps = append(m.temps, temperature)
	m.mu.Unlock()

	if m.Err != nil {
		return "", m.Err
	}
	if m.Response != "" {
		return m.Response, nil
	}
	return summarize(prompt), nil
}

func (m *MockLLM) ModelName() string {
	return "mock"
}

// Calls returns the prompts and temperatures received so far.
func (m *MockLLM) Calls() ([]string, []float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...), append([]float64(nil), m.temps...)
}

func summarize(prompt string) string {
	const marker = "[Source 1] "
	i := strings.Index(prompt, marker)
	if i < 0 {
		return "Not enough information in the retrieved papers."
	}
	rest := prompt[i+len(marker):]
	if j := strings.Index(rest, "\n"); j >= 0 {
		rest = rest[:j]
	}
	if len(rest) > 200 {
		rest = rest[:200]
	}
	return fmt.Sprintf("%s [Source 1]", strings.TrimSpace(rest))
}
