package port

import "context"

// LLM generates free text from a prompt.
type LLM interface {
	// Complete sends prompt as a single user message at the given temperature.
	Complete(ctx context.Context, prompt string, temperature float64) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}
