package ai

import "context"

// LLMProvider sends a prompt to a model and returns the raw text response.
// Used only by LLMJobAnalyzer.
type LLMProvider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
