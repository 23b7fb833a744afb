package ai

import "context"

// Completer is the interface for LLM text completion.
// Implement this interface to add new AI providers (Gemini, Ollama, OpenAI, etc.)
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}
