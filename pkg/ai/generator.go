package ai

import "context"

// TextGenerator produces free-form text for a single prompt.
// All LLM providers (Gemini, Ollama, OpenAI-compatible) implement this
// interface, and tests substitute fakes for it.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
