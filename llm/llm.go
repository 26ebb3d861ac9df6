// Package llm wraps the text-generation providers behind a single
// prompt-in, text-out interface.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/drewmudry/scriptcast/internal/platform"
)

// ErrEmptyResponse is returned when a provider answers with no text.
var ErrEmptyResponse = errors.New("llm: empty response")

// Generator turns a prompt into a completion.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// StructuredGenerator is implemented by providers that can enforce a JSON
// schema on the completion. out must be a pointer.
type StructuredGenerator interface {
	Generator
	GenerateStructured(ctx context.Context, prompt, name string, schema interface{}, out interface{}) error
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// New returns the provider selected by cfg.Provider.
func New(ctx context.Context, cfg platform.LLMConfig) (Generator, error) {
	switch cfg.Provider {
	case "gemini", "":
		return NewGemini(ctx, cfg.GoogleAPIKey, cfg.Model)
	case "openai":
		return NewOpenAI(cfg.OpenAIAPIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}
