package generator

import (
	"context"
	"fmt"
	"io"

	"github.com/tmc/langchaingo/llms/huggingface"
	"github.com/tmc/langchaingo/llms/ollama"
)

type Provider string

const (
	ProviderHuggingFace Provider = "huggingface"
	ProviderOllama      Provider = "ollama"
	ProviderGemini      Provider = "gemini"
)

// DefaultModel is the conversational model used when none is configured.
const DefaultModel = "microsoft/DialoGPT-medium"

// Config selects and parameterizes a backend.
type Config struct {
	Provider  Provider
	Model     string
	BaseURL   string
	APIKey    string
	MaxLength int
	Tokens    Tokens
}

// New builds the configured backend. The returned io.Closer is non-nil only for
// backends that hold connections.
func New(ctx context.Context, cfg Config) (Generator, io.Closer, error) {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	switch cfg.Provider {
	case ProviderHuggingFace, "":
		opts := []huggingface.Option{huggingface.WithModel(model)}
		if cfg.APIKey != "" {
			opts = append(opts, huggingface.WithToken(cfg.APIKey))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, huggingface.WithURL(cfg.BaseURL))
		}
		llm, err := huggingface.New(opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("huggingface client: %w", err)
		}
		return NewLLMGenerator(llm, string(ProviderHuggingFace), cfg.MaxLength, cfg.Tokens), nil, nil

	case ProviderOllama:
		opts := []ollama.Option{ollama.WithModel(model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		llm, err := ollama.New(opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("ollama client: %w", err)
		}
		return NewLLMGenerator(llm, string(ProviderOllama), cfg.MaxLength, cfg.Tokens), nil, nil

	case ProviderGemini:
		g, err := NewGeminiGenerator(ctx, cfg.APIKey, model, cfg.MaxLength, cfg.Tokens)
		if err != nil {
			return nil, nil, err
		}
		return g, g, nil

	default:
		return nil, nil, fmt.Errorf("unsupported generator provider: %q", cfg.Provider)
	}
}
