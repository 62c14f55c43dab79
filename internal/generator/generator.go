// Package generator produces free-form replies from a pretrained text-generation
// model. Backends are loaded once and each call is independent; no conversation
// history is kept between turns.
package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/kjstillabower/weatherbot/internal/observability"
)

// Generator is the capability the chat router falls back to.
type Generator interface {
	Generate(ctx context.Context, text string) (string, error)
}

// ErrEmptyPrompt is returned for blank input; models echo nothing useful for it.
var ErrEmptyPrompt = errors.New("empty prompt")

// Tokens are the special tokens the model was trained with. EOS terminates the
// user turn in the prompt; all of them are stripped from generated text.
type Tokens struct {
	CLS  string `yaml:"cls"`
	Mask string `yaml:"mask"`
	Pad  string `yaml:"pad"`
	Sep  string `yaml:"sep"`
	EOS  string `yaml:"eos"`
}

// DefaultTokens matches the DialoGPT tokenizer setup.
func DefaultTokens() Tokens {
	return Tokens{
		CLS:  "<CLS>",
		Mask: "<MASK>",
		Pad:  "<PAD>",
		Sep:  "<SEP>",
		EOS:  "<|endoftext|>",
	}
}

// Prompt appends the end-of-sequence marker to the user text.
func (t Tokens) Prompt(text string) string {
	return text + t.EOS
}

// Clean drops the echoed prompt and any special tokens from generated text.
func (t Tokens) Clean(generated, prompt string) string {
	out := strings.TrimPrefix(generated, prompt)
	for _, tok := range []string{t.CLS, t.Mask, t.Pad, t.Sep, t.EOS} {
		if tok != "" {
			out = strings.ReplaceAll(out, tok, "")
		}
	}
	return strings.TrimSpace(out)
}

// LLMGenerator adapts any langchaingo model to Generator.
type LLMGenerator struct {
	llm       llms.Model
	backend   string
	maxLength int
	tokens    Tokens
}

// NewLLMGenerator wraps llm. maxLength <= 0 leaves the backend default.
func NewLLMGenerator(llm llms.Model, backend string, maxLength int, tokens Tokens) *LLMGenerator {
	return &LLMGenerator{
		llm:       llm,
		backend:   backend,
		maxLength: maxLength,
		tokens:    tokens,
	}
}

func (g *LLMGenerator) Generate(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyPrompt
	}
	start := time.Now()
	prompt := g.tokens.Prompt(text)

	var opts []llms.CallOption
	if g.maxLength > 0 {
		opts = append(opts, llms.WithMaxLength(g.maxLength))
	}

	out, err := llms.GenerateFromSinglePrompt(ctx, g.llm, prompt, opts...)
	if err != nil {
		observability.GenerationDuration.WithLabelValues(g.backend, "error").Observe(time.Since(start).Seconds())
		return "", fmt.Errorf("%s generate: %w", g.backend, err)
	}
	observability.GenerationDuration.WithLabelValues(g.backend, "success").Observe(time.Since(start).Seconds())
	return g.tokens.Clean(out, prompt), nil
}
