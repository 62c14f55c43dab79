package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/kjstillabower/weatherbot/internal/observability"
)

var ErrMissingAPIKey = errors.New("gemini API key is required")

// contentModel is the slice of *genai.GenerativeModel the generator uses.
type contentModel interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiGenerator calls the Gemini API directly.
type GeminiGenerator struct {
	client *genai.Client
	model  contentModel
	tokens Tokens
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string, maxLength int, tokens Tokens) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	m := client.GenerativeModel(model)
	if maxLength > 0 {
		m.SetMaxOutputTokens(int32(maxLength))
	}
	return &GeminiGenerator{client: client, model: m, tokens: tokens}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyPrompt
	}
	start := time.Now()
	prompt := g.tokens.Prompt(text)

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		observability.GenerationDuration.WithLabelValues(string(ProviderGemini), "error").Observe(time.Since(start).Seconds())
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	observability.GenerationDuration.WithLabelValues(string(ProviderGemini), "success").Observe(time.Since(start).Seconds())
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini generate: no response candidates")
	}
	return g.tokens.Clean(extractText(resp), prompt), nil
}

// Close releases the underlying client.
func (g *GeminiGenerator) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

// extractText joins the text parts of the first candidate.
func extractText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return ""
	}
	for _, part := range cand.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}
