package vision

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

// DefaultModel is the Gemini model used when none is configured
const DefaultModel = "gemini-2.5-flash"

// GeminiConfig contains Gemini client configuration
type GeminiConfig struct {
	APIKey string
	Model  string
}

// Gemini is an Analyzer backed by the Gemini API
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini analyzer
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  cfg.Model,
	}, nil
}

// Model returns the configured model name
func (g *Gemini) Model() string {
	return g.model
}

// AnalyzeClothing sends the prompt and the image inline in a single user turn
func (g *Gemini) AnalyzeClothing(ctx context.Context, image []byte, mimeType, lang string) (*Analysis, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(Prompt(lang)),
			genai.NewPartFromBytes(image, mimeType),
		}, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyResponse
	}

	slog.DebugContext(ctx, "model answered", "model", g.model, "language", lang, "chars", len(text))

	return &Analysis{Text: text, Model: g.model}, nil
}
