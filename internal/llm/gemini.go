package llm

import (
	"context"
	"encoding/json"

	genai "google.golang.org/genai"
)

// GeminiClient is a thin wrapper around the official genai client.
// It only focuses on the API call itself. Cross-cutting concerns
// (rate limiting, logging) are applied via Middleware.
type GeminiClient struct {
	cli   *genai.Client
	model string
}

// NewGeminiClient connects to the Gemini API backend. An empty apiKey
// lets the genai client fall back to its own environment lookup.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	cfg := &genai.ClientConfig{Backend: genai.BackendGeminiAPI}
	if apiKey != "" {
		cfg.APIKey = apiKey
	}
	cli, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &GeminiClient{cli: cli, model: model}, nil
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.model }
func (g *GeminiClient) Close() error { return nil }

// GenerateJSON executes a structured request and returns the raw JSON
// text of the first candidate. Validation happens in the schema layer,
// never here.
func (g *GeminiClient) GenerateJSON(ctx context.Context, req Request) (json.RawMessage, error) {
	model := req.Model
	if model == "" {
		model = g.model
	}
	resp, err := g.cli.Models.GenerateContent(ctx, model, req.Contents, req.Config)
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, ErrEmptyResponse
	}
	return json.RawMessage(resp.Candidates[0].Content.Parts[0].Text), nil
}

// GenerateStream executes a conversational request, forwarding each text
// fragment in arrival order. A non-nil error from onChunk aborts the
// stream and is returned as-is.
func (g *GeminiClient) GenerateStream(ctx context.Context, req Request, onChunk func(text string) error) error {
	model := req.Model
	if model == "" {
		model = g.model
	}
	for resp, err := range g.cli.Models.GenerateContentStream(ctx, model, req.Contents, req.Config) {
		if err != nil {
			return err
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			continue
		}
		for _, part := range resp.Candidates[0].Content.Parts {
			if part == nil || part.Text == "" {
				continue
			}
			if err := onChunk(part.Text); err != nil {
				return err
			}
		}
	}
	return nil
}
