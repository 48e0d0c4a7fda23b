package llm

import (
	"context"
	"encoding/json"
	"errors"

	genai "google.golang.org/genai"
)

var (
	// ErrEmptyResponse means the call completed but carried no candidates.
	ErrEmptyResponse = errors.New("llm: empty response from model")
)

// Request is a fully specified outbound call: model id, content parts and
// generation config (responseSchema and/or system instruction). Builders
// produce it; clients execute it.
type Request struct {
	Model    string
	Contents []*genai.Content
	Config   *genai.GenerateContentConfig
}

// Client executes inference requests. GenerateJSON is used by the two
// structured intents; GenerateStream by the conversational intent, which
// delivers text fragments in production order via onChunk.
type Client interface {
	Name() string
	GenerateJSON(ctx context.Context, req Request) (json.RawMessage, error)
	GenerateStream(ctx context.Context, req Request, onChunk func(text string) error) error
	Close() error
}
