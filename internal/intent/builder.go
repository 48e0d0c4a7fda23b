// Package intent turns domain intents (analyze, recommend, converse)
// into fully specified inference requests. Builders are pure: the same
// intent and parameters always produce a structurally identical request.
package intent

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	genai "google.golang.org/genai"

	"farmwise/internal/llm"
	"farmwise/internal/schema"
	"farmwise/internal/types"
)

// ErrInvalidInput marks a precondition violation by the caller. It is
// raised before any network activity and never dressed up as a
// transport failure.
var ErrInvalidInput = errors.New("intent: invalid input")

// Model is the inference model every intent targets.
const Model = "gemini-3-flash-preview"

const (
	soilPrompt = "Analyze this soil. Provide: healthScore (0-100), quality name, " +
		"nutrients (Nitrogen, Phosphorus, Potassium as percentages), 3 specific recommendations, " +
		"and a detailed description. Return as pure JSON."

	cropPrompt = "Analyze this plant/crop. Provide: healthScore (0-100), health status quality, " +
		"growth stage nutrients (Health, Vitality, Moisture as percentages), 3 care tips, " +
		"and a description. Return as pure JSON."

	// advisorFraming is the fixed persona for the conversational mode.
	advisorFraming = "You are FarmWise Advisor. Expert in modern agriculture, soil enrichment, " +
		"pest management, and govt policies. Provide structured, visual, and highly helpful " +
		"responses for farmers."
)

// Seasons accepted by the planner intent.
var Seasons = []string{"Spring", "Summer", "Autumn", "Winter"}

// Analyze builds the structured image-analysis request for the given
// kind. image must be a data URI; a missing or malformed image is the
// caller's fault, never silently substituted.
func Analyze(kind types.AnalysisKind, image string) (llm.Request, error) {
	if !kind.Valid() {
		return llm.Request{}, fmt.Errorf("%w: unknown analysis kind %q", ErrInvalidInput, kind)
	}
	blob, err := decodeDataURI(image)
	if err != nil {
		return llm.Request{}, err
	}
	prompt := soilPrompt
	if kind == types.KindCrop {
		prompt = cropPrompt
	}
	return llm.Request{
		Model: Model,
		Contents: []*genai.Content{{
			Role: "user",
			Parts: []*genai.Part{
				{InlineData: blob},
				{Text: prompt},
			},
		}},
		Config: &genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   schema.AnalysisResponseSchema(),
		},
	}, nil
}

// Recommend builds the season-plan request.
func Recommend(season string) (llm.Request, error) {
	season = strings.TrimSpace(season)
	if !validSeason(season) {
		return llm.Request{}, fmt.Errorf("%w: unknown season %q", ErrInvalidInput, season)
	}
	prompt := fmt.Sprintf("Provide 3-5 crop recommendations for the %s season. "+
		"For each crop, provide: name, suitability description, typical duration (e.g. \"90-120 days\"), "+
		"the scientific reason why it's suitable, and difficulty level ('Easy', 'Moderate', or 'Challenging'). "+
		"Return the response as a pure JSON array.", season)
	return llm.Request{
		Model: Model,
		Contents: []*genai.Content{{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		}},
		Config: &genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   schema.RecommendationResponseSchema(),
		},
	}, nil
}

// Converse builds the streaming advisor request. The prior turns come
// from the session holder; the builder never reconstructs history. No
// output schema is attached: the advisor replies in free text.
func Converse(message string, history []types.ChatTurn) (llm.Request, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return llm.Request{}, fmt.Errorf("%w: empty chat message", ErrInvalidInput)
	}
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, turn := range history {
		contents = append(contents, &genai.Content{
			Role:  string(turn.Role),
			Parts: []*genai.Part{{Text: turn.Text}},
		})
	}
	contents = append(contents, &genai.Content{
		Role:  string(types.RoleUser),
		Parts: []*genai.Part{{Text: message}},
	})
	return llm.Request{
		Model:    Model,
		Contents: contents,
		Config: &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{
				Parts: []*genai.Part{{Text: advisorFraming}},
			},
		},
	}, nil
}

func validSeason(season string) bool {
	for _, s := range Seasons {
		if s == season {
			return true
		}
	}
	return false
}

// decodeDataURI extracts the media type and payload from a data URI of
// the form "data:<mime>;base64,<payload>".
func decodeDataURI(uri string) (*genai.Blob, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, fmt.Errorf("%w: image is required", ErrInvalidInput)
	}
	if !strings.HasPrefix(uri, "data:") {
		return nil, fmt.Errorf("%w: image is not a data URI", ErrInvalidInput)
	}
	meta, payload, ok := strings.Cut(uri[len("data:"):], ",")
	if !ok || payload == "" {
		return nil, fmt.Errorf("%w: data URI has no payload", ErrInvalidInput)
	}
	mime := strings.TrimSuffix(meta, ";base64")
	if mime == meta {
		return nil, fmt.Errorf("%w: data URI is not base64 encoded", ErrInvalidInput)
	}
	if mime == "" {
		mime = "image/jpeg"
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: bad base64 payload: %v", ErrInvalidInput, err)
	}
	return &genai.Blob{MIMEType: mime, Data: data}, nil
}
