// Package schema is the contract layer between the inference service and
// the rest of the system. It owns both directions of the wire contract:
// the responseSchema attached to outbound requests and the all-or-nothing
// validation of inbound JSON. Nothing here performs I/O.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"

	genai "google.golang.org/genai"

	"farmwise/internal/types"
)

// ErrViolation marks a payload that parsed as JSON but does not satisfy
// the expected contract. Wrapped errors carry the offending field.
var ErrViolation = errors.New("schema: contract violation")

func violation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrViolation, fmt.Sprintf(format, args...))
}

// DecodeAnalysis validates raw JSON against the AnalysisResult contract.
// Validation is all-or-nothing: a malformed payload is never partially
// accepted.
func DecodeAnalysis(raw json.RawMessage) (types.AnalysisResult, error) {
	var zero types.AnalysisResult

	// Decode into a loose map first so missing fields are distinguishable
	// from zero values.
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return zero, violation("not a JSON object: %v", err)
	}
	for _, field := range []string{"healthScore", "quality", "nutrients", "recommendations", "description"} {
		if _, ok := obj[field]; !ok {
			return zero, violation("missing required field %q", field)
		}
	}

	var out types.AnalysisResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, violation("field shape mismatch: %v", err)
	}
	if out.HealthScore < 0 || out.HealthScore > 100 {
		return zero, violation("healthScore %d outside [0,100]", out.HealthScore)
	}
	if len(out.Nutrients) == 0 {
		return zero, violation("nutrients must be a non-empty sequence")
	}
	for i, n := range out.Nutrients {
		if n.Label == "" {
			return zero, violation("nutrients[%d] has empty label", i)
		}
		if n.Value < 0 || n.Value > 100 {
			return zero, violation("nutrients[%d] value %d outside [0,100]", i, n.Value)
		}
	}
	if len(out.Recommendations) == 0 {
		return zero, violation("recommendations must be a non-empty sequence")
	}
	for i, r := range out.Recommendations {
		if r == "" {
			return zero, violation("recommendations[%d] is empty", i)
		}
	}
	return out, nil
}

// DecodeRecommendations validates raw JSON against the plan contract:
// one or more CropRecommendation elements, each with a known difficulty.
func DecodeRecommendations(raw json.RawMessage) ([]types.CropRecommendation, error) {
	var rows []json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, violation("not a JSON array: %v", err)
	}
	if len(rows) == 0 {
		return nil, violation("empty recommendation list")
	}

	out := make([]types.CropRecommendation, 0, len(rows))
	for i, row := range rows {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(row, &obj); err != nil {
			return nil, violation("element %d is not an object: %v", i, err)
		}
		for _, field := range []string{"name", "suitability", "duration", "reason", "difficulty"} {
			if _, ok := obj[field]; !ok {
				return nil, violation("element %d missing required field %q", i, field)
			}
		}
		var rec types.CropRecommendation
		if err := json.Unmarshal(row, &rec); err != nil {
			return nil, violation("element %d shape mismatch: %v", i, err)
		}
		if rec.Name == "" {
			return nil, violation("element %d has empty name", i)
		}
		if !rec.Difficulty.Valid() {
			return nil, violation("element %d difficulty %q not in {Easy, Moderate, Challenging}", i, rec.Difficulty)
		}
		out = append(out, rec)
	}
	return out, nil
}

// DecodeHistoryData re-validates the payload stored in a HistoryItem
// according to its declared type, so re-reads round-trip through the
// same contract as fresh responses.
func DecodeHistoryData(item types.HistoryItem) (any, error) {
	switch item.Type {
	case types.HistorySoil, types.HistoryCrop:
		return DecodeAnalysis(item.Data)
	case types.HistoryPlanner:
		return DecodeRecommendations(item.Data)
	default:
		return nil, violation("unknown history type %q", item.Type)
	}
}

// Outbound schemas -----------------------------------------------------------------
//
// These mirror the decode contracts above; the service is asked to emit
// exactly the shape the decoders accept.

// AnalysisResponseSchema describes the structured-analysis output shape.
func AnalysisResponseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"healthScore": {Type: genai.TypeNumber},
			"quality":     {Type: genai.TypeString},
			"nutrients": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"label": {Type: genai.TypeString},
						"value": {Type: genai.TypeNumber},
					},
				},
			},
			"recommendations": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
			"description": {Type: genai.TypeString},
		},
		Required: []string{"healthScore", "quality", "nutrients", "recommendations", "description"},
	}
}

// RecommendationResponseSchema describes the season-plan output shape.
func RecommendationResponseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"name":        {Type: genai.TypeString},
				"suitability": {Type: genai.TypeString},
				"duration":    {Type: genai.TypeString},
				"reason":      {Type: genai.TypeString},
				"difficulty": {
					Type: genai.TypeString,
					Enum: []string{"Easy", "Moderate", "Challenging"},
				},
			},
			Required: []string{"name", "suitability", "duration", "reason", "difficulty"},
		},
	}
}
