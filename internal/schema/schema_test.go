package schema

import (
	"encoding/json"
	"errors"
	"testing"

	"farmwise/internal/types"
)

const goodAnalysis = `{
	"healthScore": 78,
	"quality": "Good",
	"nutrients": [
		{"label": "Nitrogen", "value": 64},
		{"label": "Phosphorus", "value": 51},
		{"label": "Potassium", "value": 72}
	],
	"recommendations": ["Add compost", "Mulch the beds", "Rotate legumes in"],
	"description": "Loamy soil with balanced macronutrients."
}`

func TestDecodeAnalysis_Valid(t *testing.T) {
	got, err := DecodeAnalysis(json.RawMessage(goodAnalysis))
	if err != nil {
		t.Fatalf("DecodeAnalysis: %v", err)
	}
	if got.HealthScore != 78 || got.Quality != "Good" {
		t.Fatalf("unexpected result: %+v", got)
	}
	if len(got.Nutrients) != 3 || got.Nutrients[0].Label != "Nitrogen" {
		t.Fatalf("nutrients not preserved: %+v", got.Nutrients)
	}
	if len(got.Recommendations) != 3 {
		t.Fatalf("recommendations not preserved: %+v", got.Recommendations)
	}
}

func TestDecodeAnalysis_MissingField(t *testing.T) {
	// quality removed; every other field present and well-formed.
	raw := json.RawMessage(`{
		"healthScore": 78,
		"nutrients": [{"label": "Nitrogen", "value": 64}],
		"recommendations": ["Add compost"],
		"description": "ok"
	}`)
	if _, err := DecodeAnalysis(raw); !errors.Is(err, ErrViolation) {
		t.Fatalf("want ErrViolation, got %v", err)
	}
}

func TestDecodeAnalysis_ScoreOutOfRange(t *testing.T) {
	for _, score := range []int{-1, 101} {
		raw := json.RawMessage(`{
			"healthScore": ` + itoa(score) + `,
			"quality": "Good",
			"nutrients": [{"label": "Nitrogen", "value": 64}],
			"recommendations": ["Add compost"],
			"description": "ok"
		}`)
		if _, err := DecodeAnalysis(raw); !errors.Is(err, ErrViolation) {
			t.Fatalf("score %d: want ErrViolation, got %v", score, err)
		}
	}
}

func TestDecodeAnalysis_EmptySequences(t *testing.T) {
	cases := map[string]string{
		"no nutrients":       `{"healthScore": 50, "quality": "Fair", "nutrients": [], "recommendations": ["x"], "description": "d"}`,
		"no recommendations": `{"healthScore": 50, "quality": "Fair", "nutrients": [{"label": "N", "value": 1}], "recommendations": [], "description": "d"}`,
		"not an object":      `[1, 2, 3]`,
	}
	for name, raw := range cases {
		if _, err := DecodeAnalysis(json.RawMessage(raw)); !errors.Is(err, ErrViolation) {
			t.Fatalf("%s: want ErrViolation, got %v", name, err)
		}
	}
}

func TestDecodeRecommendations_Valid(t *testing.T) {
	raw := json.RawMessage(`[
		{"name": "Tomato", "suitability": "High", "duration": "90-120 days", "reason": "Warm-season fruiting crop.", "difficulty": "Easy"},
		{"name": "Okra", "suitability": "Medium", "duration": "60 days", "reason": "Heat tolerant.", "difficulty": "Moderate"}
	]`)
	recs, err := DecodeRecommendations(raw)
	if err != nil {
		t.Fatalf("DecodeRecommendations: %v", err)
	}
	if len(recs) != 2 || recs[0].Name != "Tomato" || recs[1].Difficulty != types.DifficultyModerate {
		t.Fatalf("unexpected recs: %+v", recs)
	}
}

func TestDecodeRecommendations_UnknownDifficulty(t *testing.T) {
	raw := json.RawMessage(`[
		{"name": "Tomato", "suitability": "High", "duration": "90 days", "reason": "ok", "difficulty": "Impossible"}
	]`)
	if _, err := DecodeRecommendations(raw); !errors.Is(err, ErrViolation) {
		t.Fatalf("want ErrViolation, got %v", err)
	}
}

func TestDecodeRecommendations_EmptyArray(t *testing.T) {
	if _, err := DecodeRecommendations(json.RawMessage(`[]`)); !errors.Is(err, ErrViolation) {
		t.Fatal("empty array must be a violation")
	}
}

func TestDecodeHistoryData_Dispatch(t *testing.T) {
	soil := types.HistoryItem{Type: types.HistorySoil, Data: json.RawMessage(goodAnalysis)}
	if _, err := DecodeHistoryData(soil); err != nil {
		t.Fatalf("soil item: %v", err)
	}

	plan := types.HistoryItem{Type: types.HistoryPlanner, Data: json.RawMessage(goodAnalysis)}
	if _, err := DecodeHistoryData(plan); !errors.Is(err, ErrViolation) {
		t.Fatal("analysis payload under planner type must be a violation")
	}

	unknown := types.HistoryItem{Type: "weather", Data: json.RawMessage(`{}`)}
	if _, err := DecodeHistoryData(unknown); !errors.Is(err, ErrViolation) {
		t.Fatal("unknown type must be a violation")
	}
}

func TestResponseSchemas_RequiredFieldsMatchDecoders(t *testing.T) {
	a := AnalysisResponseSchema()
	for _, field := range []string{"healthScore", "quality", "nutrients", "recommendations", "description"} {
		if _, ok := a.Properties[field]; !ok {
			t.Fatalf("analysis schema missing property %q", field)
		}
	}
	r := RecommendationResponseSchema()
	if r.Items == nil {
		t.Fatal("recommendation schema has no item shape")
	}
	diff := r.Items.Properties["difficulty"]
	if diff == nil || len(diff.Enum) != 3 {
		t.Fatalf("difficulty enum not closed: %+v", diff)
	}
}

func itoa(v int) string {
	b, _ := json.Marshal(v)
	return string(b)
}
