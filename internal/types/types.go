package types

import "encoding/json"

// Analysis kinds / difficulty / reminder categories --------------------------------

// AnalysisKind distinguishes the two image-analysis surfaces.
type AnalysisKind string

const (
	KindSoil AnalysisKind = "soil"
	KindCrop AnalysisKind = "crop"
)

// Valid reports whether k is one of the known analysis kinds.
func (k AnalysisKind) Valid() bool {
	return k == KindSoil || k == KindCrop
}

// Difficulty is the closed set of crop difficulty grades.
type Difficulty string

const (
	DifficultyEasy        Difficulty = "Easy"
	DifficultyModerate    Difficulty = "Moderate"
	DifficultyChallenging Difficulty = "Challenging"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyModerate, DifficultyChallenging:
		return true
	}
	return false
}

// ReminderCategory is the closed set of task categories.
type ReminderCategory string

const (
	CategoryPlanting    ReminderCategory = "Planting"
	CategoryWatering    ReminderCategory = "Watering"
	CategoryFertilizing ReminderCategory = "Fertilizing"
	CategoryHarvesting  ReminderCategory = "Harvesting"
)

func (c ReminderCategory) Valid() bool {
	switch c {
	case CategoryPlanting, CategoryWatering, CategoryFertilizing, CategoryHarvesting:
		return true
	}
	return false
}

// HistoryType extends AnalysisKind with the planner entry.
type HistoryType string

const (
	HistorySoil    HistoryType = "soil"
	HistoryCrop    HistoryType = "crop"
	HistoryPlanner HistoryType = "planner"
)

func (t HistoryType) Valid() bool {
	switch t {
	case HistorySoil, HistoryCrop, HistoryPlanner:
		return true
	}
	return false
}

// Inference results ----------------------------------------------------------------

type Nutrient struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// AnalysisResult is one validated structured analysis. Immutable once stored;
// a later analysis of the same kind supersedes it, never merges into it.
type AnalysisResult struct {
	HealthScore     int        `json:"healthScore"`
	Quality         string     `json:"quality"`
	Nutrients       []Nutrient `json:"nutrients"`
	Recommendations []string   `json:"recommendations"`
	Description     string     `json:"description"`
}

// CropRecommendation is one entry of a season planting plan. The plan is
// always replaced wholesale, never patched per element.
type CropRecommendation struct {
	Name        string     `json:"name"`
	Suitability string     `json:"suitability"`
	Duration    string     `json:"duration"`
	Reason      string     `json:"reason"`
	Difficulty  Difficulty `json:"difficulty"`
}

// Conversation ---------------------------------------------------------------------

type ChatRole string

const (
	RoleUser  ChatRole = "user"
	RoleModel ChatRole = "model"
)

// ChatTurn is one message of an advisor transcript. A model turn starts
// pending (empty text) and is grown in place by the accumulator; a user
// turn is immutable from creation.
type ChatTurn struct {
	Role ChatRole `json:"role"`
	Text string   `json:"text"`
}

// Durable collections --------------------------------------------------------------

// HistoryItem is one append-only activity log entry.
// Data holds either an AnalysisResult (soil/crop) or a
// []CropRecommendation (planner), per Type; it is kept raw so that
// re-reads pass back through contract validation instead of being
// trusted blindly.
type HistoryItem struct {
	ID        string          `json:"id"`
	Timestamp string          `json:"timestamp"`
	Type      HistoryType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Image     string          `json:"image,omitempty"`
	Summary   string          `json:"summary"`
}

// Reminder is a single mutable task.
type Reminder struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Date      string           `json:"date"`
	Completed bool             `json:"completed"`
	Category  ReminderCategory `json:"category"`
}

// Prefs holds the persisted UI preference flags. The authenticated marker
// is a cosmetic gate, not a security boundary.
type Prefs struct {
	DarkMode      bool `json:"darkMode"`
	Authenticated bool `json:"authenticated"`
}
