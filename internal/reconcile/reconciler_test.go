package reconcile

import (
	"encoding/json"
	"testing"
	"time"

	"farmwise/internal/store"
	"farmwise/internal/types"
)

func fixedReconciler(t *testing.T) (*Reconciler, *Slots, *store.Store) {
	t.Helper()
	st := store.New(t.TempDir())
	slots := &Slots{}
	r := New(st, slots)
	r.now = func() time.Time { return time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC) }
	n := 0
	r.newID = func() string { n++; return "id-" + string(rune('0'+n)) }
	return r, slots, st
}

func sampleAnalysis() types.AnalysisResult {
	return types.AnalysisResult{
		HealthScore:     82,
		Quality:         "Excellent",
		Nutrients:       []types.Nutrient{{Label: "Nitrogen", Value: 71}},
		Recommendations: []string{"Keep mulching"},
		Description:     "Rich loam.",
	}
}

func TestApplyAnalysis_SlotAndLogMoveTogether(t *testing.T) {
	r, slots, st := fixedReconciler(t)

	item, err := r.ApplyAnalysis(types.KindSoil, sampleAnalysis(), "data:image/png;base64,AAAA")
	if err != nil {
		t.Fatalf("ApplyAnalysis: %v", err)
	}
	if item.Summary != "Soil Quality: Excellent" {
		t.Fatalf("summary = %q", item.Summary)
	}
	if item.Timestamp != "1/15/2026, 9:30:00 AM" {
		t.Fatalf("timestamp = %q", item.Timestamp)
	}
	if item.Type != types.HistorySoil || item.Image == "" {
		t.Fatalf("item shape wrong: %+v", item)
	}

	cur := slots.Current(types.KindSoil)
	if cur == nil || cur.Quality != "Excellent" {
		t.Fatalf("slot not superseded: %+v", cur)
	}
	if slots.Current(types.KindCrop) != nil {
		t.Fatal("crop slot must be independent of soil analyses")
	}

	log := st.History()
	if len(log) != 1 || log[0].ID != item.ID {
		t.Fatalf("log entry missing: %+v", log)
	}

	// The stored payload decodes back to the result.
	var roundTrip types.AnalysisResult
	if err := json.Unmarshal(log[0].Data, &roundTrip); err != nil {
		t.Fatalf("stored payload: %v", err)
	}
	if roundTrip.HealthScore != 82 {
		t.Fatalf("payload mangled: %+v", roundTrip)
	}
}

func TestApplyAnalysis_CropSummary(t *testing.T) {
	r, _, _ := fixedReconciler(t)
	res := sampleAnalysis()
	res.Quality = "Good"
	item, err := r.ApplyAnalysis(types.KindCrop, res, "data:image/png;base64,AAAA")
	if err != nil {
		t.Fatalf("ApplyAnalysis: %v", err)
	}
	if item.Summary != "Crop Health: Good" {
		t.Fatalf("summary = %q", item.Summary)
	}
}

func TestApplyPlan_ReplacesWholesale(t *testing.T) {
	r, slots, st := fixedReconciler(t)

	first := []types.CropRecommendation{{Name: "Tomato", Suitability: "High", Duration: "90 days", Reason: "warmth", Difficulty: types.DifficultyEasy}}
	if _, err := r.ApplyPlan("Summer", first); err != nil {
		t.Fatalf("first plan: %v", err)
	}

	second := []types.CropRecommendation{
		{Name: "Kale", Suitability: "High", Duration: "60 days", Reason: "frost tolerant", Difficulty: types.DifficultyEasy},
		{Name: "Garlic", Suitability: "Medium", Duration: "240 days", Reason: "overwinters", Difficulty: types.DifficultyModerate},
	}
	item, err := r.ApplyPlan("Winter", second)
	if err != nil {
		t.Fatalf("second plan: %v", err)
	}
	if item.Summary != "Winter Season Planting Plan" {
		t.Fatalf("summary = %q", item.Summary)
	}
	if item.Image != "" {
		t.Fatal("planner entries carry no image")
	}

	plan := slots.Plan()
	if len(plan) != 2 || plan[0].Name != "Kale" {
		t.Fatalf("plan not replaced wholesale: %+v", plan)
	}
	// Both fetches landed in the activity log, newest first.
	log := st.History()
	if len(log) != 2 || log[0].Summary != "Winter Season Planting Plan" {
		t.Fatalf("log order wrong: %+v", log)
	}
}

func TestAcceptRecommendation_ReminderShape(t *testing.T) {
	r, _, st := fixedReconciler(t)

	rem, err := r.AcceptRecommendation("Tomato")
	if err != nil {
		t.Fatalf("AcceptRecommendation: %v", err)
	}
	if rem.Title != "Start Planting: Tomato" {
		t.Fatalf("title = %q", rem.Title)
	}
	if rem.Date != "2026-01-15" {
		t.Fatalf("date = %q", rem.Date)
	}
	if rem.Category != types.CategoryPlanting || rem.Completed {
		t.Fatalf("reminder shape wrong: %+v", rem)
	}
	got := st.Reminders()
	if len(got) != 1 || got[0].ID != rem.ID {
		t.Fatalf("reminder not persisted: %+v", got)
	}
}

func TestAcceptRecommendation_DuplicatesAllowed(t *testing.T) {
	r, _, st := fixedReconciler(t)
	if _, err := r.AcceptRecommendation("Tomato"); err != nil {
		t.Fatalf("first accept: %v", err)
	}
	if _, err := r.AcceptRecommendation("Tomato"); err != nil {
		t.Fatalf("second accept: %v", err)
	}
	if got := st.Reminders(); len(got) != 2 {
		t.Fatalf("accepting twice must create two reminders: %+v", got)
	}
}
