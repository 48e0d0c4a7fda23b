// Package reconcile turns validated inference responses into durable
// mutations: the "current result" slots and the activity log move
// together as one logical unit, or not at all.
package reconcile

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"farmwise/internal/store"
	"farmwise/internal/types"
)

// timestampLayout matches the human-readable stamps the activity log
// has always carried.
const timestampLayout = "1/2/2006, 3:04:05 PM"

// Slots holds the session-scoped "most recent result" values. They are
// mutated only through the Reconciler, which keeps the atomicity
// property testable.
type Slots struct {
	mu   sync.RWMutex
	soil *types.AnalysisResult
	crop *types.AnalysisResult
	plan []types.CropRecommendation
}

// Current returns the analysis slot for the kind, or nil when no
// analysis has completed yet.
func (s *Slots) Current(kind types.AnalysisKind) *types.AnalysisResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch kind {
	case types.KindSoil:
		return s.soil
	case types.KindCrop:
		return s.crop
	}
	return nil
}

// Plan returns the current recommendation sequence.
func (s *Slots) Plan() []types.CropRecommendation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.CropRecommendation, len(s.plan))
	copy(out, s.plan)
	return out
}

func (s *Slots) setAnalysis(kind types.AnalysisKind, r types.AnalysisResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if kind == types.KindSoil {
		s.soil = &r
	} else {
		s.crop = &r
	}
}

func (s *Slots) setPlan(recs []types.CropRecommendation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plan = recs
}

// Reconciler is the only writer of new activity log entries.
type Reconciler struct {
	store *store.Store
	slots *Slots

	now   func() time.Time
	newID func() string
}

func New(st *store.Store, slots *Slots) *Reconciler {
	return &Reconciler{
		store: st,
		slots: slots,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// ApplyAnalysis supersedes the current result slot for kind and
// prepends one activity log entry. The log write happens first; if it
// fails, the slot is left untouched and no entry lands.
func (r *Reconciler) ApplyAnalysis(kind types.AnalysisKind, result types.AnalysisResult, image string) (types.HistoryItem, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return types.HistoryItem{}, fmt.Errorf("reconcile: encode analysis: %w", err)
	}
	summary := "Soil Quality: " + result.Quality
	if kind == types.KindCrop {
		summary = "Crop Health: " + result.Quality
	}
	item := types.HistoryItem{
		ID:        r.newID(),
		Timestamp: r.now().Format(timestampLayout),
		Type:      types.HistoryType(kind),
		Data:      data,
		Image:     image,
		Summary:   summary,
	}
	if err := r.store.PrependHistory(item); err != nil {
		return types.HistoryItem{}, fmt.Errorf("reconcile: persist history: %w", err)
	}
	r.slots.setAnalysis(kind, result)
	return item, nil
}

// ApplyPlan replaces the entire recommendation sequence and prepends
// one planner entry (no image).
func (r *Reconciler) ApplyPlan(season string, recs []types.CropRecommendation) (types.HistoryItem, error) {
	data, err := json.Marshal(recs)
	if err != nil {
		return types.HistoryItem{}, fmt.Errorf("reconcile: encode plan: %w", err)
	}
	item := types.HistoryItem{
		ID:        r.newID(),
		Timestamp: r.now().Format(timestampLayout),
		Type:      types.HistoryPlanner,
		Data:      data,
		Summary:   season + " Season Planting Plan",
	}
	if err := r.store.PrependHistory(item); err != nil {
		return types.HistoryItem{}, fmt.Errorf("reconcile: persist history: %w", err)
	}
	r.slots.setPlan(recs)
	return item, nil
}

// AcceptRecommendation creates the single reminder for an accepted crop
// recommendation. This is user intent, not inference output; it lives
// here because it shares the reminder-creation contract.
func (r *Reconciler) AcceptRecommendation(cropName string) (types.Reminder, error) {
	rem := types.Reminder{
		ID:        r.newID(),
		Title:     "Start Planting: " + cropName,
		Date:      r.now().Format("2006-01-02"),
		Completed: false,
		Category:  types.CategoryPlanting,
	}
	if err := r.store.AddReminder(rem); err != nil {
		return types.Reminder{}, fmt.Errorf("reconcile: persist reminder: %w", err)
	}
	return rem, nil
}
