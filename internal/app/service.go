// Package app orchestrates the inference pipeline: it guards busy
// surfaces, applies explicit timeouts, classifies failures and routes
// validated results through the reconciler into the durable store.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"farmwise/internal/chat"
	"farmwise/internal/intent"
	"farmwise/internal/llm"
	"farmwise/internal/reconcile"
	"farmwise/internal/report"
	"farmwise/internal/schema"
	"farmwise/internal/store"
	"farmwise/internal/types"
)

// ErrBusy means a request of the same kind is still outstanding. Each
// surface guards only itself; different kinds run concurrently.
var ErrBusy = errors.New("app: operation already in flight")

// Explicit request timeouts. The original behavior had none; a hung
// call now surfaces exactly like a transport failure.
const (
	analyzeTimeout = 60 * time.Second
	chatTimeout    = 120 * time.Second
)

// FailureKind is the internal diagnostic classification. The user sees
// a single generic notice per operation regardless of kind.
type FailureKind string

const (
	FailureInvalidInput    FailureKind = "invalid_input"
	FailureSchemaViolation FailureKind = "schema_violation"
	FailureTransport       FailureKind = "transport_failure"
)

// Classify maps an error from the request path to its diagnostic kind.
func Classify(err error) FailureKind {
	switch {
	case errors.Is(err, intent.ErrInvalidInput), errors.Is(err, ErrBusy), errors.Is(err, chat.ErrTurnInFlight):
		return FailureInvalidInput
	case errors.Is(err, schema.ErrViolation):
		return FailureSchemaViolation
	default:
		return FailureTransport
	}
}

type Service struct {
	client   llm.Client
	store    *store.Store
	slots    *reconcile.Slots
	rec      *reconcile.Reconciler
	session  *chat.Session
	exporter *report.Exporter

	busyMu sync.Mutex
	busy   map[string]bool
}

func New(client llm.Client, st *store.Store, exporter *report.Exporter) *Service {
	slots := &reconcile.Slots{}
	return &Service{
		client:   client,
		store:    st,
		slots:    slots,
		rec:      reconcile.New(st, slots),
		session:  chat.NewSession(),
		exporter: exporter,
		busy:     map[string]bool{},
	}
}

// acquire marks an operation surface busy. Callers must release on all
// paths; a second request of the same kind while one is pending is a
// precondition violation, not a queueing hint.
func (s *Service) acquire(op string) error {
	s.busyMu.Lock()
	defer s.busyMu.Unlock()
	if s.busy[op] {
		return fmt.Errorf("%w: %s", ErrBusy, op)
	}
	s.busy[op] = true
	return nil
}

func (s *Service) release(op string) {
	s.busyMu.Lock()
	delete(s.busy, op)
	s.busyMu.Unlock()
}

// Analyze runs one structured image analysis end to end. On any failure
// the current slot and the activity log are left untouched.
func (s *Service) Analyze(ctx context.Context, kind types.AnalysisKind, image string) (types.AnalysisResult, error) {
	req, err := intent.Analyze(kind, image)
	if err != nil {
		return types.AnalysisResult{}, err
	}
	op := "analyze:" + string(kind)
	if err := s.acquire(op); err != nil {
		return types.AnalysisResult{}, err
	}
	defer s.release(op)

	ctx, cancel := context.WithTimeout(ctx, analyzeTimeout)
	defer cancel()

	raw, err := s.client.GenerateJSON(ctx, req)
	if err != nil {
		log.Printf("app: %s analysis failed (%s): %v", kind, Classify(err), err)
		return types.AnalysisResult{}, err
	}
	result, err := schema.DecodeAnalysis(raw)
	if err != nil {
		log.Printf("app: %s analysis rejected (%s): %v", kind, Classify(err), err)
		return types.AnalysisResult{}, err
	}
	if _, err := s.rec.ApplyAnalysis(kind, result, image); err != nil {
		return types.AnalysisResult{}, err
	}
	return result, nil
}

// Plan fetches the season recommendation sequence. A schema violation
// leaves the prior plan (if any) unchanged.
func (s *Service) Plan(ctx context.Context, season string) ([]types.CropRecommendation, error) {
	req, err := intent.Recommend(season)
	if err != nil {
		return nil, err
	}
	if err := s.acquire("plan"); err != nil {
		return nil, err
	}
	defer s.release("plan")

	ctx, cancel := context.WithTimeout(ctx, analyzeTimeout)
	defer cancel()

	raw, err := s.client.GenerateJSON(ctx, req)
	if err != nil {
		log.Printf("app: plan fetch failed (%s): %v", Classify(err), err)
		return nil, err
	}
	recs, err := schema.DecodeRecommendations(raw)
	if err != nil {
		log.Printf("app: plan rejected (%s): %v", Classify(err), err)
		return nil, err
	}
	if _, err := s.rec.ApplyPlan(strings.TrimSpace(season), recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// Converse runs one advisor turn. onPending fires once the pending
// model turn is visible in the transcript, before any fragment; each
// fragment is forwarded to onFragment after it lands in the transcript.
// On abnormal termination the turn finalizes into the fixed placeholder
// instead of a truncated text, and the placeholder is the returned turn
// text.
func (s *Service) Converse(ctx context.Context, message string, onPending func(), onFragment func(text string)) (types.ChatTurn, error) {
	req, err := intent.Converse(message, s.session.HistoryBefore())
	if err != nil {
		return types.ChatTurn{}, err
	}
	if err := s.session.Begin(strings.TrimSpace(message)); err != nil {
		return types.ChatTurn{}, err
	}
	if onPending != nil {
		onPending()
	}

	ctx, cancel := context.WithTimeout(ctx, chatTimeout)
	defer cancel()

	streamErr := s.client.GenerateStream(ctx, req, func(text string) error {
		if err := s.session.Append(text); err != nil {
			return err
		}
		if onFragment != nil {
			onFragment(text)
		}
		return nil
	})
	if streamErr != nil {
		log.Printf("app: chat turn failed (%s): %v", Classify(streamErr), streamErr)
		_ = s.session.Fail()
	} else {
		_ = s.session.Finalize()
	}

	turns := s.session.Transcript()
	final := turns[len(turns)-1]
	return final, streamErr
}

// Transcript returns the advisor conversation so far.
func (s *Service) Transcript() []types.ChatTurn { return s.session.Transcript() }

// ResetChat discards the conversation; it fails while a turn is in
// flight.
func (s *Service) ResetChat() error { return s.session.Reset() }

// ChatInFlight reports whether a model turn is currently streaming.
func (s *Service) ChatInFlight() bool { return s.session.InFlight() }

// Slots ----------------------------------------------------------------------------

func (s *Service) CurrentAnalysis(kind types.AnalysisKind) *types.AnalysisResult {
	return s.slots.Current(kind)
}

func (s *Service) CurrentPlan() []types.CropRecommendation { return s.slots.Plan() }

// Reminders ------------------------------------------------------------------------

// AcceptRecommendation schedules planting for one recommended crop.
func (s *Service) AcceptRecommendation(cropName string) (types.Reminder, error) {
	cropName = strings.TrimSpace(cropName)
	if cropName == "" {
		return types.Reminder{}, fmt.Errorf("%w: crop name is required", intent.ErrInvalidInput)
	}
	return s.rec.AcceptRecommendation(cropName)
}

// AddReminder creates a task from direct user input. Date defaults to
// today; category defaults to Planting.
func (s *Service) AddReminder(title string, category types.ReminderCategory, date string) (types.Reminder, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return types.Reminder{}, fmt.Errorf("%w: title is required", intent.ErrInvalidInput)
	}
	if category == "" {
		category = types.CategoryPlanting
	}
	if !category.Valid() {
		return types.Reminder{}, fmt.Errorf("%w: unknown category %q", intent.ErrInvalidInput, category)
	}
	date = strings.TrimSpace(date)
	if date == "" {
		date = time.Now().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		return types.Reminder{}, fmt.Errorf("%w: bad date %q", intent.ErrInvalidInput, date)
	}
	rem := types.Reminder{
		ID:       uuid.NewString(),
		Title:    title,
		Date:     date,
		Category: category,
	}
	if err := s.store.AddReminder(rem); err != nil {
		return types.Reminder{}, err
	}
	return rem, nil
}

func (s *Service) ToggleReminder(id string) (types.Reminder, bool, error) {
	return s.store.UpdateReminder(id, func(r *types.Reminder) {
		r.Completed = !r.Completed
	})
}

func (s *Service) DeleteReminder(id string) (bool, error) { return s.store.DeleteReminder(id) }

func (s *Service) Reminders() []types.Reminder { return s.store.Reminders() }

// History --------------------------------------------------------------------------

func (s *Service) History() []types.HistoryItem { return s.store.History() }

func (s *Service) ClearHistory() error { return s.store.ClearHistory() }

// Prefs ----------------------------------------------------------------------------

func (s *Service) Prefs() types.Prefs { return s.store.Prefs() }

func (s *Service) SetPrefs(p types.Prefs) error { return s.store.SetPrefs(p) }

// Report ---------------------------------------------------------------------------

// ExportReport renders and stores the report for the current result of
// the given kind.
func (s *Service) ExportReport(ctx context.Context, kind types.AnalysisKind) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("%w: unknown analysis kind %q", intent.ErrInvalidInput, kind)
	}
	result := s.slots.Current(kind)
	if result == nil {
		return "", fmt.Errorf("%w: no %s analysis to export", intent.ErrInvalidInput, kind)
	}
	if s.exporter == nil {
		return "", fmt.Errorf("%w: report export is not configured", intent.ErrInvalidInput)
	}
	return s.exporter.Export(ctx, kind, *result)
}
