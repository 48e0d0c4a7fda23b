// Package handler is the HTTP boundary of the core: it forwards user
// intents into the orchestration service and renders store collections
// as JSON. No presentation logic lives here beyond serialization.
package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"sort"
	"strings"

	"farmwise/internal/app"
	"farmwise/internal/types"
)

// User-visible failure notices, one generic message per operation. The
// internals log the precise cause; the user never sees it.
const (
	analyzeFailureNotice = "Analysis failed. Please check your image clarity."
	plannerFailureNotice = "Failed to fetch recommendations. Please try again."
)

type Service struct {
	app *app.Service
}

func NewService(a *app.Service) *Service {
	return &Service{app: a}
}

// NewMux wires all routes.
func NewMux(s *Service) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /api/analysis", s.handleCurrentAnalysis)
	mux.HandleFunc("POST /api/planner", s.handlePlan)
	mux.HandleFunc("GET /api/planner", s.handleCurrentPlan)

	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("DELETE /api/history", s.handleClearHistory)

	mux.HandleFunc("GET /api/reminders", s.handleReminders)
	mux.HandleFunc("POST /api/reminders", s.handleAddReminder)
	mux.HandleFunc("POST /api/reminders/accept", s.handleAcceptRecommendation)
	mux.HandleFunc("POST /api/reminders/{id}/toggle", s.handleToggleReminder)
	mux.HandleFunc("DELETE /api/reminders/{id}", s.handleDeleteReminder)

	mux.HandleFunc("GET /api/prefs", s.handleGetPrefs)
	mux.HandleFunc("PUT /api/prefs", s.handleSetPrefs)

	mux.HandleFunc("POST /api/report", s.handleExportReport)

	mux.HandleFunc("GET /api/advisor", s.handleTranscript)
	mux.HandleFunc("DELETE /api/advisor", s.handleResetChat)
	mux.HandleFunc("/ws/advisor", s.HandleAdvisorWS)

	return CORS(mux)
}

// JSON helpers ---------------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

// writeFailure maps the internal failure classification to a status and
// emits the operation's generic notice.
func writeFailure(w http.ResponseWriter, err error, notice string) {
	status := http.StatusBadGateway
	if app.Classify(err) == app.FailureInvalidInput {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, errorBody{Error: notice})
}

// Analysis -------------------------------------------------------------------------

type analyzeRequest struct {
	Kind  string `json:"kind"`
	Image string `json:"image"`
}

func (s *Service) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var in analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json body"})
		return
	}
	result, err := s.app.Analyze(r.Context(), types.AnalysisKind(in.Kind), in.Image)
	if err != nil {
		log.Printf("handler: analyze %s failed: %v", in.Kind, err)
		writeFailure(w, err, analyzeFailureNotice)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Service) handleCurrentAnalysis(w http.ResponseWriter, r *http.Request) {
	kind := types.AnalysisKind(strings.TrimSpace(r.URL.Query().Get("kind")))
	if !kind.Valid() {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "kind must be soil or crop"})
		return
	}
	result := s.app.CurrentAnalysis(kind)
	if result == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "no analysis yet"})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Planner --------------------------------------------------------------------------

type planRequest struct {
	Season string `json:"season"`
}

func (s *Service) handlePlan(w http.ResponseWriter, r *http.Request) {
	var in planRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json body"})
		return
	}
	recs, err := s.app.Plan(r.Context(), in.Season)
	if err != nil {
		log.Printf("handler: plan %s failed: %v", in.Season, err)
		writeFailure(w, err, plannerFailureNotice)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Service) handleCurrentPlan(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.app.CurrentPlan())
}

// History --------------------------------------------------------------------------

func (s *Service) handleHistory(w http.ResponseWriter, _ *http.Request) {
	items := s.app.History()
	if items == nil {
		items = []types.HistoryItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Service) handleClearHistory(w http.ResponseWriter, _ *http.Request) {
	if err := s.app.ClearHistory(); err != nil {
		log.Printf("handler: clear history failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "could not clear history"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Reminders ------------------------------------------------------------------------

func (s *Service) handleReminders(w http.ResponseWriter, _ *http.Request) {
	items := s.app.Reminders()
	// Completed tasks sort after incomplete ones for display; storage
	// order is otherwise preserved.
	sort.SliceStable(items, func(i, j int) bool {
		return !items[i].Completed && items[j].Completed
	})
	if items == nil {
		items = []types.Reminder{}
	}
	writeJSON(w, http.StatusOK, items)
}

type addReminderRequest struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Date     string `json:"date"`
}

func (s *Service) handleAddReminder(w http.ResponseWriter, r *http.Request) {
	var in addReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json body"})
		return
	}
	rem, err := s.app.AddReminder(in.Title, types.ReminderCategory(in.Category), in.Date)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid reminder"})
		return
	}
	writeJSON(w, http.StatusCreated, rem)
}

type acceptRequest struct {
	Name string `json:"name"`
}

func (s *Service) handleAcceptRecommendation(w http.ResponseWriter, r *http.Request) {
	var in acceptRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json body"})
		return
	}
	rem, err := s.app.AcceptRecommendation(in.Name)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid recommendation"})
		return
	}
	writeJSON(w, http.StatusCreated, rem)
}

func (s *Service) handleToggleReminder(w http.ResponseWriter, r *http.Request) {
	rem, ok, err := s.app.ToggleReminder(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "could not update reminder"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "reminder not found"})
		return
	}
	writeJSON(w, http.StatusOK, rem)
}

func (s *Service) handleDeleteReminder(w http.ResponseWriter, r *http.Request) {
	ok, err := s.app.DeleteReminder(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "could not delete reminder"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "reminder not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Prefs ----------------------------------------------------------------------------

func (s *Service) handleGetPrefs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Prefs())
}

func (s *Service) handleSetPrefs(w http.ResponseWriter, r *http.Request) {
	var in types.Prefs
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json body"})
		return
	}
	if err := s.app.SetPrefs(in); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "could not save preferences"})
		return
	}
	writeJSON(w, http.StatusOK, in)
}

// Report ---------------------------------------------------------------------------

type reportRequest struct {
	Kind string `json:"kind"`
}

func (s *Service) handleExportReport(w http.ResponseWriter, r *http.Request) {
	var in reportRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json body"})
		return
	}
	key, err := s.app.ExportReport(r.Context(), types.AnalysisKind(in.Kind))
	if err != nil {
		log.Printf("handler: report export failed: %v", err)
		writeFailure(w, err, "Report export failed.")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"key": key})
}

// Advisor (non-stream surface) -----------------------------------------------------

func (s *Service) handleTranscript(w http.ResponseWriter, _ *http.Request) {
	turns := s.app.Transcript()
	if turns == nil {
		turns = []types.ChatTurn{}
	}
	writeJSON(w, http.StatusOK, turns)
}

func (s *Service) handleResetChat(w http.ResponseWriter, _ *http.Request) {
	if err := s.app.ResetChat(); err != nil {
		writeJSON(w, http.StatusConflict, errorBody{Error: "a turn is still in flight"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
