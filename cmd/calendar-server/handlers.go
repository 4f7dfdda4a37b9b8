package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Formille/CthulhuCalender/internal/chronicle"
	"github.com/Formille/CthulhuCalender/internal/domain/almanac"
	"github.com/Formille/CthulhuCalender/internal/domain/campaign"
	"github.com/Formille/CthulhuCalender/internal/engine"
	"github.com/Formille/CthulhuCalender/internal/infra/storage"
	"github.com/Formille/CthulhuCalender/internal/memory"
	"github.com/Formille/CthulhuCalender/internal/narrator"
	"github.com/Formille/CthulhuCalender/internal/network"
	"github.com/Formille/CthulhuCalender/internal/platform/logger"
	"github.com/Formille/CthulhuCalender/internal/platform/metrics"
)

// Server binds the progression engine, the narrator, and persistence
// behind the HTTP API. Handlers orchestrate; the rules live below.
type Server struct {
	engine   *engine.Engine
	narrator *narrator.Narrator
	saves    storage.SaveRepository
	events   storage.EventRepository
	hub      *network.Hub
	logger   *logger.Logger
	year     int
	player   string
}

func NewServer(eng *engine.Engine, narr *narrator.Narrator, saves storage.SaveRepository, eventRepo storage.EventRepository, hub *network.Hub, log *logger.Logger, year int, player string) *Server {
	return &Server{
		engine:   eng,
		narrator: narr,
		saves:    saves,
		events:   eventRepo,
		hub:      hub,
		logger:   log,
		year:     year,
		player:   player,
	}
}

// Routes registers all HTTP handlers on the given mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/api/game/start", s.handleStart)
	mux.HandleFunc("/api/game/state", s.handleState)
	mux.HandleFunc("/api/game/encounter", s.handleEncounter)
	mux.HandleFunc("/api/game/month-end", s.handleMonthEnd)
	mux.HandleFunc("/api/game/month-start", s.handleMonthStart)
	mux.HandleFunc("/api/game/month-conclusion", s.handleMonthConclusion)
	mux.HandleFunc("/api/narrative/diary", s.handleDiaryEntry)
	mux.HandleFunc("/api/narrative/chapters", s.handleChapters)
	mux.HandleFunc("/api/campaigns", s.handleCampaigns)
	mux.HandleFunc("/api/events", s.handleEvents)
	mux.HandleFunc("/metrics", metrics.Handler())
	mux.HandleFunc("/metrics/prometheus", metrics.PrometheusHandler())
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		metrics.Get().RecordWSConnection(1)
		network.ServeWS(s.hub, w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// handleStart creates a fresh campaign and narrates its prologue.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		CampaignID string `json:"campaign_id"`
		PlayerName string `json:"player_name"`
		Year       int    `json:"campaign_year"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}
	if req.CampaignID == "" {
		http.Error(w, "campaign_id is required", http.StatusBadRequest)
		return
	}
	if req.PlayerName == "" {
		req.PlayerName = s.player
	}
	if req.Year == 0 {
		req.Year = s.year
	}

	ctx := narrator.WithCampaign(r.Context(), req.CampaignID)
	doc := chronicle.NewSaveDocument(req.PlayerName, req.Year)
	doc.Info.CampaignID = req.CampaignID
	doc.History.Prologue.Content = s.narrator.Prologue(ctx)
	doc.History.Prologue.IsFinalized = true
	s.engine.StartCampaign(doc)

	if err := s.saves.Save(ctx, req.CampaignID, doc); err != nil {
		s.logger.Error("Failed to persist new campaign %s: %v", req.CampaignID, err)
		writeError(w, http.StatusInternalServerError, fmt.Errorf("start campaign: %w", err))
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

// handleState returns the current save document.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	doc, ok := s.loadCampaign(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// encounterRequest is the daily command: which calendar square, what
// was rolled, and whether the narrative forces a failure.
type encounterRequest struct {
	CampaignID    string   `json:"campaign_id"`
	TargetDate    string   `json:"target_date"`
	TargetName    string   `json:"target_name"`
	ActionType    string   `json:"action_type"`
	Difficulty    int      `json:"difficulty"`
	DiceSum       int      `json:"dice_sum"`
	DiceSymbols   []string `json:"dice_symbols"`
	SpecialCount  int      `json:"special_symbol_count"`
	ForcedFailure bool     `json:"forced_failure"`
}

// handleEncounter resolves one day: outcome, narration, state
// transitions, archival, and persistence, in that order.
func (s *Server) handleEncounter(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req encounterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}

	doc, ok := s.loadCampaignID(w, r, req.CampaignID)
	if !ok {
		return
	}

	target, roll, err := buildEncounterInput(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	started := time.Now()
	ctx := narrator.WithCampaign(r.Context(), req.CampaignID)

	outcome, err := s.engine.ResolveEncounter(doc, target, roll, req.ForcedFailure)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	// Narration happens before the transition so the diarized entry
	// carries its text. The memory sees the week as it was this
	// morning.
	stats := doc.MonthStatistics(doc.Info.CampaignYear, doc.State.CurrentDate.Month())
	sc := narrator.StoryContext{
		State:              doc.State,
		Target:             target,
		Roll:               roll,
		Outcome:            outcome,
		Memory:             memory.Build(doc, doc.State.CurrentDate),
		SundaySuccessRate:  stats.SundaySuccessRate,
		OverallSuccessRate: stats.SuccessRate,
		SundayTotalCount:   stats.SundayTotal,
	}
	story := s.narrator.DailyStory(ctx, sc)
	if !outcome.IsSuccess {
		if note := narrator.ReusedFailureNote(doc.FailedTargetNames(), doc.State.CurrentDate.Day()); note != "" {
			story += "\n\n" + note
		}
	}
	content := chronicle.GeneratedContent{
		MainText:    story,
		SummaryLine: s.narrator.SummaryLine(ctx, story),
	}

	res, err := s.engine.ApplyResolution(doc, target, roll, outcome, content)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if res.ClosedWeek != nil {
		res.ClosedWeek.Summary = s.narrator.WeeklySummary(ctx, *res.ClosedWeek)
		metrics.Get().RecordWeekClosed()
	}
	metrics.Get().RecordResolution(time.Since(started), outcome.IsSuccess, outcome.MadnessTriggered)

	if err := s.saves.Save(ctx, req.CampaignID, doc); err != nil {
		s.logger.Error("Failed to persist campaign %s after resolution: %v", req.CampaignID, err)
		writeError(w, http.StatusInternalServerError, fmt.Errorf("persist encounter: %w", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"outcome":     outcome,
		"entry":       res.Entry,
		"closed_week": res.ClosedWeek,
		"state":       doc.State,
	})
}

// handleMonthEnd scores and finalizes the month's chapter.
func (s *Server) handleMonthEnd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		CampaignID string `json:"campaign_id"`
		Month      string `json:"month"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}
	doc, ok := s.loadCampaignID(w, r, req.CampaignID)
	if !ok {
		return
	}
	month, err := parseMonth(req.Month)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	chapter, report, err := s.engine.CloseMonth(doc, month)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	chapter.Summary = s.narrator.ChapterSummary(narrator.WithCampaign(r.Context(), req.CampaignID), month, report.Score, report.Stats.BossesDefeated, report.Madness)
	metrics.Get().RecordMonthClosed()

	if err := s.saves.Save(r.Context(), req.CampaignID, doc); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("persist month end: %w", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"report":  report,
		"chapter": chapter,
		"state":   doc.State,
	})
}

// handleMonthStart opens the next chapter: unlocked rules, granted
// artifacts, and the new month's opening entry.
func (s *Server) handleMonthStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		CampaignID string   `json:"campaign_id"`
		Month      string   `json:"month"`
		Rules      []string `json:"unlocked_rules"`
		Artifacts  []string `json:"granted_artifacts"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}
	doc, ok := s.loadCampaignID(w, r, req.CampaignID)
	if !ok {
		return
	}
	month, err := parseMonth(req.Month)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	s.engine.UnlockRules(doc, month, req.Rules)
	s.engine.StartMonth(doc, req.Artifacts)

	lastConclusion := ""
	if prev := doc.FindChapter(previousMonth(month).String()); prev != nil {
		lastConclusion = prev.Conclusion
	}
	opening := s.narrator.NewMonthOpening(narrator.WithCampaign(r.Context(), req.CampaignID), month, req.Artifacts, lastConclusion)

	if err := s.saves.Save(r.Context(), req.CampaignID, doc); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("persist month start: %w", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"opening": opening,
		"state":   doc.State,
		"legacy":  doc.Legacy,
	})
}

// handleMonthConclusion narrates the long-form ending of a finished
// chapter and stores it.
func (s *Server) handleMonthConclusion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		CampaignID string `json:"campaign_id"`
		Month      string `json:"month"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}
	doc, ok := s.loadCampaignID(w, r, req.CampaignID)
	if !ok {
		return
	}
	month, err := parseMonth(req.Month)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	chapter := doc.FindChapter(month.String())
	if chapter == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("no chapter recorded for %s", month))
		return
	}

	stats := doc.MonthStatistics(doc.Info.CampaignYear, month)
	chapter.Conclusion = s.narrator.MonthlyConclusion(narrator.WithCampaign(r.Context(), req.CampaignID), doc, month, stats)

	if err := s.saves.Save(r.Context(), req.CampaignID, doc); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("persist month conclusion: %w", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"conclusion": chapter.Conclusion,
		"statistics": stats,
	})
}

// handleDiaryEntry returns one diarized entry by date.
func (s *Server) handleDiaryEntry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	doc, ok := s.loadCampaign(w, r)
	if !ok {
		return
	}
	date, err := almanac.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("parse date: %w", err))
		return
	}
	entry := doc.EntryByDate(date)
	if entry == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("no diary entry on %s", date))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// handleChapters returns the campaign history.
func (s *Server) handleChapters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	doc, ok := s.loadCampaign(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, doc.History)
}

// handleCampaigns lists stored campaigns.
func (s *Server) handleCampaigns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	infos, err := s.saves.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

// handleEvents returns a campaign's persisted audit trail, optionally
// narrowed to one diarized date or one event type.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	campaignID := r.URL.Query().Get("campaign_id")
	if campaignID == "" {
		http.Error(w, "campaign_id is required", http.StatusBadRequest)
		return
	}

	var (
		stored []storage.StoredEvent
		err    error
	)
	switch {
	case r.URL.Query().Get("date") != "":
		date, parseErr := almanac.ParseDate(r.URL.Query().Get("date"))
		if parseErr != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("parse date: %w", parseErr))
			return
		}
		stored, err = s.events.GetByGameDate(r.Context(), campaignID, date.String())
	case r.URL.Query().Get("type") != "":
		stored, err = s.events.GetByEventType(r.Context(), campaignID, r.URL.Query().Get("type"))
	default:
		stored, err = s.events.GetByCampaignID(r.Context(), campaignID)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if stored == nil {
		stored = []storage.StoredEvent{}
	}
	writeJSON(w, http.StatusOK, stored)
}

func (s *Server) loadCampaign(w http.ResponseWriter, r *http.Request) (*chronicle.SaveDocument, bool) {
	return s.loadCampaignID(w, r, r.URL.Query().Get("campaign_id"))
}

func (s *Server) loadCampaignID(w http.ResponseWriter, r *http.Request, campaignID string) (*chronicle.SaveDocument, bool) {
	if campaignID == "" {
		http.Error(w, "campaign_id is required", http.StatusBadRequest)
		return nil, false
	}
	doc, err := s.saves.Load(r.Context(), campaignID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, storage.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return nil, false
	}
	return doc, true
}

func buildEncounterInput(req encounterRequest) (campaign.EncounterTarget, campaign.DiceRoll, error) {
	date, err := almanac.ParseDate(req.TargetDate)
	if err != nil {
		return campaign.EncounterTarget{}, campaign.DiceRoll{}, fmt.Errorf("parse target date: %w", err)
	}
	action, err := campaign.ParseActionType(req.ActionType)
	if err != nil {
		return campaign.EncounterTarget{}, campaign.DiceRoll{}, err
	}
	target, err := campaign.NewEncounterTarget(date, req.TargetName, action, req.Difficulty)
	if err != nil {
		return campaign.EncounterTarget{}, campaign.DiceRoll{}, err
	}

	symbols := make([]campaign.ActionType, 0, len(req.DiceSymbols))
	for _, s := range req.DiceSymbols {
		sym, err := campaign.ParseActionType(s)
		if err != nil {
			return campaign.EncounterTarget{}, campaign.DiceRoll{}, err
		}
		symbols = append(symbols, sym)
	}
	roll := campaign.DiceRoll{
		NumericSum:         req.DiceSum,
		SymbolSet:          symbols,
		SpecialSymbolCount: req.SpecialCount,
	}
	return target, roll, nil
}

func parseMonth(name string) (time.Month, error) {
	for m := time.January; m <= time.December; m++ {
		if m.String() == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown month %q", name)
}

func previousMonth(m time.Month) time.Month {
	if m == time.January {
		return time.December
	}
	return m - 1
}
