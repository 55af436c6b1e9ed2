/*
handlers.go - HTTP API handlers for the attendance engine

PURPOSE:
  Exposes the attendance engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Tracking:
    GET    /api/tracking/status       Current tracking state
    POST   /api/tracking/checkin      Open a work session
    POST   /api/tracking/checkout     Close the session
    POST   /api/tracking/pause        Start a manual pause
    POST   /api/tracking/resume       End the active pause

  Days:
    GET    /api/days                  List work days in a range
    GET    /api/days/{date}           One day with entries and pauses
    PUT    /api/days/{date}/status    Change a day's categorization

  Entries:
    PUT    /api/entries/{id}          Move an entry (audit-preserving)
    DELETE /api/entries/{id}          Delete an entry

  Summaries:
    GET    /api/summary/week          ISO-week aggregation
    GET    /api/summary/month         Calendar-month aggregation
    GET    /api/balance               Cumulative overtime balance
    GET    /api/compliance            Advisory legal findings for a day

  Achievements:
    GET    /api/achievements          Catalog with progress
    GET    /api/achievements/streak   Current consecutive-day streak

  Settings:
    GET    /api/settings              Current configuration
    PUT    /api/settings              Replace configuration (reschedules
                                      reminders)

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Invalid state transition, locked day
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo data seeders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/warp/attendance-engine/achievements"
	"github.com/warp/attendance-engine/calc"
	"github.com/warp/attendance-engine/engine"
	"github.com/warp/attendance-engine/reminders"
	"github.com/warp/attendance-engine/tracking"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store        engine.RecordStore
	Tracker      *tracking.Tracker
	Calc         *calc.Engine
	Achievements *achievements.Engine
	Settings     *engine.StaticSettings
	Reminders    *reminders.Scheduler
	Clock        engine.Clock
	Log          zerolog.Logger

	// Track currently loaded demo scenario
	currentScenario string
}

// NewHandler creates a new handler with the given collaborators.
func NewHandler(store engine.RecordStore, tracker *tracking.Tracker, calcEngine *calc.Engine,
	ach *achievements.Engine, settings *engine.StaticSettings, sched *reminders.Scheduler,
	clock engine.Clock, log zerolog.Logger) *Handler {
	if clock == nil {
		clock = engine.SystemClock{}
	}
	return &Handler{
		Store:        store,
		Tracker:      tracker,
		Calc:         calcEngine,
		Achievements: ach,
		Settings:     settings,
		Reminders:    sched,
		Clock:        clock,
		Log:          log,
	}
}

// =============================================================================
// TRACKING HANDLERS
// =============================================================================

// GetStatus returns the current tracking state.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	dto := StatusDTO{Status: h.Tracker.Status().String()}

	if start, ok := h.Tracker.ActiveSessionStart(); ok {
		s := start.Format(time.RFC3339)
		dto.SessionStart = &s
	}
	if day, err := h.Tracker.ActiveWorkDay(r.Context()); err == nil && day != nil {
		id := string(day.ID)
		dto.ActiveDay = &id
	}

	writeJSON(w, http.StatusOK, dto)
}

// CheckIn opens a work session.
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req CheckInRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	entry, err := h.Tracker.CheckIn(r.Context(), req.Employer, req.Project, req.Note)
	if err != nil {
		writeDomainError(w, "Check-in failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTimeEntryDTO(*entry))
}

// CheckOut closes the active session and runs the achievement check.
func (h *Handler) CheckOut(w http.ResponseWriter, r *http.Request) {
	var req CheckOutRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	entry, err := h.Tracker.CheckOut(r.Context(), req.Note)
	if err != nil {
		writeDomainError(w, "Check-out failed", err)
		return
	}

	if _, err := h.Achievements.Check(r.Context()); err != nil {
		h.Log.Warn().Err(err).Msg("achievement check after check-out failed")
	}

	writeJSON(w, http.StatusCreated, toTimeEntryDTO(*entry))
}

// StartPause opens a manual pause.
func (h *Handler) StartPause(w http.ResponseWriter, r *http.Request) {
	var req PauseRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	pause, err := h.Tracker.StartPause(r.Context(), req.Note)
	if err != nil {
		writeDomainError(w, "Start pause failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPauseEntryDTO(*pause))
}

// EndPause closes the active pause.
func (h *Handler) EndPause(w http.ResponseWriter, r *http.Request) {
	pause, err := h.Tracker.EndPause(r.Context())
	if err != nil {
		writeDomainError(w, "End pause failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toPauseEntryDTO(*pause))
}

// =============================================================================
// DAY HANDLERS
// =============================================================================

// ListWorkDays returns the recorded days in [from, to].
// GET /api/days?from=2026-01-01&to=2026-01-31
func (h *Handler) ListWorkDays(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}

	days, err := h.Store.GetWorkDays(r.Context(), from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list work days", err)
		return
	}

	dtos := make([]WorkDayDTO, len(days))
	for i, d := range days {
		dtos[i] = toWorkDayDTO(d)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetWorkDay returns one day with its entries and pauses.
func (h *Handler) GetWorkDay(w http.ResponseWriter, r *http.Request) {
	date, err := engine.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	day, err := h.Store.GetWorkDay(r.Context(), date)
	if err != nil {
		if engine.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Work day not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load work day", err)
		return
	}

	entries, err := h.Store.GetTimeEntries(r.Context(), day.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load entries", err)
		return
	}
	pauses, err := h.Store.GetPauseEntries(r.Context(), day.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load pauses", err)
		return
	}

	detail := WorkDayDetailDTO{
		Day:     toWorkDayDTO(*day),
		Entries: make([]TimeEntryDTO, len(entries)),
		Pauses:  make([]PauseEntryDTO, len(pauses)),
	}
	for i, e := range entries {
		detail.Entries[i] = toTimeEntryDTO(e)
	}
	for i, p := range pauses {
		detail.Pauses[i] = toPauseEntryDTO(p)
	}
	writeJSON(w, http.StatusOK, detail)
}

// SetDayStatus changes a day's categorization (vacation, sick, holiday, ...)
// and recomputes it. The day is created if it does not exist yet.
func (h *Handler) SetDayStatus(w http.ResponseWriter, r *http.Request) {
	date, err := engine.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	var req SetDayStatusRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	status := engine.DayStatus(req.Status)
	if !validDayStatus(status) {
		writeError(w, http.StatusBadRequest, "Unknown day status", fmt.Errorf("status %q", req.Status))
		return
	}

	settings := h.Settings.Settings()
	day, err := h.Store.GetOrCreateWorkDay(r.Context(), date, status, settings.TargetFor(date))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to resolve work day", err)
		return
	}
	if day.Locked && (req.Locked == nil || *req.Locked) {
		writeDomainError(w, "Day is locked", &engine.LockedDayError{Date: date})
		return
	}

	day.Status = status
	if req.Locked != nil {
		day.Locked = *req.Locked
	}
	if err := h.Calc.Recalculate(r.Context(), day, false); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to recompute day", err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkDayDTO(*day))
}

// =============================================================================
// ENTRY HANDLERS
// =============================================================================

// EditEntry moves an entry to a new timestamp.
func (h *Handler) EditEntry(w http.ResponseWriter, r *http.Request) {
	id := engine.EntryID(chi.URLParam(r, "id"))

	var req EditEntryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	newTime, err := time.Parse(time.RFC3339, req.Timestamp)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid timestamp", err)
		return
	}

	if err := h.Tracker.EditEntry(r.Context(), id, newTime, req.Note); err != nil {
		writeDomainError(w, "Edit failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteEntry removes an entry.
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := engine.EntryID(chi.URLParam(r, "id"))

	if err := h.Tracker.DeleteEntry(r.Context(), id); err != nil {
		writeDomainError(w, "Delete failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// SUMMARY HANDLERS
// =============================================================================

// WeekSummary aggregates the ISO week of the given (or current) date.
// GET /api/summary/week?date=2026-01-15
func (h *Handler) WeekSummary(w http.ResponseWriter, r *http.Request) {
	date, err := h.queryDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	summary, err := h.Calc.WeekSummary(r.Context(), date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to aggregate week", err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(summary))
}

// MonthSummary aggregates the calendar month of the given (or current) date.
func (h *Handler) MonthSummary(w http.ResponseWriter, r *http.Request) {
	date, err := h.queryDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	summary, err := h.Calc.MonthSummary(r.Context(), date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to aggregate month", err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(summary))
}

// GetBalance returns the cumulative overtime balance through the given
// (or current) date.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	date, err := h.queryDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	balance, err := h.Calc.CumulativeBalance(r.Context(), date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute balance", err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{AsOf: date.String(), BalanceMinutes: balance})
}

// CheckCompliance returns the advisory findings for the given (or current)
// date.
func (h *Handler) CheckCompliance(w http.ResponseWriter, r *http.Request) {
	date, err := h.queryDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	findings, err := h.Calc.CheckCompliance(r.Context(), date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to evaluate compliance", err)
		return
	}

	dtos := make([]FindingDTO, len(findings))
	for i, f := range findings {
		dtos[i] = toFindingDTO(f)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ACHIEVEMENT HANDLERS
// =============================================================================

// ListAchievements returns the full catalog joined with stored progress.
func (h *Handler) ListAchievements(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.ListAchievements(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list achievements", err)
		return
	}
	byKey := make(map[engine.AchievementKey]engine.Achievement, len(records))
	for _, rec := range records {
		byKey[rec.Key] = rec
	}

	dtos := make([]AchievementDTO, len(achievements.Catalog))
	for i, def := range achievements.Catalog {
		dto := AchievementDTO{
			Key:      string(def.Key),
			Title:    def.Title,
			Category: string(def.Category),
			Target:   def.Target,
		}
		if rec, ok := byKey[def.Key]; ok {
			dto.Progress = rec.Progress
			dto.Unlocked = rec.Unlocked
			dto.UnlockedAt = timeString(rec.UnlockedAt)
		}
		dtos[i] = dto
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetStreak returns the current consecutive-day streak.
func (h *Handler) GetStreak(w http.ResponseWriter, r *http.Request) {
	days, err := h.Achievements.CurrentStreak(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute streak", err)
		return
	}
	writeJSON(w, http.StatusOK, StreakDTO{Days: days})
}

// =============================================================================
// SETTINGS HANDLERS
// =============================================================================

// GetSettings returns the current configuration.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toSettingsDTO(h.Settings.Settings()))
}

// UpdateSettings replaces the configuration and reschedules reminders.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var dto SettingsDTO
	if err := decodeBody(r, &dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	settings, err := fromSettingsDTO(dto)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid settings", err)
		return
	}

	h.Settings.Update(settings)
	h.Reminders.Reschedule()
	writeJSON(w, http.StatusOK, toSettingsDTO(settings))
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) queryDate(r *http.Request) (engine.Date, error) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return engine.DateOf(h.Clock.Now()), nil
	}
	return engine.ParseDate(raw)
}

func parseRange(r *http.Request) (engine.Date, engine.Date, error) {
	from, err := engine.ParseDate(r.URL.Query().Get("from"))
	if err != nil {
		return engine.Date{}, engine.Date{}, fmt.Errorf("from: %w", err)
	}
	to, err := engine.ParseDate(r.URL.Query().Get("to"))
	if err != nil {
		return engine.Date{}, engine.Date{}, fmt.Errorf("to: %w", err)
	}
	if to.Before(from) {
		return engine.Date{}, engine.Date{}, fmt.Errorf("range %s..%s is inverted", from, to)
	}
	return from, to, nil
}

func validDayStatus(s engine.DayStatus) bool {
	switch s {
	case engine.DayRegular, engine.DayWeekend, engine.DayVacation, engine.DaySick,
		engine.DayHoliday, engine.DayHomeOffice, engine.DayUnpaidLeave,
		engine.DaySpecialLeave, engine.DayCompensatoryTime:
		return true
	}
	return false
}

func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine error taxonomy to HTTP status.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case engine.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, engine.ErrInvalidStateTransition),
		errors.Is(err, engine.ErrDayLocked),
		errors.Is(err, engine.ErrNoActiveSession):
		writeError(w, http.StatusConflict, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

// -----------------------------------------------------------------------------
// Settings serialization
// -----------------------------------------------------------------------------

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday,
	"friday": time.Friday, "saturday": time.Saturday,
}

func weekdayName(wd time.Weekday) string {
	for name, v := range weekdayNames {
		if v == wd {
			return name
		}
	}
	return ""
}

func toSettingsDTO(s engine.Settings) SettingsDTO {
	dto := SettingsDTO{
		WorkDays:            make(map[string]bool, 7),
		TargetMinutes:       make(map[string]int, 7),
		PauseBands:          make([]PauseBandDTO, len(s.PauseBands)),
		RoundingEnabled:     s.RoundingEnabled,
		RoundingGranularity: s.RoundingGranularity,
		MaxDailyMinutes:     s.MaxDailyMinutes,
		MinRestHours:        s.MinRestHours,
		Reminders: ReminderSettingsDTO{
			MorningEnabled:       s.Reminders.MorningEnabled,
			MorningAt:            formatClockTime(s.Reminders.MorningAt),
			EveningEnabled:       s.Reminders.EveningEnabled,
			EveningAt:            formatClockTime(s.Reminders.EveningAt),
			PauseDueEnabled:      s.Reminders.PauseDueEnabled,
			PauseDueAfterMinutes: s.Reminders.PauseDueAfterMinutes,
			OvertimeEnabled:      s.Reminders.OvertimeEnabled,
			WeeklySummaryEnabled: s.Reminders.WeeklySummaryEnabled,
			WeeklySummaryAt:      formatClockTime(s.Reminders.WeeklySummaryAt),
		},
	}
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		dto.WorkDays[weekdayName(wd)] = s.WorkDays[wd]
		dto.TargetMinutes[weekdayName(wd)] = s.TargetMinutes[wd]
	}
	for i, b := range s.PauseBands {
		dto.PauseBands[i] = PauseBandDTO{GrossFrom: b.GrossFrom, RequiredPause: b.RequiredPause}
	}
	return dto
}

func fromSettingsDTO(dto SettingsDTO) (engine.Settings, error) {
	s := engine.Settings{
		RoundingEnabled:     dto.RoundingEnabled,
		RoundingGranularity: dto.RoundingGranularity,
		MaxDailyMinutes:     dto.MaxDailyMinutes,
		MinRestHours:        dto.MinRestHours,
	}
	if s.RoundingGranularity <= 0 {
		s.RoundingGranularity = 1
	}

	for name, on := range dto.WorkDays {
		wd, ok := weekdayNames[name]
		if !ok {
			return s, fmt.Errorf("unknown weekday %q", name)
		}
		s.WorkDays[wd] = on
	}
	for name, target := range dto.TargetMinutes {
		wd, ok := weekdayNames[name]
		if !ok {
			return s, fmt.Errorf("unknown weekday %q", name)
		}
		if target < 0 {
			return s, fmt.Errorf("negative target for %s", name)
		}
		s.TargetMinutes[wd] = target
	}

	prev := -1
	for _, b := range dto.PauseBands {
		if b.GrossFrom <= prev {
			return s, fmt.Errorf("pause bands must be ascending by gross_from")
		}
		prev = b.GrossFrom
		s.PauseBands = append(s.PauseBands, engine.PauseBand{
			GrossFrom: b.GrossFrom, RequiredPause: b.RequiredPause,
		})
	}

	var err error
	rem := &s.Reminders
	rem.MorningEnabled = dto.Reminders.MorningEnabled
	rem.EveningEnabled = dto.Reminders.EveningEnabled
	rem.PauseDueEnabled = dto.Reminders.PauseDueEnabled
	rem.PauseDueAfterMinutes = dto.Reminders.PauseDueAfterMinutes
	rem.OvertimeEnabled = dto.Reminders.OvertimeEnabled
	rem.WeeklySummaryEnabled = dto.Reminders.WeeklySummaryEnabled
	if rem.MorningAt, err = parseClockTime(dto.Reminders.MorningAt); err != nil {
		return s, fmt.Errorf("morning_at: %w", err)
	}
	if rem.EveningAt, err = parseClockTime(dto.Reminders.EveningAt); err != nil {
		return s, fmt.Errorf("evening_at: %w", err)
	}
	if rem.WeeklySummaryAt, err = parseClockTime(dto.Reminders.WeeklySummaryAt); err != nil {
		return s, fmt.Errorf("weekly_summary_at: %w", err)
	}
	return s, nil
}

func formatClockTime(ct engine.ClockTime) string {
	return fmt.Sprintf("%02d:%02d", ct.Hour, ct.Minute)
}

func parseClockTime(raw string) (engine.ClockTime, error) {
	if raw == "" {
		return engine.ClockTime{}, nil
	}
	var h, m int
	if _, err := fmt.Sscanf(raw, "%d:%d", &h, &m); err != nil {
		return engine.ClockTime{}, fmt.Errorf("invalid clock time %q", raw)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return engine.ClockTime{}, fmt.Errorf("clock time %q out of range", raw)
	}
	return engine.ClockTime{Hour: h, Minute: m}, nil
}
