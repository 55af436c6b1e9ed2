/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	attendance data for testing and demos. Each scenario seeds work days,
	time entries, and pauses, then recomputes every seeded day.

AVAILABLE SCENARIOS:

	fresh-start:      Empty database, nothing recorded
	typical-week:     Five regular days with lunch pauses
	overtime-crunch:  Two heavy weeks with pause shortfalls and long days

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Seed time entries and pauses for the relevant days
 3. Recompute every seeded day through the calculation engine
 4. Run one achievement check so progress reflects the seeded history

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "typical-week"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler dependencies
  - calc: Recomputation applied to each seeded day
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/attendance-engine/engine"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO describes one loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects the scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "fresh-start",
		Name:        "Fresh Start",
		Description: "Empty database, nothing recorded yet",
	},
	{
		ID:          "typical-week",
		Name:        "Typical Week",
		Description: "Five regular 8-9h days with lunch pauses",
	},
	{
		ID:          "overtime-crunch",
		Name:        "Overtime Crunch",
		Description: "Two heavy weeks with pause shortfalls and 10h+ days",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the database and seeds the selected scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	resetter, ok := h.Store.(interface{ Reset(context.Context) error })
	if !ok {
		writeError(w, http.StatusInternalServerError, "Store does not support reset", nil)
		return
	}
	if err := resetter.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	ctx := r.Context()
	var err error
	switch req.ScenarioID {
	case "fresh-start":
		// Nothing to seed.
	case "typical-week":
		err = h.seedWeek(ctx, 1, 8*time.Hour+30*time.Minute, 45*time.Minute)
	case "overtime-crunch":
		err = h.seedWeek(ctx, 2, 10*time.Hour+15*time.Minute, 20*time.Minute)
		if err == nil {
			err = h.seedWeek(ctx, 1, 9*time.Hour+45*time.Minute, 30*time.Minute)
		}
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", fmt.Errorf("scenario %q", req.ScenarioID))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to seed scenario", err)
		return
	}

	if _, err := h.Achievements.Check(ctx); err != nil {
		h.Log.Warn().Err(err).Msg("achievement check after scenario load failed")
	}

	h.currentScenario = req.ScenarioID
	h.Log.Info().Str("scenario", req.ScenarioID).Msg("scenario loaded")
	writeJSON(w, http.StatusOK, map[string]string{"loaded": req.ScenarioID})
}

// seedWeek seeds one completed week of work days, weeksAgo full weeks back
// from today, with the given gross session length and one manual pause.
func (h *Handler) seedWeek(ctx context.Context, weeksAgo int, gross, pause time.Duration) error {
	settings := h.Settings.Settings()
	today := engine.DateOf(h.Clock.Now())
	monday, _ := engine.WeekOf(today)
	monday = monday.AddDays(-7 * weeksAgo)

	for i := 0; i < 7; i++ {
		date := monday.AddDays(i)
		if !settings.IsWorkDay(date.Weekday()) || !date.Before(today) {
			continue
		}
		if err := h.seedDay(ctx, date, gross, pause); err != nil {
			return fmt.Errorf("seed %s: %w", date, err)
		}
	}
	return nil
}

func (h *Handler) seedDay(ctx context.Context, date engine.Date, gross, pause time.Duration) error {
	settings := h.Settings.Settings()
	day, err := h.Store.GetOrCreateWorkDay(ctx, date, engine.DayRegular, settings.TargetFor(date))
	if err != nil {
		return err
	}

	start := date.At(8, 0, time.Local)
	end := start.Add(gross)

	checkIn := &engine.TimeEntry{DayID: day.ID, Timestamp: start, Type: engine.EntryCheckIn}
	if err := h.Store.SaveTimeEntry(ctx, checkIn); err != nil {
		return err
	}
	checkOut := &engine.TimeEntry{DayID: day.ID, Timestamp: end, Type: engine.EntryCheckOut}
	if err := h.Store.SaveTimeEntry(ctx, checkOut); err != nil {
		return err
	}

	if pause > 0 {
		pauseStart := start.Add(4 * time.Hour)
		pauseEnd := pauseStart.Add(pause)
		p := &engine.PauseEntry{DayID: day.ID, Start: pauseStart, End: &pauseEnd, Type: engine.PauseManual}
		if err := h.Store.SavePauseEntry(ctx, p); err != nil {
			return err
		}
	}

	day.FirstCheckIn = &start
	day.LastCheckOut = &end
	return h.Calc.Recalculate(ctx, day, false)
}
