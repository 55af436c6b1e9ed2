/*
Package calc implements the attendance calculation engine.

PURPOSE:
  Turns a day's raw check-in/check-out and pause events into net worked
  minutes, inserts the legally mandated automatic pause, and keeps the
  WorkDay invariant (balance == actual - target) intact. Aggregation over
  week/month/cumulative horizons and legal-compliance checks live in
  aggregate.go and compliance.go.

RECOMPUTATION CONTRACT:
  Recalculate is the canonical recomputation, invoked after every check-out
  and after manual edits. It loads the day's entries and pauses exactly
  once and derives every figure from those two lists - never one query per
  derived value.

AUTOMATIC PAUSE:
  The required pause is a step function of gross minutes (Settings.PauseBands).
  If manual pauses don't cover the requirement, a single automatic pause is
  upserted, ending at the last check-out and spanning backward by the
  shortfall. If manual pauses cover it, a previously inserted automatic
  pause is deleted. Automatic pauses are system-owned: moved or removed,
  never duplicated.

ROUNDING:
  Net minutes are rounded half-to-even on the configured granularity
  buckets (decimal.RoundBank), applied after pause subtraction. Gross and
  pause figures are never rounded.

SEE ALSO:
  - aggregate.go: Week/month summaries and cumulative balance
  - compliance.go: Advisory legal findings
  - tracking: The state machine that triggers recomputation
*/
package calc

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/engine"
)

// Engine recomputes WorkDays from their stored events.
//
// Recalculate is not guarded by its own lock; callers invoke it while
// holding (or after releasing) the tracking lock so it never computes
// against a half-written event set.
type Engine struct {
	store    engine.RecordStore
	settings engine.SettingsProvider
	clock    engine.Clock
}

func New(store engine.RecordStore, settings engine.SettingsProvider, clock engine.Clock) *Engine {
	if clock == nil {
		clock = engine.SystemClock{}
	}
	return &Engine{store: store, settings: settings, clock: clock}
}

// Recalculate recomputes a WorkDay's derived figures and persists it.
//
// live reports whether the tracking status is currently Working on this
// day: only then does an unmatched trailing check-in contribute
// now - check-in. A closed day never counts an open interval.
func (e *Engine) Recalculate(ctx context.Context, day *engine.WorkDay, live bool) error {
	settings := e.settings.Settings()

	// Single batched read: both lists once, every figure derived from them.
	entries, err := e.store.GetTimeEntries(ctx, day.ID)
	if err != nil {
		return fmt.Errorf("load entries for %s: %w", day.Date, err)
	}
	pauses, err := e.store.GetPauseEntries(ctx, day.ID)
	if err != nil {
		return fmt.Errorf("load pauses for %s: %w", day.Date, err)
	}

	gross := grossMinutes(entries, live, e.clock.Now())
	manual := manualPauseMinutes(pauses)

	// Refresh the session boundary stamps from the entries so manual edits
	// keep them consistent.
	day.FirstCheckIn, day.LastCheckOut = sessionBounds(entries)

	auto, err := e.upsertAutoPause(ctx, day, pauses, gross, manual)
	if err != nil {
		return err
	}

	net := gross - manual - auto
	if net < 0 {
		net = 0
	}
	if settings.RoundingEnabled && settings.RoundingGranularity > 1 {
		net = roundHalfEven(net, settings.RoundingGranularity)
	}

	target := targetFor(day, settings)
	if day.Status.Credited() && gross == 0 {
		// Vacation, sickness, holidays: the day counts as worked at target.
		net = target
	}

	day.TargetMinutes = target
	day.ActualMinutes = net
	day.ManualPauseMinutes = manual
	day.AutoPauseMinutes = auto
	day.BalanceMinutes = net - target

	if err := e.store.SaveWorkDay(ctx, day); err != nil {
		return fmt.Errorf("save work day %s: %w", day.Date, err)
	}
	return nil
}

// RecalculatePauses updates only the manual pause total, used when a pause
// ends mid-session and the full figures are not final yet.
func (e *Engine) RecalculatePauses(ctx context.Context, day *engine.WorkDay) error {
	pauses, err := e.store.GetPauseEntries(ctx, day.ID)
	if err != nil {
		return fmt.Errorf("load pauses for %s: %w", day.Date, err)
	}
	day.ManualPauseMinutes = manualPauseMinutes(pauses)
	if err := e.store.SaveWorkDay(ctx, day); err != nil {
		return fmt.Errorf("save work day %s: %w", day.Date, err)
	}
	return nil
}

// =============================================================================
// DERIVATIONS
// =============================================================================

// grossMinutes sums check-in -> check-out intervals. An unmatched trailing
// check-in contributes now - check-in only while live.
func grossMinutes(entries []engine.TimeEntry, live bool, now time.Time) int {
	gross := 0
	var open *time.Time
	for i := range entries {
		switch entries[i].Type {
		case engine.EntryCheckIn:
			ts := entries[i].Timestamp
			open = &ts
		case engine.EntryCheckOut:
			if open != nil {
				gross += int(entries[i].Timestamp.Sub(*open).Minutes())
				open = nil
			}
		}
	}
	if open != nil && live {
		gross += int(now.Sub(*open).Minutes())
	}
	return gross
}

// manualPauseMinutes sums closed, manually logged pauses. Open pauses and
// automatic pauses are excluded.
func manualPauseMinutes(pauses []engine.PauseEntry) int {
	total := 0
	for _, p := range pauses {
		if p.Type == engine.PauseManual && p.Closed() {
			total += p.Minutes()
		}
	}
	return total
}

func sessionBounds(entries []engine.TimeEntry) (firstIn, lastOut *time.Time) {
	for i := range entries {
		switch entries[i].Type {
		case engine.EntryCheckIn:
			if firstIn == nil {
				ts := entries[i].Timestamp
				firstIn = &ts
			}
		case engine.EntryCheckOut:
			ts := entries[i].Timestamp
			lastOut = &ts
		}
	}
	return firstIn, lastOut
}

// upsertAutoPause reconciles the automatic pause with the current shortfall
// and returns the automatic pause minutes now in effect.
func (e *Engine) upsertAutoPause(ctx context.Context, day *engine.WorkDay, pauses []engine.PauseEntry, gross, manual int) (int, error) {
	var existing *engine.PauseEntry
	for i := range pauses {
		if pauses[i].Type == engine.PauseAutomatic {
			existing = &pauses[i]
			break
		}
	}

	required := e.settings.Settings().RequiredPause(gross)
	shortfall := required - manual

	if shortfall <= 0 || day.LastCheckOut == nil {
		// Requirement met by manual pauses (or the session is still open):
		// a previously inserted automatic pause must go.
		if existing != nil {
			if err := e.store.DeletePauseEntry(ctx, existing.ID); err != nil {
				return 0, fmt.Errorf("delete auto pause: %w", err)
			}
		}
		return 0, nil
	}

	end := *day.LastCheckOut
	start := end.Add(-time.Duration(shortfall) * time.Minute)

	pause := existing
	if pause == nil {
		pause = &engine.PauseEntry{DayID: day.ID, Type: engine.PauseAutomatic}
	}
	pause.Start = start
	pause.End = &end
	if err := e.store.SavePauseEntry(ctx, pause); err != nil {
		return 0, fmt.Errorf("save auto pause: %w", err)
	}
	return shortfall, nil
}

// targetFor resolves the expected minutes for a day from the per-weekday
// settings. Unpaid leave carries no target; compensatory time keeps the
// regular target so the balance pays for the day.
func targetFor(day *engine.WorkDay, settings engine.Settings) int {
	if day.Status == engine.DayUnpaidLeave {
		return 0
	}
	return settings.TargetFor(day.Date)
}

// roundHalfEven rounds minutes to the nearest granularity bucket using
// banker's rounding.
func roundHalfEven(minutes, granularity int) int {
	g := decimal.NewFromInt(int64(granularity))
	buckets := decimal.NewFromInt(int64(minutes)).Div(g).RoundBank(0)
	return int(buckets.Mul(g).IntPart())
}
