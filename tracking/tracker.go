/*
Package tracking implements the attendance tracking state machine.

PURPOSE:
  Converts user actions (check-in, check-out, start-pause, end-pause) into
  timestamped events and the current status. The machine owns only the
  in-memory status; everything durable goes through the record store.

STATES:
  Idle -> Working -> OnBreak -> Working -> Idle. No other transitions are
  valid; invalid ones surface ErrInvalidStateTransition to the caller -
  they indicate a UI bug or a race, never something to absorb silently.

CONCURRENCY:
  A single exclusive lock guards every operation for its full duration,
  including the persistence writes, so two concurrent check-ins cannot
  both observe Idle and both transition. Status observers are invoked
  synchronously after the transition, before the causing call returns,
  but outside the lock so they may call back into the tracker.

MIDNIGHT CROSSING:
  The active WorkDay is resolved by "last open check-in", not by calendar
  date: if today's last entry is an open check-in, today owns the session;
  otherwise yesterday is checked. This makes night-shift accounting correct
  without a separate session concept - a check-out after midnight belongs
  to the check-in's WorkDay.

SEE ALSO:
  - calc: Recomputation triggered on check-out, pause end, and edits
  - reminders: Observes status transitions to arm/cancel timers
*/
package tracking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/warp/attendance-engine/calc"
	"github.com/warp/attendance-engine/engine"
)

// doubleTapWindow treats a repeated check-in within this window as the
// same press and returns the existing entry unchanged.
const doubleTapWindow = 10 * time.Second

// Tracker is the tracking state machine.
type Tracker struct {
	mu       sync.Mutex
	store    engine.RecordStore
	settings engine.SettingsProvider
	clock    engine.Clock
	calc     *calc.Engine

	status       engine.Status
	activeDayID  engine.DayID
	sessionStart time.Time
	lastPause    *engine.PauseEntry

	observers []engine.StatusObserver
}

func New(store engine.RecordStore, settings engine.SettingsProvider, clock engine.Clock, calcEngine *calc.Engine) *Tracker {
	if clock == nil {
		clock = engine.SystemClock{}
	}
	return &Tracker{
		store:    store,
		settings: settings,
		clock:    clock,
		calc:     calcEngine,
		status:   engine.StatusIdle,
	}
}

// Status returns the current tracking state.
func (t *Tracker) Status() engine.Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// RegisterStatusObserver adds an observer. Delivery is synchronous after
// every successful transition; the payload is the new status only.
func (t *Tracker) RegisterStatusObserver(fn engine.StatusObserver) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, fn)
}

// ActiveSessionStart returns the open check-in's timestamp while a session
// is running.
func (t *Tracker) ActiveSessionStart() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == engine.StatusIdle {
		return time.Time{}, false
	}
	return t.sessionStart, true
}

// Restore rehydrates the status from the store after a process restart:
// an open check-in means Working, an open pause on top means OnBreak.
func (t *Tracker) Restore(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	day, open, err := t.resolveActiveDay(ctx)
	if err != nil {
		return err
	}
	if day == nil {
		t.status = engine.StatusIdle
		return nil
	}
	t.status = engine.StatusWorking
	t.activeDayID = day.ID
	t.sessionStart = open.Timestamp

	pause, err := t.store.GetActivePause(ctx, day.ID)
	if err != nil {
		return err
	}
	if pause != nil {
		t.status = engine.StatusOnBreak
	}
	return nil
}

// =============================================================================
// CHECK IN / CHECK OUT
// =============================================================================

// CheckIn opens a work session for today.
//
// Fails with ErrInvalidStateTransition unless Idle - except for a repeat
// press within the double-tap window, which returns the existing entry
// unchanged.
func (t *Tracker) CheckIn(ctx context.Context, employer, project, note string) (*engine.TimeEntry, error) {
	t.mu.Lock()
	entry, changed, err := t.checkInLocked(ctx, employer, project, note)
	t.mu.Unlock()

	if changed {
		t.notify(engine.StatusWorking)
	}
	return entry, err
}

func (t *Tracker) checkInLocked(ctx context.Context, employer, project, note string) (*engine.TimeEntry, bool, error) {
	now := t.clock.Now()

	if t.status != engine.StatusIdle {
		// Double-tap guard: the first press already transitioned to
		// Working, so a repeat within the window lands here.
		if t.status == engine.StatusWorking {
			last, err := t.store.GetLastTimeEntry(ctx, t.activeDayID)
			if err != nil {
				return nil, false, err
			}
			if last != nil && last.Type == engine.EntryCheckIn && now.Sub(last.Timestamp) <= doubleTapWindow {
				return last, false, nil
			}
		}
		return nil, false, &engine.InvalidTransitionError{From: t.status, Action: "check in"}
	}

	today := engine.DateOf(now)
	settings := t.settings.Settings()
	day, err := t.store.GetOrCreateWorkDay(ctx, today, dayStatusFor(today, settings), settings.TargetFor(today))
	if err != nil {
		return nil, false, fmt.Errorf("resolve work day %s: %w", today, err)
	}
	if day.Locked {
		return nil, false, &engine.LockedDayError{Date: day.Date}
	}

	entry := &engine.TimeEntry{
		DayID:     day.ID,
		Timestamp: now,
		Type:      engine.EntryCheckIn,
		Employer:  employer,
		Project:   project,
		Note:      note,
	}
	if err := t.store.SaveTimeEntry(ctx, entry); err != nil {
		return nil, false, fmt.Errorf("save check-in: %w", err)
	}

	if day.FirstCheckIn == nil {
		day.FirstCheckIn = &now
		if err := t.store.SaveWorkDay(ctx, day); err != nil {
			return nil, false, fmt.Errorf("stamp first check-in: %w", err)
		}
	}

	t.status = engine.StatusWorking
	t.activeDayID = day.ID
	t.sessionStart = now
	return entry, true, nil
}

// CheckOut closes the active session. The active WorkDay may be
// yesterday's when the session crossed midnight. An active pause is
// implicitly closed first, then the day is fully recomputed.
func (t *Tracker) CheckOut(ctx context.Context, note string) (*engine.TimeEntry, error) {
	t.mu.Lock()
	entry, changed, err := t.checkOutLocked(ctx, note)
	t.mu.Unlock()

	if changed {
		t.notify(engine.StatusIdle)
	}
	return entry, err
}

func (t *Tracker) checkOutLocked(ctx context.Context, note string) (*engine.TimeEntry, bool, error) {
	if t.status == engine.StatusIdle {
		return nil, false, &engine.InvalidTransitionError{From: t.status, Action: "check out"}
	}
	now := t.clock.Now()

	day, _, err := t.resolveActiveDay(ctx)
	if err != nil {
		return nil, false, err
	}
	if day == nil {
		return nil, false, engine.ErrNoActiveSession
	}

	// A checkout implicitly ends any pause.
	if t.status == engine.StatusOnBreak {
		if err := t.closeActivePauseLocked(ctx, day.ID, now); err != nil {
			return nil, false, err
		}
	}

	entry := &engine.TimeEntry{
		DayID:     day.ID,
		Timestamp: now,
		Type:      engine.EntryCheckOut,
		Note:      note,
	}
	if err := t.store.SaveTimeEntry(ctx, entry); err != nil {
		return nil, false, fmt.Errorf("save check-out: %w", err)
	}

	day.LastCheckOut = &now
	if err := t.calc.Recalculate(ctx, day, false); err != nil {
		return nil, false, err
	}

	t.status = engine.StatusIdle
	t.activeDayID = ""
	t.sessionStart = time.Time{}
	t.lastPause = nil
	return entry, true, nil
}

// =============================================================================
// PAUSES
// =============================================================================

// StartPause opens a manual pause. Valid only while Working; calling it
// again while OnBreak returns the already-active pause.
func (t *Tracker) StartPause(ctx context.Context, note string) (*engine.PauseEntry, error) {
	t.mu.Lock()
	pause, changed, err := t.startPauseLocked(ctx, note)
	t.mu.Unlock()

	if changed {
		t.notify(engine.StatusOnBreak)
	}
	return pause, err
}

func (t *Tracker) startPauseLocked(ctx context.Context, note string) (*engine.PauseEntry, bool, error) {
	if t.status == engine.StatusOnBreak {
		pause, err := t.store.GetActivePause(ctx, t.activeDayID)
		if err != nil {
			return nil, false, err
		}
		if pause != nil {
			return pause, false, nil
		}
	}
	if t.status != engine.StatusWorking {
		return nil, false, &engine.InvalidTransitionError{From: t.status, Action: "start pause"}
	}

	pause := &engine.PauseEntry{
		DayID: t.activeDayID,
		Start: t.clock.Now(),
		Type:  engine.PauseManual,
		Note:  note,
	}
	if err := t.store.SavePauseEntry(ctx, pause); err != nil {
		return nil, false, fmt.Errorf("save pause: %w", err)
	}

	t.status = engine.StatusOnBreak
	return pause, true, nil
}

// EndPause closes the active pause and updates the day's pause totals.
// Valid only while OnBreak; a repeat press returns the just-closed pause.
func (t *Tracker) EndPause(ctx context.Context) (*engine.PauseEntry, error) {
	t.mu.Lock()
	pause, changed, err := t.endPauseLocked(ctx)
	t.mu.Unlock()

	if changed {
		t.notify(engine.StatusWorking)
	}
	return pause, err
}

func (t *Tracker) endPauseLocked(ctx context.Context) (*engine.PauseEntry, bool, error) {
	if t.status != engine.StatusOnBreak {
		if t.status == engine.StatusWorking && t.lastPause != nil {
			return t.lastPause, false, nil
		}
		return nil, false, &engine.InvalidTransitionError{From: t.status, Action: "end pause"}
	}

	now := t.clock.Now()
	if err := t.closeActivePauseLocked(ctx, t.activeDayID, now); err != nil {
		return nil, false, err
	}

	day, err := t.workDayByID(ctx, t.activeDayID)
	if err != nil {
		return nil, false, err
	}
	if err := t.calc.RecalculatePauses(ctx, day); err != nil {
		return nil, false, err
	}

	t.status = engine.StatusWorking
	return t.lastPause, true, nil
}

func (t *Tracker) closeActivePauseLocked(ctx context.Context, dayID engine.DayID, end time.Time) error {
	pause, err := t.store.GetActivePause(ctx, dayID)
	if err != nil {
		return err
	}
	if pause == nil {
		return engine.ErrNoActiveSession
	}
	pause.End = &end
	if err := t.store.SavePauseEntry(ctx, pause); err != nil {
		return fmt.Errorf("close pause: %w", err)
	}
	t.lastPause = pause
	return nil
}

// =============================================================================
// ACTIVE DAY RESOLUTION
// =============================================================================

// ActiveWorkDay resolves the WorkDay owning the open session, or nil when
// no session is open.
func (t *Tracker) ActiveWorkDay(ctx context.Context) (*engine.WorkDay, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	day, _, err := t.resolveActiveDay(ctx)
	return day, err
}

// resolveActiveDay implements the "last open check-in" rule: today first,
// then yesterday for sessions crossing midnight.
func (t *Tracker) resolveActiveDay(ctx context.Context) (*engine.WorkDay, *engine.TimeEntry, error) {
	today := engine.DateOf(t.clock.Now())
	for _, date := range []engine.Date{today, today.AddDays(-1)} {
		day, err := t.store.GetWorkDay(ctx, date)
		if err != nil {
			if engine.IsNotFound(err) {
				continue
			}
			return nil, nil, err
		}
		last, err := t.store.GetLastTimeEntry(ctx, day.ID)
		if err != nil {
			return nil, nil, err
		}
		if last != nil && last.Type == engine.EntryCheckIn {
			return day, last, nil
		}
	}
	return nil, nil, nil
}

func (t *Tracker) workDayByID(ctx context.Context, id engine.DayID) (*engine.WorkDay, error) {
	date, err := engine.ParseDate(string(id))
	if err != nil {
		return nil, err
	}
	return t.store.GetWorkDay(ctx, date)
}

// =============================================================================
// MANUAL EDITS
// =============================================================================

// EditEntry moves an entry to a new timestamp, preserving the original
// for audit, and recomputes the owning day. Editing a missing entry is a
// no-op; editing a locked day is rejected.
func (t *Tracker) EditEntry(ctx context.Context, id engine.EntryID, newTime time.Time, note string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, err := t.store.GetTimeEntry(ctx, id)
	if err != nil {
		if engine.IsNotFound(err) {
			return nil
		}
		return err
	}
	day, err := t.workDayByID(ctx, entry.DayID)
	if err != nil {
		return err
	}
	if day.Locked {
		return &engine.LockedDayError{Date: day.Date}
	}

	if entry.OriginalTimestamp == nil {
		orig := entry.Timestamp
		entry.OriginalTimestamp = &orig
	}
	entry.Timestamp = newTime
	entry.ManualEdit = true
	if note != "" {
		entry.Note = note
	}
	if err := t.store.SaveTimeEntry(ctx, entry); err != nil {
		return fmt.Errorf("save edited entry: %w", err)
	}

	live := t.status == engine.StatusWorking && t.activeDayID == day.ID
	return t.calc.Recalculate(ctx, day, live)
}

// DeleteEntry removes an entry and recomputes the owning day. Deleting a
// missing entry is a no-op.
func (t *Tracker) DeleteEntry(ctx context.Context, id engine.EntryID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, err := t.store.GetTimeEntry(ctx, id)
	if err != nil {
		if engine.IsNotFound(err) {
			return nil
		}
		return err
	}
	day, err := t.workDayByID(ctx, entry.DayID)
	if err != nil {
		return err
	}
	if day.Locked {
		return &engine.LockedDayError{Date: day.Date}
	}

	if err := t.store.DeleteTimeEntry(ctx, id); err != nil {
		return err
	}

	live := t.status == engine.StatusWorking && t.activeDayID == day.ID
	return t.calc.Recalculate(ctx, day, live)
}

// =============================================================================
// INTERNAL
// =============================================================================

func (t *Tracker) notify(st engine.Status) {
	t.mu.Lock()
	observers := make([]engine.StatusObserver, len(t.observers))
	copy(observers, t.observers)
	t.mu.Unlock()

	for _, fn := range observers {
		fn(st)
	}
}

func dayStatusFor(d engine.Date, settings engine.Settings) engine.DayStatus {
	if settings.IsWorkDay(d.Weekday()) {
		return engine.DayRegular
	}
	return engine.DayWeekend
}
