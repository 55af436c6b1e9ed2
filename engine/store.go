/*
store.go - Persistence and side-effect contracts

PURPOSE:
  Defines the narrow interfaces between the engine and its external
  collaborators. The engine never issues raw queries beyond this surface,
  performs no network I/O, and owns no retry policy - persistence and
  notification dispatch are fast local calls whose failure handling
  belongs to the implementation behind the interface.

KEY INTERFACES:
  RecordStore:      Work days, time entries, pauses, achievements
  NotificationSink: Immediate and scheduled user notifications
  Clock:            Time source (swappable for tests)

RANGED QUERIES:
  GetWorkDays / GetTotalWorkMinutes / GetTotalOvertimeMinutes exist so that
  aggregation and achievement checks can batch their reads: one ranged
  query per data shape instead of one query per derived value.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite store
  - engine/store: In-memory store for tests/dev

SEE ALSO:
  - settings.go: SettingsProvider contract
  - types.go: Record types persisted through RecordStore
*/
package engine

import (
	"context"
	"time"
)

// =============================================================================
// RECORD STORE
// =============================================================================

// RecordStore persists the engine's records. Implementations must return
// ErrNotFound (possibly wrapped) for lookups of missing records.
type RecordStore interface {
	// GetOrCreateWorkDay resolves the WorkDay for a date, creating an empty
	// one (with the given status and target) if none exists yet.
	GetOrCreateWorkDay(ctx context.Context, date Date, status DayStatus, targetMinutes int) (*WorkDay, error)

	// GetWorkDay returns the WorkDay for a date, or ErrNotFound.
	GetWorkDay(ctx context.Context, date Date) (*WorkDay, error)

	// SaveWorkDay upserts a WorkDay.
	SaveWorkDay(ctx context.Context, day *WorkDay) error

	// GetWorkDays returns all recorded WorkDays with from <= date <= to,
	// ordered by date.
	GetWorkDays(ctx context.Context, from, to Date) ([]WorkDay, error)

	// GetTimeEntries returns a day's entries ordered by timestamp.
	GetTimeEntries(ctx context.Context, dayID DayID) ([]TimeEntry, error)

	// GetLastTimeEntry returns the day's latest entry, or nil if none.
	GetLastTimeEntry(ctx context.Context, dayID DayID) (*TimeEntry, error)

	// GetTimeEntry returns an entry by id, or ErrNotFound.
	GetTimeEntry(ctx context.Context, id EntryID) (*TimeEntry, error)

	// SaveTimeEntry upserts a time entry.
	SaveTimeEntry(ctx context.Context, entry *TimeEntry) error

	// DeleteTimeEntry removes an entry. Deleting a missing entry is a no-op.
	DeleteTimeEntry(ctx context.Context, id EntryID) error

	// GetPauseEntries returns a day's pauses ordered by start.
	GetPauseEntries(ctx context.Context, dayID DayID) ([]PauseEntry, error)

	// GetActivePause returns the day's open pause, or nil if none.
	GetActivePause(ctx context.Context, dayID DayID) (*PauseEntry, error)

	// SavePauseEntry upserts a pause entry.
	SavePauseEntry(ctx context.Context, pause *PauseEntry) error

	// DeletePauseEntry removes a pause. Deleting a missing pause is a no-op.
	DeletePauseEntry(ctx context.Context, id PauseID) error

	// GetTotalWorkMinutes sums actual minutes over a date range.
	GetTotalWorkMinutes(ctx context.Context, from, to Date) (int, error)

	// GetTotalOvertimeMinutes sums positive balances over a date range.
	GetTotalOvertimeMinutes(ctx context.Context, from, to Date) (int, error)

	// GetFirstWorkDayDate returns the earliest recorded date, or nil if
	// nothing has been recorded yet.
	GetFirstWorkDayDate(ctx context.Context) (*Date, error)

	// GetAchievement returns one achievement record, or ErrNotFound.
	GetAchievement(ctx context.Context, key AchievementKey) (*Achievement, error)

	// ListAchievements returns all persisted achievement records.
	ListAchievements(ctx context.Context) ([]Achievement, error)

	// SaveAchievement upserts an achievement record.
	SaveAchievement(ctx context.Context, a *Achievement) error
}

// =============================================================================
// NOTIFICATION SINK
// =============================================================================

// NotificationSink delivers user notifications. Scheduling semantics are
// "deliver at-or-after triggerAt, exactly once, cancellable by id".
// Cancelling an unknown or already-delivered id is a no-op.
type NotificationSink interface {
	ShowNotification(title, body string)
	ScheduleNotification(id, title, body string, triggerAt time.Time)
	CancelNotification(id string)
}

// =============================================================================
// CLOCK
// =============================================================================

// Clock is the engine's time source.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// =============================================================================
// EVENTS
// =============================================================================

// StatusObserver receives the new status synchronously after every
// successful transition, before the causing call returns.
type StatusObserver func(Status)

// UnlockObserver receives an achievement exactly once, on its transition
// into unlocked.
type UnlockObserver func(Achievement)
