/*
Package engine provides the core attendance time-accounting types.

PURPOSE:
  This package contains the shared vocabulary of the attendance engine:
  work days, time entries, pause entries, achievements, tracking status,
  and the contracts to external collaborators (record store, notification
  sink, settings provider, clock).

KEY CONCEPTS IN THIS FILE (types.go):
  - WorkDay: Aggregate daily record of target vs. actual worked minutes
  - TimeEntry: One check-in or check-out event
  - PauseEntry: One pause interval (manual or automatically inserted)
  - Achievement: Progress record for one catalog metric
  - Status: The tracking state (Idle / Working / OnBreak)

DESIGN PRINCIPLES:
  1. Minutes are the unit of account: all derived figures are integer minutes
  2. Derived values travel together: balance is never set without actual
  3. Type Safety: Strong typing for IDs prevents mixing day/entry/pause IDs
  4. Auditability: edited entries keep their original timestamp

SEE ALSO:
  - date.go: Calendar-day value type used as WorkDay key
  - settings.go: Process-wide configuration (targets, pause bands, rounding)
  - store.go: Persistence and notification contracts
  - errors.go: Error taxonomy
*/
package engine

import "time"

// =============================================================================
// IDENTIFIERS
// =============================================================================

type DayID string
type EntryID string
type PauseID string
type AchievementKey string

// =============================================================================
// TRACKING STATUS
// =============================================================================

// Status is the tracking state machine's current state.
// Valid transitions: Idle -> Working -> OnBreak -> Working -> Idle.
type Status int

const (
	StatusIdle Status = iota
	StatusWorking
	StatusOnBreak
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusWorking:
		return "working"
	case StatusOnBreak:
		return "on_break"
	default:
		return "unknown"
	}
}

// =============================================================================
// WORK DAY - One record per calendar date
// =============================================================================

// DayStatus categorizes a calendar date.
type DayStatus string

const (
	DayRegular          DayStatus = "regular"
	DayWeekend          DayStatus = "weekend"
	DayVacation         DayStatus = "vacation"
	DaySick             DayStatus = "sick"
	DayHoliday          DayStatus = "holiday"
	DayHomeOffice       DayStatus = "home_office"
	DayUnpaidLeave      DayStatus = "unpaid_leave"
	DaySpecialLeave     DayStatus = "special_leave"
	DayCompensatoryTime DayStatus = "compensatory_time"
)

// Credited reports whether the day's target is fulfilled without worked time.
// Vacation, sickness, public holidays and special leave count as worked at
// target; unpaid leave and compensatory time do not.
func (ds DayStatus) Credited() bool {
	switch ds {
	case DayVacation, DaySick, DayHoliday, DaySpecialLeave:
		return true
	default:
		return false
	}
}

// Worked reports whether time is expected to be tracked on this day status.
func (ds DayStatus) Worked() bool {
	return ds == DayRegular || ds == DayHomeOffice
}

// WorkDay aggregates one calendar date's accounting.
//
// INVARIANT: BalanceMinutes == ActualMinutes - TargetMinutes. The two are
// recomputed together by the calculation engine; nothing else writes them.
//
// A WorkDay is created lazily on the first event of its date, mutated by
// recomputation after every event, and never deleted - only locked once a
// payroll period closes.
type WorkDay struct {
	ID                 DayID
	Date               Date
	Status             DayStatus
	TargetMinutes      int
	ActualMinutes      int
	ManualPauseMinutes int
	AutoPauseMinutes   int
	BalanceMinutes     int
	FirstCheckIn       *time.Time
	LastCheckOut       *time.Time
	Locked             bool
}

// =============================================================================
// TIME ENTRY - One check-in or check-out
// =============================================================================

type EntryType string

const (
	EntryCheckIn  EntryType = "check_in"
	EntryCheckOut EntryType = "check_out"
)

// TimeEntry records a single check-in or check-out.
//
// Entries of the same day, ordered by timestamp, alternate
// check-in -> check-out; a dangling check-in at day's end means
// "still working". Entries may belong to the previous day's WorkDay
// when a session crosses midnight: ownership follows the last open
// check-in, not the calendar date of the action.
type TimeEntry struct {
	ID        EntryID
	DayID     DayID
	Timestamp time.Time
	Type      EntryType
	Employer  string
	Project   string
	Note      string

	// ManualEdit marks entries whose timestamp was changed after the fact.
	// OriginalTimestamp preserves the first recorded value for audit.
	ManualEdit        bool
	OriginalTimestamp *time.Time
}

// =============================================================================
// PAUSE ENTRY - One pause interval
// =============================================================================

type PauseType string

const (
	PauseManual    PauseType = "manual"
	PauseAutomatic PauseType = "automatic"
)

// PauseEntry records one pause interval. End is nil while the pause is open;
// at most one pause per day may be open. Automatic pauses are system-owned:
// recomputation moves or deletes them, it never duplicates them.
type PauseEntry struct {
	ID    PauseID
	DayID DayID
	Start time.Time
	End   *time.Time
	Type  PauseType
	Note  string
}

// Minutes returns the pause length, or 0 while the pause is still open.
func (p PauseEntry) Minutes() int {
	if p.End == nil {
		return 0
	}
	return int(p.End.Sub(p.Start).Minutes())
}

// Closed reports whether the pause has ended.
func (p PauseEntry) Closed() bool { return p.End != nil }

// =============================================================================
// ACHIEVEMENT - Progress record for one catalog metric
// =============================================================================

// Achievement tracks progress toward one fixed catalog entry.
//
// INVARIANTS:
//   - Progress never exceeds Target (clamped on write)
//   - Once Unlocked, progress is monotonically non-decreasing
//   - Only changed values are persisted
type Achievement struct {
	Key        AchievementKey
	Target     int
	Progress   int
	Unlocked   bool
	UnlockedAt *time.Time
}
