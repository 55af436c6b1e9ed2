/*
settings.go - Process-wide configuration for the attendance engine

PURPOSE:
  Settings is the single source of tracking configuration: which weekdays
  count as work days, the per-weekday target minutes, the automatic-pause
  step function, rounding, legal limits, and reminder times.

MUTABILITY CONTRACT:
  Settings is read-only to the engine within one computation. Changes go
  through an explicit settings-update path (SettingsProvider implementations
  decide how), and the caller must invoke the reminder scheduler's
  Reschedule operation afterwards - there is no change subscription inside
  the engine.

PAUSE BANDS:
  The legally required pause is a step function of gross minutes. Bands are
  configuration; the statutory defaults (30 min at 6h, 45 min at 9h) are
  only the default fixture, not a hardcoded rule.

SEE ALSO:
  - calc: consumes targets, bands, rounding, legal limits
  - reminders: consumes reminder toggles and times
*/
package engine

import (
	"sync"
	"time"
)

// PauseBand maps a gross-minutes threshold to a required total pause.
// Bands are evaluated in ascending GrossFrom order; the last band whose
// threshold is reached wins.
type PauseBand struct {
	GrossFrom     int `yaml:"gross_from"`
	RequiredPause int `yaml:"required_pause"`
}

// ClockTime is a wall-clock time of day for reminders.
type ClockTime struct {
	Hour   int `yaml:"hour"`
	Minute int `yaml:"minute"`
}

// ReminderSettings holds the reminder toggles and times.
type ReminderSettings struct {
	MorningEnabled bool      `yaml:"morning_enabled"`
	MorningAt      ClockTime `yaml:"morning_at"`

	EveningEnabled bool      `yaml:"evening_enabled"`
	EveningAt      ClockTime `yaml:"evening_at"`

	PauseDueEnabled bool `yaml:"pause_due_enabled"`
	// PauseDueAfterMinutes is the session length after which the pause-due
	// reminder fires if no pause was taken.
	PauseDueAfterMinutes int `yaml:"pause_due_after_minutes"`

	OvertimeEnabled bool `yaml:"overtime_enabled"`

	WeeklySummaryEnabled bool      `yaml:"weekly_summary_enabled"`
	WeeklySummaryAt      ClockTime `yaml:"weekly_summary_at"`
}

// Settings is the process-wide tracking configuration.
type Settings struct {
	// WorkDays marks the designated work days, indexed by time.Weekday.
	WorkDays [7]bool `yaml:"-"`

	// TargetMinutes is the expected work per weekday, indexed by time.Weekday.
	// Per-weekday targets may differ (e.g., short Fridays).
	TargetMinutes [7]int `yaml:"-"`

	// PauseBands is the automatic-pause step function, ascending by GrossFrom.
	PauseBands []PauseBand `yaml:"pause_bands"`

	RoundingEnabled bool `yaml:"rounding_enabled"`
	// RoundingGranularity is the minute bucket for round-half-to-even
	// rounding of net minutes. 1 leaves values untouched.
	RoundingGranularity int `yaml:"rounding_granularity"`

	// MaxDailyMinutes is the legal daily working-time ceiling.
	MaxDailyMinutes int `yaml:"max_daily_minutes"`
	// MinRestHours is the minimum rest between one day's last check-out
	// and the next day's first check-in.
	MinRestHours int `yaml:"min_rest_hours"`

	Reminders ReminderSettings `yaml:"reminders"`
}

// DefaultSettings returns the statutory defaults: Mon-Fri 8h days,
// 30 min pause at 6h gross and 45 min at 9h, 10h daily ceiling, 11h rest.
func DefaultSettings() Settings {
	s := Settings{
		PauseBands: []PauseBand{
			{GrossFrom: 360, RequiredPause: 30},
			{GrossFrom: 540, RequiredPause: 45},
		},
		RoundingEnabled:     false,
		RoundingGranularity: 1,
		MaxDailyMinutes:     600,
		MinRestHours:        11,
		Reminders: ReminderSettings{
			MorningEnabled:       true,
			MorningAt:            ClockTime{Hour: 8, Minute: 0},
			EveningEnabled:       true,
			EveningAt:            ClockTime{Hour: 18, Minute: 0},
			PauseDueEnabled:      true,
			PauseDueAfterMinutes: 360,
			OvertimeEnabled:      true,
			WeeklySummaryEnabled: true,
			WeeklySummaryAt:      ClockTime{Hour: 9, Minute: 0},
		},
	}
	for wd := time.Monday; wd <= time.Friday; wd++ {
		s.WorkDays[wd] = true
		s.TargetMinutes[wd] = 480
	}
	return s
}

// IsWorkDay reports whether the weekday is a designated work day.
func (s Settings) IsWorkDay(wd time.Weekday) bool { return s.WorkDays[wd] }

// TargetFor returns the expected minutes for a date: the per-weekday target
// on designated work days, 0 otherwise.
func (s Settings) TargetFor(d Date) int {
	wd := d.Weekday()
	if !s.WorkDays[wd] {
		return 0
	}
	return s.TargetMinutes[wd]
}

// RequiredPause returns the legally required total pause for the given
// gross minutes, per the configured step function.
func (s Settings) RequiredPause(grossMinutes int) int {
	required := 0
	for _, band := range s.PauseBands {
		if grossMinutes >= band.GrossFrom {
			required = band.RequiredPause
		}
	}
	return required
}

// =============================================================================
// SETTINGS PROVIDER
// =============================================================================

// SettingsProvider hands out the current settings. Implementations decide
// where settings live (file, database, memory).
type SettingsProvider interface {
	Settings() Settings
}

// StaticSettings is a mutable in-memory provider, suitable for servers and
// tests. Update replaces the settings wholesale; the caller is responsible
// for rescheduling reminders afterwards.
type StaticSettings struct {
	mu      sync.RWMutex
	current Settings
}

func NewStaticSettings(s Settings) *StaticSettings { return &StaticSettings{current: s} }

func (p *StaticSettings) Settings() Settings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

func (p *StaticSettings) Update(s Settings) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = s
}
