/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - engine/types.go: The domain records these project
*/
package api

import (
	"time"

	"github.com/warp/attendance-engine/calc"
	"github.com/warp/attendance-engine/engine"
)

// =============================================================================
// TRACKING
// =============================================================================

// StatusDTO is the current tracking state.
type StatusDTO struct {
	Status       string  `json:"status"`
	SessionStart *string `json:"session_start,omitempty"`
	ActiveDay    *string `json:"active_day,omitempty"`
}

// CheckInRequest is the request body for a check-in.
type CheckInRequest struct {
	Employer string `json:"employer,omitempty"`
	Project  string `json:"project,omitempty"`
	Note     string `json:"note,omitempty"`
}

// CheckOutRequest is the request body for a check-out.
type CheckOutRequest struct {
	Note string `json:"note,omitempty"`
}

// PauseRequest is the request body for starting a pause.
type PauseRequest struct {
	Note string `json:"note,omitempty"`
}

// TimeEntryDTO represents a check-in/check-out event.
type TimeEntryDTO struct {
	ID                string  `json:"id"`
	DayID             string  `json:"day_id"`
	Timestamp         string  `json:"timestamp"`
	Type              string  `json:"type"`
	Employer          string  `json:"employer,omitempty"`
	Project           string  `json:"project,omitempty"`
	Note              string  `json:"note,omitempty"`
	ManualEdit        bool    `json:"manual_edit"`
	OriginalTimestamp *string `json:"original_timestamp,omitempty"`
}

// PauseEntryDTO represents one pause interval.
type PauseEntryDTO struct {
	ID      string  `json:"id"`
	DayID   string  `json:"day_id"`
	Start   string  `json:"start"`
	End     *string `json:"end,omitempty"`
	Type    string  `json:"type"`
	Note    string  `json:"note,omitempty"`
	Minutes int     `json:"minutes"`
}

// EditEntryRequest moves an entry to a new timestamp.
type EditEntryRequest struct {
	Timestamp string `json:"timestamp"`
	Note      string `json:"note,omitempty"`
}

// =============================================================================
// WORK DAYS
// =============================================================================

// WorkDayDTO is one calendar date's accounting.
type WorkDayDTO struct {
	ID                 string  `json:"id"`
	Date               string  `json:"date"`
	Status             string  `json:"status"`
	TargetMinutes      int     `json:"target_minutes"`
	ActualMinutes      int     `json:"actual_minutes"`
	ManualPauseMinutes int     `json:"manual_pause_minutes"`
	AutoPauseMinutes   int     `json:"auto_pause_minutes"`
	BalanceMinutes     int     `json:"balance_minutes"`
	FirstCheckIn       *string `json:"first_check_in,omitempty"`
	LastCheckOut       *string `json:"last_check_out,omitempty"`
	Locked             bool    `json:"locked"`
}

// WorkDayDetailDTO is a day with its entries and pauses.
type WorkDayDetailDTO struct {
	Day     WorkDayDTO      `json:"day"`
	Entries []TimeEntryDTO  `json:"entries"`
	Pauses  []PauseEntryDTO `json:"pauses"`
}

// SetDayStatusRequest changes a day's categorization (vacation, sick, ...).
type SetDayStatusRequest struct {
	Status string `json:"status"`
	Locked *bool  `json:"locked,omitempty"`
}

// =============================================================================
// SUMMARIES
// =============================================================================

// SummaryDTO aggregates a date range.
type SummaryDTO struct {
	From           string       `json:"from"`
	To             string       `json:"to"`
	TargetMinutes  int          `json:"target_minutes"`
	ActualMinutes  int          `json:"actual_minutes"`
	BalanceMinutes int          `json:"balance_minutes"`
	Days           []WorkDayDTO `json:"days"`
}

// BalanceDTO is the cumulative overtime balance.
type BalanceDTO struct {
	AsOf           string `json:"as_of"`
	BalanceMinutes int    `json:"balance_minutes"`
}

// FindingDTO is one advisory compliance finding.
type FindingDTO struct {
	Code     string `json:"code"`
	Date     string `json:"date"`
	Message  string `json:"message"`
	Limit    int    `json:"limit_minutes"`
	Observed int    `json:"observed_minutes"`
}

// =============================================================================
// ACHIEVEMENTS
// =============================================================================

// AchievementDTO is one catalog entry with its progress.
type AchievementDTO struct {
	Key        string  `json:"key"`
	Title      string  `json:"title"`
	Category   string  `json:"category"`
	Target     int     `json:"target"`
	Progress   int     `json:"progress"`
	Unlocked   bool    `json:"unlocked"`
	UnlockedAt *string `json:"unlocked_at,omitempty"`
}

// StreakDTO is the current consecutive-day streak.
type StreakDTO struct {
	Days int `json:"days"`
}

// =============================================================================
// SETTINGS
// =============================================================================

// SettingsDTO mirrors engine.Settings with JSON-friendly weekday maps.
type SettingsDTO struct {
	WorkDays            map[string]bool      `json:"work_days"`
	TargetMinutes       map[string]int       `json:"target_minutes"`
	PauseBands          []PauseBandDTO       `json:"pause_bands"`
	RoundingEnabled     bool                 `json:"rounding_enabled"`
	RoundingGranularity int                  `json:"rounding_granularity"`
	MaxDailyMinutes     int                  `json:"max_daily_minutes"`
	MinRestHours        int                  `json:"min_rest_hours"`
	Reminders           ReminderSettingsDTO  `json:"reminders"`
}

type PauseBandDTO struct {
	GrossFrom     int `json:"gross_from"`
	RequiredPause int `json:"required_pause"`
}

type ReminderSettingsDTO struct {
	MorningEnabled       bool   `json:"morning_enabled"`
	MorningAt            string `json:"morning_at"`
	EveningEnabled       bool   `json:"evening_enabled"`
	EveningAt            string `json:"evening_at"`
	PauseDueEnabled      bool   `json:"pause_due_enabled"`
	PauseDueAfterMinutes int    `json:"pause_due_after_minutes"`
	OvertimeEnabled      bool   `json:"overtime_enabled"`
	WeeklySummaryEnabled bool   `json:"weekly_summary_enabled"`
	WeeklySummaryAt      string `json:"weekly_summary_at"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// MAPPERS
// =============================================================================

func toWorkDayDTO(d engine.WorkDay) WorkDayDTO {
	return WorkDayDTO{
		ID:                 string(d.ID),
		Date:               d.Date.String(),
		Status:             string(d.Status),
		TargetMinutes:      d.TargetMinutes,
		ActualMinutes:      d.ActualMinutes,
		ManualPauseMinutes: d.ManualPauseMinutes,
		AutoPauseMinutes:   d.AutoPauseMinutes,
		BalanceMinutes:     d.BalanceMinutes,
		FirstCheckIn:       timeString(d.FirstCheckIn),
		LastCheckOut:       timeString(d.LastCheckOut),
		Locked:             d.Locked,
	}
}

func toTimeEntryDTO(e engine.TimeEntry) TimeEntryDTO {
	return TimeEntryDTO{
		ID:                string(e.ID),
		DayID:             string(e.DayID),
		Timestamp:         e.Timestamp.Format(time.RFC3339),
		Type:              string(e.Type),
		Employer:          e.Employer,
		Project:           e.Project,
		Note:              e.Note,
		ManualEdit:        e.ManualEdit,
		OriginalTimestamp: timeString(e.OriginalTimestamp),
	}
}

func toPauseEntryDTO(p engine.PauseEntry) PauseEntryDTO {
	return PauseEntryDTO{
		ID:      string(p.ID),
		DayID:   string(p.DayID),
		Start:   p.Start.Format(time.RFC3339),
		End:     timeString(p.End),
		Type:    string(p.Type),
		Note:    p.Note,
		Minutes: p.Minutes(),
	}
}

func toSummaryDTO(s *calc.PeriodSummary) SummaryDTO {
	dto := SummaryDTO{
		From:           s.From.String(),
		To:             s.To.String(),
		TargetMinutes:  s.TargetMinutes,
		ActualMinutes:  s.ActualMinutes,
		BalanceMinutes: s.BalanceMinutes,
		Days:           make([]WorkDayDTO, len(s.Days)),
	}
	for i, d := range s.Days {
		dto.Days[i] = toWorkDayDTO(d)
	}
	return dto
}

func toFindingDTO(f calc.Finding) FindingDTO {
	return FindingDTO{
		Code:     string(f.Code),
		Date:     f.Date.String(),
		Message:  f.Message,
		Limit:    f.Limit,
		Observed: f.Observed,
	}
}

func timeString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
