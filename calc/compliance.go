package calc

import (
	"context"
	"fmt"
	"time"

	"github.com/warp/attendance-engine/engine"
)

// =============================================================================
// LEGAL COMPLIANCE - advisory findings, never errors
// =============================================================================

type FindingCode string

const (
	FindingDailyHoursExceeded FindingCode = "daily_hours_exceeded"
	FindingPauseShortfall     FindingCode = "minimum_pause_violation"
	FindingRestViolation      FindingCode = "inter_shift_rest_violation"
)

// Finding is one advisory compliance result. Findings are informational;
// callers decide display and escalation.
type Finding struct {
	Code     FindingCode
	Date     engine.Date
	Message  string
	Limit    int // the configured limit, in minutes
	Observed int // the observed value, in minutes
}

// CheckCompliance evaluates a recorded day against the configured legal
// limits. A day without a record yields no findings.
func (e *Engine) CheckCompliance(ctx context.Context, date engine.Date) ([]Finding, error) {
	day, err := e.store.GetWorkDay(ctx, date)
	if err != nil {
		if engine.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	// A day without a recorded session has nothing to hold against the
	// work limits: on a credited absence day the actual minutes are the
	// target credit, not worked time.
	if day.FirstCheckIn == nil {
		return nil, nil
	}
	settings := e.settings.Settings()

	var findings []Finding

	if settings.MaxDailyMinutes > 0 && day.ActualMinutes > settings.MaxDailyMinutes {
		findings = append(findings, Finding{
			Code:     FindingDailyHoursExceeded,
			Date:     date,
			Limit:    settings.MaxDailyMinutes,
			Observed: day.ActualMinutes,
			Message: fmt.Sprintf("worked %dm, daily ceiling is %dm",
				day.ActualMinutes, settings.MaxDailyMinutes),
		})
	}

	// One finding per violated pause band.
	gross := day.ActualMinutes + day.ManualPauseMinutes + day.AutoPauseMinutes
	totalPause := day.ManualPauseMinutes + day.AutoPauseMinutes
	for _, band := range settings.PauseBands {
		if gross >= band.GrossFrom && totalPause < band.RequiredPause {
			findings = append(findings, Finding{
				Code:     FindingPauseShortfall,
				Date:     date,
				Limit:    band.RequiredPause,
				Observed: totalPause,
				Message: fmt.Sprintf("%dm pause taken, %dm required beyond %dm gross",
					totalPause, band.RequiredPause, band.GrossFrom),
			})
		}
	}

	if f := e.restFinding(ctx, date, day, settings); f != nil {
		findings = append(findings, *f)
	}
	return findings, nil
}

// restFinding compares this day's first check-in against the previous
// day's last check-out.
func (e *Engine) restFinding(ctx context.Context, date engine.Date, day *engine.WorkDay, settings engine.Settings) *Finding {
	if settings.MinRestHours <= 0 || day.FirstCheckIn == nil {
		return nil
	}
	prev, err := e.store.GetWorkDay(ctx, date.AddDays(-1))
	if err != nil || prev.LastCheckOut == nil {
		return nil
	}
	rest := day.FirstCheckIn.Sub(*prev.LastCheckOut)
	minRest := time.Duration(settings.MinRestHours) * time.Hour
	if rest >= minRest {
		return nil
	}
	return &Finding{
		Code:     FindingRestViolation,
		Date:     date,
		Limit:    settings.MinRestHours * 60,
		Observed: int(rest.Minutes()),
		Message: fmt.Sprintf("only %s rest since previous shift, %dh required",
			rest.Round(time.Minute), settings.MinRestHours),
	}
}
