package calc

import (
	"context"
	"fmt"

	"github.com/warp/attendance-engine/engine"
)

// =============================================================================
// PERIOD AGGREGATION - week / month / arbitrary ranges
// =============================================================================

// PeriodSummary aggregates a date range.
//
// The period target is the sum of per-weekday targets across the range's
// designated work days - per-weekday targets may differ, so this is never
// "workdays x constant". Days without a recorded WorkDay are synthesized
// as zero-actual placeholders with a negative balance equal to their
// target, so an unworked expected day always shows as a deficit.
type PeriodSummary struct {
	From engine.Date
	To   engine.Date

	TargetMinutes  int
	ActualMinutes  int
	BalanceMinutes int

	// Days holds recorded days plus synthesized placeholders, ordered by date.
	Days []engine.WorkDay
}

// RangeSummary aggregates [from, to] with a single ranged read.
func (e *Engine) RangeSummary(ctx context.Context, from, to engine.Date) (*PeriodSummary, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("invalid range %s..%s", from, to)
	}
	settings := e.settings.Settings()

	recorded, err := e.store.GetWorkDays(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load work days %s..%s: %w", from, to, err)
	}
	byDate := make(map[engine.Date]engine.WorkDay, len(recorded))
	for _, day := range recorded {
		byDate[day.Date] = day
	}

	summary := &PeriodSummary{From: from, To: to}
	for d := from; d.BeforeOrEqual(to); d = d.AddDays(1) {
		day, ok := byDate[d]
		if !ok {
			target := settings.TargetFor(d)
			if target == 0 {
				continue
			}
			day = engine.WorkDay{
				ID:             engine.DayID(d.String()),
				Date:           d,
				Status:         engine.DayRegular,
				TargetMinutes:  target,
				BalanceMinutes: -target,
			}
		}
		summary.TargetMinutes += day.TargetMinutes
		summary.ActualMinutes += day.ActualMinutes
		summary.BalanceMinutes += day.BalanceMinutes
		summary.Days = append(summary.Days, day)
	}
	return summary, nil
}

// WeekSummary aggregates the ISO week containing d (Monday through Sunday).
func (e *Engine) WeekSummary(ctx context.Context, d engine.Date) (*PeriodSummary, error) {
	from, to := engine.WeekOf(d)
	return e.RangeSummary(ctx, from, to)
}

// MonthSummary aggregates the calendar month containing d.
func (e *Engine) MonthSummary(ctx context.Context, d engine.Date) (*PeriodSummary, error) {
	from, to := engine.MonthOf(d)
	return e.RangeSummary(ctx, from, to)
}

// CumulativeBalance is the running balance from the first-ever recorded
// WorkDay through cutoff. It is a single ranged sum, not an incremental
// ledger, so it stays correct under retroactive edits.
func (e *Engine) CumulativeBalance(ctx context.Context, cutoff engine.Date) (int, error) {
	first, err := e.store.GetFirstWorkDayDate(ctx)
	if err != nil {
		return 0, fmt.Errorf("resolve first work day: %w", err)
	}
	if first == nil || cutoff.Before(*first) {
		return 0, nil
	}
	summary, err := e.RangeSummary(ctx, *first, cutoff)
	if err != nil {
		return 0, err
	}
	return summary.BalanceMinutes, nil
}
