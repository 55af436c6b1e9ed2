/*
Package achievements incrementally evaluates the progress metric catalog.

PURPOSE:
  Evaluates the fixed catalog against history without re-scanning per
  metric. One shared data load batches every metric's dependency (earliest
  record date, ranged work-minutes sum, ranged overtime sum, one ranged
  day list reused for streak/marathon/day-count/pause-count/early-start
  derivations and the perfect-week and full-month probes) before the
  per-metric loop.

CHECK CYCLE RULES:
  - Unlocked achievements are skipped entirely (no wasted recomputation)
  - A write is skipped when progress is unchanged
  - Progress is clamped to the target
  - Unlock is marked and timestamped the instant progress reaches target
  - The unlock event fires only on the transition into unlocked

STREAK RULE:
  The streak walks backward from today up to 120 days, skipping
  non-work weekdays, counting consecutive recorded days with positive
  actual minutes, stopping at the first gap. Skipping (not breaking on)
  weekends is what makes a Friday-to-Monday streak continuous.

SEE ALSO:
  - catalog.go: The fixed metric list
  - engine/store.go: The ranged queries that make batching possible
*/
package achievements

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/warp/attendance-engine/engine"
)

// streakHorizonDays caps the backward walk.
const streakHorizonDays = 120

// Engine evaluates the catalog against the record store.
type Engine struct {
	store    engine.RecordStore
	settings engine.SettingsProvider
	clock    engine.Clock

	mu        sync.Mutex
	observers []engine.UnlockObserver
}

func New(store engine.RecordStore, settings engine.SettingsProvider, clock engine.Clock) *Engine {
	if clock == nil {
		clock = engine.SystemClock{}
	}
	return &Engine{store: store, settings: settings, clock: clock}
}

// RegisterUnlockObserver adds an observer; it receives each achievement
// exactly once, on its transition into unlocked.
func (e *Engine) RegisterUnlockObserver(fn engine.UnlockObserver) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, fn)
}

// =============================================================================
// SHARED DATA BUNDLE
// =============================================================================

// Data is the shared bundle every metric reads from. It is loaded once
// per check cycle.
type Data struct {
	RecordedDays         int
	WorkedDays           int
	TotalWorkMinutes     int
	TotalOvertimeMinutes int
	PauseDays            int
	EarlyStarts          int
	MarathonDays         int
	Streak               int
	PerfectWeek          bool
	FullMonth            bool
}

// loadData performs the batched load: one earliest-date read, two ranged
// sums, and one ranged day list that every day-shaped derivation reuses.
func (e *Engine) loadData(ctx context.Context) (*Data, error) {
	settings := e.settings.Settings()
	today := engine.DateOf(e.clock.Now())

	first, err := e.store.GetFirstWorkDayDate(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve first work day: %w", err)
	}
	if first == nil {
		return &Data{}, nil
	}

	totalWork, err := e.store.GetTotalWorkMinutes(ctx, *first, today)
	if err != nil {
		return nil, fmt.Errorf("sum work minutes: %w", err)
	}
	totalOvertime, err := e.store.GetTotalOvertimeMinutes(ctx, *first, today)
	if err != nil {
		return nil, fmt.Errorf("sum overtime minutes: %w", err)
	}
	days, err := e.store.GetWorkDays(ctx, *first, today)
	if err != nil {
		return nil, fmt.Errorf("load day list: %w", err)
	}

	byDate := make(map[engine.Date]engine.WorkDay, len(days))
	data := &Data{
		TotalWorkMinutes:     totalWork,
		TotalOvertimeMinutes: totalOvertime,
	}
	for _, day := range days {
		byDate[day.Date] = day
		data.RecordedDays++
		if day.ActualMinutes > 0 {
			data.WorkedDays++
		}
		if day.ManualPauseMinutes+day.AutoPauseMinutes > 0 {
			data.PauseDays++
		}
		if day.FirstCheckIn != nil && day.FirstCheckIn.Hour() < 7 {
			data.EarlyStarts++
		}
		if day.ActualMinutes >= 600 {
			data.MarathonDays++
		}
	}

	data.Streak = streak(byDate, today, settings)
	data.PerfectWeek = perfectWeek(byDate, *first, today, settings)
	data.FullMonth = fullMonth(byDate, *first, today, settings)
	return data, nil
}

// =============================================================================
// CHECK CYCLE
// =============================================================================

// Check evaluates every still-locked catalog entry and returns the
// achievements newly unlocked by this cycle.
func (e *Engine) Check(ctx context.Context) ([]engine.Achievement, error) {
	records, err := e.store.ListAchievements(ctx)
	if err != nil {
		return nil, fmt.Errorf("load achievements: %w", err)
	}
	byKey := make(map[engine.AchievementKey]engine.Achievement, len(records))
	for _, rec := range records {
		byKey[rec.Key] = rec
	}

	pending := 0
	for _, def := range Catalog {
		if rec, ok := byKey[def.Key]; !ok || !rec.Unlocked {
			pending++
		}
	}
	if pending == 0 {
		return nil, nil
	}

	data, err := e.loadData(ctx)
	if err != nil {
		return nil, err
	}

	var unlocked []engine.Achievement
	for _, def := range Catalog {
		rec, ok := byKey[def.Key]
		if !ok {
			rec = engine.Achievement{Key: def.Key, Target: def.Target}
		}
		if rec.Unlocked {
			continue
		}

		progress := def.Progress(data)
		if progress > def.Target {
			progress = def.Target
		}
		if progress < 0 {
			progress = 0
		}
		if ok && progress == rec.Progress {
			continue
		}

		rec.Progress = progress
		if progress >= def.Target {
			rec.Unlocked = true
			now := e.clock.Now()
			rec.UnlockedAt = &now
		}
		if err := e.store.SaveAchievement(ctx, &rec); err != nil {
			return unlocked, fmt.Errorf("save achievement %s: %w", def.Key, err)
		}
		if rec.Unlocked {
			unlocked = append(unlocked, rec)
			e.emitUnlock(rec)
		}
	}
	return unlocked, nil
}

func (e *Engine) emitUnlock(a engine.Achievement) {
	e.mu.Lock()
	observers := make([]engine.UnlockObserver, len(e.observers))
	copy(observers, e.observers)
	e.mu.Unlock()

	for _, fn := range observers {
		fn(a)
	}
}

// CurrentStreak returns today's streak using the same day-list shape the
// check cycle batches.
func (e *Engine) CurrentStreak(ctx context.Context) (int, error) {
	settings := e.settings.Settings()
	today := engine.DateOf(e.clock.Now())

	first, err := e.store.GetFirstWorkDayDate(ctx)
	if err != nil {
		return 0, err
	}
	if first == nil {
		return 0, nil
	}
	days, err := e.store.GetWorkDays(ctx, *first, today)
	if err != nil {
		return 0, err
	}
	byDate := make(map[engine.Date]engine.WorkDay, len(days))
	for _, day := range days {
		byDate[day.Date] = day
	}
	return streak(byDate, today, settings), nil
}

// =============================================================================
// DERIVATIONS
// =============================================================================

// streak counts consecutive worked days backward from today. Non-work
// weekdays are skipped, not counted and not breaking. Today itself is
// tolerated unrecorded (the day may still be in progress).
func streak(byDate map[engine.Date]engine.WorkDay, today engine.Date, settings engine.Settings) int {
	count := 0
	day := today
	for steps := 0; steps < streakHorizonDays; steps++ {
		if settings.IsWorkDay(day.Weekday()) {
			rec, ok := byDate[day]
			if ok && rec.ActualMinutes > 0 {
				count++
			} else if day != today {
				break
			}
		}
		day = day.AddDays(-1)
	}
	return count
}

// perfectWeek reports whether any completed week has every designated
// work day recorded with a non-negative balance.
func perfectWeek(byDate map[engine.Date]engine.WorkDay, first, today engine.Date, settings engine.Settings) bool {
	monday, _ := engine.WeekOf(first)
	for ; ; monday = monday.AddDays(7) {
		sunday := monday.AddDays(6)
		if !sunday.Before(today) {
			return false
		}
		ok := false
		for d := monday; d.BeforeOrEqual(sunday); d = d.AddDays(1) {
			if !settings.IsWorkDay(d.Weekday()) {
				continue
			}
			rec, recorded := byDate[d]
			if !recorded || rec.BalanceMinutes < 0 {
				ok = false
				break
			}
			ok = true
		}
		if ok {
			return true
		}
	}
}

// fullMonth reports whether any completed calendar month has every
// designated work day actually worked (absences break it).
func fullMonth(byDate map[engine.Date]engine.WorkDay, first, today engine.Date, settings engine.Settings) bool {
	start, _ := engine.MonthOf(first)
	thisMonth, _ := engine.MonthOf(today)
	for month := start; month.Before(thisMonth); month = nextMonth(month) {
		_, last := engine.MonthOf(month)
		if month.Before(first) {
			// Partial first month: records cannot cover it.
			continue
		}
		ok := false
		for d := month; d.BeforeOrEqual(last); d = d.AddDays(1) {
			if !settings.IsWorkDay(d.Weekday()) {
				continue
			}
			rec, recorded := byDate[d]
			if !recorded || !rec.Status.Worked() || rec.ActualMinutes <= 0 {
				ok = false
				break
			}
			ok = true
		}
		if ok {
			return true
		}
	}
	return false
}

func nextMonth(d engine.Date) engine.Date {
	return engine.DateOf(d.Time(time.UTC).AddDate(0, 1, 0))
}
