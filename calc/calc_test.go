package calc_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/calc"
	"github.com/warp/attendance-engine/engine"
	"github.com/warp/attendance-engine/engine/store"
)

// fakeClock returns a fixed instant.
type fakeClock struct{ now time.Time }

func (c fakeClock) Now() time.Time { return c.now }

// monday is a regular 480-minute work day under the default settings.
var monday = engine.NewDate(2026, time.March, 9)

type fixture struct {
	store *store.Memory
	calc  *calc.Engine
	day   *engine.WorkDay
	ctx   context.Context
}

func newFixture(t *testing.T, settings engine.Settings, now time.Time) *fixture {
	t.Helper()
	m := store.NewMemory()
	ctx := context.Background()
	day, err := m.GetOrCreateWorkDay(ctx, monday, engine.DayRegular, settings.TargetFor(monday))
	require.NoError(t, err)
	return &fixture{
		store: m,
		calc:  calc.New(m, engine.NewStaticSettings(settings), fakeClock{now: now}),
		day:   day,
		ctx:   ctx,
	}
}

func (f *fixture) checkIn(t *testing.T, hour, minute int) {
	t.Helper()
	e := &engine.TimeEntry{DayID: f.day.ID, Timestamp: monday.At(hour, minute, time.UTC), Type: engine.EntryCheckIn}
	require.NoError(t, f.store.SaveTimeEntry(f.ctx, e))
}

func (f *fixture) checkOut(t *testing.T, hour, minute int) {
	t.Helper()
	e := &engine.TimeEntry{DayID: f.day.ID, Timestamp: monday.At(hour, minute, time.UTC), Type: engine.EntryCheckOut}
	require.NoError(t, f.store.SaveTimeEntry(f.ctx, e))
}

func (f *fixture) manualPause(t *testing.T, fromH, fromM, toH, toM int) {
	t.Helper()
	end := monday.At(toH, toM, time.UTC)
	p := &engine.PauseEntry{DayID: f.day.ID, Start: monday.At(fromH, fromM, time.UTC), End: &end, Type: engine.PauseManual}
	require.NoError(t, f.store.SavePauseEntry(f.ctx, p))
}

func (f *fixture) autoPauses(t *testing.T) []engine.PauseEntry {
	t.Helper()
	pauses, err := f.store.GetPauseEntries(f.ctx, f.day.ID)
	require.NoError(t, err)
	var auto []engine.PauseEntry
	for _, p := range pauses {
		if p.Type == engine.PauseAutomatic {
			auto = append(auto, p)
		}
	}
	return auto
}

func TestRecalculate_ManualPauseCoversRequirement(t *testing.T) {
	// GIVEN: 08:00-16:30 with a 45m lunch pause
	f := newFixture(t, engine.DefaultSettings(), monday.At(17, 0, time.UTC))
	f.checkIn(t, 8, 0)
	f.checkOut(t, 16, 30)
	f.manualPause(t, 12, 0, 12, 45)

	// WHEN: the day is recomputed
	require.NoError(t, f.calc.Recalculate(f.ctx, f.day, false))

	// THEN: gross 510, 45m manual covers the 30m requirement, no auto pause
	assert.Equal(t, 465, f.day.ActualMinutes)
	assert.Equal(t, 45, f.day.ManualPauseMinutes)
	assert.Equal(t, 0, f.day.AutoPauseMinutes)
	assert.Equal(t, -15, f.day.BalanceMinutes)
	assert.Empty(t, f.autoPauses(t))

	require.NotNil(t, f.day.FirstCheckIn)
	require.NotNil(t, f.day.LastCheckOut)
	assert.Equal(t, monday.At(8, 0, time.UTC), *f.day.FirstCheckIn)
	assert.Equal(t, monday.At(16, 30, time.UTC), *f.day.LastCheckOut)
}

func TestRecalculate_InsertsAutomaticPause(t *testing.T) {
	// GIVEN: 08:00-16:30 with no pause at all (gross 510, 30m required)
	f := newFixture(t, engine.DefaultSettings(), monday.At(17, 0, time.UTC))
	f.checkIn(t, 8, 0)
	f.checkOut(t, 16, 30)

	require.NoError(t, f.calc.Recalculate(f.ctx, f.day, false))

	// THEN: a 30m automatic pause ends at the last check-out
	assert.Equal(t, 480, f.day.ActualMinutes)
	assert.Equal(t, 30, f.day.AutoPauseMinutes)
	assert.Equal(t, 0, f.day.BalanceMinutes)

	auto := f.autoPauses(t)
	require.Len(t, auto, 1)
	assert.Equal(t, monday.At(16, 0, time.UTC), auto[0].Start)
	require.NotNil(t, auto[0].End)
	assert.Equal(t, monday.At(16, 30, time.UTC), *auto[0].End)
}

func TestRecalculate_RemovesAutomaticPauseOnceCovered(t *testing.T) {
	// GIVEN: a day that earned an automatic pause
	f := newFixture(t, engine.DefaultSettings(), monday.At(17, 0, time.UTC))
	f.checkIn(t, 8, 0)
	f.checkOut(t, 16, 30)
	require.NoError(t, f.calc.Recalculate(f.ctx, f.day, false))
	require.Len(t, f.autoPauses(t), 1)

	// WHEN: a manual pause is logged retroactively and the day recomputed
	f.manualPause(t, 12, 0, 12, 45)
	require.NoError(t, f.calc.Recalculate(f.ctx, f.day, false))

	// THEN: the automatic pause is gone, only the manual one counts
	assert.Empty(t, f.autoPauses(t))
	assert.Equal(t, 465, f.day.ActualMinutes)
	assert.Equal(t, 0, f.day.AutoPauseMinutes)
}

func TestRecalculate_AutomaticPauseNeverDuplicated(t *testing.T) {
	f := newFixture(t, engine.DefaultSettings(), monday.At(18, 0, time.UTC))
	f.checkIn(t, 8, 0)
	f.checkOut(t, 16, 30)
	require.NoError(t, f.calc.Recalculate(f.ctx, f.day, false))

	// WHEN: the session is extended and recomputed again
	f.checkIn(t, 16, 45)
	f.checkOut(t, 17, 45)
	require.NoError(t, f.calc.Recalculate(f.ctx, f.day, false))

	// THEN: still one automatic pause, moved to the new last check-out
	auto := f.autoPauses(t)
	require.Len(t, auto, 1)
	require.NotNil(t, auto[0].End)
	assert.Equal(t, monday.At(17, 45, time.UTC), *auto[0].End)
}

func TestRecalculate_LiveSessionCountsOpenInterval(t *testing.T) {
	// GIVEN: checked in at 08:00, clock at 12:00, no check-out yet
	f := newFixture(t, engine.DefaultSettings(), monday.At(12, 0, time.UTC))
	f.checkIn(t, 8, 0)

	// WHEN: recomputed live
	require.NoError(t, f.calc.Recalculate(f.ctx, f.day, true))

	// THEN: the open interval counts up to now
	assert.Equal(t, 240, f.day.ActualMinutes)
	assert.Nil(t, f.day.LastCheckOut)
}

func TestRecalculate_ClosedDayIgnoresDanglingCheckIn(t *testing.T) {
	// A dangling check-in on a day that is not live contributes nothing.
	f := newFixture(t, engine.DefaultSettings(), monday.At(12, 0, time.UTC))
	f.checkIn(t, 8, 0)

	require.NoError(t, f.calc.Recalculate(f.ctx, f.day, false))

	assert.Equal(t, 0, f.day.ActualMinutes)
	assert.Equal(t, -480, f.day.BalanceMinutes)
}

func TestRecalculate_OpenSessionGetsNoAutomaticPause(t *testing.T) {
	// GIVEN: 7h into an open session, past the 6h pause threshold
	f := newFixture(t, engine.DefaultSettings(), monday.At(15, 0, time.UTC))
	f.checkIn(t, 8, 0)

	require.NoError(t, f.calc.Recalculate(f.ctx, f.day, true))

	// THEN: no automatic pause while the session is still open
	assert.Empty(t, f.autoPauses(t))
	assert.Equal(t, 420, f.day.ActualMinutes)
}

func TestRecalculate_RoundsHalfToEven(t *testing.T) {
	settings := engine.DefaultSettings()
	settings.RoundingEnabled = true
	settings.RoundingGranularity = 60

	// 90 net minutes is exactly 1.5 buckets; banker's rounding goes to 2.
	f := newFixture(t, settings, monday.At(12, 0, time.UTC))
	f.checkIn(t, 8, 0)
	f.checkOut(t, 9, 30)
	require.NoError(t, f.calc.Recalculate(f.ctx, f.day, false))
	assert.Equal(t, 120, f.day.ActualMinutes)

	// 150 net minutes is exactly 2.5 buckets; banker's rounding also goes to 2.
	f2 := newFixture(t, settings, monday.At(12, 0, time.UTC))
	f2.checkIn(t, 8, 0)
	f2.checkOut(t, 10, 30)
	require.NoError(t, f2.calc.Recalculate(f2.ctx, f2.day, false))
	assert.Equal(t, 120, f2.day.ActualMinutes)
}

func TestRecalculate_CreditedDayCountsAtTarget(t *testing.T) {
	// GIVEN: a vacation day with no entries
	f := newFixture(t, engine.DefaultSettings(), monday.At(12, 0, time.UTC))
	f.day.Status = engine.DayVacation

	require.NoError(t, f.calc.Recalculate(f.ctx, f.day, false))

	// THEN: the day is credited at target
	assert.Equal(t, 480, f.day.ActualMinutes)
	assert.Equal(t, 0, f.day.BalanceMinutes)
}

func TestRecalculate_CreditedDayWithWorkKeepsWorkedTime(t *testing.T) {
	// Working on a sick day is unusual but recorded time wins over the credit.
	f := newFixture(t, engine.DefaultSettings(), monday.At(12, 0, time.UTC))
	f.day.Status = engine.DaySick
	f.checkIn(t, 8, 0)
	f.checkOut(t, 10, 0)

	require.NoError(t, f.calc.Recalculate(f.ctx, f.day, false))

	assert.Equal(t, 120, f.day.ActualMinutes)
	assert.Equal(t, -360, f.day.BalanceMinutes)
}

func TestRecalculate_UnpaidLeaveHasNoTarget(t *testing.T) {
	f := newFixture(t, engine.DefaultSettings(), monday.At(12, 0, time.UTC))
	f.day.Status = engine.DayUnpaidLeave

	require.NoError(t, f.calc.Recalculate(f.ctx, f.day, false))

	assert.Equal(t, 0, f.day.TargetMinutes)
	assert.Equal(t, 0, f.day.BalanceMinutes)
}

func TestRecalculatePauses_UpdatesManualTotalOnly(t *testing.T) {
	f := newFixture(t, engine.DefaultSettings(), monday.At(13, 0, time.UTC))
	f.checkIn(t, 8, 0)
	f.manualPause(t, 12, 0, 12, 30)

	require.NoError(t, f.calc.RecalculatePauses(f.ctx, f.day))

	assert.Equal(t, 30, f.day.ManualPauseMinutes)
	assert.Equal(t, 0, f.day.ActualMinutes)
}
