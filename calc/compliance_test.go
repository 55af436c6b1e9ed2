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

func newComplianceFixture(t *testing.T) (*store.Memory, *calc.Engine) {
	t.Helper()
	m := store.NewMemory()
	e := calc.New(m, engine.NewStaticSettings(engine.DefaultSettings()), fakeClock{now: monday.At(23, 0, time.UTC)})
	return m, e
}

func findingCodes(findings []calc.Finding) []calc.FindingCode {
	codes := make([]calc.FindingCode, 0, len(findings))
	for _, f := range findings {
		codes = append(codes, f.Code)
	}
	return codes
}

func TestCheckCompliance_UnrecordedDayHasNoFindings(t *testing.T) {
	_, e := newComplianceFixture(t)

	findings, err := e.CheckCompliance(context.Background(), monday)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

// stampCheckIn marks the day as actually worked.
func stampCheckIn(day *engine.WorkDay, hour int) {
	in := day.Date.At(hour, 0, time.UTC)
	day.FirstCheckIn = &in
}

func TestCheckCompliance_CleanDayHasNoFindings(t *testing.T) {
	m, e := newComplianceFixture(t)
	ctx := context.Background()
	day, err := m.GetOrCreateWorkDay(ctx, monday, engine.DayRegular, 480)
	require.NoError(t, err)
	day.ActualMinutes = 480
	day.ManualPauseMinutes = 45
	stampCheckIn(day, 8)
	require.NoError(t, m.SaveWorkDay(ctx, day))

	findings, err := e.CheckCompliance(ctx, monday)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestCheckCompliance_DailyCeilingExceeded(t *testing.T) {
	// GIVEN: 620 net minutes against the 600-minute ceiling
	m, e := newComplianceFixture(t)
	ctx := context.Background()
	day, err := m.GetOrCreateWorkDay(ctx, monday, engine.DayRegular, 480)
	require.NoError(t, err)
	day.ActualMinutes = 620
	day.ManualPauseMinutes = 45
	stampCheckIn(day, 7)
	require.NoError(t, m.SaveWorkDay(ctx, day))

	findings, err := e.CheckCompliance(ctx, monday)
	require.NoError(t, err)

	require.Contains(t, findingCodes(findings), calc.FindingDailyHoursExceeded)
	for _, f := range findings {
		if f.Code == calc.FindingDailyHoursExceeded {
			assert.Equal(t, 600, f.Limit)
			assert.Equal(t, 620, f.Observed)
		}
	}
}

func TestCheckCompliance_PauseShortfall(t *testing.T) {
	// GIVEN: 400m worked with only 10m of pause (gross 410, 30m required)
	m, e := newComplianceFixture(t)
	ctx := context.Background()
	day, err := m.GetOrCreateWorkDay(ctx, monday, engine.DayRegular, 480)
	require.NoError(t, err)
	day.ActualMinutes = 400
	day.ManualPauseMinutes = 10
	stampCheckIn(day, 8)
	require.NoError(t, m.SaveWorkDay(ctx, day))

	findings, err := e.CheckCompliance(ctx, monday)
	require.NoError(t, err)

	require.Len(t, findings, 1)
	assert.Equal(t, calc.FindingPauseShortfall, findings[0].Code)
	assert.Equal(t, 30, findings[0].Limit)
	assert.Equal(t, 10, findings[0].Observed)
}

func TestCheckCompliance_AutomaticPauseCountsTowardRequirement(t *testing.T) {
	m, e := newComplianceFixture(t)
	ctx := context.Background()
	day, err := m.GetOrCreateWorkDay(ctx, monday, engine.DayRegular, 480)
	require.NoError(t, err)
	day.ActualMinutes = 480
	day.AutoPauseMinutes = 30
	stampCheckIn(day, 8)
	require.NoError(t, m.SaveWorkDay(ctx, day))

	findings, err := e.CheckCompliance(ctx, monday)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestCheckCompliance_CreditedAbsenceDayHasNoFindings(t *testing.T) {
	// GIVEN: a vacation day credited at target, with no clocked time
	m, e := newComplianceFixture(t)
	ctx := context.Background()
	day, err := m.GetOrCreateWorkDay(ctx, monday, engine.DayVacation, 480)
	require.NoError(t, err)
	require.NoError(t, e.Recalculate(ctx, day, false))
	require.Equal(t, 480, day.ActualMinutes)

	// WHEN: the day is checked against the legal limits
	findings, err := e.CheckCompliance(ctx, monday)
	require.NoError(t, err)

	// THEN: the target credit is not mistaken for worked time
	assert.Empty(t, findings)
}

func TestCheckCompliance_RestViolation(t *testing.T) {
	// GIVEN: Monday ended 22:00, Tuesday started 06:00 (8h rest, 11h required)
	m, e := newComplianceFixture(t)
	ctx := context.Background()
	tuesday := monday.AddDays(1)

	prev, err := m.GetOrCreateWorkDay(ctx, monday, engine.DayRegular, 480)
	require.NoError(t, err)
	out := monday.At(22, 0, time.UTC)
	prev.LastCheckOut = &out
	require.NoError(t, m.SaveWorkDay(ctx, prev))

	day, err := m.GetOrCreateWorkDay(ctx, tuesday, engine.DayRegular, 480)
	require.NoError(t, err)
	in := tuesday.At(6, 0, time.UTC)
	day.FirstCheckIn = &in
	day.ActualMinutes = 300
	require.NoError(t, m.SaveWorkDay(ctx, day))

	findings, err := e.CheckCompliance(ctx, tuesday)
	require.NoError(t, err)

	require.Len(t, findings, 1)
	assert.Equal(t, calc.FindingRestViolation, findings[0].Code)
	assert.Equal(t, 11*60, findings[0].Limit)
	assert.Equal(t, 8*60, findings[0].Observed)
}

func TestCheckCompliance_RestCheckSkippedWithoutPreviousDay(t *testing.T) {
	m, e := newComplianceFixture(t)
	ctx := context.Background()
	day, err := m.GetOrCreateWorkDay(ctx, monday, engine.DayRegular, 480)
	require.NoError(t, err)
	in := monday.At(6, 0, time.UTC)
	day.FirstCheckIn = &in
	day.ActualMinutes = 300
	require.NoError(t, m.SaveWorkDay(ctx, day))

	findings, err := e.CheckCompliance(ctx, monday)
	require.NoError(t, err)
	assert.Empty(t, findings)
}
