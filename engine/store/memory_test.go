package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/engine"
	"github.com/warp/attendance-engine/engine/store"
)

func TestGetOrCreateWorkDay_SeedsNegativeBalance(t *testing.T) {
	// GIVEN: an empty store
	m := store.NewMemory()
	ctx := context.Background()
	date := engine.NewDate(2026, time.March, 9)

	// WHEN: a day is created lazily
	day, err := m.GetOrCreateWorkDay(ctx, date, engine.DayRegular, 480)
	require.NoError(t, err)

	// THEN: it starts at zero actual and owes the full target
	assert.Equal(t, engine.DayID("2026-03-09"), day.ID)
	assert.Equal(t, 0, day.ActualMinutes)
	assert.Equal(t, -480, day.BalanceMinutes)
}

func TestGetOrCreateWorkDay_SecondCallReturnsExisting(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	date := engine.NewDate(2026, time.March, 9)

	first, err := m.GetOrCreateWorkDay(ctx, date, engine.DayRegular, 480)
	require.NoError(t, err)
	first.ActualMinutes = 200
	require.NoError(t, m.SaveWorkDay(ctx, first))

	// WHEN: the same date is requested again with a different status
	again, err := m.GetOrCreateWorkDay(ctx, date, engine.DayVacation, 0)
	require.NoError(t, err)

	// THEN: the existing record wins, the arguments are ignored
	assert.Equal(t, engine.DayRegular, again.Status)
	assert.Equal(t, 200, again.ActualMinutes)
}

func TestGetWorkDay_MissingIsNotFound(t *testing.T) {
	m := store.NewMemory()

	_, err := m.GetWorkDay(context.Background(), engine.NewDate(2026, time.March, 9))
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestGetWorkDays_RangeIsInclusiveAndOrdered(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	for d := 9; d <= 13; d++ {
		_, err := m.GetOrCreateWorkDay(ctx, engine.NewDate(2026, time.March, d), engine.DayRegular, 480)
		require.NoError(t, err)
	}

	days, err := m.GetWorkDays(ctx, engine.NewDate(2026, time.March, 10), engine.NewDate(2026, time.March, 12))
	require.NoError(t, err)
	require.Len(t, days, 3)
	assert.Equal(t, "2026-03-10", days[0].Date.String())
	assert.Equal(t, "2026-03-12", days[2].Date.String())
}

func TestTimeEntries_OrderedByTimestamp(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	dayID := engine.DayID("2026-03-09")
	base := time.Date(2026, time.March, 9, 8, 0, 0, 0, time.UTC)

	// Saved out of order on purpose.
	out := &engine.TimeEntry{DayID: dayID, Timestamp: base.Add(8 * time.Hour), Type: engine.EntryCheckOut}
	in := &engine.TimeEntry{DayID: dayID, Timestamp: base, Type: engine.EntryCheckIn}
	require.NoError(t, m.SaveTimeEntry(ctx, out))
	require.NoError(t, m.SaveTimeEntry(ctx, in))

	entries, err := m.GetTimeEntries(ctx, dayID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, engine.EntryCheckIn, entries[0].Type)
	assert.Equal(t, engine.EntryCheckOut, entries[1].Type)

	last, err := m.GetLastTimeEntry(ctx, dayID)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, engine.EntryCheckOut, last.Type)
}

func TestSaveTimeEntry_AssignsID(t *testing.T) {
	m := store.NewMemory()
	e := &engine.TimeEntry{DayID: "2026-03-09", Timestamp: time.Now(), Type: engine.EntryCheckIn}

	require.NoError(t, m.SaveTimeEntry(context.Background(), e))
	assert.NotEmpty(t, e.ID)
}

func TestDeleteTimeEntry_MissingIsNoop(t *testing.T) {
	m := store.NewMemory()
	assert.NoError(t, m.DeleteTimeEntry(context.Background(), "entry-999"))
}

func TestGetActivePause_OnlyOpenPauseMatches(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	dayID := engine.DayID("2026-03-09")
	start := time.Date(2026, time.March, 9, 12, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)

	closed := &engine.PauseEntry{DayID: dayID, Start: start, End: &end, Type: engine.PauseManual}
	require.NoError(t, m.SavePauseEntry(ctx, closed))

	// WHEN: no open pause exists
	active, err := m.GetActivePause(ctx, dayID)
	require.NoError(t, err)
	assert.Nil(t, active)

	// WHEN: an open pause is added
	open := &engine.PauseEntry{DayID: dayID, Start: end, Type: engine.PauseManual}
	require.NoError(t, m.SavePauseEntry(ctx, open))

	active, err = m.GetActivePause(ctx, dayID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, open.ID, active.ID)
}

func TestRangedAggregates(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	seed := func(date engine.Date, actual, balance int) {
		day, err := m.GetOrCreateWorkDay(ctx, date, engine.DayRegular, 480)
		require.NoError(t, err)
		day.ActualMinutes = actual
		day.BalanceMinutes = balance
		require.NoError(t, m.SaveWorkDay(ctx, day))
	}
	seed(engine.NewDate(2026, time.March, 9), 480, 0)
	seed(engine.NewDate(2026, time.March, 10), 510, 30)
	seed(engine.NewDate(2026, time.March, 11), 450, -30)

	from := engine.NewDate(2026, time.March, 9)
	to := engine.NewDate(2026, time.March, 11)

	total, err := m.GetTotalWorkMinutes(ctx, from, to)
	require.NoError(t, err)
	assert.Equal(t, 1440, total)

	// Only positive balances count as overtime.
	overtime, err := m.GetTotalOvertimeMinutes(ctx, from, to)
	require.NoError(t, err)
	assert.Equal(t, 30, overtime)

	first, err := m.GetFirstWorkDayDate(ctx)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "2026-03-09", first.String())
}

func TestGetFirstWorkDayDate_EmptyStoreIsNil(t *testing.T) {
	m := store.NewMemory()

	first, err := m.GetFirstWorkDayDate(context.Background())
	require.NoError(t, err)
	assert.Nil(t, first)
}

func TestAchievements_UpsertAndList(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	a := &engine.Achievement{Key: "first_checkin", Target: 1, Progress: 0}
	require.NoError(t, m.SaveAchievement(ctx, a))

	now := time.Now()
	a.Progress = 1
	a.Unlocked = true
	a.UnlockedAt = &now
	require.NoError(t, m.SaveAchievement(ctx, a))

	got, err := m.GetAchievement(ctx, "first_checkin")
	require.NoError(t, err)
	assert.True(t, got.Unlocked)
	assert.Equal(t, 1, got.Progress)

	list, err := m.ListAchievements(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = m.GetAchievement(ctx, "unknown")
	assert.ErrorIs(t, err, engine.ErrNotFound)
}
