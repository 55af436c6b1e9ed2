package reminders_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/calc"
	"github.com/warp/attendance-engine/engine"
	"github.com/warp/attendance-engine/engine/store"
	"github.com/warp/attendance-engine/notify"
	"github.com/warp/attendance-engine/reminders"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

// fakeSession stands in for the tracker's session source.
type fakeSession struct {
	start time.Time
	ok    bool
}

func (s *fakeSession) ActiveSessionStart() (time.Time, bool) { return s.start, s.ok }

// friday is a regular work day; the following work day is a Monday.
var friday = engine.NewDate(2026, time.March, 13)

type fixture struct {
	buffer  *notify.Buffer
	clock   *fakeClock
	session *fakeSession
	sched   *reminders.Scheduler
	store   *store.Memory
}

func newFixture(t *testing.T, settings engine.Settings) *fixture {
	t.Helper()
	m := store.NewMemory()
	clock := &fakeClock{now: friday.At(9, 0, time.UTC)}
	session := &fakeSession{}
	provider := engine.NewStaticSettings(settings)
	buffer := notify.NewBuffer()
	sched := reminders.New(provider, buffer, clock, session, calc.New(m, provider, clock), zerolog.Nop())
	t.Cleanup(sched.Close)
	return &fixture{buffer: buffer, clock: clock, session: session, sched: sched, store: m}
}

func TestSessionStart_CancelsMorningReminder(t *testing.T) {
	// GIVEN: an idle scheduler
	f := newFixture(t, engine.DefaultSettings())
	f.session.start = f.clock.now
	f.session.ok = true

	// WHEN: the tracker transitions to Working
	f.sched.OnStatusChanged(engine.StatusWorking)

	// THEN: the pending morning reminder is cancelled
	assert.Contains(t, f.buffer.Cancelled(), "reminder.morning")
}

func TestSessionStart_PassedDeadlineFiresImmediately(t *testing.T) {
	// GIVEN: a rehydrated session that already ran past the pause deadline
	f := newFixture(t, engine.DefaultSettings())
	f.session.start = f.clock.now.Add(-7 * time.Hour)
	f.session.ok = true

	// WHEN: the scheduler sees the session
	f.sched.OnStatusChanged(engine.StatusWorking)

	// THEN: the pause-due reminder fires right away instead of restarting
	// a full countdown
	require.Eventually(t, func() bool { return f.buffer.ShownCount() >= 1 },
		time.Second, 10*time.Millisecond)
	assert.Equal(t, "Time for a break", f.buffer.ShownList()[0].Title)
}

func TestPauseDue_CancelledByBreak(t *testing.T) {
	// GIVEN: a session whose pause-due countdown is about to expire
	f := newFixture(t, engine.DefaultSettings())
	f.session.start = f.clock.now.Add(-(6*time.Hour - 50*time.Millisecond))
	f.session.ok = true
	f.sched.OnStatusChanged(engine.StatusWorking)

	// WHEN: a break starts before the countdown fires
	f.sched.OnStatusChanged(engine.StatusOnBreak)

	// THEN: the reminder stays silent
	require.Never(t, func() bool { return f.buffer.ShownCount() > 0 },
		300*time.Millisecond, 20*time.Millisecond)
}

func TestRearmedTimer_StillCancellableAfterEarlierFire(t *testing.T) {
	// GIVEN: a pause-due countdown that already fired for an overlong session
	f := newFixture(t, engine.DefaultSettings())
	f.session.start = f.clock.now.Add(-7 * time.Hour)
	f.session.ok = true
	f.sched.OnStatusChanged(engine.StatusWorking)
	require.Eventually(t, func() bool { return f.buffer.ShownCount() == 1 },
		time.Second, 10*time.Millisecond)

	// WHEN: the same id is re-armed with a fresh countdown and then cancelled
	// by a break; the fired predecessor must not have unregistered the
	// successor's cancel func
	f.session.start = f.clock.now.Add(-(6*time.Hour - 50*time.Millisecond))
	f.sched.Reschedule()
	f.sched.OnStatusChanged(engine.StatusOnBreak)

	// THEN: the cancelled successor never delivers
	require.Never(t, func() bool { return f.buffer.ShownCount() > 1 },
		300*time.Millisecond, 20*time.Millisecond)
}

func TestPauseDue_CancelIsIdempotent(t *testing.T) {
	f := newFixture(t, engine.DefaultSettings())
	f.session.start = f.clock.now
	f.session.ok = true
	f.sched.OnStatusChanged(engine.StatusWorking)

	// Repeated break transitions must not panic or double-cancel.
	f.sched.OnStatusChanged(engine.StatusOnBreak)
	f.sched.OnStatusChanged(engine.StatusOnBreak)
}

func TestResume_DoesNotRestartPauseCountdown(t *testing.T) {
	// GIVEN: a session that paused just before the deadline
	f := newFixture(t, engine.DefaultSettings())
	f.session.start = f.clock.now.Add(-(6*time.Hour - 50*time.Millisecond))
	f.session.ok = true
	f.sched.OnStatusChanged(engine.StatusWorking)
	f.sched.OnStatusChanged(engine.StatusOnBreak)

	// WHEN: work resumes
	f.sched.OnStatusChanged(engine.StatusWorking)

	// THEN: a pause happened, so no pause-due reminder comes back
	require.Never(t, func() bool { return f.buffer.ShownCount() > 0 },
		300*time.Millisecond, 20*time.Millisecond)
}

func TestSessionEnd_SchedulesNextDayReminders(t *testing.T) {
	// GIVEN: a session ending on a Friday
	f := newFixture(t, engine.DefaultSettings())

	// WHEN: the tracker goes idle
	f.sched.OnStatusChanged(engine.StatusIdle)

	// THEN: morning and evening reminders target Monday, skipping the weekend
	nextMonday := engine.NewDate(2026, time.March, 16)

	morning, ok := f.buffer.ScheduledFor("reminder.morning")
	require.True(t, ok)
	assert.Equal(t, nextMonday.At(8, 0, time.Local), morning.TriggerAt)

	evening, ok := f.buffer.ScheduledFor("reminder.evening")
	require.True(t, ok)
	assert.Equal(t, nextMonday.At(18, 0, time.Local), evening.TriggerAt)
}

func TestSessionEnd_SchedulesWeeklySummary(t *testing.T) {
	// GIVEN: a recorded week in the store
	f := newFixture(t, engine.DefaultSettings())
	ctx := context.Background()
	day, err := f.store.GetOrCreateWorkDay(ctx, friday, engine.DayRegular, 480)
	require.NoError(t, err)
	day.ActualMinutes = 510
	day.BalanceMinutes = 30
	require.NoError(t, f.store.SaveWorkDay(ctx, day))

	// WHEN: the session ends
	f.sched.OnStatusChanged(engine.StatusIdle)

	// THEN: the summary is precomputed and scheduled for Monday morning
	summary, ok := f.buffer.ScheduledFor("reminder.weekly_summary")
	require.True(t, ok)
	assert.Equal(t, "Weekly summary", summary.Title)
	assert.Contains(t, summary.Body, "8h 30m worked")
	assert.Equal(t, engine.NewDate(2026, time.March, 16).At(9, 0, time.Local), summary.TriggerAt)
}

func TestSessionEnd_DisabledRemindersStaySilent(t *testing.T) {
	settings := engine.DefaultSettings()
	settings.Reminders.MorningEnabled = false
	settings.Reminders.EveningEnabled = false
	settings.Reminders.WeeklySummaryEnabled = false
	f := newFixture(t, settings)

	f.sched.OnStatusChanged(engine.StatusIdle)

	_, ok := f.buffer.ScheduledFor("reminder.morning")
	assert.False(t, ok)
	_, ok = f.buffer.ScheduledFor("reminder.evening")
	assert.False(t, ok)
	_, ok = f.buffer.ScheduledFor("reminder.weekly_summary")
	assert.False(t, ok)
}

func TestReschedule_ReappliesCurrentSettingsWhileIdle(t *testing.T) {
	// Reschedule from the idle state behaves like a session end.
	f := newFixture(t, engine.DefaultSettings())

	f.sched.Reschedule()

	_, ok := f.buffer.ScheduledFor("reminder.morning")
	assert.True(t, ok)
	_, ok = f.buffer.ScheduledFor("reminder.evening")
	assert.True(t, ok)
}
