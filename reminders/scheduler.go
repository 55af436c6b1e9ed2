/*
Package reminders implements the reactive reminder scheduler.

PURPOSE:
  Schedules and cancels time-based notifications (morning, evening,
  pause-due, overtime-due, weekly summary) keyed by tracking status
  transitions. There is no polling loop: every arm/cancel happens in
  reaction to a status change or an explicit Reschedule after a settings
  update.

TIMER OWNERSHIP:
  Countdown timers are explicitly owned, cancellable tasks stored on the
  scheduler, each with its own cancellation context derived from the
  scheduler's root context. Close() deterministically stops every
  outstanding timer. Cancellation is cooperative and idempotent:
  cancelling a timer that already fired or was never armed is a no-op.
  A timer checks its cancellation state immediately before executing the
  notification side effect, so the fire/cancel race resolves to silence,
  never to double delivery.

SEEDING:
  On Idle -> Working the pause-due and overtime-due countdowns are seeded
  with the time already elapsed in the current session, so a rehydrated
  session does not restart a full countdown. A deadline that already
  passed when armed fires immediately instead of silently dropping.

SEE ALSO:
  - tracking: Emits the status transitions this scheduler reacts to
  - calc: Supplies the eagerly computed weekly totals
*/
package reminders

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/warp/attendance-engine/calc"
	"github.com/warp/attendance-engine/engine"
)

// Fixed notification ids keep Schedule/Cancel pairs stable across process
// restarts.
const (
	idMorning       = "reminder.morning"
	idEvening       = "reminder.evening"
	idPauseDue      = "reminder.pause_due"
	idOvertimeDue   = "reminder.overtime_due"
	idWeeklySummary = "reminder.weekly_summary"
)

// SessionSource exposes the running session's start time; implemented by
// the tracker.
type SessionSource interface {
	ActiveSessionStart() (time.Time, bool)
}

// Scheduler arms and cancels reminders in reaction to status transitions.
type Scheduler struct {
	settings engine.SettingsProvider
	sink     engine.NotificationSink
	clock    engine.Clock
	session  SessionSource
	calc     *calc.Engine
	log      zerolog.Logger

	rootCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu         sync.Mutex
	timers     map[string]armedTimer
	timerGen   uint64
	lastStatus engine.Status
}

// armedTimer pairs a timer's cancel func with the generation it was armed
// under, so a firing timer only unregisters itself, never a successor
// armed under the same id.
type armedTimer struct {
	cancel context.CancelFunc
	gen    uint64
}

func New(settings engine.SettingsProvider, sink engine.NotificationSink, clock engine.Clock, session SessionSource, calcEngine *calc.Engine, log zerolog.Logger) *Scheduler {
	if clock == nil {
		clock = engine.SystemClock{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		settings:   settings,
		sink:       sink,
		clock:      clock,
		session:    session,
		calc:       calcEngine,
		log:        log,
		rootCtx:    ctx,
		cancel:     cancel,
		timers:     make(map[string]armedTimer),
		lastStatus: engine.StatusIdle,
	}
}

// Close stops every outstanding timer and waits for their goroutines.
func (s *Scheduler) Close() {
	s.cancel()
	s.mu.Lock()
	for id, armed := range s.timers {
		armed.cancel()
		delete(s.timers, id)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// OnStatusChanged is registered as a status observer on the tracker.
func (s *Scheduler) OnStatusChanged(status engine.Status) {
	s.mu.Lock()
	prev := s.lastStatus
	s.lastStatus = status
	s.mu.Unlock()

	switch status {
	case engine.StatusWorking:
		if prev == engine.StatusIdle {
			s.onSessionStarted()
		}
		// OnBreak -> Working re-arms nothing: a pause occurred, and the
		// overtime countdown was never cancelled.
	case engine.StatusOnBreak:
		s.cancelTimer(idPauseDue)
	case engine.StatusIdle:
		s.onSessionEnded()
	}
}

// Reschedule re-arms reminders against the current settings. Callers
// invoke it after every settings update; the engine has no change
// subscription of its own.
func (s *Scheduler) Reschedule() {
	s.mu.Lock()
	status := s.lastStatus
	s.mu.Unlock()

	switch status {
	case engine.StatusIdle:
		s.onSessionEnded()
	case engine.StatusWorking:
		s.onSessionStarted()
	case engine.StatusOnBreak:
		s.cancelTimer(idPauseDue)
	}
}

// =============================================================================
// TRANSITION HANDLERS
// =============================================================================

func (s *Scheduler) onSessionStarted() {
	settings := s.settings.Settings()
	now := s.clock.Now()

	s.sink.CancelNotification(idMorning)

	// Seed the countdowns with time already elapsed in the session, so a
	// rehydrated session does not erroneously restart a full countdown.
	elapsed := time.Duration(0)
	if start, ok := s.session.ActiveSessionStart(); ok {
		elapsed = now.Sub(start)
	}

	if settings.Reminders.PauseDueEnabled {
		due := time.Duration(settings.Reminders.PauseDueAfterMinutes)*time.Minute - elapsed
		s.armTimer(idPauseDue, due, func() {
			s.sink.ShowNotification("Time for a break",
				fmt.Sprintf("You have been working for %s without a pause.", formatMinutes(settings.Reminders.PauseDueAfterMinutes)))
		})
	}

	if settings.Reminders.OvertimeEnabled && settings.MaxDailyMinutes > 0 {
		due := time.Duration(settings.MaxDailyMinutes)*time.Minute - elapsed
		s.armTimer(idOvertimeDue, due, func() {
			s.sink.ShowNotification("Daily limit reached",
				fmt.Sprintf("You have reached the daily working-time ceiling of %s.", formatMinutes(settings.MaxDailyMinutes)))
		})
	}
}

func (s *Scheduler) onSessionEnded() {
	settings := s.settings.Settings()
	now := s.clock.Now()
	today := engine.DateOf(now)

	s.cancelTimer(idPauseDue)
	s.cancelTimer(idOvertimeDue)

	next := s.nextWorkDay(today, settings)

	if settings.Reminders.MorningEnabled {
		at := settings.Reminders.MorningAt
		s.sink.ScheduleNotification(idMorning, "Good morning",
			"Do not forget to check in.", next.At(at.Hour, at.Minute, time.Local))
	}
	if settings.Reminders.EveningEnabled {
		at := settings.Reminders.EveningAt
		s.sink.ScheduleNotification(idEvening, "End of day",
			"Still checked out? Review today's times.", next.At(at.Hour, at.Minute, time.Local))
	}

	if settings.Reminders.WeeklySummaryEnabled {
		s.scheduleWeeklySummary(today, settings)
	}
}

// scheduleWeeklySummary computes this week's totals eagerly so the message
// is ready even if the process restarts before the notification fires.
func (s *Scheduler) scheduleWeeklySummary(today engine.Date, settings engine.Settings) {
	summary, err := s.calc.WeekSummary(s.rootCtx, today)
	if err != nil {
		s.log.Warn().Err(err).Msg("weekly summary computation failed")
		return
	}
	body := fmt.Sprintf("Last week: %s worked of %s target (balance %s).",
		formatMinutes(summary.ActualMinutes),
		formatMinutes(summary.TargetMinutes),
		formatSignedMinutes(summary.BalanceMinutes))

	monday := engine.NextWeekday(today, time.Monday)
	at := settings.Reminders.WeeklySummaryAt
	s.sink.ScheduleNotification(idWeeklySummary, "Weekly summary", body,
		monday.At(at.Hour, at.Minute, time.Local))
}

// =============================================================================
// TIMERS
// =============================================================================

// armTimer starts a one-shot countdown. A non-positive duration fires
// immediately (deadline already passed while the process slept).
// Re-arming an id cancels the previous timer first.
func (s *Scheduler) armTimer(id string, d time.Duration, fire func()) {
	s.mu.Lock()
	if prev, ok := s.timers[id]; ok {
		prev.cancel()
	}
	s.timerGen++
	gen := s.timerGen
	ctx, cancel := context.WithCancel(s.rootCtx)
	s.timers[id] = armedTimer{cancel: cancel, gen: gen}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		if d > 0 {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return
			}
		}

		// Cancellation is checked before the side effect: a timer firing
		// just as it is cancelled stays silent, never delivers twice.
		if ctx.Err() != nil {
			return
		}
		fire()

		// Only unregister this arm: the id may have been re-armed while
		// fire() ran, and that successor owns the slot now.
		s.mu.Lock()
		if cur, ok := s.timers[id]; ok && cur.gen == gen {
			delete(s.timers, id)
		}
		s.mu.Unlock()
	}()
}

// cancelTimer is idempotent: unknown or already-fired ids are a no-op.
func (s *Scheduler) cancelTimer(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if armed, ok := s.timers[id]; ok {
		armed.cancel()
		delete(s.timers, id)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Scheduler) nextWorkDay(after engine.Date, settings engine.Settings) engine.Date {
	d := after.AddDays(1)
	for i := 0; i < 14 && !settings.IsWorkDay(d.Weekday()); i++ {
		d = d.AddDays(1)
	}
	return d
}

func formatMinutes(minutes int) string {
	if minutes < 0 {
		minutes = -minutes
	}
	return fmt.Sprintf("%dh %02dm", minutes/60, minutes%60)
}

func formatSignedMinutes(minutes int) string {
	if minutes < 0 {
		return "-" + formatMinutes(-minutes)
	}
	return "+" + formatMinutes(minutes)
}
