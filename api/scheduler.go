/*
scheduler.go - Background maintenance scheduler

PURPOSE:
  Periodically performs the engine's housekeeping:
  - Runs the achievement check so streak- and calendar-driven metrics
    (perfect week, full month) progress even without a triggering event
  - Locks work days of closed payroll periods so stale records cannot be
    edited accidentally

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Retired periods are everything before the previous calendar month
  - Locking is idempotent: already-locked days are skipped

CONFIGURATION:
  - CheckInterval: How often to run (default: 1 hour)
  - Enabled: Whether the scheduler is active (default: true)

USAGE:
  m := NewMaintenance(store, ach, clock, log)
  m.Start()
  // ... later
  m.Stop()

SEE ALSO:
  - achievements: The check cycle this loop drives
  - reminders: Event-driven reminders (separate concern, no polling there)
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/warp/attendance-engine/achievements"
	"github.com/warp/attendance-engine/engine"
)

// Maintenance handles periodic achievement checks and payroll locking.
type Maintenance struct {
	Store         engine.RecordStore
	Achievements  *achievements.Engine
	Clock         engine.Clock
	CheckInterval time.Duration
	Enabled       bool

	log    zerolog.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewMaintenance creates a new maintenance scheduler.
func NewMaintenance(store engine.RecordStore, ach *achievements.Engine, clock engine.Clock, log zerolog.Logger) *Maintenance {
	if clock == nil {
		clock = engine.SystemClock{}
	}
	return &Maintenance{
		Store:         store,
		Achievements:  ach,
		Clock:         clock,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		log:           log,
		stop:          make(chan struct{}),
	}
}

// Start begins the maintenance loop.
func (m *Maintenance) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.Enabled {
		m.log.Info().Msg("maintenance scheduler disabled")
		return
	}

	m.ticker = time.NewTicker(m.CheckInterval)
	m.wg.Add(1)
	go m.run()

	m.log.Info().Dur("interval", m.CheckInterval).Msg("maintenance scheduler started")
}

// Stop stops the maintenance loop.
func (m *Maintenance) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ticker != nil {
		m.ticker.Stop()
		close(m.stop)
		m.wg.Wait()
		m.log.Info().Msg("maintenance scheduler stopped")
	}
}

func (m *Maintenance) run() {
	defer m.wg.Done()

	// Run immediately on start
	m.tick()

	for {
		select {
		case <-m.ticker.C:
			m.tick()
		case <-m.stop:
			return
		}
	}
}

func (m *Maintenance) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if unlocked, err := m.Achievements.Check(ctx); err != nil {
		m.log.Warn().Err(err).Msg("periodic achievement check failed")
	} else {
		for _, a := range unlocked {
			m.log.Info().Str("key", string(a.Key)).Msg("achievement unlocked")
		}
	}

	if err := m.lockClosedPeriods(ctx); err != nil {
		m.log.Warn().Err(err).Msg("payroll locking failed")
	}
}

// lockClosedPeriods locks every day before the previous calendar month.
func (m *Maintenance) lockClosedPeriods(ctx context.Context) error {
	first, err := m.Store.GetFirstWorkDayDate(ctx)
	if err != nil || first == nil {
		return err
	}

	today := engine.DateOf(m.Clock.Now())
	monthStart, _ := engine.MonthOf(today)
	cutoff := engine.DateOf(monthStart.Time(time.UTC).AddDate(0, -1, 0)).AddDays(-1)
	if cutoff.Before(*first) {
		return nil
	}

	days, err := m.Store.GetWorkDays(ctx, *first, cutoff)
	if err != nil {
		return err
	}
	locked := 0
	for i := range days {
		if days[i].Locked {
			continue
		}
		days[i].Locked = true
		if err := m.Store.SaveWorkDay(ctx, &days[i]); err != nil {
			return err
		}
		locked++
	}
	if locked > 0 {
		m.log.Info().Int("days", locked).Str("through", cutoff.String()).Msg("closed payroll days locked")
	}
	return nil
}
