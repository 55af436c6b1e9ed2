// Package store provides RecordStore implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/attendance-engine/engine"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	days         map[engine.Date]*engine.WorkDay
	entries      map[engine.EntryID]*engine.TimeEntry
	pauses       map[engine.PauseID]*engine.PauseEntry
	achievements map[engine.AchievementKey]*engine.Achievement
	seq          int
}

func NewMemory() *Memory {
	return &Memory{
		days:         make(map[engine.Date]*engine.WorkDay),
		entries:      make(map[engine.EntryID]*engine.TimeEntry),
		pauses:       make(map[engine.PauseID]*engine.PauseEntry),
		achievements: make(map[engine.AchievementKey]*engine.Achievement),
	}
}

func (m *Memory) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

// -----------------------------------------------------------------------------
// Work days
// -----------------------------------------------------------------------------

func (m *Memory) GetOrCreateWorkDay(_ context.Context, date engine.Date, status engine.DayStatus, targetMinutes int) (*engine.WorkDay, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if day, ok := m.days[date]; ok {
		cp := *day
		return &cp, nil
	}
	day := &engine.WorkDay{
		ID:             engine.DayID(date.String()),
		Date:           date,
		Status:         status,
		TargetMinutes:  targetMinutes,
		BalanceMinutes: -targetMinutes,
	}
	m.days[date] = day
	cp := *day
	return &cp, nil
}

func (m *Memory) GetWorkDay(_ context.Context, date engine.Date) (*engine.WorkDay, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	day, ok := m.days[date]
	if !ok {
		return nil, fmt.Errorf("work day %s: %w", date, engine.ErrNotFound)
	}
	cp := *day
	return &cp, nil
}

func (m *Memory) SaveWorkDay(_ context.Context, day *engine.WorkDay) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if day.ID == "" {
		day.ID = engine.DayID(day.Date.String())
	}
	cp := *day
	m.days[day.Date] = &cp
	return nil
}

func (m *Memory) GetWorkDays(_ context.Context, from, to engine.Date) ([]engine.WorkDay, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []engine.WorkDay
	for date, day := range m.days {
		if from.BeforeOrEqual(date) && date.BeforeOrEqual(to) {
			result = append(result, *day)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

// -----------------------------------------------------------------------------
// Time entries
// -----------------------------------------------------------------------------

func (m *Memory) GetTimeEntries(_ context.Context, dayID engine.DayID) ([]engine.TimeEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []engine.TimeEntry
	for _, e := range m.entries {
		if e.DayID == dayID {
			result = append(result, *e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Timestamp.Before(result[j].Timestamp) })
	return result, nil
}

func (m *Memory) GetLastTimeEntry(ctx context.Context, dayID engine.DayID) (*engine.TimeEntry, error) {
	entries, err := m.GetTimeEntries(ctx, dayID)
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	last := entries[len(entries)-1]
	return &last, nil
}

func (m *Memory) GetTimeEntry(_ context.Context, id engine.EntryID) (*engine.TimeEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[id]
	if !ok {
		return nil, fmt.Errorf("time entry %s: %w", id, engine.ErrNotFound)
	}
	cp := *e
	return &cp, nil
}

func (m *Memory) SaveTimeEntry(_ context.Context, entry *engine.TimeEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry.ID == "" {
		entry.ID = engine.EntryID(m.nextID("entry"))
	}
	cp := *entry
	m.entries[entry.ID] = &cp
	return nil
}

func (m *Memory) DeleteTimeEntry(_ context.Context, id engine.EntryID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

// -----------------------------------------------------------------------------
// Pause entries
// -----------------------------------------------------------------------------

func (m *Memory) GetPauseEntries(_ context.Context, dayID engine.DayID) ([]engine.PauseEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []engine.PauseEntry
	for _, p := range m.pauses {
		if p.DayID == dayID {
			result = append(result, *p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Start.Before(result[j].Start) })
	return result, nil
}

func (m *Memory) GetActivePause(_ context.Context, dayID engine.DayID) (*engine.PauseEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.pauses {
		if p.DayID == dayID && p.End == nil {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *Memory) SavePauseEntry(_ context.Context, pause *engine.PauseEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if pause.ID == "" {
		pause.ID = engine.PauseID(m.nextID("pause"))
	}
	cp := *pause
	m.pauses[pause.ID] = &cp
	return nil
}

func (m *Memory) DeletePauseEntry(_ context.Context, id engine.PauseID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pauses, id)
	return nil
}

// -----------------------------------------------------------------------------
// Ranged aggregates
// -----------------------------------------------------------------------------

func (m *Memory) GetTotalWorkMinutes(_ context.Context, from, to engine.Date) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := 0
	for date, day := range m.days {
		if from.BeforeOrEqual(date) && date.BeforeOrEqual(to) {
			total += day.ActualMinutes
		}
	}
	return total, nil
}

func (m *Memory) GetTotalOvertimeMinutes(_ context.Context, from, to engine.Date) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := 0
	for date, day := range m.days {
		if from.BeforeOrEqual(date) && date.BeforeOrEqual(to) && day.BalanceMinutes > 0 {
			total += day.BalanceMinutes
		}
	}
	return total, nil
}

func (m *Memory) GetFirstWorkDayDate(_ context.Context) (*engine.Date, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var first *engine.Date
	for date := range m.days {
		if first == nil || date.Before(*first) {
			d := date
			first = &d
		}
	}
	return first, nil
}

// -----------------------------------------------------------------------------
// Achievements
// -----------------------------------------------------------------------------

func (m *Memory) GetAchievement(_ context.Context, key engine.AchievementKey) (*engine.Achievement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.achievements[key]
	if !ok {
		return nil, fmt.Errorf("achievement %s: %w", key, engine.ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

func (m *Memory) ListAchievements(_ context.Context) ([]engine.Achievement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]engine.Achievement, 0, len(m.achievements))
	for _, a := range m.achievements {
		result = append(result, *a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}

func (m *Memory) SaveAchievement(_ context.Context, a *engine.Achievement) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *a
	m.achievements[a.Key] = &cp
	return nil
}

// Reset drops every record, keeping the id sequence.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.days = make(map[engine.Date]*engine.WorkDay)
	m.entries = make(map[engine.EntryID]*engine.TimeEntry)
	m.pauses = make(map[engine.PauseID]*engine.PauseEntry)
	m.achievements = make(map[engine.AchievementKey]*engine.Achievement)
	return nil
}

// Compile-time check
var _ engine.RecordStore = (*Memory)(nil)
