/*
Package sqlite provides the SQLite-backed RecordStore.

PURPOSE:
  Implements engine.RecordStore on SQLite for single-user production use.
  All derived figures (actual, pauses, balance) are stored denormalized on
  the work_days row so ranged aggregation is a single SUM.

KEY TABLES:
  work_days:     One row per calendar date, keyed by the date string
  time_entries:  Check-in/check-out events, ordered by timestamp
  pause_entries: Pause intervals; at most one open (end_at NULL) per day
  achievements:  Progress records for the fixed catalog

INDEXES:
  - idx_entries_day_timestamp: Day resolution and last-entry lookups
  - idx_pauses_day: Pause listing per day
  - idx_unique_open_pause: Enforces the single-open-pause invariant

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of SQLite's own locking.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/attendance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - engine/store.go: Interface definition
  - engine/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/attendance-engine/engine"
)

// Store implements engine.RecordStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Work days (one row per calendar date; the date string is the id)
	CREATE TABLE IF NOT EXISTS work_days (
		date TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		target_minutes INTEGER NOT NULL DEFAULT 0,
		actual_minutes INTEGER NOT NULL DEFAULT 0,
		manual_pause_minutes INTEGER NOT NULL DEFAULT 0,
		auto_pause_minutes INTEGER NOT NULL DEFAULT 0,
		balance_minutes INTEGER NOT NULL DEFAULT 0,
		first_check_in TEXT,
		last_check_out TEXT,
		locked BOOLEAN NOT NULL DEFAULT FALSE
	);

	-- Time entries (check-in/check-out events)
	CREATE TABLE IF NOT EXISTS time_entries (
		id TEXT PRIMARY KEY,
		day_id TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		type TEXT NOT NULL,
		employer TEXT NOT NULL DEFAULT '',
		project TEXT NOT NULL DEFAULT '',
		note TEXT NOT NULL DEFAULT '',
		manual_edit BOOLEAN NOT NULL DEFAULT FALSE,
		original_timestamp TEXT
	);

	-- Hot path: day resolution walks a day's entries in timestamp order
	CREATE INDEX IF NOT EXISTS idx_entries_day_timestamp
		ON time_entries(day_id, timestamp);

	-- Pause entries
	CREATE TABLE IF NOT EXISTS pause_entries (
		id TEXT PRIMARY KEY,
		day_id TEXT NOT NULL,
		start_at TEXT NOT NULL,
		end_at TEXT,
		type TEXT NOT NULL,
		note TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_pauses_day
		ON pause_entries(day_id);

	-- CRITICAL: at most one open pause per day
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_open_pause
		ON pause_entries(day_id)
		WHERE end_at IS NULL;

	-- Achievements (one row per catalog key)
	CREATE TABLE IF NOT EXISTS achievements (
		key TEXT PRIMARY KEY,
		target INTEGER NOT NULL,
		progress INTEGER NOT NULL DEFAULT 0,
		unlocked BOOLEAN NOT NULL DEFAULT FALSE,
		unlocked_at TEXT
	);

	-- Id sequence for generated entry/pause ids
	CREATE TABLE IF NOT EXISTS id_seq (n INTEGER NOT NULL);
	INSERT INTO id_seq (n)
		SELECT 0 WHERE NOT EXISTS (SELECT 1 FROM id_seq);
	`

	_, err := s.db.Exec(schema)
	return err
}

// nextID hands out a monotonically increasing id with the given prefix.
// Callers must hold the write lock.
func (s *Store) nextID(ctx context.Context, prefix string) (string, error) {
	if _, err := s.db.ExecContext(ctx, "UPDATE id_seq SET n = n + 1"); err != nil {
		return "", fmt.Errorf("failed to advance id sequence: %w", err)
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT n FROM id_seq").Scan(&n); err != nil {
		return "", fmt.Errorf("failed to read id sequence: %w", err)
	}
	return fmt.Sprintf("%s-%d", prefix, n), nil
}

// =============================================================================
// WORK DAYS
// =============================================================================

func (s *Store) GetOrCreateWorkDay(ctx context.Context, date engine.Date, status engine.DayStatus, targetMinutes int) (*engine.WorkDay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	day, err := s.getWorkDay(ctx, date)
	if err == nil {
		return day, nil
	}
	if !engine.IsNotFound(err) {
		return nil, err
	}

	day = &engine.WorkDay{
		ID:             engine.DayID(date.String()),
		Date:           date,
		Status:         status,
		TargetMinutes:  targetMinutes,
		BalanceMinutes: -targetMinutes,
	}
	if err := s.saveWorkDay(ctx, day); err != nil {
		return nil, err
	}
	return day, nil
}

func (s *Store) GetWorkDay(ctx context.Context, date engine.Date) (*engine.WorkDay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getWorkDay(ctx, date)
}

func (s *Store) getWorkDay(ctx context.Context, date engine.Date) (*engine.WorkDay, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT date, status, target_minutes, actual_minutes, manual_pause_minutes,
		       auto_pause_minutes, balance_minutes, first_check_in, last_check_out, locked
		FROM work_days WHERE date = ?`, date.String())

	day, err := scanWorkDay(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("work day %s: %w", date, engine.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load work day: %w", err)
	}
	return day, nil
}

func (s *Store) SaveWorkDay(ctx context.Context, day *engine.WorkDay) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveWorkDay(ctx, day)
}

func (s *Store) saveWorkDay(ctx context.Context, day *engine.WorkDay) error {
	if day.ID == "" {
		day.ID = engine.DayID(day.Date.String())
	}

	query := `
		INSERT INTO work_days
		(date, status, target_minutes, actual_minutes, manual_pause_minutes,
		 auto_pause_minutes, balance_minutes, first_check_in, last_check_out, locked)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			status = excluded.status,
			target_minutes = excluded.target_minutes,
			actual_minutes = excluded.actual_minutes,
			manual_pause_minutes = excluded.manual_pause_minutes,
			auto_pause_minutes = excluded.auto_pause_minutes,
			balance_minutes = excluded.balance_minutes,
			first_check_in = excluded.first_check_in,
			last_check_out = excluded.last_check_out,
			locked = excluded.locked
	`

	_, err := s.db.ExecContext(ctx, query,
		day.Date.String(), day.Status,
		day.TargetMinutes, day.ActualMinutes,
		day.ManualPauseMinutes, day.AutoPauseMinutes, day.BalanceMinutes,
		nullTime(day.FirstCheckIn), nullTime(day.LastCheckOut),
		day.Locked,
	)
	if err != nil {
		return fmt.Errorf("failed to save work day: %w", err)
	}
	return nil
}

func (s *Store) GetWorkDays(ctx context.Context, from, to engine.Date) ([]engine.WorkDay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT date, status, target_minutes, actual_minutes, manual_pause_minutes,
		       auto_pause_minutes, balance_minutes, first_check_in, last_check_out, locked
		FROM work_days
		WHERE date >= ? AND date <= ?
		ORDER BY date ASC`, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query work days: %w", err)
	}
	defer rows.Close()

	var days []engine.WorkDay
	for rows.Next() {
		day, err := scanWorkDay(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan work day: %w", err)
		}
		days = append(days, *day)
	}
	return days, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkDay(row rowScanner) (*engine.WorkDay, error) {
	var (
		day          engine.WorkDay
		dateStr      string
		firstCheckIn sql.NullString
		lastCheckOut sql.NullString
	)

	err := row.Scan(
		&dateStr, &day.Status, &day.TargetMinutes, &day.ActualMinutes,
		&day.ManualPauseMinutes, &day.AutoPauseMinutes, &day.BalanceMinutes,
		&firstCheckIn, &lastCheckOut, &day.Locked,
	)
	if err != nil {
		return nil, err
	}

	day.ID = engine.DayID(dateStr)
	day.Date, err = engine.ParseDate(dateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid stored date %q: %w", dateStr, err)
	}
	day.FirstCheckIn = parseNullTime(firstCheckIn)
	day.LastCheckOut = parseNullTime(lastCheckOut)
	return &day, nil
}

// =============================================================================
// TIME ENTRIES
// =============================================================================

func (s *Store) GetTimeEntries(ctx context.Context, dayID engine.DayID) ([]engine.TimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, day_id, timestamp, type, employer, project, note, manual_edit, original_timestamp
		FROM time_entries
		WHERE day_id = ?
		ORDER BY timestamp ASC
	`
	return s.queryTimeEntries(ctx, query, string(dayID))
}

func (s *Store) GetLastTimeEntry(ctx context.Context, dayID engine.DayID) (*engine.TimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, day_id, timestamp, type, employer, project, note, manual_edit, original_timestamp
		FROM time_entries
		WHERE day_id = ?
		ORDER BY timestamp DESC
		LIMIT 1
	`
	entries, err := s.queryTimeEntries(ctx, query, string(dayID))
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	return &entries[0], nil
}

func (s *Store) GetTimeEntry(ctx context.Context, id engine.EntryID) (*engine.TimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, day_id, timestamp, type, employer, project, note, manual_edit, original_timestamp
		FROM time_entries
		WHERE id = ?
	`
	entries, err := s.queryTimeEntries(ctx, query, string(id))
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("time entry %s: %w", id, engine.ErrNotFound)
	}
	return &entries[0], nil
}

func (s *Store) SaveTimeEntry(ctx context.Context, entry *engine.TimeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		id, err := s.nextID(ctx, "entry")
		if err != nil {
			return err
		}
		entry.ID = engine.EntryID(id)
	}

	query := `
		INSERT INTO time_entries
		(id, day_id, timestamp, type, employer, project, note, manual_edit, original_timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			day_id = excluded.day_id,
			timestamp = excluded.timestamp,
			type = excluded.type,
			employer = excluded.employer,
			project = excluded.project,
			note = excluded.note,
			manual_edit = excluded.manual_edit,
			original_timestamp = excluded.original_timestamp
	`

	_, err := s.db.ExecContext(ctx, query,
		string(entry.ID), string(entry.DayID),
		entry.Timestamp.Format(time.RFC3339),
		entry.Type, entry.Employer, entry.Project, entry.Note,
		entry.ManualEdit, nullTime(entry.OriginalTimestamp),
	)
	if err != nil {
		return fmt.Errorf("failed to save time entry: %w", err)
	}
	return nil
}

func (s *Store) DeleteTimeEntry(ctx context.Context, id engine.EntryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM time_entries WHERE id = ?", string(id))
	return err
}

func (s *Store) queryTimeEntries(ctx context.Context, query string, args ...any) ([]engine.TimeEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query time entries: %w", err)
	}
	defer rows.Close()

	var entries []engine.TimeEntry
	for rows.Next() {
		var (
			e            engine.TimeEntry
			timestamp    string
			originalTime sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.DayID, &timestamp, &e.Type,
			&e.Employer, &e.Project, &e.Note, &e.ManualEdit, &originalTime); err != nil {
			return nil, fmt.Errorf("failed to scan time entry: %w", err)
		}
		e.Timestamp, _ = time.Parse(time.RFC3339, timestamp)
		e.OriginalTimestamp = parseNullTime(originalTime)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// PAUSE ENTRIES
// =============================================================================

func (s *Store) GetPauseEntries(ctx context.Context, dayID engine.DayID) ([]engine.PauseEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, day_id, start_at, end_at, type, note
		FROM pause_entries
		WHERE day_id = ?
		ORDER BY start_at ASC
	`
	return s.queryPauseEntries(ctx, query, string(dayID))
}

func (s *Store) GetActivePause(ctx context.Context, dayID engine.DayID) (*engine.PauseEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, day_id, start_at, end_at, type, note
		FROM pause_entries
		WHERE day_id = ? AND end_at IS NULL
		LIMIT 1
	`
	pauses, err := s.queryPauseEntries(ctx, query, string(dayID))
	if err != nil || len(pauses) == 0 {
		return nil, err
	}
	return &pauses[0], nil
}

func (s *Store) SavePauseEntry(ctx context.Context, pause *engine.PauseEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pause.ID == "" {
		id, err := s.nextID(ctx, "pause")
		if err != nil {
			return err
		}
		pause.ID = engine.PauseID(id)
	}

	query := `
		INSERT INTO pause_entries (id, day_id, start_at, end_at, type, note)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			day_id = excluded.day_id,
			start_at = excluded.start_at,
			end_at = excluded.end_at,
			type = excluded.type,
			note = excluded.note
	`

	_, err := s.db.ExecContext(ctx, query,
		string(pause.ID), string(pause.DayID),
		pause.Start.Format(time.RFC3339), nullTime(pause.End),
		pause.Type, pause.Note,
	)
	if err != nil {
		return fmt.Errorf("failed to save pause entry: %w", err)
	}
	return nil
}

func (s *Store) DeletePauseEntry(ctx context.Context, id engine.PauseID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM pause_entries WHERE id = ?", string(id))
	return err
}

func (s *Store) queryPauseEntries(ctx context.Context, query string, args ...any) ([]engine.PauseEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pause entries: %w", err)
	}
	defer rows.Close()

	var pauses []engine.PauseEntry
	for rows.Next() {
		var (
			p     engine.PauseEntry
			start string
			end   sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.DayID, &start, &end, &p.Type, &p.Note); err != nil {
			return nil, fmt.Errorf("failed to scan pause entry: %w", err)
		}
		p.Start, _ = time.Parse(time.RFC3339, start)
		p.End = parseNullTime(end)
		pauses = append(pauses, p)
	}
	return pauses, rows.Err()
}

// =============================================================================
// RANGED AGGREGATES
// =============================================================================

func (s *Store) GetTotalWorkMinutes(ctx context.Context, from, to engine.Date) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(actual_minutes), 0)
		FROM work_days
		WHERE date >= ? AND date <= ?`,
		from.String(), to.String()).Scan(&total)
	return total, err
}

func (s *Store) GetTotalOvertimeMinutes(ctx context.Context, from, to engine.Date) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(balance_minutes), 0)
		FROM work_days
		WHERE date >= ? AND date <= ? AND balance_minutes > 0`,
		from.String(), to.String()).Scan(&total)
	return total, err
}

func (s *Store) GetFirstWorkDayDate(ctx context.Context) (*engine.Date, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var dateStr sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT MIN(date) FROM work_days").Scan(&dateStr)
	if err != nil {
		return nil, err
	}
	if !dateStr.Valid {
		return nil, nil
	}
	date, err := engine.ParseDate(dateStr.String)
	if err != nil {
		return nil, fmt.Errorf("invalid stored date %q: %w", dateStr.String, err)
	}
	return &date, nil
}

// =============================================================================
// ACHIEVEMENTS
// =============================================================================

func (s *Store) GetAchievement(ctx context.Context, key engine.AchievementKey) (*engine.Achievement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		a          engine.Achievement
		unlockedAt sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT key, target, progress, unlocked, unlocked_at FROM achievements WHERE key = ?",
		string(key),
	).Scan(&a.Key, &a.Target, &a.Progress, &a.Unlocked, &unlockedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("achievement %s: %w", key, engine.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	a.UnlockedAt = parseNullTime(unlockedAt)
	return &a, nil
}

func (s *Store) ListAchievements(ctx context.Context) ([]engine.Achievement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT key, target, progress, unlocked, unlocked_at FROM achievements ORDER BY key",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []engine.Achievement
	for rows.Next() {
		var (
			a          engine.Achievement
			unlockedAt sql.NullString
		)
		if err := rows.Scan(&a.Key, &a.Target, &a.Progress, &a.Unlocked, &unlockedAt); err != nil {
			return nil, err
		}
		a.UnlockedAt = parseNullTime(unlockedAt)
		records = append(records, a)
	}
	return records, rows.Err()
}

func (s *Store) SaveAchievement(ctx context.Context, a *engine.Achievement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO achievements (key, target, progress, unlocked, unlocked_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			target = excluded.target,
			progress = excluded.progress,
			unlocked = excluded.unlocked,
			unlocked_at = excluded.unlocked_at
	`

	_, err := s.db.ExecContext(ctx, query,
		string(a.Key), a.Target, a.Progress, a.Unlocked, nullTime(a.UnlockedAt),
	)
	return err
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"time_entries", "pause_entries", "work_days", "achievements"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.RFC3339), Valid: true}
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}

// Compile-time check
var _ engine.RecordStore = (*Store)(nil)
