package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/config"
	"github.com/warp/attendance-engine/engine"
)

func writeConfig(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "attendance.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "attendance.db", cfg.Server.DBPath)
	assert.Equal(t, "info", cfg.Server.LogLevel)
}

func TestLoad_MalformedFileFails(t *testing.T) {
	path := writeConfig(t, "server: [not a mapping")

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestLoad_PartialFileOverridesOnlyWhatItSets(t *testing.T) {
	// GIVEN: a file that only changes the port
	path := writeConfig(t, "server:\n  port: 9191\n")

	// WHEN: the file is loaded
	cfg, err := config.Load(path)
	require.NoError(t, err)

	// THEN: the rest keeps the defaults
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "attendance.db", cfg.Server.DBPath)
}

func TestEngineSettings_EmptyDocIsDefaults(t *testing.T) {
	s, err := config.SettingsDoc{}.EngineSettings()
	require.NoError(t, err)
	assert.Equal(t, engine.DefaultSettings(), s)
}

func TestEngineSettings_WeekdayMapsMerge(t *testing.T) {
	// GIVEN: a document naming only two weekdays
	path := writeConfig(t, `
settings:
  work_days:
    monday: true
    saturday: true
  target_minutes:
    friday: 360
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	// WHEN: the document is merged over the defaults
	s, err := cfg.Settings.EngineSettings()
	require.NoError(t, err)

	// THEN: work_days replaces the whole set, target_minutes patches per day
	assert.True(t, s.WorkDays[time.Monday])
	assert.True(t, s.WorkDays[time.Saturday])
	assert.False(t, s.WorkDays[time.Tuesday])
	assert.Equal(t, 360, s.TargetMinutes[time.Friday])
	assert.Equal(t, 480, s.TargetMinutes[time.Monday])
}

func TestEngineSettings_UnknownWeekdayFails(t *testing.T) {
	doc := config.SettingsDoc{WorkDays: map[string]bool{"funday": true}}

	_, err := doc.EngineSettings()
	assert.ErrorContains(t, err, "funday")
}

func TestEngineSettings_NegativeTargetFails(t *testing.T) {
	doc := config.SettingsDoc{TargetMinutes: map[string]int{"monday": -10}}

	_, err := doc.EngineSettings()
	assert.Error(t, err)
}

func TestEngineSettings_PauseBandsMustAscend(t *testing.T) {
	doc := config.SettingsDoc{PauseBands: []engine.PauseBand{
		{GrossFrom: 540, RequiredPause: 45},
		{GrossFrom: 360, RequiredPause: 30},
	}}

	_, err := doc.EngineSettings()
	assert.ErrorContains(t, err, "ascending")
}

func TestEngineSettings_ScalarOverrides(t *testing.T) {
	path := writeConfig(t, `
settings:
  rounding_enabled: true
  rounding_granularity: 15
  max_daily_minutes: 540
  min_rest_hours: 12
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	s, err := cfg.Settings.EngineSettings()
	require.NoError(t, err)
	assert.True(t, s.RoundingEnabled)
	assert.Equal(t, 15, s.RoundingGranularity)
	assert.Equal(t, 540, s.MaxDailyMinutes)
	assert.Equal(t, 12, s.MinRestHours)
}

func TestEngineSettings_ZeroGranularityFails(t *testing.T) {
	zero := 0
	doc := config.SettingsDoc{RoundingGranularity: &zero}

	_, err := doc.EngineSettings()
	assert.ErrorContains(t, err, "rounding_granularity")
}

func TestEngineSettings_RemindersReplaceWholesale(t *testing.T) {
	// A present reminders block replaces the whole default block, so an
	// omitted toggle comes back false.
	doc := config.SettingsDoc{Reminders: &engine.ReminderSettings{
		MorningEnabled: true,
		MorningAt:      engine.ClockTime{Hour: 7, Minute: 30},
	}}

	s, err := doc.EngineSettings()
	require.NoError(t, err)
	assert.True(t, s.Reminders.MorningEnabled)
	assert.Equal(t, engine.ClockTime{Hour: 7, Minute: 30}, s.Reminders.MorningAt)
	assert.False(t, s.Reminders.EveningEnabled)
}
