/*
Package config loads the server configuration file.

PURPOSE:
  One YAML document configures both the server process (listen port,
  database path, log level) and the tracking settings (work days, targets,
  pause bands, rounding, legal limits, reminders). A missing file yields
  the statutory defaults; a present file overrides only what it sets.

WEEKDAY MAPS:
  Work days and targets are written as lowercase weekday-name maps
  ("monday: 480") rather than arrays, so a hand-edited file stays readable
  and partial (unnamed weekdays keep their default).

EXAMPLE:
  server:
    port: 8080
    db_path: ./data/attendance.db
    log_level: info
  settings:
    work_days:
      monday: true
      friday: true
    target_minutes:
      monday: 480
      friday: 360
    rounding_enabled: true
    rounding_granularity: 15

SEE ALSO:
  - engine/settings.go: The runtime settings these documents produce
  - cmd/attendanced: Consumes the loaded configuration at startup
*/
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/warp/attendance-engine/engine"
)

// Server configures the HTTP process.
type Server struct {
	Port     int    `yaml:"port"`
	DBPath   string `yaml:"db_path"`
	LogLevel string `yaml:"log_level"`
}

// SettingsDoc is the YAML shape of the tracking settings. All fields are
// optional; absent ones keep the defaults.
type SettingsDoc struct {
	WorkDays            map[string]bool          `yaml:"work_days"`
	TargetMinutes       map[string]int           `yaml:"target_minutes"`
	PauseBands          []engine.PauseBand       `yaml:"pause_bands"`
	RoundingEnabled     *bool                    `yaml:"rounding_enabled"`
	RoundingGranularity *int                     `yaml:"rounding_granularity"`
	MaxDailyMinutes     *int                     `yaml:"max_daily_minutes"`
	MinRestHours        *int                     `yaml:"min_rest_hours"`
	Reminders           *engine.ReminderSettings `yaml:"reminders"`
}

// Config is the full configuration document.
type Config struct {
	Server   Server      `yaml:"server"`
	Settings SettingsDoc `yaml:"settings"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: Server{
			Port:     8080,
			DBPath:   "attendance.db",
			LogLevel: "info",
		},
	}
}

// Load reads the configuration file at path. A missing file is not an
// error; it yields Default().
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

var weekdaysByName = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday,
	"friday": time.Friday, "saturday": time.Saturday,
}

// EngineSettings merges the document over engine.DefaultSettings().
func (d SettingsDoc) EngineSettings() (engine.Settings, error) {
	s := engine.DefaultSettings()

	if d.WorkDays != nil {
		s.WorkDays = [7]bool{}
		for name, on := range d.WorkDays {
			wd, ok := weekdaysByName[name]
			if !ok {
				return s, fmt.Errorf("unknown weekday %q in work_days", name)
			}
			s.WorkDays[wd] = on
		}
	}
	for name, target := range d.TargetMinutes {
		wd, ok := weekdaysByName[name]
		if !ok {
			return s, fmt.Errorf("unknown weekday %q in target_minutes", name)
		}
		if target < 0 {
			return s, fmt.Errorf("negative target for %s", name)
		}
		s.TargetMinutes[wd] = target
	}

	if len(d.PauseBands) > 0 {
		prev := -1
		for _, b := range d.PauseBands {
			if b.GrossFrom <= prev {
				return s, fmt.Errorf("pause_bands must be ascending by gross_from")
			}
			prev = b.GrossFrom
		}
		s.PauseBands = d.PauseBands
	}

	if d.RoundingEnabled != nil {
		s.RoundingEnabled = *d.RoundingEnabled
	}
	if d.RoundingGranularity != nil {
		if *d.RoundingGranularity <= 0 {
			return s, fmt.Errorf("rounding_granularity must be positive")
		}
		s.RoundingGranularity = *d.RoundingGranularity
	}
	if d.MaxDailyMinutes != nil {
		s.MaxDailyMinutes = *d.MaxDailyMinutes
	}
	if d.MinRestHours != nil {
		s.MinRestHours = *d.MinRestHours
	}
	if d.Reminders != nil {
		s.Reminders = *d.Reminders
	}
	return s, nil
}
