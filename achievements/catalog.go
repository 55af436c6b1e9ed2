/*
catalog.go - Fixed achievement catalog

PURPOSE:
  The catalog is the complete, fixed list of progress metrics. Each entry
  names its key, category, target, and a progress function evaluated
  against the shared data bundle - never against the store directly, so N
  pending metrics cost O(distinct data shapes) reads, not O(N).

SEE ALSO:
  - engine.go: Shared data load and the check cycle
*/
package achievements

import "github.com/warp/attendance-engine/engine"

type Category string

const (
	CategoryStarter     Category = "starter"
	CategoryVolume      Category = "volume"
	CategoryOvertime    Category = "overtime"
	CategoryConsistency Category = "consistency"
	CategoryHabits      Category = "habits"
)

// Definition is one catalog entry. Progress reads only from the shared
// bundle.
type Definition struct {
	Key      engine.AchievementKey
	Title    string
	Category Category
	Target   int
	Progress func(*Data) int
}

// Catalog is the fixed metric list. Targets are in the metric's own unit
// (minutes for volume/overtime, days or occurrences otherwise).
var Catalog = []Definition{
	{
		Key: "first_checkin", Title: "First check-in", Category: CategoryStarter, Target: 1,
		Progress: func(d *Data) int { return min(d.RecordedDays, 1) },
	},
	{
		Key: "hours_100", Title: "100 hours worked", Category: CategoryVolume, Target: 100 * 60,
		Progress: func(d *Data) int { return d.TotalWorkMinutes },
	},
	{
		Key: "hours_500", Title: "500 hours worked", Category: CategoryVolume, Target: 500 * 60,
		Progress: func(d *Data) int { return d.TotalWorkMinutes },
	},
	{
		Key: "hours_1000", Title: "1000 hours worked", Category: CategoryVolume, Target: 1000 * 60,
		Progress: func(d *Data) int { return d.TotalWorkMinutes },
	},
	{
		Key: "overtime_10h", Title: "10 hours of overtime", Category: CategoryOvertime, Target: 10 * 60,
		Progress: func(d *Data) int { return d.TotalOvertimeMinutes },
	},
	{
		Key: "overtime_50h", Title: "50 hours of overtime", Category: CategoryOvertime, Target: 50 * 60,
		Progress: func(d *Data) int { return d.TotalOvertimeMinutes },
	},
	{
		Key: "days_50", Title: "50 worked days", Category: CategoryConsistency, Target: 50,
		Progress: func(d *Data) int { return d.WorkedDays },
	},
	{
		Key: "days_250", Title: "250 worked days", Category: CategoryConsistency, Target: 250,
		Progress: func(d *Data) int { return d.WorkedDays },
	},
	{
		Key: "streak_5", Title: "5-day streak", Category: CategoryConsistency, Target: 5,
		Progress: func(d *Data) int { return d.Streak },
	},
	{
		Key: "streak_20", Title: "20-day streak", Category: CategoryConsistency, Target: 20,
		Progress: func(d *Data) int { return d.Streak },
	},
	{
		Key: "streak_60", Title: "60-day streak", Category: CategoryConsistency, Target: 60,
		Progress: func(d *Data) int { return d.Streak },
	},
	{
		Key: "pause_days_100", Title: "100 days with a pause", Category: CategoryHabits, Target: 100,
		Progress: func(d *Data) int { return d.PauseDays },
	},
	{
		Key: "early_bird_25", Title: "25 early starts", Category: CategoryHabits, Target: 25,
		Progress: func(d *Data) int { return d.EarlyStarts },
	},
	{
		Key: "marathon_day", Title: "A 10-hour day", Category: CategoryHabits, Target: 1,
		Progress: func(d *Data) int { return min(d.MarathonDays, 1) },
	},
	{
		Key: "perfect_week", Title: "A perfect week", Category: CategoryConsistency, Target: 1,
		Progress: func(d *Data) int { return boolToInt(d.PerfectWeek) },
	},
	{
		Key: "full_month", Title: "A full month without absence", Category: CategoryConsistency, Target: 1,
		Progress: func(d *Data) int { return boolToInt(d.FullMonth) },
	},
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
