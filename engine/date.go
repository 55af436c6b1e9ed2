package engine

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Calendar day without time-of-day (WorkDay key)
// =============================================================================

// Date identifies a calendar day. It is comparable and safe as a map key.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate constructs a Date from its components.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// DateOf truncates a timestamp to its calendar day.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses "2006-01-02".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// Time returns midnight of the day in the given location.
func (d Date) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// At returns the day at a specific wall-clock time.
func (d Date) At(hour, minute int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(d.Year, d.Month, d.Day, hour, minute, 0, 0, loc)
}

// Comparison
func (d Date) Before(other Date) bool { return d.Time(time.UTC).Before(other.Time(time.UTC)) }
func (d Date) After(other Date) bool  { return d.Time(time.UTC).After(other.Time(time.UTC)) }
func (d Date) Equal(other Date) bool  { return d == other }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date { return DateOf(d.Time(time.UTC).AddDate(0, 0, n)) }

// Properties
func (d Date) Weekday() time.Weekday { return d.Time(time.UTC).Weekday() }
func (d Date) IsZero() bool          { return d == Date{} }

func (d Date) String() string {
	return d.Time(time.UTC).Format("2006-01-02")
}

// DaysBetween returns the number of days from one date to another (to - from).
func DaysBetween(from, to Date) int {
	return int(to.Time(time.UTC).Sub(from.Time(time.UTC)).Hours() / 24)
}

// WeekOf returns the Monday and Sunday of the ISO week containing d.
func WeekOf(d Date) (Date, Date) {
	wd := int(d.Weekday())
	if wd == 0 {
		wd = 7
	}
	monday := d.AddDays(-(wd - 1))
	return monday, monday.AddDays(6)
}

// MonthOf returns the first and last day of the month containing d.
func MonthOf(d Date) (Date, Date) {
	first := NewDate(d.Year, d.Month, 1)
	last := DateOf(first.Time(time.UTC).AddDate(0, 1, -1))
	return first, last
}

// NextWeekday returns the first date strictly after d that falls on wd.
func NextWeekday(d Date, wd time.Weekday) Date {
	next := d.AddDays(1)
	for next.Weekday() != wd {
		next = next.AddDays(1)
	}
	return next
}
