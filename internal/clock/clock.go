// Package clock holds the calendar-date and wall-clock conventions shared by
// tasks, schedules and the calendar: dates are "2006-01-02", clock times are
// "15:04", and both are interpreted in a configured location.
package clock

import (
	"fmt"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// ParseDate parses a YYYY-MM-DD date at midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, s, locOrUTC(loc))
	if err != nil {
		return time.Time{}, fmt.Errorf("clock: invalid date %q: %w", s, err)
	}
	return d, nil
}

// ParseClock validates an HH:MM clock time.
func ParseClock(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("clock: invalid time %q: %w", s, err)
	}
	return t, nil
}

// NormalizeClock validates s and returns it zero-padded as HH:MM, so "9:00"
// and "09:00" store and compare equal.
func NormalizeClock(s string) (string, error) {
	t, err := ParseClock(s)
	if err != nil {
		return "", err
	}
	return t.Format(TimeLayout), nil
}

// Combine returns the instant at date and clock time in loc. An empty
// clock time means the start of the day.
func Combine(date, clockTime string, loc *time.Location) (time.Time, error) {
	if clockTime == "" {
		return ParseDate(date, loc)
	}
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, date+" "+clockTime, locOrUTC(loc))
	if err != nil {
		return time.Time{}, fmt.Errorf("clock: invalid date/time %q %q: %w", date, clockTime, err)
	}
	return t, nil
}

// DueAtMs returns epoch millis for date+time, or nil when either is missing.
func DueAtMs(date, clockTime string, loc *time.Location) (*int64, error) {
	if date == "" || clockTime == "" {
		return nil, nil
	}
	t, err := Combine(date, clockTime, loc)
	if err != nil {
		return nil, err
	}
	ms := t.UnixMilli()
	return &ms, nil
}

// Today formats now as a date in loc.
func Today(now time.Time, loc *time.Location) string {
	return now.In(locOrUTC(loc)).Format(DateLayout)
}

// FormatDate formats t as a date in its own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// InRange reports whether date lies in [start, end]. All three are
// YYYY-MM-DD strings, which order lexically.
func InRange(date, start, end string) bool {
	return date != "" && date >= start && date <= end
}

// LoadLocation resolves a zone name; empty means UTC.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("clock: load location %q: %w", name, err)
	}
	return loc, nil
}

func locOrUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
