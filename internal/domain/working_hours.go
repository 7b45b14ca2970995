package domain

import (
	"fmt"
	"time"
)

// WorkingHours is the weekly window during which an agent may receive
// auto-assigned work. Start and End are minutes since local midnight and the
// window is inclusive on both ends.
type WorkingHours struct {
	StartMinute int
	EndMinute   int
	Timezone    string
	WorkDays    []time.Weekday
}

// DefaultWorkingHours returns the 09:00-17:00 UTC Mon-Fri schedule used when
// an agent record has no explicit window.
func DefaultWorkingHours() WorkingHours {
	return WorkingHours{
		StartMinute: 9 * 60,
		EndMinute:   17 * 60,
		Timezone:    "UTC",
		WorkDays: []time.Weekday{
			time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
		},
	}
}

// Validate reports whether the window is well formed. A malformed window makes
// its agent ineligible rather than failing the whole decision.
func (w WorkingHours) Validate() error {
	if w.StartMinute < 0 || w.StartMinute >= 24*60 {
		return fmt.Errorf("start minute %d out of range", w.StartMinute)
	}
	if w.EndMinute < 0 || w.EndMinute >= 24*60 {
		return fmt.Errorf("end minute %d out of range", w.EndMinute)
	}
	if w.EndMinute < w.StartMinute {
		return fmt.Errorf("end %d before start %d", w.EndMinute, w.StartMinute)
	}
	if len(w.WorkDays) == 0 {
		return fmt.Errorf("no work days")
	}
	if _, err := w.Location(); err != nil {
		return fmt.Errorf("timezone %q: %w", w.Timezone, err)
	}
	return nil
}

// Location resolves the window's IANA timezone.
func (w WorkingHours) Location() (*time.Location, error) {
	if w.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(w.Timezone)
}

// Covers reports whether the instant falls inside the window. The caller is
// expected to pass a time already converted to the window's location.
func (w WorkingHours) Covers(local time.Time) bool {
	workDay := false
	for _, day := range w.WorkDays {
		if local.Weekday() == day {
			workDay = true
			break
		}
	}
	if !workDay {
		return false
	}
	minute := local.Hour()*60 + local.Minute()
	return minute >= w.StartMinute && minute <= w.EndMinute
}

// ParseMinuteOfDay converts "HH:MM" into minutes since midnight.
func ParseMinuteOfDay(value string) (int, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(value, "%d:%d", &hour, &minute); err != nil {
		return 0, fmt.Errorf("parse time of day %q: %w", value, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time of day %q out of range", value)
	}
	return hour*60 + minute, nil
}
