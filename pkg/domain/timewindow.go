package domain

import (
	"fmt"

	"dispatch/pkg/apperror"
)

// ClockTime is a time-of-day expressed as minutes since midnight, avoiding
// the ambiguity of carrying a full civil date through the optimizer.
type ClockTime int

// NewClockTime builds a ClockTime from an hour/minute pair.
func NewClockTime(hour, minute int) ClockTime {
	return ClockTime(hour*60 + minute)
}

// Hour returns the hour-of-day component.
func (c ClockTime) Hour() int { return int(c) / 60 }

// Minute returns the minute-of-hour component.
func (c ClockTime) Minute() int { return int(c) % 60 }

// Add returns c advanced by the given number of minutes.
func (c ClockTime) Add(minutes int) ClockTime { return c + ClockTime(minutes) }

// String renders as HH:MM.
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// TimeWindowType classifies a case's requested scheduling window.
type TimeWindowType string

const (
	TimeWindowAM       TimeWindowType = "AM"
	TimeWindowPM       TimeWindowType = "PM"
	TimeWindowSpecific TimeWindowType = "SPECIFIC"
	TimeWindowAnytime  TimeWindowType = "ANYTIME"
)

// TimeWindow is a half-open [Start, End) interval within a day.
type TimeWindow struct {
	Start ClockTime
	End   ClockTime
}

// NewTimeWindow validates Start < End before constructing.
func NewTimeWindow(start, end ClockTime) (TimeWindow, error) {
	if start >= end {
		return TimeWindow{}, apperror.InvalidInput("time_window", "start must be before end")
	}
	return TimeWindow{Start: start, End: end}, nil
}

// Contains reports whether t falls within [Start, End).
func (w TimeWindow) Contains(t ClockTime) bool {
	return t >= w.Start && t < w.End
}
