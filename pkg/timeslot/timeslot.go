// Package timeslot parses booking dates and clock times and compares half-open
// [start,end) intervals on a single calendar day.
package timeslot

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is the accepted calendar date format.
	DateLayout = "2006-01-02"
	// ClockLayout is the accepted time-of-day format.
	ClockLayout = "15:04"
)

// FormatError reports a field that could not be parsed.
type FormatError struct {
	Field  string
	Value  string
	Layout string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s %q must match %s", e.Field, e.Value, humanLayout(e.Layout))
}

func humanLayout(layout string) string {
	switch layout {
	case DateLayout:
		return "YYYY-MM-DD"
	case ClockLayout:
		return "HH:MM"
	default:
		return layout
	}
}

// Clock is a time of day expressed in minutes since midnight.
type Clock int

// String renders the clock as HH:MM.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// ParseDate parses a YYYY-MM-DD date into midnight UTC of that day.
func ParseDate(field, raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, &FormatError{Field: field, Value: raw, Layout: DateLayout}
	}
	return t, nil
}

// ParseClock parses an HH:MM time of day.
func ParseClock(field, raw string) (Clock, error) {
	value := strings.TrimSpace(raw)
	t, err := time.Parse(ClockLayout, value)
	if err != nil {
		return 0, &FormatError{Field: field, Value: raw, Layout: ClockLayout}
	}
	return Clock(t.Hour()*60 + t.Minute()), nil
}

// Interval is a half-open [Start, End) range within one day.
type Interval struct {
	Start Clock
	End   Clock
}

// Valid reports whether the interval is non-empty.
func (i Interval) Valid() bool {
	return i.Start < i.End
}

func (i Interval) String() string {
	return i.Start.String() + "-" + i.End.String()
}

// Overlaps reports whether two half-open intervals share any minute.
// Touching intervals ([09:00,10:00) and [10:00,11:00)) do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

// Slot is an interval anchored to a calendar date.
type Slot struct {
	Date time.Time
	Interval
}

// SameDay compares the calendar dates of two slots.
func (s Slot) SameDay(other Slot) bool {
	y1, m1, d1 := s.Date.Date()
	y2, m2, d2 := other.Date.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// NewSlot parses the raw date and clock fields of a request.
func NewSlot(date, start, end string) (Slot, error) {
	d, err := ParseDate("date", date)
	if err != nil {
		return Slot{}, err
	}
	s, err := ParseClock("start_time", start)
	if err != nil {
		return Slot{}, err
	}
	e, err := ParseClock("end_time", end)
	if err != nil {
		return Slot{}, err
	}
	return Slot{Date: d, Interval: Interval{Start: s, End: e}}, nil
}

// NotInPast reports whether date falls on or after the calendar day of now,
// evaluated in now's location.
func NotInPast(date, now time.Time) bool {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	dy, dm, dd := date.Date()
	day := time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC)
	return !day.Before(today)
}

// FirstConflict returns the first existing slot on the candidate's date whose
// interval overlaps the candidate.
func FirstConflict(existing []Slot, candidate Slot) (Slot, bool) {
	for _, slot := range existing {
		if !slot.SameDay(candidate) {
			continue
		}
		if Overlaps(slot.Interval, candidate.Interval) {
			return slot, true
		}
	}
	return Slot{}, false
}
