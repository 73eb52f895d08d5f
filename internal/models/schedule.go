package models

import (
	"time"

	"github.com/noah-isme/lecture-booking-api/pkg/timeslot"
)

// ScheduleStatus is the lifecycle state of a bookable slot.
type ScheduleStatus string

const (
	ScheduleActive  ScheduleStatus = "active"
	ScheduleExpired ScheduleStatus = "expired"
)

// CanTransitionTo reports whether the schedule may move to next.
func (s ScheduleStatus) CanTransitionTo(next ScheduleStatus) bool {
	return s == ScheduleActive && next == ScheduleExpired
}

// Schedule is a bookable [start,end) slot of a lecture on one date.
type Schedule struct {
	ID        string    `db:"id" json:"id"`
	LectureID string    `db:"lecture_id" json:"lecture_id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	Date      time.Time `db:"schedule_date" json:"date"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	IsExpired bool      `db:"is_expired" json:"is_expired"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Status derives the lifecycle state from the expiry flag.
func (s *Schedule) Status() ScheduleStatus {
	if s.IsExpired {
		return ScheduleExpired
	}
	return ScheduleActive
}

// Slot converts the stored date and clock columns into a comparable slot.
func (s *Schedule) Slot() (timeslot.Slot, error) {
	return toSlot(s.Date, s.StartTime, s.EndTime)
}

// ScheduleDetail is a schedule joined with its lecture and teacher names.
type ScheduleDetail struct {
	Schedule
	LectureTitle string `db:"lecture_title" json:"lecture_title"`
	TeacherName  string `db:"teacher_name" json:"teacher_name"`
}

func toSlot(date time.Time, start, end string) (timeslot.Slot, error) {
	s, err := timeslot.ParseClock("start_time", start)
	if err != nil {
		return timeslot.Slot{}, err
	}
	e, err := timeslot.ParseClock("end_time", end)
	if err != nil {
		return timeslot.Slot{}, err
	}
	return timeslot.Slot{Date: date, Interval: timeslot.Interval{Start: s, End: e}}, nil
}
