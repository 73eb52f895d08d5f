package models

import (
	"time"

	"github.com/noah-isme/lecture-booking-api/pkg/timeslot"
)

// BookingStatus is the lifecycle state of a reservation.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending: {BookingConfirmed, BookingCancelled},
}

// CanTransitionTo reports whether next is reachable from s.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s BookingStatus) IsTerminal() bool {
	return len(bookingTransitions[s]) == 0
}

// Active reports whether the booking still occupies its slot.
func (s BookingStatus) Active() bool {
	return s == BookingPending || s == BookingConfirmed
}

// DisplayStatus is the label shown in booking listings.
func (s BookingStatus) DisplayStatus() string {
	if s == BookingConfirmed {
		return "reserved"
	}
	return string(s)
}

// Booking is a student's reservation of a lecture slot.
type Booking struct {
	ID          string        `db:"id" json:"id"`
	UserID      string        `db:"user_id" json:"user_id"`
	LectureID   string        `db:"lecture_id" json:"lecture_id"`
	TeacherID   string        `db:"teacher_id" json:"teacher_id"`
	Date        time.Time     `db:"booking_date" json:"date"`
	StartTime   string        `db:"start_time" json:"start_time"`
	EndTime     string        `db:"end_time" json:"end_time"`
	Status      BookingStatus `db:"status" json:"status"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	CancelledAt *time.Time    `db:"cancelled_at" json:"cancelled_at,omitempty"`
}

// Slot converts the stored date and clock columns into a comparable slot.
func (b *Booking) Slot() (timeslot.Slot, error) {
	return toSlot(b.Date, b.StartTime, b.EndTime)
}

// BookingListItem is a booking row joined with display names.
type BookingListItem struct {
	ID           string        `db:"id" json:"id"`
	UserName     string        `db:"user_name" json:"user_name"`
	LectureTitle string        `db:"lecture_title" json:"lecture_name"`
	TeacherName  string        `db:"teacher_name" json:"teacher_name"`
	Status       BookingStatus `db:"status" json:"-"`
	Date         time.Time     `db:"booking_date" json:"-"`
	StartTime    string        `db:"start_time" json:"start_time"`
	EndTime      string        `db:"end_time" json:"end_time"`
	DisplayState string        `db:"-" json:"status"`
	ReservedDate string        `db:"-" json:"reserved_date"`
}

// Present fills the display fields from the stored ones.
func (b *BookingListItem) Present() {
	b.DisplayState = b.Status.DisplayStatus()
	b.ReservedDate = b.Date.Format(timeslot.DateLayout)
}

// BookingStatusCount is the number of bookings in one status.
type BookingStatusCount struct {
	Status BookingStatus `db:"status" json:"status"`
	Count  int           `db:"count" json:"count"`
}

// LectureBookingCount ranks lectures by bookings received.
type LectureBookingCount struct {
	LectureID    string `db:"lecture_id" json:"lecture_id"`
	LectureTitle string `db:"lecture_title" json:"lecture_title"`
	Count        int    `db:"count" json:"count"`
}

// BookingStats summarises the booking ledger for admins.
type BookingStats struct {
	Total       int                   `json:"total"`
	ByStatus    map[BookingStatus]int `json:"by_status"`
	TopLectures []LectureBookingCount `json:"top_lectures"`
}
