package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lecture-booking-api/internal/models"
	appErrors "github.com/noah-isme/lecture-booking-api/pkg/errors"
	"github.com/noah-isme/lecture-booking-api/pkg/timeslot"
)

type scheduleSlotReader interface {
	ListActiveOnDate(ctx context.Context, exec sqlx.ExtContext, lectureID string, date time.Time) ([]models.Schedule, error)
}

type bookingSlotReader interface {
	ListActiveOnDate(ctx context.Context, exec sqlx.ExtContext, userID, lectureID string, date time.Time) ([]models.Booking, error)
}

// ConflictDetector checks a candidate slot against the slots already held on
// the same lecture and date.
type ConflictDetector struct {
	schedules scheduleSlotReader
	bookings  bookingSlotReader
}

// NewConflictDetector constructs a detector.
func NewConflictDetector(schedules scheduleSlotReader, bookings bookingSlotReader) *ConflictDetector {
	return &ConflictDetector{schedules: schedules, bookings: bookings}
}

// ScheduleConflict returns the first active schedule of the lecture that
// overlaps candidate, or nil.
func (d *ConflictDetector) ScheduleConflict(ctx context.Context, exec sqlx.ExtContext, lectureID string, candidate timeslot.Slot) (*models.Schedule, error) {
	rows, err := d.schedules.ListActiveOnDate(ctx, exec, lectureID, candidate.Date)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load schedules")
	}
	slots := make([]timeslot.Slot, len(rows))
	for i := range rows {
		if slots[i], err = rows[i].Slot(); err != nil {
			return nil, appErrors.Internal(err, "stored schedule has invalid time")
		}
	}
	if idx := firstConflictIndex(slots, candidate); idx >= 0 {
		return &rows[idx], nil
	}
	return nil, nil
}

// BookingConflict returns the first pending or confirmed booking of the user
// on the lecture that overlaps candidate, or nil.
func (d *ConflictDetector) BookingConflict(ctx context.Context, exec sqlx.ExtContext, userID, lectureID string, candidate timeslot.Slot) (*models.Booking, error) {
	rows, err := d.bookings.ListActiveOnDate(ctx, exec, userID, lectureID, candidate.Date)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load bookings")
	}
	slots := make([]timeslot.Slot, 0, len(rows))
	index := make([]int, 0, len(rows))
	for i := range rows {
		if !rows[i].Status.Active() {
			continue
		}
		slot, err := rows[i].Slot()
		if err != nil {
			return nil, appErrors.Internal(err, "stored booking has invalid time")
		}
		slots = append(slots, slot)
		index = append(index, i)
	}
	if idx := firstConflictIndex(slots, candidate); idx >= 0 {
		return &rows[index[idx]], nil
	}
	return nil, nil
}

func firstConflictIndex(slots []timeslot.Slot, candidate timeslot.Slot) int {
	hit, found := timeslot.FirstConflict(slots, candidate)
	if !found {
		return -1
	}
	for i, slot := range slots {
		if slot == hit {
			return i
		}
	}
	return -1
}
