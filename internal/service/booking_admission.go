package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lecture-booking-api/internal/dto"
	"github.com/noah-isme/lecture-booking-api/internal/models"
	appErrors "github.com/noah-isme/lecture-booking-api/pkg/errors"
	"github.com/noah-isme/lecture-booking-api/pkg/timeslot"
)

// BookingAdmission runs the ordered admission rules for a booking request.
// Rules, in reporting order:
//  1. the request is made by the user it books for
//  2. the lecture exists
//  3. the teacher teaches the lecture
//  4. date and times parse, start < end, date is not in the past
//  5. no overlap with the user's own active bookings on the lecture
type BookingAdmission struct {
	lectures    lectureReader
	assignments assignmentReader
	conflicts   *ConflictDetector
	location    *time.Location
	now         func() time.Time
}

// NewBookingAdmission constructs the engine. Dates are judged against the
// calendar day in location.
func NewBookingAdmission(lectures lectureReader, assignments assignmentReader, conflicts *ConflictDetector, location *time.Location) *BookingAdmission {
	if location == nil {
		location = time.UTC
	}
	return &BookingAdmission{
		lectures:    lectures,
		assignments: assignments,
		conflicts:   conflicts,
		location:    location,
		now:         time.Now,
	}
}

// Evaluate collects every violated rule. The returned error is reserved for
// storage faults; rule violations live in the decision.
func (a *BookingAdmission) Evaluate(ctx context.Context, exec sqlx.ExtContext, req dto.CreateBookingRequest, actor models.Actor) (*models.AdmissionDecision, error) {
	decision := &models.AdmissionDecision{Admitted: true}

	if req.UserID != actor.UserID {
		decision.Reject(appErrors.Clone(appErrors.ErrForbidden, "cannot book on behalf of another user"))
	}

	lecture, err := loadLecture(ctx, a.lectures, exec, req.LectureID)
	if err != nil {
		if !errors.Is(err, appErrors.ErrNotFound) {
			return nil, err
		}
		decision.Reject(appErrors.FromError(err))
	}

	if lecture != nil {
		ok, err := teachesLecture(ctx, a.assignments, exec, lecture, req.TeacherID)
		if err != nil {
			return nil, err
		}
		if !ok {
			decision.Reject(appErrors.Clone(appErrors.ErrPolicy, "teacher does not teach this lecture"))
		}
	}

	slot, ok := a.checkSlot(decision, req)
	if !ok {
		return decision, nil
	}

	existing, err := a.conflicts.BookingConflict(ctx, exec, req.UserID, req.LectureID, slot)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		decision.Reject(appErrors.Clone(appErrors.ErrConflict,
			fmt.Sprintf("overlaps existing booking %s-%s", existing.StartTime, existing.EndTime)))
	}

	return decision, nil
}

// checkSlot applies rule 4 and reports whether a usable interval came out of it.
// A parsed date is checked against today even when the times are unusable.
func (a *BookingAdmission) checkSlot(decision *models.AdmissionDecision, req dto.CreateBookingRequest) (timeslot.Slot, bool) {
	slot, err := timeslot.NewSlot(req.ReservedDate, req.StartTime, req.EndTime)
	if err != nil {
		decision.Reject(formatError(err))
		if day, dateErr := timeslot.ParseDate("date", req.ReservedDate); dateErr == nil {
			a.checkNotPast(decision, day)
		}
		return timeslot.Slot{}, false
	}
	valid := slot.Valid()
	if !valid {
		decision.Reject(appErrors.Clone(appErrors.ErrFormat, "start_time must be before end_time"))
	}
	a.checkNotPast(decision, slot.Date)
	return slot, valid
}

func (a *BookingAdmission) checkNotPast(decision *models.AdmissionDecision, day time.Time) {
	if !timeslot.NotInPast(day, a.now().In(a.location)) {
		decision.Reject(appErrors.Clone(appErrors.ErrPolicy, "reserved_date is in the past"))
	}
}

func formatError(err error) *appErrors.Error {
	var fe *timeslot.FormatError
	if errors.As(err, &fe) {
		return appErrors.Wrap(err, appErrors.ErrFormat.Code, appErrors.ErrFormat.Status, fe.Error())
	}
	return appErrors.Wrap(err, appErrors.ErrFormat.Code, appErrors.ErrFormat.Status, appErrors.ErrFormat.Message)
}
