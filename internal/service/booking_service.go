package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/lecture-booking-api/internal/dto"
	"github.com/noah-isme/lecture-booking-api/internal/models"
	"github.com/noah-isme/lecture-booking-api/internal/repository"
	appErrors "github.com/noah-isme/lecture-booking-api/pkg/errors"
	"github.com/noah-isme/lecture-booking-api/pkg/export"
	"github.com/noah-isme/lecture-booking-api/pkg/timeslot"
)

const topLectureLimit = 5

type bookingStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, booking *models.Booking) error
	FindForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Booking, error)
	Cancel(ctx context.Context, exec sqlx.ExtContext, id string, at time.Time) error
	ListByLecture(ctx context.Context, lectureID string) ([]models.BookingListItem, error)
	ListAll(ctx context.Context) ([]models.BookingListItem, error)
	CountByStatus(ctx context.Context) ([]models.BookingStatusCount, error)
	TopLectures(ctx context.Context, limit int) ([]models.LectureBookingCount, error)
}

type bookingEvaluator interface {
	Evaluate(ctx context.Context, exec sqlx.ExtContext, req dto.CreateBookingRequest, actor models.Actor) (*models.AdmissionDecision, error)
}

type lectureAuthorizer interface {
	ResolveAuthorization(ctx context.Context, actorID string, role models.UserRole, lectureID string) (models.AccessDecision, error)
}

type exportRenderer interface {
	Render(format export.Format, data export.Dataset, title string) ([]byte, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// BookingService admits, cancels and reports on student bookings.
type BookingService struct {
	tx        txProvider
	locks     scopeLocker
	bookings  bookingStore
	admission bookingEvaluator
	access    lectureAuthorizer
	renderer  exportRenderer
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NewBookingService wires the booking service.
func NewBookingService(
	tx txProvider,
	locks scopeLocker,
	bookings bookingStore,
	admission bookingEvaluator,
	access lectureAuthorizer,
	renderer exportRenderer,
	validate *validator.Validate,
	metrics *MetricsService,
	logger *zap.Logger,
) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if renderer == nil {
		renderer = export.NewRenderer()
	}
	return &BookingService{
		tx:        tx,
		locks:     locks,
		bookings:  bookings,
		admission: admission,
		access:    access,
		renderer:  renderer,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Create evaluates the request and, when admitted, stores a pending booking.
// The decision is returned in both outcomes; on rejection the error is the
// first violated rule and nothing is written.
func (s *BookingService) Create(ctx context.Context, actor models.Actor, req dto.CreateBookingRequest) (decision *models.AdmissionDecision, err error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}
	started := time.Now()

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.locks.Lock(ctx, tx, repository.BookingScope(req.UserID, req.LectureID)); err != nil {
		return nil, appErrors.Internal(err, "failed to lock booking scope")
	}

	decision, err = s.admission.Evaluate(ctx, tx, req, actor)
	if err != nil {
		return nil, err
	}
	if reason := decision.First(); reason != nil {
		s.metrics.RecordAdmission(reason.Code, time.Since(started))
		s.logger.Info("booking rejected",
			zap.String("user_id", req.UserID),
			zap.String("lecture_id", req.LectureID),
			zap.String("code", reason.Code),
			zap.Int("violations", len(decision.Reasons)),
		)
		err = reason
		return decision, err
	}

	slot, err := timeslot.NewSlot(req.ReservedDate, req.StartTime, req.EndTime)
	if err != nil {
		return nil, formatError(err)
	}
	booking := &models.Booking{
		UserID:    req.UserID,
		LectureID: req.LectureID,
		TeacherID: req.TeacherID,
		Date:      slot.Date,
		StartTime: slot.Start.String(),
		EndTime:   slot.End.String(),
		Status:    models.BookingPending,
		CreatedAt: s.now().UTC(),
	}
	if err = s.bookings.Create(ctx, tx, booking); err != nil {
		return nil, appErrors.Internal(err, "failed to create booking")
	}
	if err = commitOrInternal(tx, "failed to commit booking"); err != nil {
		return nil, err
	}

	decision.BookingID = booking.ID
	s.metrics.RecordAdmission("", time.Since(started))
	s.logger.Info("booking admitted",
		zap.String("booking_id", booking.ID),
		zap.String("user_id", booking.UserID),
		zap.String("lecture_id", booking.LectureID),
		zap.String("slot", slot.Interval.String()),
	)
	return decision, nil
}

// Cancel moves the actor's pending booking to cancelled.
func (s *BookingService) Cancel(ctx context.Context, bookingID string, actor models.Actor) (booking *models.Booking, err error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	booking, err = s.bookings.FindForUpdate(ctx, tx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrNotFound, "booking not found")
			return nil, err
		}
		return nil, appErrors.Internal(err, "failed to load booking")
	}
	if booking.UserID != actor.UserID {
		err = appErrors.Clone(appErrors.ErrForbidden, "cannot cancel another user's booking")
		return nil, err
	}
	if booking.Status == models.BookingConfirmed {
		err = appErrors.Clone(appErrors.ErrState, "booking already confirmed")
		return nil, err
	}
	if !booking.Status.CanTransitionTo(models.BookingCancelled) {
		err = appErrors.Clone(appErrors.ErrState, fmt.Sprintf("cannot cancel booking from state %s", booking.Status))
		return nil, err
	}

	at := s.now().UTC()
	if err = s.bookings.Cancel(ctx, tx, booking.ID, at); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrState, "booking is no longer pending")
			return nil, err
		}
		return nil, appErrors.Internal(err, "failed to cancel booking")
	}
	if err = commitOrInternal(tx, "failed to commit cancellation"); err != nil {
		return nil, err
	}

	booking.Status = models.BookingCancelled
	booking.CancelledAt = &at
	s.metrics.RecordCancellation()
	s.logger.Info("booking cancelled", zap.String("booking_id", booking.ID), zap.String("user_id", actor.UserID))
	return booking, nil
}

// ListByLecture returns a lecture's bookings to a teacher or admin entitled to it.
func (s *BookingService) ListByLecture(ctx context.Context, actor models.Actor, lectureID string) ([]models.BookingListItem, error) {
	decision, err := s.access.ResolveAuthorization(ctx, actor.UserID, actor.Role, lectureID)
	if err != nil {
		return nil, err
	}
	if !decision.Authorized {
		return nil, decision.Err()
	}
	items, err := s.bookings.ListByLecture(ctx, lectureID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list bookings")
	}
	return present(items), nil
}

// ListAll returns every booking.
func (s *BookingService) ListAll(ctx context.Context) ([]models.BookingListItem, error) {
	items, err := s.bookings.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list bookings")
	}
	return present(items), nil
}

// Stats aggregates booking counts by status and the most booked lectures.
func (s *BookingService) Stats(ctx context.Context) (*models.BookingStats, error) {
	counts, err := s.bookings.CountByStatus(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count bookings")
	}
	top, err := s.bookings.TopLectures(ctx, topLectureLimit)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to rank lectures")
	}

	stats := &models.BookingStats{
		ByStatus:    map[models.BookingStatus]int{},
		TopLectures: top,
	}
	for _, status := range []models.BookingStatus{models.BookingPending, models.BookingConfirmed, models.BookingCancelled} {
		stats.ByStatus[status] = 0
	}
	for _, c := range counts {
		stats.ByStatus[c.Status] = c.Count
		stats.Total += c.Count
	}
	if stats.TopLectures == nil {
		stats.TopLectures = []models.LectureBookingCount{}
	}
	return stats, nil
}

// Export renders the booking ledger as CSV or PDF.
func (s *BookingService) Export(ctx context.Context, rawFormat string) (*ExportFile, error) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	items, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	data := export.Dataset{Headers: []string{"ID", "Student", "Lecture", "Teacher", "Date", "Start", "End", "Status"}}
	for _, item := range items {
		data.Rows = append(data.Rows, map[string]string{
			"ID":      item.ID,
			"Student": item.UserName,
			"Lecture": item.LectureTitle,
			"Teacher": item.TeacherName,
			"Date":    item.ReservedDate,
			"Start":   item.StartTime,
			"End":     item.EndTime,
			"Status":  item.DisplayState,
		})
	}

	body, err := s.renderer.Render(format, data, "Bookings")
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render export")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("bookings-%s.%s", s.now().UTC().Format("20060102"), format),
		ContentType: format.ContentType(),
		Body:        body,
	}, nil
}

func present(items []models.BookingListItem) []models.BookingListItem {
	if items == nil {
		return []models.BookingListItem{}
	}
	for i := range items {
		items[i].Present()
	}
	return items
}
