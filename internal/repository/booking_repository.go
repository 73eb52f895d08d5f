package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lecture-booking-api/internal/models"
)

const bookingColumns = `b.id, b.user_id, b.lecture_id, b.teacher_id, b.booking_date, to_char(b.start_time, 'HH24:MI') AS start_time, to_char(b.end_time, 'HH24:MI') AS end_time, b.status, b.created_at, b.cancelled_at`

const bookingListSelect = `
SELECT b.id, su.name AS user_name, l.title AS lecture_title, tu.name AS teacher_name, b.status,
       b.booking_date, to_char(b.start_time, 'HH24:MI') AS start_time, to_char(b.end_time, 'HH24:MI') AS end_time
FROM bookings b
JOIN users su ON su.id = b.user_id
JOIN lectures l ON l.id = b.lecture_id
JOIN users tu ON tu.id = b.teacher_id
WHERE l.is_deleted = FALSE`

// BookingRepository persists student reservations.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository constructs the repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// ListActiveOnDate returns the user's pending or confirmed bookings of a lecture on one date.
func (r *BookingRepository) ListActiveOnDate(ctx context.Context, exec sqlx.ExtContext, userID, lectureID string, date time.Time) ([]models.Booking, error) {
	const query = `SELECT ` + bookingColumns + ` FROM bookings b
WHERE b.user_id = $1 AND b.lecture_id = $2 AND b.booking_date = $3 AND b.status IN ('pending', 'confirmed')
ORDER BY b.start_time ASC`
	var bookings []models.Booking
	if err := sqlx.SelectContext(ctx, exec, &bookings, query, userID, lectureID, date); err != nil {
		return nil, fmt.Errorf("list active bookings: %w", err)
	}
	return bookings, nil
}

// Create inserts a booking.
func (r *BookingRepository) Create(ctx context.Context, exec sqlx.ExtContext, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO bookings (id, user_id, lecture_id, teacher_id, booking_date, start_time, end_time, status, created_at)
		VALUES (:id, :user_id, :lecture_id, :teacher_id, :booking_date, :start_time, :end_time, :status, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, booking); err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

// FindForUpdate loads a booking and row-locks it for the rest of the transaction.
func (r *BookingRepository) FindForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Booking, error) {
	const query = `SELECT ` + bookingColumns + ` FROM bookings b WHERE b.id = $1 FOR UPDATE`
	var booking models.Booking
	if err := sqlx.GetContext(ctx, exec, &booking, query, id); err != nil {
		if err == sql.ErrNoRows || isMalformedID(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find booking: %w", err)
	}
	return &booking, nil
}

// Cancel moves a pending booking to cancelled. It returns sql.ErrNoRows when
// the booking is no longer pending.
func (r *BookingRepository) Cancel(ctx context.Context, exec sqlx.ExtContext, id string, at time.Time) error {
	const query = `UPDATE bookings SET status = 'cancelled', cancelled_at = $2 WHERE id = $1 AND status = 'pending'`
	result, err := exec.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("cancel booking: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check cancelled booking rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListByLecture returns the bookings of one lecture with display names.
func (r *BookingRepository) ListByLecture(ctx context.Context, lectureID string) ([]models.BookingListItem, error) {
	query := bookingListSelect + ` AND b.lecture_id = $1 ORDER BY b.booking_date ASC, b.start_time ASC`
	var items []models.BookingListItem
	if err := r.db.SelectContext(ctx, &items, query, lectureID); err != nil {
		return nil, fmt.Errorf("list lecture bookings: %w", err)
	}
	return items, nil
}

// ListAll returns every booking with display names.
func (r *BookingRepository) ListAll(ctx context.Context) ([]models.BookingListItem, error) {
	query := bookingListSelect + ` ORDER BY b.booking_date ASC, b.start_time ASC`
	var items []models.BookingListItem
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return items, nil
}

// CountByStatus groups the ledger by status.
func (r *BookingRepository) CountByStatus(ctx context.Context) ([]models.BookingStatusCount, error) {
	const query = `SELECT status, COUNT(*) AS count FROM bookings GROUP BY status`
	var counts []models.BookingStatusCount
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("count bookings by status: %w", err)
	}
	return counts, nil
}

// TopLectures ranks live lectures by number of bookings.
func (r *BookingRepository) TopLectures(ctx context.Context, limit int) ([]models.LectureBookingCount, error) {
	const query = `
SELECT l.id AS lecture_id, l.title AS lecture_title, COUNT(b.id) AS count
FROM bookings b
JOIN lectures l ON l.id = b.lecture_id
WHERE l.is_deleted = FALSE
GROUP BY l.id, l.title
ORDER BY count DESC, l.title ASC
LIMIT $1`
	var ranking []models.LectureBookingCount
	if err := r.db.SelectContext(ctx, &ranking, query, limit); err != nil {
		return nil, fmt.Errorf("rank lectures by bookings: %w", err)
	}
	return ranking, nil
}
