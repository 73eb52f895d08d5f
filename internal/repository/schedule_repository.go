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

const scheduleColumns = `s.id, s.lecture_id, s.teacher_id, s.schedule_date, to_char(s.start_time, 'HH24:MI') AS start_time, to_char(s.end_time, 'HH24:MI') AS end_time, s.is_expired, s.created_at`

// ScheduleRepository provides persistence for bookable lecture slots.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// ListActiveOnDate returns the active schedules of a lecture on one date.
func (r *ScheduleRepository) ListActiveOnDate(ctx context.Context, exec sqlx.ExtContext, lectureID string, date time.Time) ([]models.Schedule, error) {
	const query = `SELECT ` + scheduleColumns + ` FROM schedules s WHERE s.lecture_id = $1 AND s.schedule_date = $2 AND s.is_expired = FALSE ORDER BY s.start_time ASC`
	var schedules []models.Schedule
	if err := sqlx.SelectContext(ctx, exec, &schedules, query, lectureID, date); err != nil {
		return nil, fmt.Errorf("list schedules on date: %w", err)
	}
	return schedules, nil
}

// Create inserts a new schedule.
func (r *ScheduleRepository) Create(ctx context.Context, exec sqlx.ExtContext, schedule *models.Schedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO schedules (id, lecture_id, teacher_id, schedule_date, start_time, end_time, is_expired, created_at)
		VALUES (:id, :lecture_id, :teacher_id, :schedule_date, :start_time, :end_time, :is_expired, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, schedule); err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

// FindByID returns a schedule regardless of expiry.
func (r *ScheduleRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Schedule, error) {
	const query = `SELECT ` + scheduleColumns + ` FROM schedules s WHERE s.id = $1`
	var schedule models.Schedule
	if err := sqlx.GetContext(ctx, exec, &schedule, query, id); err != nil {
		if err == sql.ErrNoRows || isMalformedID(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find schedule: %w", err)
	}
	return &schedule, nil
}

// ListActive returns every active schedule of live lectures with display names.
func (r *ScheduleRepository) ListActive(ctx context.Context) ([]models.ScheduleDetail, error) {
	const query = `
SELECT ` + scheduleColumns + `, l.title AS lecture_title, u.name AS teacher_name
FROM schedules s
JOIN lectures l ON l.id = s.lecture_id
JOIN users u ON u.id = s.teacher_id
WHERE l.is_deleted = FALSE AND u.is_deleted = FALSE AND s.is_expired = FALSE
ORDER BY s.schedule_date ASC, s.start_time ASC`
	var schedules []models.ScheduleDetail
	if err := r.db.SelectContext(ctx, &schedules, query); err != nil {
		return nil, fmt.Errorf("list active schedules: %w", err)
	}
	return schedules, nil
}

// ListActiveByLecture returns the active schedules of one lecture.
func (r *ScheduleRepository) ListActiveByLecture(ctx context.Context, lectureID string) ([]models.Schedule, error) {
	const query = `SELECT ` + scheduleColumns + ` FROM schedules s WHERE s.lecture_id = $1 AND s.is_expired = FALSE ORDER BY s.schedule_date ASC, s.start_time ASC`
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, lectureID); err != nil {
		return nil, fmt.Errorf("list lecture schedules: %w", err)
	}
	return schedules, nil
}

// Expire marks one active schedule expired. It returns sql.ErrNoRows when the
// schedule was not active.
func (r *ScheduleRepository) Expire(ctx context.Context, exec sqlx.ExtContext, id string) error {
	const query = `UPDATE schedules SET is_expired = TRUE WHERE id = $1 AND is_expired = FALSE`
	result, err := exec.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("expire schedule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check expired schedule rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ExpireBefore expires every active schedule dated strictly before day.
func (r *ScheduleRepository) ExpireBefore(ctx context.Context, day time.Time) (int64, error) {
	const query = `UPDATE schedules SET is_expired = TRUE WHERE is_expired = FALSE AND schedule_date < $1`
	result, err := r.db.ExecContext(ctx, query, day)
	if err != nil {
		return 0, fmt.Errorf("expire past schedules: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check expired schedule rows: %w", err)
	}
	return affected, nil
}
