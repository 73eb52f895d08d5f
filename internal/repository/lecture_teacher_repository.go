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

// LectureTeacherRepository persists the additional teachers of multi-teacher lectures.
type LectureTeacherRepository struct {
	db *sqlx.DB
}

// NewLectureTeacherRepository constructs the repository.
func NewLectureTeacherRepository(db *sqlx.DB) *LectureTeacherRepository {
	return &LectureTeacherRepository{db: db}
}

// Exists checks whether teacherID is assigned to lectureID.
func (r *LectureTeacherRepository) Exists(ctx context.Context, exec sqlx.ExtContext, lectureID, teacherID string) (bool, error) {
	const query = `SELECT 1 FROM lecture_teachers WHERE lecture_id = $1 AND teacher_id = $2 LIMIT 1`
	var exists int
	if err := sqlx.GetContext(ctx, exec, &exists, query, lectureID, teacherID); err != nil {
		if err == sql.ErrNoRows || isMalformedID(err) {
			return false, nil
		}
		return false, fmt.Errorf("check lecture teacher: %w", err)
	}
	return true, nil
}

// Create inserts a new assignment. An existing pair yields ErrDuplicate.
func (r *LectureTeacherRepository) Create(ctx context.Context, exec sqlx.ExtContext, assignment *models.LectureTeacher) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO lecture_teachers (id, lecture_id, teacher_id, created_at)
		VALUES (:id, :lecture_id, :teacher_id, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, assignment); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create lecture teacher: %w", err)
	}
	return nil
}

// Delete removes an assignment, returning sql.ErrNoRows when absent.
func (r *LectureTeacherRepository) Delete(ctx context.Context, exec sqlx.ExtContext, lectureID, teacherID string) error {
	const query = `DELETE FROM lecture_teachers WHERE lecture_id = $1 AND teacher_id = $2`
	result, err := exec.ExecContext(ctx, query, lectureID, teacherID)
	if err != nil {
		return fmt.Errorf("delete lecture teacher: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted lecture teacher rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListByLecture returns assignments in the order they were made.
func (r *LectureTeacherRepository) ListByLecture(ctx context.Context, lectureID string) ([]models.LectureTeacher, error) {
	const query = `SELECT id, lecture_id, teacher_id, created_at FROM lecture_teachers WHERE lecture_id = $1 ORDER BY created_at ASC`
	var assignments []models.LectureTeacher
	if err := r.db.SelectContext(ctx, &assignments, query, lectureID); err != nil {
		return nil, fmt.Errorf("list lecture teachers: %w", err)
	}
	return assignments, nil
}
