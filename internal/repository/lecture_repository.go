package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lecture-booking-api/internal/models"
)

const lectureColumns = `l.id, l.title, l.description, l.teacher_id, l.approval_status, l.is_multi_teacher, l.is_deleted, l.created_at, l.updated_at`

// LectureRepository persists lectures.
type LectureRepository struct {
	db *sqlx.DB
}

// NewLectureRepository constructs the repository.
func NewLectureRepository(db *sqlx.DB) *LectureRepository {
	return &LectureRepository{db: db}
}

// FindByID returns a lecture that has not been soft-deleted.
func (r *LectureRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Lecture, error) {
	const query = `SELECT ` + lectureColumns + ` FROM lectures l WHERE l.id = $1 AND l.is_deleted = FALSE`
	var lecture models.Lecture
	if err := sqlx.GetContext(ctx, exec, &lecture, query, id); err != nil {
		if err == sql.ErrNoRows || isMalformedID(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find lecture: %w", err)
	}
	return &lecture, nil
}

// Create inserts a new lecture.
func (r *LectureRepository) Create(ctx context.Context, exec sqlx.ExtContext, lecture *models.Lecture) error {
	if lecture.ID == "" {
		lecture.ID = uuid.NewString()
	}
	if lecture.CreatedAt.IsZero() {
		lecture.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO lectures (id, title, description, teacher_id, approval_status, is_multi_teacher, is_deleted, created_at)
		VALUES (:id, :title, :description, :teacher_id, :approval_status, :is_multi_teacher, :is_deleted, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, lecture); err != nil {
		return fmt.Errorf("create lecture: %w", err)
	}
	return nil
}

// UpdateTeacher replaces the primary teacher.
func (r *LectureRepository) UpdateTeacher(ctx context.Context, exec sqlx.ExtContext, id, teacherID string, at time.Time) error {
	const query = `UPDATE lectures SET teacher_id = $2, updated_at = $3 WHERE id = $1 AND is_deleted = FALSE`
	result, err := exec.ExecContext(ctx, query, id, teacherID, at)
	if err != nil {
		return fmt.Errorf("update lecture teacher: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated lecture rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns lectures with the primary teacher's name.
func (r *LectureRepository) List(ctx context.Context, filter models.LectureFilter) ([]models.LectureListItem, int, error) {
	base := `FROM lectures l JOIN users u ON u.id = l.teacher_id WHERE l.is_deleted = FALSE`
	var conditions []string
	var args []interface{}

	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("l.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.ApprovalStatus != nil {
		conditions = append(conditions, fmt.Sprintf("l.approval_status = $%d", len(args)+1))
		args = append(args, *filter.ApprovalStatus)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(l.title) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	limit, offset := pageBounds(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT %s, u.name AS teacher_name %s ORDER BY l.created_at DESC LIMIT %d OFFSET %d", lectureColumns, base, limit, offset)

	var lectures []models.LectureListItem
	if err := r.db.SelectContext(ctx, &lectures, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list lectures: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count lectures: %w", err)
	}
	return lectures, total, nil
}

// FindDetail returns a lecture joined with its primary teacher's profile.
func (r *LectureRepository) FindDetail(ctx context.Context, id string) (*models.LectureDetail, error) {
	const query = `
SELECT ` + lectureColumns + `,
       u.name AS teacher_name, u.email AS teacher_email,
       tp.phone AS teacher_phone, tp.bio AS teacher_bio, tp.profile_image AS teacher_profile_image
FROM lectures l
JOIN users u ON u.id = l.teacher_id
LEFT JOIN teacher_profiles tp ON tp.id = l.teacher_id
WHERE l.id = $1 AND l.is_deleted = FALSE`
	var detail models.LectureDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows || isMalformedID(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find lecture detail: %w", err)
	}
	return &detail, nil
}
