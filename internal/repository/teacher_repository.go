package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lecture-booking-api/internal/models"
)

// TeacherCandidate is what staffing checks need to know about a user id.
type TeacherCandidate struct {
	ID         string          `db:"id"`
	Name       string          `db:"name"`
	Role       models.UserRole `db:"role"`
	HasProfile bool            `db:"has_profile"`
}

// TeacherRepository reads teacher users and maintains teacher profiles.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs the repository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// FindCandidate loads a live user with its profile presence.
func (r *TeacherRepository) FindCandidate(ctx context.Context, exec sqlx.ExtContext, id string) (*TeacherCandidate, error) {
	const query = `
SELECT u.id, u.name, u.role, (tp.id IS NOT NULL) AS has_profile
FROM users u
LEFT JOIN teacher_profiles tp ON tp.id = u.id
WHERE u.id = $1 AND u.is_deleted = FALSE`
	var candidate TeacherCandidate
	if err := sqlx.GetContext(ctx, exec, &candidate, query, id); err != nil {
		if err == sql.ErrNoRows || isMalformedID(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find teacher candidate: %w", err)
	}
	return &candidate, nil
}

// ProfileExists reports whether id has a teacher profile.
func (r *TeacherRepository) ProfileExists(ctx context.Context, exec sqlx.ExtContext, id string) (bool, error) {
	const query = `SELECT 1 FROM teacher_profiles WHERE id = $1 LIMIT 1`
	var exists int
	if err := sqlx.GetContext(ctx, exec, &exists, query, id); err != nil {
		if err == sql.ErrNoRows || isMalformedID(err) {
			return false, nil
		}
		return false, fmt.Errorf("check teacher profile: %w", err)
	}
	return true, nil
}

// LookupName returns the display name of a teacher.
func (r *TeacherRepository) LookupName(ctx context.Context, id string) (string, error) {
	const query = `SELECT name FROM users WHERE id = $1`
	var name string
	if err := r.db.GetContext(ctx, &name, query, id); err != nil {
		if err == sql.ErrNoRows || isMalformedID(err) {
			return "", sql.ErrNoRows
		}
		return "", fmt.Errorf("lookup teacher name: %w", err)
	}
	return name, nil
}

const teacherSelect = `
SELECT u.id, u.name, u.email, tp.phone, tp.bio, tp.profile_image
FROM users u
JOIN teacher_profiles tp ON tp.id = u.id`

// List returns teachers that have a profile.
func (r *TeacherRepository) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	where := ` WHERE u.role = 'teacher' AND u.is_deleted = FALSE`
	var args []interface{}
	if filter.Search != "" {
		where += fmt.Sprintf(" AND (LOWER(u.name) LIKE $%d OR LOWER(u.email) LIKE $%d)", len(args)+1, len(args)+1)
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	limit, offset := pageBounds(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("%s%s ORDER BY u.name ASC LIMIT %d OFFSET %d", teacherSelect, where, limit, offset)

	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list teachers: %w", err)
	}

	countQuery := `SELECT COUNT(*) FROM users u JOIN teacher_profiles tp ON tp.id = u.id` + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count teachers: %w", err)
	}
	return teachers, total, nil
}

// FindByID returns a single teacher with profile.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	query := teacherSelect + ` WHERE u.id = $1 AND u.role = 'teacher' AND u.is_deleted = FALSE`
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		if err == sql.ErrNoRows || isMalformedID(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find teacher: %w", err)
	}
	return &teacher, nil
}

// CreateProfile inserts an empty profile unless one exists.
func (r *TeacherRepository) CreateProfile(ctx context.Context, exec sqlx.ExtContext, id string, at time.Time) error {
	const query = `INSERT INTO teacher_profiles (id, created_at) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`
	if _, err := exec.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("create teacher profile: %w", err)
	}
	return nil
}

// UpdateProfile overwrites the editable profile fields.
func (r *TeacherRepository) UpdateProfile(ctx context.Context, profile *models.TeacherProfile) error {
	now := time.Now().UTC()
	profile.UpdatedAt = &now
	const query = `UPDATE teacher_profiles SET phone = :phone, bio = :bio, profile_image = :profile_image, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, profile)
	if err != nil {
		return fmt.Errorf("update teacher profile: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated profile rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
