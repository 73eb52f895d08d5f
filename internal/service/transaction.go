package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lecture-booking-api/internal/models"
	"github.com/noah-isme/lecture-booking-api/internal/repository"
	appErrors "github.com/noah-isme/lecture-booking-api/pkg/errors"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// scopeLocker serialises work on a named scope for the lifetime of the
// transaction passed as exec.
type scopeLocker interface {
	Lock(ctx context.Context, exec sqlx.ExtContext, scope string) error
}

type lectureReader interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Lecture, error)
}

type assignmentReader interface {
	Exists(ctx context.Context, exec sqlx.ExtContext, lectureID, teacherID string) (bool, error)
}

// loadLecture maps a missing or soft-deleted lecture to NOT_FOUND.
func loadLecture(ctx context.Context, lectures lectureReader, exec sqlx.ExtContext, id string) (*models.Lecture, error) {
	lecture, err := lectures.FindByID(ctx, exec, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lecture not found")
		}
		return nil, appErrors.Internal(err, "failed to load lecture")
	}
	if lecture.IsDeleted {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "lecture not found")
	}
	return lecture, nil
}

// teachesLecture reports whether teacherID is the primary or an assigned
// teacher of lecture.
func teachesLecture(ctx context.Context, assignments assignmentReader, exec sqlx.ExtContext, lecture *models.Lecture, teacherID string) (bool, error) {
	if lecture.IsPrimary(teacherID) {
		return true, nil
	}
	if !lecture.IsMultiTeacher {
		return false, nil
	}
	ok, err := assignments.Exists(ctx, exec, lecture.ID, teacherID)
	if err != nil {
		return false, appErrors.Internal(err, "failed to check lecture assignment")
	}
	return ok, nil
}

func commitOrInternal(tx *sqlx.Tx, message string) error {
	if err := tx.Commit(); err != nil {
		return appErrors.Internal(err, message)
	}
	return nil
}

type teacherCandidateLookup interface {
	FindCandidate(ctx context.Context, exec sqlx.ExtContext, id string) (*repository.TeacherCandidate, error)
}

// validTeacher checks that id is a live user holding the teacher role with a
// teacher profile.
func validTeacher(ctx context.Context, teachers teacherCandidateLookup, exec sqlx.ExtContext, id string) error {
	candidate, err := teachers.FindCandidate(ctx, exec, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Internal(err, "failed to load teacher")
	}
	if candidate.Role != models.RoleTeacher {
		return appErrors.Clone(appErrors.ErrPolicy, "user is not a teacher")
	}
	if !candidate.HasProfile {
		return appErrors.Clone(appErrors.ErrPolicy, "teacher profile not found")
	}
	return nil
}
