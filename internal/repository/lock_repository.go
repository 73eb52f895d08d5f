package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// LockRepository serialises work on a logical scope using transaction-scoped
// advisory locks. The lock is released when the surrounding transaction ends.
type LockRepository struct{}

// NewLockRepository constructs the repository.
func NewLockRepository() *LockRepository {
	return &LockRepository{}
}

// Lock blocks until the advisory lock for scope is held by exec's transaction.
func (r *LockRepository) Lock(ctx context.Context, exec sqlx.ExtContext, scope string) error {
	const query = `SELECT pg_advisory_xact_lock(hashtext($1))`
	if _, err := exec.ExecContext(ctx, query, scope); err != nil {
		return fmt.Errorf("advisory lock %s: %w", scope, err)
	}
	return nil
}

// BookingScope serialises admissions of one user on one lecture.
func BookingScope(userID, lectureID string) string {
	return "booking:" + userID + ":" + lectureID
}

// ScheduleScope serialises schedule creation on one lecture.
func ScheduleScope(lectureID string) string {
	return "schedule:" + lectureID
}

// LectureScope serialises staffing changes on one lecture.
func LectureScope(lectureID string) string {
	return "lecture:" + lectureID
}
