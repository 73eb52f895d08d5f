package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockUsesTransactionScopedAdvisoryLock(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLockRepository()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("booking:u1:l1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, repo.Lock(context.Background(), tx, BookingScope("u1", "l1")))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockWrapsError(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()

	mock.ExpectExec("pg_advisory_xact_lock").WillReturnError(errors.New("conn reset"))

	err := NewLockRepository().Lock(context.Background(), db, LectureScope("l1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lecture:l1")
}

func TestScopes(t *testing.T) {
	assert.Equal(t, "schedule:l9", ScheduleScope("l9"))
	assert.Equal(t, "lecture:l9", LectureScope("l9"))
	assert.Equal(t, "booking:u1:l9", BookingScope("u1", "l9"))
}
