package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lecture-booking-api/pkg/jobs"
)

type expirerStub struct {
	calls []time.Time
	err   error
}

func (s *expirerStub) ExpirePast(ctx context.Context, now time.Time) (int64, error) {
	s.calls = append(s.calls, now)
	return 2, s.err
}

func TestScheduleExpiryJob(t *testing.T) {
	tick := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	job := ScheduleExpiryJob(tick)

	assert.Equal(t, JobTypeExpireSchedules, job.Type)
	assert.Equal(t, "expire_schedules-1717200000", job.ID)
	assert.Equal(t, tick, job.Payload)
}

func TestScheduleExpiryHandlerUsesTick(t *testing.T) {
	stub := &expirerStub{}
	handler := NewScheduleExpiryHandler(stub, nil)
	tick := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, handler(context.Background(), ScheduleExpiryJob(tick)))
	require.Len(t, stub.calls, 1)
	assert.Equal(t, tick, stub.calls[0])
}

func TestScheduleExpiryHandlerErrors(t *testing.T) {
	stub := &expirerStub{err: errors.New("db down")}
	handler := NewScheduleExpiryHandler(stub, nil)

	err := handler(context.Background(), ScheduleExpiryJob(time.Now()))
	assert.EqualError(t, err, "db down")

	err = handler(context.Background(), jobs.Job{Type: "other"})
	assert.Error(t, err)
	assert.Len(t, stub.calls, 1)
}
