package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lecture-booking-api/pkg/jobs"
)

// JobTypeExpireSchedules identifies periodic schedule sweeps.
const JobTypeExpireSchedules = "expire_schedules"

type pastScheduleExpirer interface {
	ExpirePast(ctx context.Context, now time.Time) (int64, error)
}

// ScheduleExpiryJob builds the sweep job for a tick.
func ScheduleExpiryJob(tick time.Time) jobs.Job {
	return jobs.Job{
		ID:      fmt.Sprintf("%s-%d", JobTypeExpireSchedules, tick.Unix()),
		Type:    JobTypeExpireSchedules,
		Payload: tick,
	}
}

// NewScheduleExpiryHandler adapts the schedule service to the job queue. The
// sweep uses the tick carried by the job so retries judge the same day.
func NewScheduleExpiryHandler(expirer pastScheduleExpirer, logger *zap.Logger) jobs.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, job jobs.Job) error {
		if job.Type != JobTypeExpireSchedules {
			return fmt.Errorf("unexpected job type %q", job.Type)
		}
		tick, ok := job.Payload.(time.Time)
		if !ok {
			tick = time.Now().UTC()
		}
		expired, err := expirer.ExpirePast(ctx, tick)
		if err != nil {
			return err
		}
		logger.Debug("schedule expiry job done", zap.String("job_id", job.ID), zap.Int64("expired", expired))
		return nil
	}
}
