package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/lecture-booking-api/internal/dto"
	"github.com/noah-isme/lecture-booking-api/internal/models"
	"github.com/noah-isme/lecture-booking-api/internal/repository"
	appErrors "github.com/noah-isme/lecture-booking-api/pkg/errors"
	"github.com/noah-isme/lecture-booking-api/pkg/timeslot"
)

type scheduleStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, schedule *models.Schedule) error
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Schedule, error)
	ListActive(ctx context.Context) ([]models.ScheduleDetail, error)
	ListActiveByLecture(ctx context.Context, lectureID string) ([]models.Schedule, error)
	Expire(ctx context.Context, exec sqlx.ExtContext, id string) error
	ExpireBefore(ctx context.Context, day time.Time) (int64, error)
}

type lectureAuthorizerTx interface {
	Authorize(ctx context.Context, exec sqlx.ExtContext, actor models.Actor, lecture *models.Lecture) (models.AccessDecision, error)
}

type scheduleConflictChecker interface {
	ScheduleConflict(ctx context.Context, exec sqlx.ExtContext, lectureID string, candidate timeslot.Slot) (*models.Schedule, error)
}

type scheduleCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

var (
	activeSchedulesKey   = repository.Key("schedules", "active")
	schedulesCachePrefix = repository.Key("schedules", "*")
)

func lectureSchedulesKey(lectureID string) string {
	return repository.Key("schedules", "lecture", lectureID)
}

// ScheduleService opens, lists and expires bookable lecture slots.
type ScheduleService struct {
	db          sqlx.ExtContext
	tx          txProvider
	locks       scopeLocker
	schedules   scheduleStore
	lectures    lectureReader
	assignments assignmentReader
	teachers    teacherCandidateLookup
	access      lectureAuthorizerTx
	conflicts   scheduleConflictChecker
	cache       scheduleCache
	validator   *validator.Validate
	metrics     *MetricsService
	logger      *zap.Logger
	location    *time.Location
	now         func() time.Time
}

// ScheduleServiceDeps groups the collaborators of ScheduleService.
type ScheduleServiceDeps struct {
	DB          sqlx.ExtContext
	Tx          txProvider
	Locks       scopeLocker
	Schedules   scheduleStore
	Lectures    lectureReader
	Assignments assignmentReader
	Teachers    teacherCandidateLookup
	Access      lectureAuthorizerTx
	Conflicts   scheduleConflictChecker
	Cache       scheduleCache
	Validator   *validator.Validate
	Metrics     *MetricsService
	Logger      *zap.Logger
	Location    *time.Location
}

// NewScheduleService constructs the service.
func NewScheduleService(deps ScheduleServiceDeps) *ScheduleService {
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	return &ScheduleService{
		db:          deps.DB,
		tx:          deps.Tx,
		locks:       deps.Locks,
		schedules:   deps.Schedules,
		lectures:    deps.Lectures,
		assignments: deps.Assignments,
		teachers:    deps.Teachers,
		access:      deps.Access,
		conflicts:   deps.Conflicts,
		cache:       deps.Cache,
		validator:   deps.Validator,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		location:    deps.Location,
		now:         time.Now,
	}
}

// Create opens a schedule. Teachers schedule themselves on lectures they
// teach; admins schedule any valid teacher of the lecture.
func (s *ScheduleService) Create(ctx context.Context, actor models.Actor, req dto.CreateScheduleRequest) (schedule *models.Schedule, err error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	if actor.Role != models.RoleAdmin && actor.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrForbidden, reasonRoleDenied)
	}

	slot, err := timeslot.NewSlot(req.Date, req.Start, req.End)
	if err != nil {
		return nil, formatError(err)
	}
	if !slot.Valid() {
		return nil, appErrors.Clone(appErrors.ErrFormat, "start must be before end")
	}
	if !timeslot.NotInPast(slot.Date, s.now().In(s.location)) {
		return nil, appErrors.Clone(appErrors.ErrPolicy, "date is in the past")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.locks.Lock(ctx, tx, repository.ScheduleScope(req.LectureID)); err != nil {
		return nil, appErrors.Internal(err, "failed to lock schedule scope")
	}

	lecture, err := loadLecture(ctx, s.lectures, tx, req.LectureID)
	if err != nil {
		return nil, err
	}
	decision, err := s.access.Authorize(ctx, tx, actor, lecture)
	if err != nil {
		return nil, err
	}
	if !decision.Authorized {
		return nil, decision.Err()
	}
	if err = s.checkTeacher(ctx, tx, actor, lecture, req.TeacherID); err != nil {
		return nil, err
	}

	existing, err := s.conflicts.ScheduleConflict(ctx, tx, lecture.ID, slot)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict,
			fmt.Sprintf("schedule overlaps existing slot %s-%s", existing.StartTime, existing.EndTime))
	}

	schedule = &models.Schedule{
		LectureID: lecture.ID,
		TeacherID: req.TeacherID,
		Date:      slot.Date,
		StartTime: slot.Start.String(),
		EndTime:   slot.End.String(),
		CreatedAt: s.now().UTC(),
	}
	if err = s.schedules.Create(ctx, tx, schedule); err != nil {
		return nil, appErrors.Internal(err, "failed to create schedule")
	}
	if err = commitOrInternal(tx, "failed to commit schedule"); err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	s.metrics.RecordScheduleCreated()
	s.logger.Info("schedule created",
		zap.String("schedule_id", schedule.ID),
		zap.String("lecture_id", schedule.LectureID),
		zap.String("teacher_id", schedule.TeacherID),
		zap.String("slot", slot.Interval.String()),
	)
	return schedule, nil
}

// checkTeacher validates the teacher a schedule is opened for.
func (s *ScheduleService) checkTeacher(ctx context.Context, exec sqlx.ExtContext, actor models.Actor, lecture *models.Lecture, teacherID string) error {
	if actor.Role == models.RoleTeacher {
		if teacherID != actor.UserID {
			return appErrors.Clone(appErrors.ErrPolicy, "teachers may only schedule themselves")
		}
		return nil
	}

	if err := validTeacher(ctx, s.teachers, exec, teacherID); err != nil {
		return err
	}
	ok, err := teachesLecture(ctx, s.assignments, exec, lecture, teacherID)
	if err != nil {
		return err
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrPolicy, "teacher does not teach this lecture")
	}
	return nil
}

// ListActive returns every active schedule, served from cache when enabled.
func (s *ScheduleService) ListActive(ctx context.Context) ([]models.ScheduleDetail, error) {
	var cached []models.ScheduleDetail
	if hit, _ := s.cacheGet(ctx, activeSchedulesKey, &cached); hit {
		return cached, nil
	}
	schedules, err := s.schedules.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list schedules")
	}
	if schedules == nil {
		schedules = []models.ScheduleDetail{}
	}
	s.cacheSet(ctx, activeSchedulesKey, schedules)
	return schedules, nil
}

// ListByLecture returns the active schedules of one lecture.
func (s *ScheduleService) ListByLecture(ctx context.Context, lectureID string) ([]models.Schedule, error) {
	if _, err := loadLecture(ctx, s.lectures, s.db, lectureID); err != nil {
		return nil, err
	}
	key := lectureSchedulesKey(lectureID)
	var cached []models.Schedule
	if hit, _ := s.cacheGet(ctx, key, &cached); hit {
		return cached, nil
	}
	schedules, err := s.schedules.ListActiveByLecture(ctx, lectureID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list schedules")
	}
	if schedules == nil {
		schedules = []models.Schedule{}
	}
	s.cacheSet(ctx, key, schedules)
	return schedules, nil
}

// Get returns an active schedule. Expired schedules read as not found.
func (s *ScheduleService) Get(ctx context.Context, id string) (*models.Schedule, error) {
	schedule, err := s.schedules.FindByID(ctx, s.db, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Internal(err, "failed to load schedule")
	}
	if schedule.IsExpired {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
	}
	return schedule, nil
}

// Expire marks one active schedule expired.
func (s *ScheduleService) Expire(ctx context.Context, id string) (schedule *models.Schedule, err error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	schedule, err = s.schedules.FindByID(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Internal(err, "failed to load schedule")
	}
	if !schedule.Status().CanTransitionTo(models.ScheduleExpired) {
		return nil, appErrors.Clone(appErrors.ErrState, "schedule already expired")
	}
	if err = s.schedules.Expire(ctx, tx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrState, "schedule already expired")
		}
		return nil, appErrors.Internal(err, "failed to expire schedule")
	}
	if err = commitOrInternal(tx, "failed to commit schedule expiry"); err != nil {
		return nil, err
	}

	schedule.IsExpired = true
	s.invalidate(ctx)
	s.metrics.RecordSchedulesExpired(1)
	s.logger.Info("schedule expired", zap.String("schedule_id", id))
	return schedule, nil
}

// ExpirePast expires every active schedule dated before the calendar day of now.
func (s *ScheduleService) ExpirePast(ctx context.Context, now time.Time) (int64, error) {
	y, m, d := now.In(s.location).Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	expired, err := s.schedules.ExpireBefore(ctx, today)
	if err != nil {
		return 0, appErrors.Internal(err, "failed to expire schedules")
	}
	if expired > 0 {
		s.invalidate(ctx)
		s.metrics.RecordSchedulesExpired(expired)
	}
	s.logger.Info("schedule sweep finished", zap.Int64("expired", expired), zap.Time("before", today))
	return expired, nil
}

func (s *ScheduleService) cacheGet(ctx context.Context, key string, dest interface{}) (bool, error) {
	if s.cache == nil {
		return false, nil
	}
	return s.cache.Get(ctx, key, dest)
}

func (s *ScheduleService) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Set(ctx, key, value, 0)
}

func (s *ScheduleService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Invalidate(ctx, schedulesCachePrefix)
}
