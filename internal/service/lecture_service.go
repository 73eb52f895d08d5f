package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/lecture-booking-api/internal/dto"
	"github.com/noah-isme/lecture-booking-api/internal/models"
	"github.com/noah-isme/lecture-booking-api/internal/repository"
	appErrors "github.com/noah-isme/lecture-booking-api/pkg/errors"
)

type lectureStore interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Lecture, error)
	Create(ctx context.Context, exec sqlx.ExtContext, lecture *models.Lecture) error
	UpdateTeacher(ctx context.Context, exec sqlx.ExtContext, id, teacherID string, at time.Time) error
	List(ctx context.Context, filter models.LectureFilter) ([]models.LectureListItem, int, error)
	FindDetail(ctx context.Context, id string) (*models.LectureDetail, error)
}

type lectureTeacherStore interface {
	Exists(ctx context.Context, exec sqlx.ExtContext, lectureID, teacherID string) (bool, error)
	Create(ctx context.Context, exec sqlx.ExtContext, assignment *models.LectureTeacher) error
	Delete(ctx context.Context, exec sqlx.ExtContext, lectureID, teacherID string) error
	ListByLecture(ctx context.Context, lectureID string) ([]models.LectureTeacher, error)
}

type teacherDirectory interface {
	FindCandidate(ctx context.Context, exec sqlx.ExtContext, id string) (*repository.TeacherCandidate, error)
	ProfileExists(ctx context.Context, exec sqlx.ExtContext, id string) (bool, error)
	LookupName(ctx context.Context, id string) (string, error)
}

func lectureTeachersKey(lectureID string) string {
	return repository.Key("lectures", lectureID, "teachers")
}

// LectureService creates lectures and manages their teaching staff.
type LectureService struct {
	db          sqlx.ExtContext
	tx          txProvider
	locks       scopeLocker
	lectures    lectureStore
	assignments lectureTeacherStore
	teachers    teacherDirectory
	access      lectureAuthorizerTx
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// LectureServiceDeps groups the collaborators of LectureService.
type LectureServiceDeps struct {
	DB          sqlx.ExtContext
	Tx          txProvider
	Locks       scopeLocker
	Lectures    lectureStore
	Assignments lectureTeacherStore
	Teachers    teacherDirectory
	Access      lectureAuthorizerTx
	Cache       *CacheService
	Validator   *validator.Validate
	Logger      *zap.Logger
}

// NewLectureService constructs the service.
func NewLectureService(deps LectureServiceDeps) *LectureService {
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &LectureService{
		db:          deps.DB,
		tx:          deps.Tx,
		locks:       deps.Locks,
		lectures:    deps.Lectures,
		assignments: deps.Assignments,
		teachers:    deps.Teachers,
		access:      deps.Access,
		cache:       deps.Cache,
		validator:   deps.Validator,
		logger:      deps.Logger,
		now:         time.Now,
	}
}

// Create stores a pending lecture. Teachers may only create single-teacher
// lectures for themselves; admins pick any valid teacher.
func (s *LectureService) Create(ctx context.Context, actor models.Actor, req dto.CreateLectureRequest) (*models.Lecture, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lecture payload")
	}

	teacherID := ""
	if req.TeacherID != nil {
		teacherID = strings.TrimSpace(*req.TeacherID)
	}

	switch actor.Role {
	case models.RoleTeacher:
		hasProfile, err := s.teachers.ProfileExists(ctx, s.db, actor.UserID)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to check teacher profile")
		}
		if !hasProfile {
			return nil, appErrors.Clone(appErrors.ErrPolicy, "teacher profile required to create lectures")
		}
		if teacherID == "" {
			return nil, appErrors.Clone(appErrors.ErrPolicy, "teacher_id is required")
		}
		if teacherID != actor.UserID {
			return nil, appErrors.Clone(appErrors.ErrPolicy, "teachers must name themselves as teacher_id")
		}
		if req.IsMultiTeacher {
			return nil, appErrors.Clone(appErrors.ErrPolicy, "only admins may create multi-teacher lectures")
		}
	case models.RoleAdmin:
		if teacherID == "" {
			return nil, appErrors.Clone(appErrors.ErrPolicy, "teacher_id is required")
		}
		if err := validTeacher(ctx, s.teachers, s.db, teacherID); err != nil {
			return nil, err
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, reasonRoleDenied)
	}

	lecture := &models.Lecture{
		Title:          req.Title,
		Description:    req.Description,
		TeacherID:      teacherID,
		ApprovalStatus: models.ApprovalPending,
		IsMultiTeacher: req.IsMultiTeacher,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.lectures.Create(ctx, s.db, lecture); err != nil {
		return nil, appErrors.Internal(err, "failed to create lecture")
	}

	s.logger.Info("lecture created",
		zap.String("lecture_id", lecture.ID),
		zap.String("teacher_id", lecture.TeacherID),
		zap.Bool("multi_teacher", lecture.IsMultiTeacher),
	)
	return lecture, nil
}

// List returns lectures matching the query.
func (s *LectureService) List(ctx context.Context, query dto.LectureListQuery) ([]models.LectureListItem, *models.Pagination, error) {
	filter := models.LectureFilter{
		TeacherID: query.TeacherID,
		Search:    strings.TrimSpace(query.Search),
		Page:      query.Page,
		PageSize:  query.PageSize,
	}
	if query.ApprovalStatus != "" {
		status := models.ApprovalStatus(strings.ToLower(query.ApprovalStatus))
		switch status {
		case models.ApprovalPending, models.ApprovalApproved, models.ApprovalRejected:
			filter.ApprovalStatus = &status
		default:
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown approval_status")
		}
	}

	items, total, err := s.lectures.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list lectures")
	}
	if items == nil {
		items = []models.LectureListItem{}
	}
	return items, newPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a lecture with its primary teacher's profile.
func (s *LectureService) Get(ctx context.Context, id string) (*models.LectureDetail, error) {
	detail, err := s.lectures.FindDetail(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lecture not found")
		}
		return nil, appErrors.Internal(err, "failed to load lecture")
	}
	return detail, nil
}

// ChangeTeacher replaces the primary teacher. On multi-teacher lectures the
// new primary must already be assigned; the rows are swapped so the old
// primary keeps access as an assigned teacher.
func (s *LectureService) ChangeTeacher(ctx context.Context, actor models.Actor, lectureID string, req dto.ChangeLectureTeacherRequest) (lecture *models.Lecture, err error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher change payload")
	}
	newTeacherID := strings.TrimSpace(req.NewTeacherID)

	tx, lecture, err := s.beginStaffing(ctx, actor, lectureID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if lecture.IsPrimary(newTeacherID) {
		return nil, appErrors.Clone(appErrors.ErrPolicy, "teacher is already the primary teacher")
	}
	if lecture.IsMultiTeacher {
		assigned, err := s.assignments.Exists(ctx, tx, lecture.ID, newTeacherID)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to check lecture assignment")
		}
		if !assigned {
			return nil, appErrors.Clone(appErrors.ErrPolicy, "new primary teacher must already be assigned to the lecture")
		}
	}
	if err = validTeacher(ctx, s.teachers, tx, newTeacherID); err != nil {
		return nil, err
	}

	at := s.now().UTC()
	previous := lecture.TeacherID
	if err = s.lectures.UpdateTeacher(ctx, tx, lecture.ID, newTeacherID, at); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lecture not found")
		}
		return nil, appErrors.Internal(err, "failed to change lecture teacher")
	}
	if lecture.IsMultiTeacher {
		if err = s.assignments.Delete(ctx, tx, lecture.ID, newTeacherID); err != nil {
			return nil, appErrors.Internal(err, "failed to promote assigned teacher")
		}
		err = s.assignments.Create(ctx, tx, &models.LectureTeacher{LectureID: lecture.ID, TeacherID: previous, CreatedAt: at})
		if err != nil && !errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Internal(err, "failed to keep previous primary teacher")
		}
		err = nil
	}
	if err = commitOrInternal(tx, "failed to commit teacher change"); err != nil {
		return nil, err
	}

	lecture.TeacherID = newTeacherID
	lecture.UpdatedAt = &at
	s.cache.Evict(ctx, lectureTeachersKey(lecture.ID))
	s.logger.Info("lecture teacher changed",
		zap.String("lecture_id", lecture.ID),
		zap.String("previous_teacher_id", previous),
		zap.String("teacher_id", newTeacherID),
	)
	return lecture, nil
}

// AddTeacher assigns an additional teacher to a multi-teacher lecture.
func (s *LectureService) AddTeacher(ctx context.Context, actor models.Actor, lectureID string, req dto.AddLectureTeacherRequest) (assignment *models.LectureTeacher, err error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	teacherID := strings.TrimSpace(req.TeacherID)

	tx, lecture, err := s.beginStaffing(ctx, actor, lectureID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if !lecture.IsMultiTeacher {
		return nil, appErrors.Clone(appErrors.ErrPolicy, "lecture is not multi-teacher")
	}
	if err = validTeacher(ctx, s.teachers, tx, teacherID); err != nil {
		return nil, err
	}
	if lecture.IsPrimary(teacherID) {
		return nil, appErrors.Clone(appErrors.ErrPolicy, "teacher is already the primary teacher")
	}
	assigned, err := s.assignments.Exists(ctx, tx, lecture.ID, teacherID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check lecture assignment")
	}
	if assigned {
		return nil, appErrors.Clone(appErrors.ErrConflict, "teacher already assigned to lecture")
	}

	assignment = &models.LectureTeacher{LectureID: lecture.ID, TeacherID: teacherID, CreatedAt: s.now().UTC()}
	if err = s.assignments.Create(ctx, tx, assignment); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "teacher already assigned to lecture")
		}
		return nil, appErrors.Internal(err, "failed to assign teacher")
	}
	if err = commitOrInternal(tx, "failed to commit assignment"); err != nil {
		return nil, err
	}

	s.cache.Evict(ctx, lectureTeachersKey(lecture.ID))
	s.logger.Info("lecture teacher assigned", zap.String("lecture_id", lecture.ID), zap.String("teacher_id", teacherID))
	return assignment, nil
}

// RemoveTeacher drops an assigned teacher. The primary teacher can only be
// replaced through ChangeTeacher.
func (s *LectureService) RemoveTeacher(ctx context.Context, actor models.Actor, lectureID, teacherID string) (err error) {
	tx, lecture, err := s.beginStaffing(ctx, actor, lectureID)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if lecture.IsPrimary(teacherID) {
		return appErrors.Clone(appErrors.ErrPolicy, "primary teacher cannot be removed; change the primary teacher instead")
	}
	if !lecture.IsMultiTeacher {
		return appErrors.Clone(appErrors.ErrPolicy, "lecture is not multi-teacher")
	}
	if err = s.assignments.Delete(ctx, tx, lecture.ID, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher assignment not found")
		}
		return appErrors.Internal(err, "failed to remove assignment")
	}
	if err = commitOrInternal(tx, "failed to commit assignment removal"); err != nil {
		return err
	}

	s.cache.Evict(ctx, lectureTeachersKey(lecture.ID))
	s.logger.Info("lecture teacher removed", zap.String("lecture_id", lecture.ID), zap.String("teacher_id", teacherID))
	return nil
}

// ListTeachers lists the primary teacher followed by the assigned teachers of
// a multi-teacher lecture.
func (s *LectureService) ListTeachers(ctx context.Context, lectureID string) ([]models.LectureTeacherView, error) {
	lecture, err := loadLecture(ctx, s.lectures, s.db, lectureID)
	if err != nil {
		return nil, err
	}
	if !lecture.IsMultiTeacher {
		return nil, appErrors.Clone(appErrors.ErrPolicy, "lecture is not multi-teacher")
	}

	key := lectureTeachersKey(lecture.ID)
	var cached []models.LectureTeacherView
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	assignments, err := s.assignments.ListByLecture(ctx, lecture.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list lecture teachers")
	}

	views := make([]models.LectureTeacherView, 0, len(assignments)+1)
	ids := append([]string{lecture.TeacherID}, assignmentTeacherIDs(assignments)...)
	for i, id := range ids {
		name, err := s.teachers.LookupName(ctx, id)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Internal(err, "failed to look up teacher name")
		}
		views = append(views, models.LectureTeacherView{TeacherID: id, TeacherName: name, IsPrimary: i == 0})
	}

	_ = s.cache.Set(ctx, key, views, 0)
	return views, nil
}

// beginStaffing opens a transaction serialised on the lecture and loads it.
// Staff changes are admin-only; a lecture's own teachers are refused.
func (s *LectureService) beginStaffing(ctx context.Context, actor models.Actor, lectureID string) (*sqlx.Tx, *models.Lecture, error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to begin transaction")
	}
	fail := func(err error) (*sqlx.Tx, *models.Lecture, error) {
		_ = tx.Rollback()
		return nil, nil, err
	}
	if !actor.IsAdmin() {
		return fail(appErrors.Clone(appErrors.ErrForbidden, "only admins may manage lecture staff"))
	}

	if err := s.locks.Lock(ctx, tx, repository.LectureScope(lectureID)); err != nil {
		return fail(appErrors.Internal(err, "failed to lock lecture"))
	}
	lecture, err := loadLecture(ctx, s.lectures, tx, lectureID)
	if err != nil {
		return fail(err)
	}
	decision, err := s.access.Authorize(ctx, tx, actor, lecture)
	if err != nil {
		return fail(err)
	}
	if !decision.Authorized {
		return fail(decision.Err())
	}
	return tx, lecture, nil
}

func assignmentTeacherIDs(assignments []models.LectureTeacher) []string {
	ids := make([]string, 0, len(assignments))
	for _, a := range assignments {
		ids = append(ids, a.TeacherID)
	}
	return ids
}
