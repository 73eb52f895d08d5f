package service

import (
	"context"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/lecture-booking-api/internal/models"
)

const (
	reasonNotAuthorized = "not authorized for this lecture"
	reasonRoleDenied    = "role not permitted"
)

// LectureAccessService decides whether an actor may act on a lecture.
type LectureAccessService struct {
	db          sqlx.ExtContext
	lectures    lectureReader
	assignments assignmentReader
	logger      *zap.Logger
}

// NewLectureAccessService constructs the resolver. db is used when the caller
// has no transaction of its own.
func NewLectureAccessService(db sqlx.ExtContext, lectures lectureReader, assignments assignmentReader, logger *zap.Logger) *LectureAccessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LectureAccessService{db: db, lectures: lectures, assignments: assignments, logger: logger}
}

// Resolve evaluates actor against lectureID inside exec. A missing lecture is
// reported as an error rather than a decision.
func (s *LectureAccessService) Resolve(ctx context.Context, exec sqlx.ExtContext, actor models.Actor, lectureID string) (models.AccessDecision, error) {
	lecture, err := loadLecture(ctx, s.lectures, exec, lectureID)
	if err != nil {
		return models.AccessDecision{}, err
	}
	return s.Authorize(ctx, exec, actor, lecture)
}

// ResolveAuthorization is the standalone form of Resolve.
func (s *LectureAccessService) ResolveAuthorization(ctx context.Context, actorID string, role models.UserRole, lectureID string) (models.AccessDecision, error) {
	return s.Resolve(ctx, s.db, models.Actor{UserID: actorID, Role: role}, lectureID)
}

// Authorize evaluates actor against an already loaded lecture.
func (s *LectureAccessService) Authorize(ctx context.Context, exec sqlx.ExtContext, actor models.Actor, lecture *models.Lecture) (models.AccessDecision, error) {
	switch actor.Role {
	case models.RoleAdmin:
		return models.Authorized(), nil
	case models.RoleTeacher:
		ok, err := teachesLecture(ctx, s.assignments, exec, lecture, actor.UserID)
		if err != nil {
			return models.AccessDecision{}, err
		}
		if ok {
			return models.Authorized(), nil
		}
		s.logger.Debug("lecture access denied",
			zap.String("lecture_id", lecture.ID),
			zap.String("actor_id", actor.UserID),
		)
		return models.Forbidden(reasonNotAuthorized), nil
	default:
		return models.Forbidden(reasonRoleDenied), nil
	}
}
