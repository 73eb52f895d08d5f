package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/lecture-booking-api/internal/dto"
	"github.com/noah-isme/lecture-booking-api/internal/models"
	appErrors "github.com/noah-isme/lecture-booking-api/pkg/errors"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateRole(ctx context.Context, exec sqlx.ExtContext, id string, role models.UserRole, at time.Time) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type teacherProfileCreator interface {
	CreateProfile(ctx context.Context, exec sqlx.ExtContext, id string, at time.Time) error
}

// UserService handles user lookups and role management.
type UserService struct {
	tx        txProvider
	repo      userRepository
	profiles  teacherProfileCreator
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewUserService creates an instance of UserService.
func NewUserService(tx txProvider, repo userRepository, profiles teacherProfileCreator, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{tx: tx, repo: repo, profiles: profiles, validator: validate, logger: logger, now: time.Now}
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, query dto.ListQuery) ([]models.User, *models.Pagination, error) {
	filter := models.UserFilter{Search: strings.TrimSpace(query.Search), Page: query.Page, PageSize: query.PageSize}
	if query.Role != "" {
		role := models.UserRole(strings.ToLower(query.Role))
		if !role.Valid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown role")
		}
		filter.Role = &role
	}

	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list users")
	}
	if users == nil {
		users = []models.User{}
	}
	return users, newPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a user to themselves or to an admin.
func (s *UserService) Get(ctx context.Context, actor models.Actor, id string) (*models.User, error) {
	if actor.UserID != id && !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot view another user")
	}
	return s.load(ctx, id)
}

// ChangeRole assigns a new role. Promotion to teacher creates an empty
// teacher profile in the same transaction.
func (s *UserService) ChangeRole(ctx context.Context, actor models.Actor, id string, req dto.ChangeRoleRequest) (user *models.User, err error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid role payload")
	}
	if actor.UserID == id {
		return nil, appErrors.Clone(appErrors.ErrPolicy, "cannot change your own role")
	}
	role := models.UserRole(req.Role)

	user, err = s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role == role {
		return nil, appErrors.Clone(appErrors.ErrPolicy, fmt.Sprintf("user already has role %s", role))
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

	at := s.now().UTC()
	if err = s.repo.UpdateRole(ctx, tx, id, role, at); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to change role")
	}
	if role == models.RoleTeacher {
		if err = s.profiles.CreateProfile(ctx, tx, id, at); err != nil {
			return nil, appErrors.Internal(err, "failed to create teacher profile")
		}
	}
	if err = commitOrInternal(tx, "failed to commit role change"); err != nil {
		return nil, err
	}

	previous := user.Role
	user.Role = role
	user.UpdatedAt = &at

	payload, _ := json.Marshal(map[string]interface{}{"from": previous, "to": role})
	actorID := actor.UserID
	if auditErr := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionRoleChange,
		Resource:   "users",
		ResourceID: &user.ID,
		NewValues:  payload,
		CreatedAt:  at,
	}); auditErr != nil {
		s.logger.Warn("failed to record role change audit log", zap.Error(auditErr))
	}

	s.logger.Info("user role changed", zap.String("user_id", id), zap.String("from", string(previous)), zap.String("to", string(role)))
	return user, nil
}

func (s *UserService) load(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}
	return user, nil
}

// newPagination echoes the paging the repositories applied.
func newPagination(page, pageSize, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}
	return &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}
}
