package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/lecture-booking-api/internal/models"
	"github.com/noah-isme/lecture-booking-api/internal/repository"
	appErrors "github.com/noah-isme/lecture-booking-api/pkg/errors"
)

type mockAuthRepo struct {
	users          map[string]*models.User
	findByEmailErr error
	createErr      error
	auditLogs      []*models.AuditLog
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findByEmailErr != nil {
		return nil, m.findByEmailErr
	}
	user, ok := m.users[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *user
	return &cp, nil
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.users == nil {
		m.users = make(map[string]*models.User)
	}
	if _, exists := m.users[user.Email]; exists {
		return repository.ErrDuplicate
	}
	cp := *user
	m.users[user.Email] = &cp
	return nil
}

func (m *mockAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func newAuthService(repo *mockAuthRepo) *AuthService {
	return NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret: "secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "lecture-booking-api",
	})
}

func TestAuthServiceRegister(t *testing.T) {
	repo := &mockAuthRepo{}
	svc := newAuthService(repo)

	info, err := svc.Register(context.Background(), models.RegisterRequest{Email: " New@Example.com ", Password1: "password1", Password2: "password1"})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", info.Email)
	assert.Equal(t, models.RoleStudent, info.Role)
	assert.Equal(t, "user-"+info.ID[:8], info.Name)

	stored := repo.users["new@example.com"]
	require.NotNil(t, stored)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("password1")))
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionRegister, repo.auditLogs[0].Action)
}

func TestAuthServiceRegisterRejections(t *testing.T) {
	repo := &mockAuthRepo{users: map[string]*models.User{"taken@example.com": {ID: "u1", Email: "taken@example.com"}}}
	svc := newAuthService(repo)

	_, err := svc.Register(context.Background(), models.RegisterRequest{Email: "a@example.com", Password1: "password1", Password2: "password2"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Register(context.Background(), models.RegisterRequest{Email: "a@example.com", Password1: "short", Password2: "short"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Register(context.Background(), models.RegisterRequest{Email: "taken@example.com", Password1: "password1", Password2: "password1"})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	password, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	repo := &mockAuthRepo{users: map[string]*models.User{
		"user@example.com": {ID: "123", Name: "User", Email: "user@example.com", PasswordHash: string(password), Role: models.RoleTeacher},
	}}
	svc := newAuthService(repo)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "USER@example.com", Password: "password", IP: "10.0.0.1"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, "Bearer", res.TokenType)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.Equal(t, models.RoleTeacher, res.User.Role)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionLogin, repo.auditLogs[0].Action)
	assert.Equal(t, "10.0.0.1", repo.auditLogs[0].IPAddress)
}

func TestAuthServiceLoginFailures(t *testing.T) {
	password, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	repo := &mockAuthRepo{users: map[string]*models.User{
		"user@example.com": {ID: "123", Email: "user@example.com", PasswordHash: string(password), Role: models.RoleStudent},
	}}
	svc := newAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "wrong"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "nobody@example.com", Password: "password"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))

	repo.findByEmailErr = errors.New("db down")
	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password"})
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
	assert.Empty(t, repo.auditLogs)
}

func TestValidateToken(t *testing.T) {
	svc := newAuthService(&mockAuthRepo{})
	user := &models.User{ID: "u1", Email: "user@example.com", Role: models.RoleAdmin}
	token, _, err := svc.generateAccessToken(user)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, models.Actor{UserID: "u1", Role: models.RoleAdmin}, claims.Actor())
}

func TestValidateTokenRejects(t *testing.T) {
	svc := newAuthService(&mockAuthRepo{})

	other := NewAuthService(&mockAuthRepo{}, nil, nil, AuthConfig{AccessTokenSecret: "other"})
	foreign, _, err := other.generateAccessToken(&models.User{ID: "u1", Role: models.RoleAdmin})
	require.NoError(t, err)
	_, err = svc.ValidateToken(foreign)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _, err := svc.generateAccessToken(&models.User{ID: "u1", Role: models.RoleAdmin})
	require.NoError(t, err)
	svc.now = time.Now
	_, err = svc.ValidateToken(expired)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	unknownRole, _, err := svc.generateAccessToken(&models.User{ID: "u1", Role: models.UserRole("guest")})
	require.NoError(t, err)
	_, err = svc.ValidateToken(unknownRole)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.ValidateToken(unsigned)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}
