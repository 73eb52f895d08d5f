package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lecture-booking-api/internal/dto"
	"github.com/noah-isme/lecture-booking-api/internal/models"
	appErrors "github.com/noah-isme/lecture-booking-api/pkg/errors"
)

type teacherServiceMock struct {
	err       error
	lastQuery dto.ListQuery
	lastReq   dto.UpdateTeacherProfileRequest
}

func (m *teacherServiceMock) List(ctx context.Context, query dto.ListQuery) ([]models.Teacher, *models.Pagination, error) {
	m.lastQuery = query
	return []models.Teacher{{ID: "T1", Name: "Ada"}}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, m.err
}

func (m *teacherServiceMock) Get(ctx context.Context, id string) (*models.Teacher, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.Teacher{ID: id}, nil
}

func (m *teacherServiceMock) UpdateProfile(ctx context.Context, actor models.Actor, req dto.UpdateTeacherProfileRequest) (*models.Teacher, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.Teacher{ID: actor.UserID, Bio: req.Bio}, nil
}

func TestTeacherHandlerList(t *testing.T) {
	mockSvc := &teacherServiceMock{}
	handler := NewTeacherHandler(mockSvc)
	c, w := newTestContext(http.MethodGet, "/teachers?q=ada&page_size=5", "", studentClaims)

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ada", mockSvc.lastQuery.Search)
	assert.Equal(t, 5, mockSvc.lastQuery.PageSize)
}

func TestTeacherHandlerGetNotFound(t *testing.T) {
	handler := NewTeacherHandler(&teacherServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "teacher not found")})
	c, w := newTestContext(http.MethodGet, "/teachers/T9", "", studentClaims, gin.Param{Key: "id", Value: "T9"})

	handler.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTeacherHandlerUpdateProfile(t *testing.T) {
	mockSvc := &teacherServiceMock{}
	handler := NewTeacherHandler(mockSvc)
	c, w := newTestContext(http.MethodPut, "/teachers/me/profile", `{"bio":"Distributed systems"}`, teacherClaims)

	handler.UpdateProfile(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mockSvc.lastReq.Bio)
	assert.Equal(t, "Distributed systems", *mockSvc.lastReq.Bio)

	c, w = newTestContext(http.MethodPut, "/teachers/me/profile", `{"bio":`, teacherClaims)
	handler.UpdateProfile(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
