package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lecture-booking-api/internal/dto"
	"github.com/noah-isme/lecture-booking-api/internal/models"
	appErrors "github.com/noah-isme/lecture-booking-api/pkg/errors"
	"github.com/noah-isme/lecture-booking-api/pkg/response"
)

type lectureService interface {
	Create(ctx context.Context, actor models.Actor, req dto.CreateLectureRequest) (*models.Lecture, error)
	List(ctx context.Context, query dto.LectureListQuery) ([]models.LectureListItem, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.LectureDetail, error)
	ChangeTeacher(ctx context.Context, actor models.Actor, lectureID string, req dto.ChangeLectureTeacherRequest) (*models.Lecture, error)
	AddTeacher(ctx context.Context, actor models.Actor, lectureID string, req dto.AddLectureTeacherRequest) (*models.LectureTeacher, error)
	RemoveTeacher(ctx context.Context, actor models.Actor, lectureID, teacherID string) error
	ListTeachers(ctx context.Context, lectureID string) ([]models.LectureTeacherView, error)
}

type accessResolver interface {
	ResolveAuthorization(ctx context.Context, actorID string, role models.UserRole, lectureID string) (models.AccessDecision, error)
}

// LectureHandler exposes lecture creation and staffing endpoints.
type LectureHandler struct {
	lectures lectureService
	access   accessResolver
}

// NewLectureHandler constructs a LectureHandler.
func NewLectureHandler(lectures lectureService, access accessResolver) *LectureHandler {
	return &LectureHandler{lectures: lectures, access: access}
}

// Create godoc
// @Summary Create lecture
// @Description Teachers create single-teacher lectures for themselves; admins may pick any teacher and multi-teacher mode
// @Tags Lectures
// @Accept json
// @Produce json
// @Param payload body dto.CreateLectureRequest true "Lecture payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /lectures [post]
func (h *LectureHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateLectureRequest
	if !bindJSON(c, &req, "invalid lecture payload") {
		return
	}

	lecture, err := h.lectures.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lecture)
}

// List godoc
// @Summary List lectures
// @Tags Lectures
// @Produce json
// @Param teacher_id query string false "Primary teacher"
// @Param approval_status query string false "pending, approved or rejected"
// @Param q query string false "Title search"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /lectures [get]
func (h *LectureHandler) List(c *gin.Context) {
	var query dto.LectureListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}

	items, pagination, err := h.lectures.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get lecture
// @Tags Lectures
// @Produce json
// @Param id path string true "Lecture ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /lectures/{id} [get]
func (h *LectureHandler) Get(c *gin.Context) {
	detail, err := h.lectures.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// ChangeTeacher godoc
// @Summary Replace the primary teacher
// @Tags Lectures
// @Accept json
// @Produce json
// @Param id path string true "Lecture ID"
// @Param payload body dto.ChangeLectureTeacherRequest true "New primary teacher"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /lectures/{id}/teacher [patch]
func (h *LectureHandler) ChangeTeacher(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.ChangeLectureTeacherRequest
	if !bindJSON(c, &req, "invalid teacher change payload") {
		return
	}

	lecture, err := h.lectures.ChangeTeacher(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.LectureTeacherResponse{
		Message:           "lecture teacher changed",
		LectureID:         lecture.ID,
		AffectedTeacherID: lecture.TeacherID,
	}, nil)
}

// AddTeacher godoc
// @Summary Assign an additional teacher
// @Tags Lectures
// @Accept json
// @Produce json
// @Param id path string true "Lecture ID"
// @Param payload body dto.AddLectureTeacherRequest true "Teacher to assign"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /lectures/{id}/teachers [post]
func (h *LectureHandler) AddTeacher(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.AddLectureTeacherRequest
	if !bindJSON(c, &req, "invalid assignment payload") {
		return
	}

	assignment, err := h.lectures.AddTeacher(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.LectureTeacherResponse{
		Message:           "teacher assigned",
		LectureID:         assignment.LectureID,
		AffectedTeacherID: assignment.TeacherID,
	})
}

// RemoveTeacher godoc
// @Summary Remove an assigned teacher
// @Tags Lectures
// @Produce json
// @Param id path string true "Lecture ID"
// @Param teacherId path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /lectures/{id}/teachers/{teacherId} [delete]
func (h *LectureHandler) RemoveTeacher(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	lectureID, teacherID := c.Param("id"), c.Param("teacherId")

	if err := h.lectures.RemoveTeacher(c.Request.Context(), actor, lectureID, teacherID); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.LectureTeacherResponse{
		Message:           "teacher removed",
		LectureID:         lectureID,
		AffectedTeacherID: teacherID,
	}, nil)
}

// ListTeachers godoc
// @Summary List the teachers of a multi-teacher lecture
// @Tags Lectures
// @Produce json
// @Param id path string true "Lecture ID"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /lectures/{id}/teachers [get]
func (h *LectureHandler) ListTeachers(c *gin.Context) {
	views, err := h.lectures.ListTeachers(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, nil)
}

// Access godoc
// @Summary Resolve the caller's access to a lecture
// @Tags Lectures
// @Produce json
// @Param id path string true "Lecture ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /lectures/{id}/access [get]
func (h *LectureHandler) Access(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	decision, err := h.access.ResolveAuthorization(c.Request.Context(), actor.UserID, actor.Role, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, decision, nil)
}
