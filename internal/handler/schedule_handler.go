package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lecture-booking-api/internal/dto"
	"github.com/noah-isme/lecture-booking-api/internal/models"
	"github.com/noah-isme/lecture-booking-api/pkg/response"
)

type scheduleService interface {
	Create(ctx context.Context, actor models.Actor, req dto.CreateScheduleRequest) (*models.Schedule, error)
	ListActive(ctx context.Context) ([]models.ScheduleDetail, error)
	ListByLecture(ctx context.Context, lectureID string) ([]models.Schedule, error)
	Get(ctx context.Context, id string) (*models.Schedule, error)
	Expire(ctx context.Context, id string) (*models.Schedule, error)
}

// ScheduleHandler exposes bookable slot endpoints.
type ScheduleHandler struct {
	schedules scheduleService
}

// NewScheduleHandler constructs a ScheduleHandler.
func NewScheduleHandler(schedules scheduleService) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules}
}

// Create godoc
// @Summary Open a schedule slot
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.CreateScheduleRequest true "Slot on YYYY-MM-DD with HH:MM bounds"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /schedules [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateScheduleRequest
	if !bindJSON(c, &req, "invalid schedule payload") {
		return
	}

	schedule, err := h.schedules.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.CreateScheduleResponse{Message: "schedule created", ScheduleID: schedule.ID})
}

// ListActive godoc
// @Summary List active schedules
// @Tags Schedules
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *ScheduleHandler) ListActive(c *gin.Context) {
	schedules, err := h.schedules.ListActive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, nil)
}

// ListByLecture godoc
// @Summary List a lecture's active schedules
// @Tags Schedules
// @Produce json
// @Param lectureId path string true "Lecture ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/lecture/{lectureId} [get]
func (h *ScheduleHandler) ListByLecture(c *gin.Context) {
	schedules, err := h.schedules.ListByLecture(c.Request.Context(), c.Param("lectureId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, nil)
}

// Get godoc
// @Summary Get schedule
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/{id} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	schedule, err := h.schedules.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Expire godoc
// @Summary Expire a schedule
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/{id}/expire [patch]
func (h *ScheduleHandler) Expire(c *gin.Context) {
	schedule, err := h.schedules.Expire(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}
