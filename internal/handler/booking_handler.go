package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lecture-booking-api/internal/dto"
	"github.com/noah-isme/lecture-booking-api/internal/models"
	"github.com/noah-isme/lecture-booking-api/internal/service"
	"github.com/noah-isme/lecture-booking-api/pkg/response"
)

type bookingService interface {
	Create(ctx context.Context, actor models.Actor, req dto.CreateBookingRequest) (*models.AdmissionDecision, error)
	Cancel(ctx context.Context, bookingID string, actor models.Actor) (*models.Booking, error)
	ListByLecture(ctx context.Context, actor models.Actor, lectureID string) ([]models.BookingListItem, error)
	ListAll(ctx context.Context) ([]models.BookingListItem, error)
	Stats(ctx context.Context) (*models.BookingStats, error)
	Export(ctx context.Context, format string) (*service.ExportFile, error)
}

// BookingHandler exposes student bookings and the admin booking ledger.
type BookingHandler struct {
	bookings bookingService
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(bookings bookingService) *BookingHandler {
	return &BookingHandler{bookings: bookings}
}

// Create godoc
// @Summary Book a lecture slot
// @Description Rejections report the first violated rule as the error and every violation under meta.reasons
// @Tags Bookings
// @Accept json
// @Produce json
// @Param payload body dto.CreateBookingRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /bookings/register [post]
func (h *BookingHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateBookingRequest
	if !bindJSON(c, &req, "invalid booking payload") {
		return
	}

	decision, err := h.bookings.Create(c.Request.Context(), actor, req)
	if err != nil {
		if decision != nil && len(decision.Reasons) > 1 {
			response.ErrorWithMeta(c, err, map[string]interface{}{"reasons": decision.Reasons})
			return
		}
		response.Error(c, err)
		return
	}
	response.Created(c, dto.CreateBookingResponse{
		Message:   "booking created",
		BookingID: decision.BookingID,
		Status:    string(models.BookingPending),
	})
}

// Cancel godoc
// @Summary Cancel own pending booking
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bookings/cancel/{id} [put]
func (h *BookingHandler) Cancel(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	booking, err := h.bookings.Cancel(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.CancelBookingResponse{Message: "booking cancelled", BookingID: booking.ID}, nil)
}

// ListByLecture godoc
// @Summary List a lecture's bookings
// @Tags Bookings
// @Produce json
// @Param lectureId path string true "Lecture ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /bookings/lecture/{lectureId} [get]
func (h *BookingHandler) ListByLecture(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	items, err := h.bookings.ListByLecture(c.Request.Context(), actor, c.Param("lectureId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// ListAll godoc
// @Summary List every booking
// @Tags Bookings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /bookings/all [get]
func (h *BookingHandler) ListAll(c *gin.Context) {
	items, err := h.bookings.ListAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Stats godoc
// @Summary Booking totals by status and the most booked lectures
// @Tags Bookings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /bookings/stats [get]
func (h *BookingHandler) Stats(c *gin.Context) {
	stats, err := h.bookings.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Export godoc
// @Summary Export the booking ledger
// @Tags Bookings
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /bookings/export [get]
func (h *BookingHandler) Export(c *gin.Context) {
	var query dto.BookingExportQuery
	_ = c.ShouldBindQuery(&query)

	file, err := h.bookings.Export(c.Request.Context(), query.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.ContentType, file.Filename, file.Body)
}
