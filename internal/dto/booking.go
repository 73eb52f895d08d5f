package dto

// CreateBookingRequest reserves a lecture slot for the calling student.
// Dates are YYYY-MM-DD, times HH:MM. Date and times are checked by the
// admission rules, so an empty value is reported as a format reason.
type CreateBookingRequest struct {
	UserID       string `json:"user_id" validate:"required"`
	LectureID    string `json:"lecture_id" validate:"required"`
	TeacherID    string `json:"teacher_id" validate:"required"`
	ReservedDate string `json:"reserved_date"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
}

// CreateBookingResponse acknowledges an admitted booking.
type CreateBookingResponse struct {
	Message   string `json:"message"`
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
}

// CancelBookingResponse acknowledges a cancellation.
type CancelBookingResponse struct {
	Message   string `json:"message"`
	BookingID string `json:"booking_id"`
}

// BookingExportQuery selects the export encoding.
type BookingExportQuery struct {
	Format string `form:"format"`
}
