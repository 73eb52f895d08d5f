package dto

// CreateScheduleRequest opens a bookable slot on a lecture.
type CreateScheduleRequest struct {
	LectureID string `json:"lecture_id" validate:"required"`
	TeacherID string `json:"teacher_id" validate:"required"`
	Date      string `json:"date" validate:"required"`
	Start     string `json:"start" validate:"required"`
	End       string `json:"end" validate:"required"`
}

// CreateScheduleResponse returns the new schedule id.
type CreateScheduleResponse struct {
	Message    string `json:"message"`
	ScheduleID string `json:"schedule_id"`
}

// ExpireSchedulesResult reports a sweep outcome.
type ExpireSchedulesResult struct {
	Expired int64 `json:"expired"`
}
