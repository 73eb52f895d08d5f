package dto

// CreateLectureRequest creates a lecture. Teachers must name themselves as
// teacher_id; only admins may pick another teacher or multi-teacher mode.
type CreateLectureRequest struct {
	Title          string  `json:"lecture_title" validate:"required,min=3,max=200"`
	Description    *string `json:"lecture_description" validate:"omitempty,max=1000"`
	TeacherID      *string `json:"teacher_id"`
	IsMultiTeacher bool    `json:"is_multi_teacher"`
}

// ChangeLectureTeacherRequest replaces the primary teacher.
type ChangeLectureTeacherRequest struct {
	NewTeacherID string `json:"new_teacher_id" validate:"required"`
}

// AddLectureTeacherRequest assigns an additional teacher.
type AddLectureTeacherRequest struct {
	TeacherID string `json:"teacher_id" validate:"required"`
}

// LectureTeacherResponse reports a staffing change.
type LectureTeacherResponse struct {
	Message           string `json:"message"`
	LectureID         string `json:"lecture_id"`
	AffectedTeacherID string `json:"affected_teacher_id,omitempty"`
}

// LectureListQuery filters the lecture listing.
type LectureListQuery struct {
	TeacherID      string `form:"teacher_id"`
	ApprovalStatus string `form:"approval_status"`
	Search         string `form:"q"`
	Page           int    `form:"page"`
	PageSize       int    `form:"page_size"`
}
