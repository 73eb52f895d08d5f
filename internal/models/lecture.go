package models

import "time"

// ApprovalStatus tracks the moderation state of a lecture.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Lecture is a course taught by a primary teacher and, in multi-teacher mode,
// any number of assigned teachers.
type Lecture struct {
	ID             string         `db:"id" json:"id"`
	Title          string         `db:"title" json:"title"`
	Description    *string        `db:"description" json:"description,omitempty"`
	TeacherID      string         `db:"teacher_id" json:"teacher_id"`
	ApprovalStatus ApprovalStatus `db:"approval_status" json:"approval_status"`
	IsMultiTeacher bool           `db:"is_multi_teacher" json:"is_multi_teacher"`
	IsDeleted      bool           `db:"is_deleted" json:"-"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      *time.Time     `db:"updated_at" json:"updated_at,omitempty"`
}

// IsPrimary reports whether teacherID is the lecture's primary teacher.
func (l *Lecture) IsPrimary(teacherID string) bool {
	return l != nil && l.TeacherID == teacherID
}

// LectureListItem is a lecture row with the primary teacher's name.
type LectureListItem struct {
	Lecture
	TeacherName string `db:"teacher_name" json:"teacher_name"`
}

// LectureDetail adds the primary teacher's contact profile.
type LectureDetail struct {
	Lecture
	TeacherName         string  `db:"teacher_name" json:"teacher_name"`
	TeacherEmail        string  `db:"teacher_email" json:"teacher_email"`
	TeacherPhone        *string `db:"teacher_phone" json:"teacher_phone,omitempty"`
	TeacherBio          *string `db:"teacher_bio" json:"teacher_bio,omitempty"`
	TeacherProfileImage *string `db:"teacher_profile_image" json:"teacher_profile_image,omitempty"`
}

// LectureFilter narrows lecture listings.
type LectureFilter struct {
	TeacherID      string
	ApprovalStatus *ApprovalStatus
	Search         string
	Page           int
	PageSize       int
}
