package models

import "time"

// LectureTeacher assigns an additional teacher to a multi-teacher lecture. The
// primary teacher never has a row here.
type LectureTeacher struct {
	ID        string    `db:"id" json:"id"`
	LectureID string    `db:"lecture_id" json:"lecture_id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// LectureTeacherView lists a teacher of a lecture for display.
type LectureTeacherView struct {
	TeacherID   string `json:"teacher_id"`
	TeacherName string `json:"teacher_name"`
	IsPrimary   bool   `json:"is_primary"`
}
