package models

import "time"

// TeacherProfile holds the optional public details of a teacher. Its ID is the
// owning user's id.
type TeacherProfile struct {
	ID           string     `db:"id" json:"id"`
	Phone        *string    `db:"phone" json:"phone,omitempty"`
	Bio          *string    `db:"bio" json:"bio,omitempty"`
	ProfileImage *string    `db:"profile_image" json:"profile_image,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// Teacher is a teacher-role user joined with their profile.
type Teacher struct {
	ID           string  `db:"id" json:"id"`
	Name         string  `db:"name" json:"name"`
	Email        string  `db:"email" json:"email"`
	Phone        *string `db:"phone" json:"phone,omitempty"`
	Bio          *string `db:"bio" json:"bio,omitempty"`
	ProfileImage *string `db:"profile_image" json:"profile_image,omitempty"`
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	Search   string
	Page     int
	PageSize int
}
