package models

import "time"

// Audit actions recorded for state-changing requests.
const (
	AuditActionLectureCreate    = "LECTURE_CREATE"
	AuditActionTeacherChange    = "LECTURE_TEACHER_CHANGE"
	AuditActionAssignmentAdd    = "LECTURE_TEACHER_ADD"
	AuditActionAssignmentRemove = "LECTURE_TEACHER_REMOVE"
	AuditActionScheduleCreate   = "SCHEDULE_CREATE"
	AuditActionScheduleExpire   = "SCHEDULE_EXPIRE"
	AuditActionBookingCreate    = "BOOKING_CREATE"
	AuditActionBookingCancel    = "BOOKING_CANCEL"
	AuditActionRoleChange       = "USER_ROLE_CHANGE"
	AuditActionRegister         = "USER_REGISTER"
	AuditActionLogin            = "AUTH_LOGIN"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
