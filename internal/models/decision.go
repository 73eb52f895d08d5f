package models

import appErrors "github.com/noah-isme/lecture-booking-api/pkg/errors"

// AccessDecision is the outcome of resolving an actor against a lecture.
type AccessDecision struct {
	Authorized bool   `json:"authorized"`
	Reason     string `json:"reason,omitempty"`
}

// Authorized grants access.
func Authorized() AccessDecision { return AccessDecision{Authorized: true} }

// Forbidden denies access with reason.
func Forbidden(reason string) AccessDecision {
	return AccessDecision{Reason: reason}
}

// Err converts a denial into a FORBIDDEN application error.
func (d AccessDecision) Err() error {
	if d.Authorized {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, d.Reason)
}

// AdmissionDecision is the outcome of evaluating a booking request. Reasons
// keep every violated rule in evaluation order.
type AdmissionDecision struct {
	Admitted  bool               `json:"admitted"`
	BookingID string             `json:"booking_id,omitempty"`
	Reasons   []*appErrors.Error `json:"reasons,omitempty"`
}

// Reject records a violated rule.
func (d *AdmissionDecision) Reject(reason *appErrors.Error) {
	d.Admitted = false
	d.Reasons = append(d.Reasons, reason)
}

// First returns the reason reported to callers, or nil when admitted.
func (d *AdmissionDecision) First() *appErrors.Error {
	if d == nil || len(d.Reasons) == 0 {
		return nil
	}
	return d.Reasons[0]
}
