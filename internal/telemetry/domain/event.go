// Package domain defines flow events reported by the onboarding controller.
package domain

import "time"

// Event types emitted during onboarding.
const (
	EventStepChanged   = "step_changed"
	EventOTPSent       = "otp_sent"
	EventOTPSendFailed = "otp_send_failed"
	EventOTPVerified   = "otp_verified"
	EventOTPRejected   = "otp_rejected"
	EventDetailsSaved  = "details_saved"
	EventDetailsFailed = "details_failed"
	EventRedirect      = "redirect"
)

// FlowEvent is one observable step of an onboarding session. It never carries the OTP,
// the CSRF token or the full mobile number.
type FlowEvent struct {
	ID        string
	FlowID    string
	Type      string
	Step      string
	UserType  string
	UserID    string
	Metadata  map[string]string
	CreatedAt time.Time
}
