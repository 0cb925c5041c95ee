package models

import "time"

// Security event types published to Kafka.
const (
	EventRegistration  = "registration"
	EventLoginSuccess  = "login_success"
	EventLoginFailed   = "login_failed"
	EventAccountLocked = "account_locked"
	EventPasswordReset = "password_reset"
	EventAdminLogin    = "admin_login"
	EventEmailVerified = "email_verified"
)

// SecurityEvent is a best-effort audit event. Publishing never fails the
// request that produced it.
type SecurityEvent struct {
	EventType string    `json:"event_type"`
	AccountID string    `json:"account_id,omitempty"`
	EventTime time.Time `json:"event_time"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Details   string    `json:"details,omitempty"`
}
