package models

import "time"

// Login attempt outcomes recorded in the ClickHouse audit table.
const (
	LoginOutcomeSuccess     = "success"
	LoginOutcomeBadPassword = "bad_password"
	LoginOutcomeLocked      = "locked"
	LoginOutcomeNotFound    = "not_found"
)

// LoginAudit is one row of the login_audit analytics table.
type LoginAudit struct {
	AccountID         string    `ch:"account_id"`
	IdentifierKind    string    `ch:"identifier_kind"` // fin | phone | email
	Outcome           string    `ch:"outcome"`
	RemainingAttempts int32     `ch:"remaining_attempts"`
	IPAddress         string    `ch:"ip_address"`
	UserAgent         string    `ch:"user_agent"`
	AttemptTime       time.Time `ch:"attempt_time"`
}
