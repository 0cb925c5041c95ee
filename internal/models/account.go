package models

import "time"

// Account roles, from least to most privileged.
const (
	RoleCitizen    = "citizen"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// Account is a citizen or administrator identity record. FIN and email are
// unique per account; the phone number is stored in its canonical
// international form, with every equivalent representation indexed in
// phone_to_account.
type Account struct {
	UserBucket     int    `db:"user_bucket"`
	AccountID      string `db:"account_id"`
	Email          string `db:"email"`
	FIN            string `db:"fin"`
	FINEncrypted   []byte `db:"fin_encrypted"`
	Phone          string `db:"phone"`
	PhoneEncrypted []byte `db:"phone_encrypted"`
	PIIKeyID       string `db:"pii_key_id"`
	FullName       string `db:"full_name"`
	DateOfBirth    string `db:"date_of_birth"`
	Gender         string `db:"gender"`
	PhotoRef       string `db:"photo_ref"`
	Role           string `db:"role"`
	EmailVerified  bool   `db:"email_verified"`
	PasswordHash   string `db:"password_hash"`

	// Lockout state. An account is login-locked iff LockedUntil is set and in
	// the future. FailedAttempts resets to zero on any successful login.
	FailedAttempts int        `db:"failed_attempts"`
	LockedUntil    *time.Time `db:"locked_until"`

	CreatedAt time.Time  `db:"created_at"`
	LastLogin *time.Time `db:"last_login"`
	UpdatedAt *time.Time `db:"updated_at"`
}

// IsLocked reports whether the account is login-locked at the given instant.
func (a *Account) IsLocked(now time.Time) bool {
	return a.LockedUntil != nil && a.LockedUntil.After(now)
}

// IsAdministrator reports whether the account may use the admin surface.
func (a *Account) IsAdministrator() bool {
	return a.Role == RoleAdmin || a.Role == RoleSuperAdmin
}
