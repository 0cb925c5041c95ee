package models

import "time"

// Session is a server-side session record cached in Redis, keyed by the
// opaque refresh token. Access tokens are stateless JWTs; refresh and logout
// operate on this record.
type Session struct {
	AccountID    string    `json:"account_id"`
	RefreshToken string    `json:"refresh_token"`
	Role         string    `json:"role"`
	IPAddress    string    `json:"ip_address"`
	UserAgent    string    `json:"user_agent"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	ExpiresAt    time.Time `json:"expires_at"`
}
