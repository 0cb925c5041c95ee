package authn

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"citizen-auth/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrSessionRevoked     = errors.New("session revoked")
)

// TokenPair is what a successful authentication hands back to the client: a
// short-lived access token and the refresh token that names the session.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Claims is the access-token payload.
type Claims struct {
	AccountID string `json:"sub_account"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// Provider abstracts credential storage and session issuance so the account
// services do not depend on a concrete hashing or token scheme.
type Provider interface {
	HashPassword(password string) (string, error)
	VerifyPassword(password, hash string) (bool, error)

	IssueSession(ctx context.Context, account *models.Account, ipAddress, userAgent string) (*TokenPair, error)
	RefreshSession(ctx context.Context, refreshToken, ipAddress, userAgent string) (*TokenPair, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	RevokeSession(ctx context.Context, refreshToken string) error
	RevokeAllSessions(ctx context.Context, accountID string) error
}
