package authn

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"citizen-auth/internal/config"
	"citizen-auth/internal/hashing"
	"citizen-auth/internal/models"
	redisrepo "citizen-auth/internal/repository/redis"
)

// Local is the built-in Provider: argon2id password hashes, HS256 access
// tokens, and Redis-backed sessions keyed by an opaque refresh token.
type Local struct {
	hasher   *hashing.Hasher
	sessions *redisrepo.SessionCache
	cfg      *config.AuthConfig
	logger   *zap.Logger
}

func NewLocal(hasher *hashing.Hasher, sessions *redisrepo.SessionCache, cfg *config.AuthConfig, logger *zap.Logger) *Local {
	return &Local{
		hasher:   hasher,
		sessions: sessions,
		cfg:      cfg,
		logger:   logger,
	}
}

func (l *Local) HashPassword(password string) (string, error) {
	return l.hasher.HashPassword(password)
}

func (l *Local) VerifyPassword(password, hash string) (bool, error) {
	return l.hasher.VerifyPassword(password, hash)
}

func (l *Local) IssueSession(ctx context.Context, account *models.Account, ipAddress, userAgent string) (*TokenPair, error) {
	refreshToken, err := generateRefreshToken()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session := &models.Session{
		AccountID:    account.AccountID,
		RefreshToken: refreshToken,
		Role:         account.Role,
		IPAddress:    ipAddress,
		UserAgent:    userAgent,
		CreatedAt:    now,
		LastActivity: now,
		ExpiresAt:    now.Add(l.cfg.RefreshTokenTTL),
	}
	if err := l.sessions.Store(ctx, session); err != nil {
		return nil, err
	}

	accessToken, err := l.signAccessToken(account.AccountID, account.Role, now)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(l.cfg.AccessTokenTTL.Seconds()),
	}, nil
}

// RefreshSession rotates the refresh token: the presented token is revoked and
// a new session is stored, so a leaked token is only usable once.
func (l *Local) RefreshSession(ctx context.Context, refreshToken, ipAddress, userAgent string) (*TokenPair, error) {
	session, err := l.sessions.Get(ctx, refreshToken)
	if err == redisrepo.ErrSessionNotFound {
		return nil, ErrSessionRevoked
	}
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if now.After(session.ExpiresAt) {
		_ = l.sessions.Revoke(ctx, refreshToken)
		return nil, ErrSessionRevoked
	}

	if err := l.sessions.Revoke(ctx, refreshToken); err != nil {
		return nil, err
	}

	newToken, err := generateRefreshToken()
	if err != nil {
		return nil, err
	}

	rotated := &models.Session{
		AccountID:    session.AccountID,
		RefreshToken: newToken,
		Role:         session.Role,
		IPAddress:    ipAddress,
		UserAgent:    userAgent,
		CreatedAt:    session.CreatedAt,
		LastActivity: now,
		ExpiresAt:    session.ExpiresAt,
	}
	if err := l.sessions.Store(ctx, rotated); err != nil {
		return nil, err
	}

	accessToken, err := l.signAccessToken(session.AccountID, session.Role, now)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: newToken,
		ExpiresIn:    int64(l.cfg.AccessTokenTTL.Seconds()),
	}, nil
}

func (l *Local) ValidateAccessToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(l.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (l *Local) RevokeSession(ctx context.Context, refreshToken string) error {
	return l.sessions.Revoke(ctx, refreshToken)
}

func (l *Local) RevokeAllSessions(ctx context.Context, accountID string) error {
	return l.sessions.RevokeAll(ctx, accountID)
}

func (l *Local) signAccessToken(accountID, role string, issuedAt time.Time) (string, error) {
	claims := &Claims{
		AccountID: accountID,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   accountID,
			Issuer:    "citizen-auth",
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(l.cfg.AccessTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(l.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

func generateRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
