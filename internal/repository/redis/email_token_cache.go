package redis

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"citizen-auth/internal/client"
)

var ErrEmailTokenNotFound = errors.New("verification token not found")

const emailTokenPrefix = "email_verify:"

// EmailTokenCache holds single-use email verification tokens.
type EmailTokenCache struct {
	redis  *client.RedisClient
	ttl    time.Duration
	logger *zap.Logger
}

func NewEmailTokenCache(redis *client.RedisClient, ttl time.Duration, logger *zap.Logger) *EmailTokenCache {
	return &EmailTokenCache{
		redis:  redis,
		ttl:    ttl,
		logger: logger,
	}
}

// Issue creates a fresh token bound to the account.
func (c *EmailTokenCache) Issue(ctx context.Context, accountID string) (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate verification token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)

	if err := c.redis.Set(ctx, emailTokenPrefix+token, accountID, c.ttl); err != nil {
		return "", fmt.Errorf("failed to store verification token: %w", err)
	}
	return token, nil
}

// Consume resolves a token to its account id and deletes it, so each token
// verifies at most once.
func (c *EmailTokenCache) Consume(ctx context.Context, token string) (string, error) {
	accountID, err := c.redis.Get(ctx, emailTokenPrefix+token)
	if err == client.ErrKeyNotFound {
		return "", ErrEmailTokenNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve verification token: %w", err)
	}

	if err := c.redis.Del(ctx, emailTokenPrefix+token); err != nil {
		return "", fmt.Errorf("failed to consume verification token: %w", err)
	}
	return accountID, nil
}
