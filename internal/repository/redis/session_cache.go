package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"citizen-auth/internal/client"
	"citizen-auth/internal/models"
	"citizen-auth/internal/util"
)

var ErrSessionNotFound = errors.New("session not found")

const (
	sessionKeyPrefix  = "session:"
	accountSetPrefix  = "account_sessions:"
	sessionTouchEvery = time.Minute
)

// SessionCache stores refresh-token-keyed sessions in Redis. A per-account set
// tracks live tokens so an account's sessions can be revoked together.
type SessionCache struct {
	redis  *client.RedisClient
	ttl    time.Duration
	logger *zap.Logger
}

func NewSessionCache(redis *client.RedisClient, ttl time.Duration, logger *zap.Logger) *SessionCache {
	return &SessionCache{
		redis:  redis,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *SessionCache) Store(ctx context.Context, session *models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	pipe := c.redis.Client.TxPipeline()
	pipe.Set(ctx, sessionKeyPrefix+session.RefreshToken, data, c.ttl)
	pipe.SAdd(ctx, accountSetPrefix+session.AccountID, session.RefreshToken)
	pipe.Expire(ctx, accountSetPrefix+session.AccountID, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (c *SessionCache) Get(ctx context.Context, refreshToken string) (*models.Session, error) {
	data, err := c.redis.Get(ctx, sessionKeyPrefix+refreshToken)
	if err == client.ErrKeyNotFound {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	session := &models.Session{}
	if err := json.Unmarshal([]byte(data), session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return session, nil
}

// Touch refreshes the activity timestamp, skipping the write when the session
// was touched recently.
func (c *SessionCache) Touch(ctx context.Context, session *models.Session) error {
	now := time.Now().UTC()
	if now.Sub(session.LastActivity) < sessionTouchEvery {
		return nil
	}
	session.LastActivity = now
	return c.Store(ctx, session)
}

func (c *SessionCache) Revoke(ctx context.Context, refreshToken string) error {
	session, err := c.Get(ctx, refreshToken)
	if err == ErrSessionNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	pipe := c.redis.Client.TxPipeline()
	pipe.Del(ctx, sessionKeyPrefix+refreshToken)
	pipe.SRem(ctx, accountSetPrefix+session.AccountID, refreshToken)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// RevokeAll drops every live session for an account, used when the password
// changes or the account is locked by an administrator.
func (c *SessionCache) RevokeAll(ctx context.Context, accountID string) error {
	tokens, err := c.redis.Client.SMembers(ctx, accountSetPrefix+accountID).Result()
	if err != nil {
		return fmt.Errorf("failed to list account sessions: %w", err)
	}

	if len(tokens) > 0 {
		keys := make([]string, 0, len(tokens)+1)
		for _, token := range tokens {
			keys = append(keys, sessionKeyPrefix+token)
		}
		keys = append(keys, accountSetPrefix+accountID)
		if err := c.redis.Del(ctx, keys...); err != nil {
			return fmt.Errorf("failed to revoke account sessions: %w", err)
		}
	}

	util.Info("Revoked all sessions",
		zap.String("account_id", accountID),
		zap.Int("count", len(tokens)))
	return nil
}
