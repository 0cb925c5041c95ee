package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"citizen-auth/internal/client"
	"citizen-auth/internal/models"
)

func newTestRedis(t *testing.T) (*client.RedisClient, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	return client.NewRedisClientFromAddr(mr.Addr()), mr
}

func TestSessionStoreAndGet(t *testing.T) {
	rc, _ := newTestRedis(t)
	cache := NewSessionCache(rc, time.Hour, zap.NewNop())

	session := &models.Session{
		AccountID:    "acct-1",
		RefreshToken: "tok-1",
		Role:         models.RoleCitizen,
		IPAddress:    "10.0.0.1",
		CreatedAt:    time.Now().UTC(),
		LastActivity: time.Now().UTC(),
		ExpiresAt:    time.Now().UTC().Add(time.Hour),
	}
	require.NoError(t, cache.Store(context.Background(), session))

	got, err := cache.Get(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "acct-1", got.AccountID)
	assert.Equal(t, models.RoleCitizen, got.Role)
}

func TestSessionGetMissing(t *testing.T) {
	rc, _ := newTestRedis(t)
	cache := NewSessionCache(rc, time.Hour, zap.NewNop())

	_, err := cache.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionRevoke(t *testing.T) {
	rc, _ := newTestRedis(t)
	cache := NewSessionCache(rc, time.Hour, zap.NewNop())
	ctx := context.Background()

	session := &models.Session{AccountID: "acct-1", RefreshToken: "tok-1"}
	require.NoError(t, cache.Store(ctx, session))
	require.NoError(t, cache.Revoke(ctx, "tok-1"))

	_, err := cache.Get(ctx, "tok-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// Revoking an already-gone token is not an error.
	assert.NoError(t, cache.Revoke(ctx, "tok-1"))
}

func TestSessionRevokeAll(t *testing.T) {
	rc, _ := newTestRedis(t)
	cache := NewSessionCache(rc, time.Hour, zap.NewNop())
	ctx := context.Background()

	for _, token := range []string{"tok-1", "tok-2", "tok-3"} {
		require.NoError(t, cache.Store(ctx, &models.Session{AccountID: "acct-1", RefreshToken: token}))
	}
	require.NoError(t, cache.Store(ctx, &models.Session{AccountID: "acct-2", RefreshToken: "other"}))

	require.NoError(t, cache.RevokeAll(ctx, "acct-1"))

	for _, token := range []string{"tok-1", "tok-2", "tok-3"} {
		_, err := cache.Get(ctx, token)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	}

	got, err := cache.Get(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, "acct-2", got.AccountID)
}

func TestSessionExpiry(t *testing.T) {
	rc, mr := newTestRedis(t)
	cache := NewSessionCache(rc, time.Minute, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, cache.Store(ctx, &models.Session{AccountID: "acct-1", RefreshToken: "tok-1"}))
	mr.FastForward(2 * time.Minute)

	_, err := cache.Get(ctx, "tok-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestOTPTxnRoundTrip(t *testing.T) {
	rc, _ := newTestRedis(t)
	cache := NewOTPTxnCache(rc, 5*time.Minute, zap.NewNop())
	ctx := context.Background()

	txn := &OTPTxn{TxnID: "txn-1", FIN: "123456789012", Purpose: PurposeRegistration}
	require.NoError(t, cache.Store(ctx, txn))

	got, err := cache.Get(ctx, "txn-1")
	require.NoError(t, err)
	assert.Equal(t, "123456789012", got.FIN)
	assert.Equal(t, PurposeRegistration, got.Purpose)
}

func TestOTPTxnExpiry(t *testing.T) {
	rc, mr := newTestRedis(t)
	cache := NewOTPTxnCache(rc, 5*time.Minute, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, cache.Store(ctx, &OTPTxn{TxnID: "txn-1", FIN: "123456789012"}))
	mr.FastForward(6 * time.Minute)

	_, err := cache.Get(ctx, "txn-1")
	assert.ErrorIs(t, err, ErrTxnNotFound)
}

func TestOTPTxnConsumePreventsReplay(t *testing.T) {
	rc, _ := newTestRedis(t)
	cache := NewOTPTxnCache(rc, 5*time.Minute, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, cache.Store(ctx, &OTPTxn{TxnID: "txn-1", FIN: "123456789012"}))
	require.NoError(t, cache.Consume(ctx, "txn-1"))

	_, err := cache.Get(ctx, "txn-1")
	assert.ErrorIs(t, err, ErrTxnNotFound)
}

func TestOTPAttemptCap(t *testing.T) {
	rc, _ := newTestRedis(t)
	cache := NewOTPTxnCache(rc, 5*time.Minute, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < maxOTPAttempts; i++ {
		assert.NoError(t, cache.RecordAttempt(ctx, "txn-1"))
	}
	assert.ErrorIs(t, cache.RecordAttempt(ctx, "txn-1"), ErrTooManyOTPRetries)
}

func TestRateLimitAllow(t *testing.T) {
	rc, _ := newTestRedis(t)
	cache := NewRateLimitCache(rc, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.True(t, cache.Allow(ctx, "ip:10.0.0.1", 3, time.Minute))
	}
	assert.False(t, cache.Allow(ctx, "ip:10.0.0.1", 3, time.Minute))
}

func TestRateLimitWindowReset(t *testing.T) {
	rc, mr := newTestRedis(t)
	cache := NewRateLimitCache(rc, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		cache.Allow(ctx, "ip:10.0.0.1", 3, time.Minute)
	}
	mr.FastForward(2 * time.Minute)
	assert.True(t, cache.Allow(ctx, "ip:10.0.0.1", 3, time.Minute))
}

func TestRateLimitFailOpen(t *testing.T) {
	rc, mr := newTestRedis(t)
	cache := NewRateLimitCache(rc, zap.NewNop())

	mr.Close()
	assert.True(t, cache.Allow(context.Background(), "ip:10.0.0.1", 1, time.Minute))
}
