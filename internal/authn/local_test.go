package authn

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"citizen-auth/internal/client"
	"citizen-auth/internal/config"
	"citizen-auth/internal/hashing"
	"citizen-auth/internal/models"
	redisrepo "citizen-auth/internal/repository/redis"
)

func newTestProvider(t *testing.T) *Local {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := client.NewRedisClientFromAddr(mr.Addr())
	sessions := redisrepo.NewSessionCache(rc, time.Hour, zap.NewNop())

	cfg := &config.Config{
		Hashing: config.HashingConfig{
			Argon2MemoryCost:  1024,
			Argon2TimeCost:    1,
			Argon2Parallelism: 1,
		},
	}
	authCfg := &config.AuthConfig{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
	}
	return NewLocal(hashing.NewHasher(cfg), sessions, authCfg, zap.NewNop())
}

func testAccount() *models.Account {
	return &models.Account{
		AccountID: "11111111-2222-3333-4444-555555555555",
		Role:      models.RoleCitizen,
	}
}

func TestIssueAndValidateSession(t *testing.T) {
	provider := newTestProvider(t)
	ctx := context.Background()

	pair, err := provider.IssueSession(ctx, testAccount(), "10.0.0.1", "test-agent")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, int64(900), pair.ExpiresIn)

	claims, err := provider.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "11111111-2222-3333-4444-555555555555", claims.AccountID)
	assert.Equal(t, models.RoleCitizen, claims.Role)
}

func TestValidateRejectsTamperedToken(t *testing.T) {
	provider := newTestProvider(t)

	pair, err := provider.IssueSession(context.Background(), testAccount(), "", "")
	require.NoError(t, err)

	_, err = provider.ValidateAccessToken(pair.AccessToken + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = provider.ValidateAccessToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshRotatesToken(t *testing.T) {
	provider := newTestProvider(t)
	ctx := context.Background()

	pair, err := provider.IssueSession(ctx, testAccount(), "10.0.0.1", "agent")
	require.NoError(t, err)

	rotated, err := provider.RefreshSession(ctx, pair.RefreshToken, "10.0.0.2", "agent")
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// The old token must be dead after rotation.
	_, err = provider.RefreshSession(ctx, pair.RefreshToken, "10.0.0.2", "agent")
	assert.ErrorIs(t, err, ErrSessionRevoked)
}

func TestRevokeSession(t *testing.T) {
	provider := newTestProvider(t)
	ctx := context.Background()

	pair, err := provider.IssueSession(ctx, testAccount(), "", "")
	require.NoError(t, err)

	require.NoError(t, provider.RevokeSession(ctx, pair.RefreshToken))

	_, err = provider.RefreshSession(ctx, pair.RefreshToken, "", "")
	assert.ErrorIs(t, err, ErrSessionRevoked)
}

func TestRevokeAllSessions(t *testing.T) {
	provider := newTestProvider(t)
	ctx := context.Background()
	account := testAccount()

	first, err := provider.IssueSession(ctx, account, "", "")
	require.NoError(t, err)
	second, err := provider.IssueSession(ctx, account, "", "")
	require.NoError(t, err)

	require.NoError(t, provider.RevokeAllSessions(ctx, account.AccountID))

	_, err = provider.RefreshSession(ctx, first.RefreshToken, "", "")
	assert.ErrorIs(t, err, ErrSessionRevoked)
	_, err = provider.RefreshSession(ctx, second.RefreshToken, "", "")
	assert.ErrorIs(t, err, ErrSessionRevoked)
}

func TestPasswordRoundTrip(t *testing.T) {
	provider := newTestProvider(t)

	hash, err := provider.HashPassword("s3cret-pass")
	require.NoError(t, err)

	ok, err := provider.VerifyPassword("s3cret-pass", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = provider.VerifyPassword("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}
