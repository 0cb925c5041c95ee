package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"citizen-auth/internal/models"
	"citizen-auth/internal/search"
)

func (f *serviceFixture) registerAdmin(t *testing.T, email, role string) string {
	t.Helper()
	ctx := context.Background()

	result, _, err := f.svc.SignUp(ctx, email, testPassword, "Admin User", "", "")
	require.NoError(t, err)

	stored := f.repo.accounts[result.Account.AccountID]
	stored.Role = role
	return result.Account.AccountID
}

func TestAdminLogin(t *testing.T) {
	f := newFixture(t)
	f.registerAdmin(t, "admin@example.com", models.RoleAdmin)
	ctx := context.Background()

	result, err := f.admin.Login(ctx, "admin@example.com", testPassword, "10.0.0.1", "test")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, result.Account.Role)
	assert.NotEmpty(t, result.Tokens.AccessToken)
}

func TestAdminLoginRejectsCitizen(t *testing.T) {
	f := newFixture(t)
	f.register(t)

	_, err := f.admin.Login(context.Background(), "abebe@example.com", testPassword, "", "")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAdminLoginWrongPasswordCountsTowardLockout(t *testing.T) {
	f := newFixture(t)
	f.registerAdmin(t, "admin@example.com", models.RoleAdmin)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := f.admin.Login(ctx, "admin@example.com", "wrong-password", "", "")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, err := f.admin.Login(ctx, "admin@example.com", "wrong-password", "", "")
	assert.ErrorIs(t, err, ErrAccountLocked)
}

func TestAdminRefreshAndLogout(t *testing.T) {
	f := newFixture(t)
	f.registerAdmin(t, "admin@example.com", models.RoleAdmin)
	ctx := context.Background()

	result, err := f.admin.Login(ctx, "admin@example.com", testPassword, "", "")
	require.NoError(t, err)

	rotated, err := f.admin.Refresh(ctx, result.Tokens.RefreshToken, "", "")
	require.NoError(t, err)
	assert.NotEqual(t, result.Tokens.RefreshToken, rotated.RefreshToken)

	require.NoError(t, f.admin.Logout(ctx, rotated.RefreshToken))

	_, err = f.admin.Refresh(ctx, rotated.RefreshToken, "", "")
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestAdminMe(t *testing.T) {
	f := newFixture(t)
	adminID := f.registerAdmin(t, "admin@example.com", models.RoleAdmin)

	profile, err := f.admin.Me(context.Background(), adminID)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", profile.Email)
	assert.Equal(t, models.RoleAdmin, profile.Role)
}

func TestListAccountsScopedByActorRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// A plain admin cannot list administrator accounts.
	for _, role := range []string{models.RoleAdmin, models.RoleSuperAdmin} {
		_, err := f.admin.ListAccounts(ctx, models.RoleAdmin, search.ListQuery{Role: role})
		assert.ErrorIs(t, err, ErrForbidden, "requested role %q", role)
	}

	// A super admin passes the scope check; the fixture has no index, so the
	// request dies on the dependency rather than on authorization.
	_, err := f.admin.ListAccounts(ctx, models.RoleSuperAdmin, search.ListQuery{Role: models.RoleAdmin})
	assert.ErrorIs(t, err, ErrDependencyFailed)
}

func TestScopeListQuery(t *testing.T) {
	// An unfiltered listing by a plain admin is forced down to citizens.
	scoped, err := scopeListQuery(models.RoleAdmin, search.ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, models.RoleCitizen, scoped.Role)

	// A super admin's filter passes through untouched.
	scoped, err = scopeListQuery(models.RoleSuperAdmin, search.ListQuery{Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, scoped.Role)

	scoped, err = scopeListQuery(models.RoleSuperAdmin, search.ListQuery{})
	require.NoError(t, err)
	assert.Empty(t, scoped.Role)

	_, err = scopeListQuery(models.RoleSuperAdmin, search.ListQuery{Role: "owner"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateRoleRequiresSuperAdmin(t *testing.T) {
	f := newFixture(t)
	adminID := f.registerAdmin(t, "admin@example.com", models.RoleAdmin)
	f.register(t)
	ctx := context.Background()

	target, err := f.repo.GetByFIN(ctx, testFIN)
	require.NoError(t, err)

	err = f.admin.UpdateRole(ctx, adminID, models.RoleAdmin, target.AccountID, models.RoleAdmin)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestUpdateRolePromoteAndDemote(t *testing.T) {
	f := newFixture(t)
	superID := f.registerAdmin(t, "root@example.com", models.RoleSuperAdmin)
	f.register(t)
	ctx := context.Background()

	target, err := f.repo.GetByFIN(ctx, testFIN)
	require.NoError(t, err)

	require.NoError(t, f.admin.UpdateRole(ctx, superID, models.RoleSuperAdmin, target.AccountID, models.RoleAdmin))

	promoted, err := f.repo.GetByFIN(ctx, testFIN)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, promoted.Role)

	// Demotion revokes the target's sessions.
	loginResult, err := f.svc.Login(ctx, testFIN, testPassword, "", "")
	require.NoError(t, err)

	require.NoError(t, f.admin.UpdateRole(ctx, superID, models.RoleSuperAdmin, target.AccountID, models.RoleCitizen))

	_, err = f.svc.RefreshSession(ctx, loginResult.Tokens.RefreshToken, "", "")
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestUpdateRoleSelfChangeRejected(t *testing.T) {
	f := newFixture(t)
	superID := f.registerAdmin(t, "root@example.com", models.RoleSuperAdmin)

	err := f.admin.UpdateRole(context.Background(), superID, models.RoleSuperAdmin, superID, models.RoleCitizen)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestUpdateRoleUnknownRole(t *testing.T) {
	f := newFixture(t)
	superID := f.registerAdmin(t, "root@example.com", models.RoleSuperAdmin)
	f.register(t)
	ctx := context.Background()

	target, err := f.repo.GetByFIN(ctx, testFIN)
	require.NoError(t, err)

	err = f.admin.UpdateRole(ctx, superID, models.RoleSuperAdmin, target.AccountID, "owner")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
