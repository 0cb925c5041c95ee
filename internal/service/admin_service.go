package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"citizen-auth/internal/authn"
	"citizen-auth/internal/models"
	"citizen-auth/internal/repository/scylla"
	"citizen-auth/internal/search"
	"citizen-auth/internal/util"
)

// AdminService implements the administrator surface. Admin credentials are
// ordinary accounts whose role grants access; the same lockout policy applies.
type AdminService struct {
	accounts *AccountService
	repo     scylla.AccountRepository
	provider authn.Provider
	index    *search.AccountIndex
	logger   *zap.Logger
}

func NewAdminService(accounts *AccountService, repo scylla.AccountRepository, provider authn.Provider, index *search.AccountIndex, logger *zap.Logger) *AdminService {
	return &AdminService{
		accounts: accounts,
		repo:     repo,
		provider: provider,
		index:    index,
		logger:   logger,
	}
}

// Login authenticates an administrator by email. Non-admin accounts are
// rejected after the password check so the error does not reveal whether the
// address belongs to an admin.
func (s *AdminService) Login(ctx context.Context, email, password, ipAddress, userAgent string) (*AuthResult, error) {
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: admin login requires an email address", ErrInvalidInput)
	}

	result, err := s.accounts.Login(ctx, email, password, ipAddress, userAgent)
	if err != nil {
		return nil, err
	}

	if result.Account.Role != models.RoleAdmin && result.Account.Role != models.RoleSuperAdmin {
		_ = s.provider.RevokeSession(ctx, result.Tokens.RefreshToken)
		return nil, ErrForbidden
	}

	s.accounts.events.Emit(ctx, &models.SecurityEvent{
		EventType: models.EventAdminLogin,
		AccountID: result.Account.AccountID,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	})
	return result, nil
}

// Refresh rotates an admin session. The refreshed session must still carry an
// administrator role.
func (s *AdminService) Refresh(ctx context.Context, refreshToken, ipAddress, userAgent string) (*authn.TokenPair, error) {
	tokens, err := s.accounts.RefreshSession(ctx, refreshToken, ipAddress, userAgent)
	if err != nil {
		return nil, err
	}

	claims, err := s.provider.ValidateAccessToken(tokens.AccessToken)
	if err != nil {
		return nil, ErrSessionExpired
	}
	if claims.Role != models.RoleAdmin && claims.Role != models.RoleSuperAdmin {
		_ = s.provider.RevokeSession(ctx, tokens.RefreshToken)
		return nil, ErrForbidden
	}
	return tokens, nil
}

// Logout revokes the admin session.
func (s *AdminService) Logout(ctx context.Context, refreshToken string) error {
	return s.accounts.SignOut(ctx, refreshToken)
}

// Me returns the administrator's own profile.
func (s *AdminService) Me(ctx context.Context, accountID string) (*AccountProfile, error) {
	return s.accounts.Profile(ctx, accountID)
}

// ListAccounts runs a paged account listing over the search index, scoped to
// what the actor's role may see: only a super admin can list administrator
// accounts, plain admins are confined to citizens.
func (s *AdminService) ListAccounts(ctx context.Context, actorRole string, query search.ListQuery) (*search.ListResult, error) {
	query, err := scopeListQuery(actorRole, query)
	if err != nil {
		return nil, err
	}

	if s.index == nil {
		return nil, fmt.Errorf("%w: account index not configured", ErrDependencyFailed)
	}

	result, err := s.index.List(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDependencyFailed, err)
	}
	return result, nil
}

func scopeListQuery(actorRole string, query search.ListQuery) (search.ListQuery, error) {
	switch query.Role {
	case "", models.RoleCitizen, models.RoleAdmin, models.RoleSuperAdmin:
	default:
		return search.ListQuery{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, query.Role)
	}

	if actorRole != models.RoleSuperAdmin {
		switch query.Role {
		case models.RoleAdmin, models.RoleSuperAdmin:
			return search.ListQuery{}, ErrForbidden
		case "":
			query.Role = models.RoleCitizen
		}
	}
	return query, nil
}

// UpdateRole changes a target account's role. Only a super admin may grant or
// revoke administrator access, and admins cannot change their own role.
func (s *AdminService) UpdateRole(ctx context.Context, actorID, actorRole, targetID, newRole string) error {
	switch newRole {
	case models.RoleCitizen, models.RoleAdmin, models.RoleSuperAdmin:
	default:
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, newRole)
	}

	if actorRole != models.RoleSuperAdmin {
		return ErrForbidden
	}
	if actorID == targetID {
		return fmt.Errorf("%w: cannot change own role", ErrForbidden)
	}

	parsed, err := uuid.Parse(targetID)
	if err != nil {
		return fmt.Errorf("%w: malformed account id", ErrInvalidInput)
	}

	account, err := s.repo.GetByID(ctx, parsed)
	if errors.Is(err, scylla.ErrAccountNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDependencyFailed, err)
	}

	if account.Role == newRole {
		return nil
	}

	if err := s.repo.UpdateRole(ctx, parsed, newRole); err != nil {
		return fmt.Errorf("%w: %v", ErrDependencyFailed, err)
	}

	// A demotion must not leave privileged sessions alive.
	if account.IsAdministrator() && newRole == models.RoleCitizen {
		if err := s.provider.RevokeAllSessions(ctx, targetID); err != nil {
			util.Warn("Failed to revoke sessions after demotion",
				zap.String("account_id", targetID),
				zap.Error(err))
		}
	}

	account.Role = newRole
	s.accounts.index.Index(ctx, account)

	util.Info("Account role updated",
		zap.String("account_id", targetID),
		zap.String("role", newRole),
		zap.String("actor_id", actorID))
	return nil
}
