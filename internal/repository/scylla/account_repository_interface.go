package scylla

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"citizen-auth/internal/models"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrDuplicateFIN    = errors.New("FIN already registered")
	ErrDuplicateEmail  = errors.New("email already registered")
)

// AccountRepository is the persistence contract for citizen and admin
// accounts. The lockout transition is expressed as a conditional update so
// concurrent login attempts for the same account cannot lose increments.
type AccountRepository interface {
	// CreateAccount persists the account and indexes every supplied phone
	// representation in the phone lookup table.
	CreateAccount(ctx context.Context, account *models.Account, phoneRepresentations []string) error
	GetByID(ctx context.Context, accountID uuid.UUID) (*models.Account, error)
	GetByFIN(ctx context.Context, fin string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	// GetByPhone tries each supplied representation in order and returns the
	// first account found.
	GetByPhone(ctx context.Context, representations []string) (*models.Account, error)

	FINExists(ctx context.Context, fin string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)

	UpdateKYCProfile(ctx context.Context, account *models.Account, phoneRepresentations []string) error
	SetPassword(ctx context.Context, accountID uuid.UUID, passwordHash string) error
	UpdateRole(ctx context.Context, accountID uuid.UUID, role string) error
	MarkEmailVerified(ctx context.Context, accountID uuid.UUID) error

	// RecordFailedAttempt bumps the failed-login counter from expectedAttempts
	// to expectedAttempts+1, setting lockedUntil when supplied. Returns false
	// without error when another request already moved the counter.
	RecordFailedAttempt(ctx context.Context, account *models.Account, expectedAttempts int, lockedUntil *time.Time) (bool, error)
	// ResetLockout clears the counter and lock timestamp after a successful
	// login or password reset.
	ResetLockout(ctx context.Context, accountID uuid.UUID) error
	UpdateLastLogin(ctx context.Context, accountID uuid.UUID, timestamp time.Time) error

	HealthCheck(ctx context.Context) error
}
