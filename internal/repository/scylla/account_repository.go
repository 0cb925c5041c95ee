package scylla

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"citizen-auth/internal/bucketing"
	"citizen-auth/internal/models"
	"citizen-auth/internal/util"
)

// AccountRepositoryImpl is the ScyllaDB-backed account repository. Uniqueness
// of FIN and email is enforced through LWT inserts on the lookup tables.
type AccountRepositoryImpl struct {
	client       *ScyllaClient
	bucketingMgr *bucketing.BucketingManager
	logger       *zap.Logger
}

func NewAccountRepository(client *ScyllaClient, bucketingMgr *bucketing.BucketingManager, logger *zap.Logger) *AccountRepositoryImpl {
	return &AccountRepositoryImpl{
		client:       client,
		bucketingMgr: bucketingMgr,
		logger:       logger,
	}
}

// CreateAccount claims the FIN and email lookup rows first (LWT, so a
// concurrent registration with the same FIN or email loses cleanly), then
// writes the account row and one phone lookup row per representation.
func (r *AccountRepositoryImpl) CreateAccount(ctx context.Context, account *models.Account, phoneRepresentations []string) error {
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = &now
	if account.AccountID == "" {
		account.AccountID = uuid.New().String()
	}
	account.UserBucket = r.bucketingMgr.AccountBucket(account.AccountID)

	if account.FIN != "" {
		applied, err := r.claimLookup(ctx,
			`INSERT INTO fin_to_account (fin, user_bucket, account_id, created_at) VALUES (?, ?, ?, ?) IF NOT EXISTS`,
			account.FIN, account.UserBucket, account.AccountID, now)
		if err != nil {
			return fmt.Errorf("failed to claim FIN: %w", err)
		}
		if !applied {
			return ErrDuplicateFIN
		}
	}

	applied, err := r.claimLookup(ctx,
		`INSERT INTO email_to_account (email, user_bucket, account_id, created_at) VALUES (?, ?, ?, ?) IF NOT EXISTS`,
		account.Email, account.UserBucket, account.AccountID, now)
	if err != nil {
		r.releaseFIN(ctx, account.FIN)
		return fmt.Errorf("failed to claim email: %w", err)
	}
	if !applied {
		r.releaseFIN(ctx, account.FIN)
		return ErrDuplicateEmail
	}

	batch := r.client.Batch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(r.client.Prepared.InsertAccount.Statement(),
		account.UserBucket, account.AccountID, account.Email, account.FIN,
		account.FINEncrypted, account.Phone, account.PhoneEncrypted,
		account.PIIKeyID, account.FullName, account.DateOfBirth, account.Gender,
		account.PhotoRef, account.Role, account.EmailVerified,
		account.PasswordHash, account.FailedAttempts, account.LockedUntil,
		account.CreatedAt, account.LastLogin, account.UpdatedAt)

	for _, representation := range phoneRepresentations {
		batch.Query(r.client.Prepared.InsertPhoneLookup.Statement(),
			representation, account.UserBucket, account.AccountID, now)
	}

	if err := r.client.ExecuteBatch(batch); err != nil {
		util.Error("Failed to create account",
			zap.String("account_id", account.AccountID),
			zap.Error(err))
		return fmt.Errorf("failed to create account: %w", err)
	}

	util.Info("Account created",
		zap.String("account_id", account.AccountID),
		zap.String("role", account.Role),
		zap.Int("user_bucket", account.UserBucket))
	return nil
}

func (r *AccountRepositoryImpl) GetByID(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	bucket := r.bucketingMgr.AccountBucket(accountID.String())
	return r.getByBucketAndID(ctx, bucket, accountID.String())
}

func (r *AccountRepositoryImpl) GetByFIN(ctx context.Context, fin string) (*models.Account, error) {
	return r.getViaLookup(ctx, r.client.Prepared.GetFINLookup, fin)
}

func (r *AccountRepositoryImpl) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.getViaLookup(ctx, r.client.Prepared.GetEmailLookup, email)
}

func (r *AccountRepositoryImpl) GetByPhone(ctx context.Context, representations []string) (*models.Account, error) {
	for _, representation := range representations {
		account, err := r.getViaLookup(ctx, r.client.Prepared.GetPhoneLookup, representation)
		if err == ErrAccountNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		return account, nil
	}
	return nil, ErrAccountNotFound
}

func (r *AccountRepositoryImpl) FINExists(ctx context.Context, fin string) (bool, error) {
	return r.lookupExists(ctx, r.client.Prepared.GetFINLookup, fin)
}

func (r *AccountRepositoryImpl) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.lookupExists(ctx, r.client.Prepared.GetEmailLookup, email)
}

// UpdateKYCProfile back-fills verified identity attributes and refreshes the
// phone lookup rows.
func (r *AccountRepositoryImpl) UpdateKYCProfile(ctx context.Context, account *models.Account, phoneRepresentations []string) error {
	now := time.Now().UTC()
	account.UpdatedAt = &now

	query := r.client.Prepared.UpdateKYCProfile.WithContext(ctx).Bind(
		account.FullName, account.Phone, account.PhoneEncrypted,
		account.DateOfBirth, account.Gender, account.PhotoRef,
		account.PIIKeyID, now, account.UserBucket, account.AccountID)
	if err := query.Exec(); err != nil {
		return fmt.Errorf("failed to update KYC profile: %w", err)
	}

	for _, representation := range phoneRepresentations {
		lookup := r.client.Prepared.InsertPhoneLookup.WithContext(ctx).Bind(
			representation, account.UserBucket, account.AccountID, now)
		if err := lookup.Exec(); err != nil {
			return fmt.Errorf("failed to index phone representation: %w", err)
		}
	}
	return nil
}

func (r *AccountRepositoryImpl) SetPassword(ctx context.Context, accountID uuid.UUID, passwordHash string) error {
	bucket := r.bucketingMgr.AccountBucket(accountID.String())
	query := r.client.Prepared.SetPassword.WithContext(ctx).Bind(
		passwordHash, time.Now().UTC(), bucket, accountID.String())
	if err := query.Exec(); err != nil {
		return fmt.Errorf("failed to set password: %w", err)
	}
	return nil
}

func (r *AccountRepositoryImpl) UpdateRole(ctx context.Context, accountID uuid.UUID, role string) error {
	bucket := r.bucketingMgr.AccountBucket(accountID.String())
	query := r.client.Prepared.UpdateRole.WithContext(ctx).Bind(
		role, time.Now().UTC(), bucket, accountID.String())
	if err := query.Exec(); err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	return nil
}

func (r *AccountRepositoryImpl) MarkEmailVerified(ctx context.Context, accountID uuid.UUID) error {
	bucket := r.bucketingMgr.AccountBucket(accountID.String())
	query := r.client.Prepared.MarkEmailVerified.WithContext(ctx).Bind(
		time.Now().UTC(), bucket, accountID.String())
	if err := query.Exec(); err != nil {
		return fmt.Errorf("failed to mark email verified: %w", err)
	}
	return nil
}

// RecordFailedAttempt moves the failed-login counter forward with a
// conditional update, so two concurrent failures cannot both observe the same
// counter value and lose an increment.
func (r *AccountRepositoryImpl) RecordFailedAttempt(ctx context.Context, account *models.Account, expectedAttempts int, lockedUntil *time.Time) (bool, error) {
	now := time.Now().UTC()
	query := r.client.Query(`
        UPDATE accounts SET failed_attempts = ?, locked_until = ?, updated_at = ?
        WHERE user_bucket = ? AND account_id = ?
        IF failed_attempts = ?`,
		expectedAttempts+1, lockedUntil, now,
		account.UserBucket, account.AccountID,
		expectedAttempts).WithContext(ctx)

	applied, err := query.MapScanCAS(map[string]interface{}{})
	if err != nil {
		return false, fmt.Errorf("failed to record failed attempt: %w", err)
	}
	return applied, nil
}

func (r *AccountRepositoryImpl) ResetLockout(ctx context.Context, accountID uuid.UUID) error {
	bucket := r.bucketingMgr.AccountBucket(accountID.String())
	query := r.client.Prepared.ResetLockout.WithContext(ctx).Bind(
		time.Now().UTC(), bucket, accountID.String())
	if err := query.Exec(); err != nil {
		return fmt.Errorf("failed to reset lockout: %w", err)
	}
	return nil
}

func (r *AccountRepositoryImpl) UpdateLastLogin(ctx context.Context, accountID uuid.UUID, timestamp time.Time) error {
	bucket := r.bucketingMgr.AccountBucket(accountID.String())
	query := r.client.Prepared.UpdateLastLogin.WithContext(ctx).Bind(
		timestamp, bucket, accountID.String())
	if err := query.Exec(); err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

func (r *AccountRepositoryImpl) HealthCheck(ctx context.Context) error {
	return r.client.HealthCheck()
}

// helpers

func (r *AccountRepositoryImpl) claimLookup(ctx context.Context, stmt string, args ...interface{}) (bool, error) {
	query := r.client.Query(stmt, args...).WithContext(ctx)
	return query.MapScanCAS(map[string]interface{}{})
}

func (r *AccountRepositoryImpl) releaseFIN(ctx context.Context, fin string) {
	if fin == "" {
		return
	}
	if err := r.client.Query(`DELETE FROM fin_to_account WHERE fin = ?`, fin).WithContext(ctx).Exec(); err != nil {
		util.Warn("Failed to release FIN lookup after aborted registration",
			zap.Error(err))
	}
}

func (r *AccountRepositoryImpl) getViaLookup(ctx context.Context, lookup *gocql.Query, key string) (*models.Account, error) {
	var bucket int
	var accountID string

	query := lookup.WithContext(ctx).Bind(key)
	if err := r.client.ScanWithRetry(query, &bucket, &accountID); err != nil {
		if err == gocql.ErrNotFound {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("lookup failed: %w", err)
	}

	return r.getByBucketAndID(ctx, bucket, accountID)
}

func (r *AccountRepositoryImpl) lookupExists(ctx context.Context, lookup *gocql.Query, key string) (bool, error) {
	var bucket int
	var accountID string

	query := lookup.WithContext(ctx).Bind(key)
	err := query.Scan(&bucket, &accountID)
	if err == gocql.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup failed: %w", err)
	}
	return true, nil
}

func (r *AccountRepositoryImpl) getByBucketAndID(ctx context.Context, bucket int, accountID string) (*models.Account, error) {
	account := &models.Account{}

	query := r.client.Prepared.GetAccountByID.WithContext(ctx).Bind(bucket, accountID)
	err := r.client.ScanWithRetry(query,
		&account.UserBucket, &account.AccountID, &account.Email, &account.FIN,
		&account.FINEncrypted, &account.Phone, &account.PhoneEncrypted,
		&account.PIIKeyID, &account.FullName, &account.DateOfBirth,
		&account.Gender, &account.PhotoRef, &account.Role,
		&account.EmailVerified, &account.PasswordHash,
		&account.FailedAttempts, &account.LockedUntil,
		&account.CreatedAt, &account.LastLogin, &account.UpdatedAt)

	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, ErrAccountNotFound
		}
		util.Error("Failed to get account",
			zap.String("account_id", accountID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return account, nil
}
