package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"citizen-auth/internal/authn"
	"citizen-auth/internal/client"
	"citizen-auth/internal/config"
	"citizen-auth/internal/encryption"
	"citizen-auth/internal/fayda"
	"citizen-auth/internal/hashing"
	"citizen-auth/internal/models"
	"citizen-auth/internal/phone"
	redisrepo "citizen-auth/internal/repository/redis"
	"citizen-auth/internal/repository/scylla"
)

// fakeRepo is an in-memory AccountRepository with the same CAS semantics the
// ScyllaDB implementation provides for the lockout counter.
type fakeRepo struct {
	mu       sync.Mutex
	accounts map[string]*models.Account // account id -> account
	byFIN    map[string]string
	byEmail  map[string]string
	byPhone  map[string]string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		accounts: map[string]*models.Account{},
		byFIN:    map[string]string{},
		byEmail:  map[string]string{},
		byPhone:  map[string]string{},
	}
}

func (r *fakeRepo) CreateAccount(_ context.Context, account *models.Account, phoneRepresentations []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if account.FIN != "" {
		if _, ok := r.byFIN[account.FIN]; ok {
			return scylla.ErrDuplicateFIN
		}
	}
	if _, ok := r.byEmail[account.Email]; ok {
		return scylla.ErrDuplicateEmail
	}

	if account.AccountID == "" {
		account.AccountID = uuid.New().String()
	}
	account.CreatedAt = time.Now().UTC()

	copied := *account
	r.accounts[account.AccountID] = &copied
	if account.FIN != "" {
		r.byFIN[account.FIN] = account.AccountID
	}
	r.byEmail[account.Email] = account.AccountID
	for _, representation := range phoneRepresentations {
		r.byPhone[representation] = account.AccountID
	}
	return nil
}

func (r *fakeRepo) get(id string) (*models.Account, error) {
	account, ok := r.accounts[id]
	if !ok {
		return nil, scylla.ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

func (r *fakeRepo) GetByID(_ context.Context, accountID uuid.UUID) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(accountID.String())
}

func (r *fakeRepo) GetByFIN(_ context.Context, fin string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byFIN[fin]
	if !ok {
		return nil, scylla.ErrAccountNotFound
	}
	return r.get(id)
}

func (r *fakeRepo) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, scylla.ErrAccountNotFound
	}
	return r.get(id)
}

func (r *fakeRepo) GetByPhone(_ context.Context, representations []string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, representation := range representations {
		if id, ok := r.byPhone[representation]; ok {
			return r.get(id)
		}
	}
	return nil, scylla.ErrAccountNotFound
}

func (r *fakeRepo) FINExists(_ context.Context, fin string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byFIN[fin]
	return ok, nil
}

func (r *fakeRepo) EmailExists(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byEmail[email]
	return ok, nil
}

func (r *fakeRepo) UpdateKYCProfile(_ context.Context, account *models.Account, phoneRepresentations []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.accounts[account.AccountID]
	if !ok {
		return scylla.ErrAccountNotFound
	}
	stored.FullName = account.FullName
	stored.Phone = account.Phone
	stored.DateOfBirth = account.DateOfBirth
	stored.Gender = account.Gender
	for _, representation := range phoneRepresentations {
		r.byPhone[representation] = account.AccountID
	}
	return nil
}

func (r *fakeRepo) SetPassword(_ context.Context, accountID uuid.UUID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.accounts[accountID.String()]
	if !ok {
		return scylla.ErrAccountNotFound
	}
	stored.PasswordHash = passwordHash
	return nil
}

func (r *fakeRepo) UpdateRole(_ context.Context, accountID uuid.UUID, role string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.accounts[accountID.String()]
	if !ok {
		return scylla.ErrAccountNotFound
	}
	stored.Role = role
	return nil
}

func (r *fakeRepo) MarkEmailVerified(_ context.Context, accountID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.accounts[accountID.String()]
	if !ok {
		return scylla.ErrAccountNotFound
	}
	stored.EmailVerified = true
	return nil
}

func (r *fakeRepo) RecordFailedAttempt(_ context.Context, account *models.Account, expectedAttempts int, lockedUntil *time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.accounts[account.AccountID]
	if !ok {
		return false, scylla.ErrAccountNotFound
	}
	if stored.FailedAttempts != expectedAttempts {
		return false, nil
	}
	stored.FailedAttempts = expectedAttempts + 1
	stored.LockedUntil = lockedUntil
	return true, nil
}

func (r *fakeRepo) ResetLockout(_ context.Context, accountID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.accounts[accountID.String()]
	if !ok {
		return scylla.ErrAccountNotFound
	}
	stored.FailedAttempts = 0
	stored.LockedUntil = nil
	return nil
}

func (r *fakeRepo) UpdateLastLogin(_ context.Context, accountID uuid.UUID, timestamp time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.accounts[accountID.String()]
	if !ok {
		return scylla.ErrAccountNotFound
	}
	stored.LastLogin = &timestamp
	return nil
}

func (r *fakeRepo) HealthCheck(context.Context) error { return nil }

// fakeVerifier plays the identity provider.
type fakeVerifier struct {
	mu          sync.Mutex
	txnSeq      int
	otpRequests int
	knownFINs   map[string]*fayda.KYCRecord
	validOTP    string
}

func newFakeVerifier() *fakeVerifier {
	return &fakeVerifier{
		knownFINs: map[string]*fayda.KYCRecord{},
		validOTP:  "123456",
	}
}

func (v *fakeVerifier) RequestOTP(_ context.Context, fin string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.otpRequests++
	if _, ok := v.knownFINs[fin]; !ok {
		return "", fayda.ErrUnknownFIN
	}
	v.txnSeq++
	return uuid.New().String(), nil
}

func (v *fakeVerifier) requestCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.otpRequests
}

func (v *fakeVerifier) VerifyOTP(_ context.Context, fin, _, otp string) (*fayda.KYCRecord, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	kyc, ok := v.knownFINs[fin]
	if !ok {
		return nil, fayda.ErrUnknownFIN
	}
	if otp != v.validOTP {
		return nil, fayda.ErrInvalidOTP
	}
	return kyc, nil
}

type serviceFixture struct {
	svc      *AccountService
	admin    *AdminService
	repo     *fakeRepo
	verifier *fakeVerifier
	redis    *miniredis.Miniredis
}

func newFixture(t *testing.T) *serviceFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	rc := client.NewRedisClientFromAddr(mr.Addr())
	logger := zap.NewNop()

	cfg := &config.Config{
		Hashing: config.HashingConfig{
			Argon2MemoryCost:  1024,
			Argon2TimeCost:    1,
			Argon2Parallelism: 1,
		},
		KMS: config.KMSConfig{Enabled: false},
	}
	authCfg := &config.AuthConfig{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		OTPTxnTTL:       5 * time.Minute,
	}

	sessions := redisrepo.NewSessionCache(rc, authCfg.RefreshTokenTTL, logger)
	provider := authn.NewLocal(hashing.NewHasher(cfg), sessions, authCfg, logger)
	repo := newFakeRepo()
	verifier := newFakeVerifier()

	svc := NewAccountService(
		repo,
		provider,
		verifier,
		redisrepo.NewOTPTxnCache(rc, authCfg.OTPTxnTTL, logger),
		redisrepo.NewEmailTokenCache(rc, time.Hour, logger),
		encryption.NewEncryptionManager(cfg, nil),
		nil, // events
		nil, // audit
		nil, // search index
		config.LockoutConfig{MaxAttempts: 5, LockDuration: 15 * time.Minute},
		logger,
	)
	admin := NewAdminService(svc, repo, provider, nil, logger)

	return &serviceFixture{svc: svc, admin: admin, repo: repo, verifier: verifier, redis: mr}
}

const (
	testFIN      = "123456789012"
	testPassword = "correct-horse"
)

func (f *serviceFixture) register(t *testing.T) *AuthResult {
	t.Helper()
	ctx := context.Background()

	f.verifier.knownFINs[testFIN] = &fayda.KYCRecord{
		FullName:    "Abebe Bikila",
		Phone:       "0911223344",
		DateOfBirth: "1990-01-01",
		Gender:      "male",
	}

	txnID, err := f.svc.InitiateRegistration(ctx, testFIN)
	require.NoError(t, err)

	result, err := f.svc.CompleteRegistration(ctx, &RegistrationRequest{
		FIN:      testFIN,
		TxnID:    txnID,
		OTP:      "123456",
		Email:    "abebe@example.com",
		Password: testPassword,
	}, "10.0.0.1", "test")
	require.NoError(t, err)
	return result
}

func TestRegistrationFlow(t *testing.T) {
	f := newFixture(t)
	result := f.register(t)

	assert.Equal(t, "abebe@example.com", result.Account.Email)
	assert.Equal(t, "Abebe Bikila", result.Account.FullName)
	assert.Equal(t, models.RoleCitizen, result.Account.Role)
	assert.NotEmpty(t, result.Tokens.AccessToken)

	// The stored phone is canonical international form.
	account, err := f.repo.GetByFIN(context.Background(), testFIN)
	require.NoError(t, err)
	assert.Equal(t, "+251911223344", account.Phone)
}

func TestRegistrationRejectsBadFIN(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.InitiateRegistration(context.Background(), "12345")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRegistrationUnknownFIN(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.InitiateRegistration(context.Background(), "999999999999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistrationDuplicateFIN(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	requestsAfterRegister := f.verifier.requestCount()

	_, err := f.svc.InitiateRegistration(context.Background(), testFIN)
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	// The conflict is decided locally; the provider must not be contacted.
	assert.Equal(t, requestsAfterRegister, f.verifier.requestCount())
}

func TestRegistrationWrongOTP(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.verifier.knownFINs[testFIN] = &fayda.KYCRecord{FullName: "A", Phone: "0911223344"}
	txnID, err := f.svc.InitiateRegistration(ctx, testFIN)
	require.NoError(t, err)

	_, err = f.svc.CompleteRegistration(ctx, &RegistrationRequest{
		FIN: testFIN, TxnID: txnID, OTP: "000000",
		Email: "a@example.com", Password: testPassword,
	}, "", "")
	assert.ErrorIs(t, err, ErrVerificationFailed)
}

func TestRegistrationTxnCannotBeReplayed(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	ctx := context.Background()

	// A second registration reusing any old transaction id must fail: the
	// transaction was consumed on success.
	_, err := f.svc.CompleteRegistration(ctx, &RegistrationRequest{
		FIN: testFIN, TxnID: "stale", OTP: "123456",
		Email: "other@example.com", Password: testPassword,
	}, "", "")
	assert.ErrorIs(t, err, ErrVerificationFailed)
}

func TestLoginByEachIdentifierForm(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	ctx := context.Background()

	for _, identifier := range []string{
		testFIN,
		"0911223344",
		"+251911223344",
		"abebe@example.com",
	} {
		result, err := f.svc.Login(ctx, identifier, testPassword, "10.0.0.1", "test")
		require.NoError(t, err, "identifier %q", identifier)
		assert.Equal(t, "abebe@example.com", result.Account.Email)
	}
}

func TestLoginUnknownIdentifier(t *testing.T) {
	f := newFixture(t)
	f.register(t)

	_, err := f.svc.Login(context.Background(), "0999999999", testPassword, "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// No attempt countdown for identifiers without an account: the error must
	// not reveal that nothing exists to lock.
	var credErr *InvalidCredentialsError
	assert.False(t, errors.As(err, &credErr))
}

func TestTwelveDigitsNeverResolvesAsPhone(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	ctx := context.Background()

	// 251911223344 is 12 digits: it must classify as a FIN lookup (which
	// misses) rather than falling back to phone resolution.
	assert.Equal(t, phone.KindFIN, func() phone.IdentifierKind {
		_, kind := phone.Classify("251911223344")
		return kind
	}())

	_, err := f.svc.Login(ctx, "251911223344", testPassword, "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLockoutAfterMaxFailures(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := f.svc.Login(ctx, testFIN, "wrong-password", "", "")
		assert.ErrorIs(t, err, ErrInvalidCredentials, "attempt %d", i+1)
	}

	// The fifth failure locks the account.
	_, err := f.svc.Login(ctx, testFIN, "wrong-password", "", "")
	assert.ErrorIs(t, err, ErrAccountLocked)

	// Even the correct password is rejected while locked.
	_, err = f.svc.Login(ctx, testFIN, testPassword, "", "")
	assert.ErrorIs(t, err, ErrAccountLocked)

	account, err := f.repo.GetByFIN(ctx, testFIN)
	require.NoError(t, err)
	require.NotNil(t, account.LockedUntil)
	assert.WithinDuration(t, time.Now().UTC().Add(15*time.Minute), *account.LockedUntil, time.Minute)
}

func TestFailedLoginReportsRemainingAttempts(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	ctx := context.Background()

	// Attempts 1-4 report the countdown: 4, 3, 2, 1 remaining.
	for i := 1; i <= 4; i++ {
		_, err := f.svc.Login(ctx, testFIN, "wrong-password", "", "")

		var credErr *InvalidCredentialsError
		require.ErrorAs(t, err, &credErr, "attempt %d", i)
		assert.Equal(t, 5-i, credErr.RemainingAttempts, "attempt %d", i)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	_, err := f.svc.Login(ctx, testFIN, "wrong-password", "", "")
	assert.ErrorIs(t, err, ErrAccountLocked)
}

func TestLockExpiryReopensLogin(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	ctx := context.Background()

	account, err := f.repo.GetByFIN(ctx, testFIN)
	require.NoError(t, err)

	past := time.Now().UTC().Add(-time.Minute)
	stored := f.repo.accounts[account.AccountID]
	stored.FailedAttempts = 5
	stored.LockedUntil = &past

	result, err := f.svc.Login(ctx, testFIN, testPassword, "", "")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Tokens.AccessToken)

	// Success resets the counter.
	account, err = f.repo.GetByFIN(ctx, testFIN)
	require.NoError(t, err)
	assert.Equal(t, 0, account.FailedAttempts)
	assert.Nil(t, account.LockedUntil)
}

func TestSuccessResetsCounter(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = f.svc.Login(ctx, testFIN, "wrong-password", "", "")
	}
	_, err := f.svc.Login(ctx, testFIN, testPassword, "", "")
	require.NoError(t, err)

	// The window restarts: four more failures before the lock, not two.
	for i := 0; i < 4; i++ {
		_, err := f.svc.Login(ctx, testFIN, "wrong-password", "", "")
		assert.ErrorIs(t, err, ErrInvalidCredentials, "attempt %d", i+1)
	}
	_, err = f.svc.Login(ctx, testFIN, "wrong-password", "", "")
	assert.ErrorIs(t, err, ErrAccountLocked)
}

func TestConcurrentFailuresLoseNoIncrements(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	ctx := context.Background()

	// Ten goroutines race wrong-password attempts. The CAS contract means
	// the counter advances by exactly one per applied update; once it
	// reaches the threshold the account must be locked.
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 3; j++ {
				_, _ = f.svc.Login(ctx, testFIN, "wrong-password", "", "")
			}
		}()
	}
	wg.Wait()

	account, err := f.repo.GetByFIN(ctx, testFIN)
	require.NoError(t, err)
	assert.True(t, account.IsLocked(time.Now().UTC()))

	_, err = f.svc.Login(ctx, testFIN, testPassword, "", "")
	assert.ErrorIs(t, err, ErrAccountLocked)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	ctx := context.Background()

	txnID, err := f.svc.InitiatePasswordReset(ctx, testFIN)
	require.NoError(t, err)

	require.NoError(t, f.svc.CompletePasswordReset(ctx, testFIN, txnID, "123456", "new-password-1"))

	_, err = f.svc.Login(ctx, testFIN, testPassword, "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	result, err := f.svc.Login(ctx, testFIN, "new-password-1", "", "")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Tokens.AccessToken)
}

func TestPasswordResetClearsLockout(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _ = f.svc.Login(ctx, testFIN, "wrong-password", "", "")
	}
	_, err := f.svc.Login(ctx, testFIN, testPassword, "", "")
	require.ErrorIs(t, err, ErrAccountLocked)

	txnID, err := f.svc.InitiatePasswordReset(ctx, testFIN)
	require.NoError(t, err)
	require.NoError(t, f.svc.CompletePasswordReset(ctx, testFIN, txnID, "123456", "new-password-1"))

	result, err := f.svc.Login(ctx, testFIN, "new-password-1", "", "")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Tokens.AccessToken)
}

func TestPasswordResetRevokesSessions(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	ctx := context.Background()

	result, err := f.svc.Login(ctx, testFIN, testPassword, "", "")
	require.NoError(t, err)

	txnID, err := f.svc.InitiatePasswordReset(ctx, testFIN)
	require.NoError(t, err)
	require.NoError(t, f.svc.CompletePasswordReset(ctx, testFIN, txnID, "123456", "new-password-1"))

	_, err = f.svc.RefreshSession(ctx, result.Tokens.RefreshToken, "", "")
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestPasswordResetUnknownFINIndistinguishable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// An unregistered FIN gets the same OTP-sent shape as a registered one,
	// without a provider call, so the response does not reveal which FINs
	// have accounts.
	txnID, err := f.svc.InitiatePasswordReset(ctx, "999999999999")
	require.NoError(t, err)
	assert.NotEmpty(t, txnID)
	assert.Zero(t, f.verifier.requestCount())

	// The decoy transaction can never complete a reset.
	err = f.svc.CompletePasswordReset(ctx, "999999999999", txnID, "123456", "new-password-1")
	assert.ErrorIs(t, err, ErrVerificationFailed)
}

func TestPasswordResetRefreshesKYCAttributes(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	ctx := context.Background()

	// The registry has new attributes since registration.
	f.verifier.knownFINs[testFIN] = &fayda.KYCRecord{
		FullName:    "Abebe B. Demissie",
		Phone:       "0911998877",
		DateOfBirth: "1990-01-01",
		Gender:      "male",
	}

	txnID, err := f.svc.InitiatePasswordReset(ctx, testFIN)
	require.NoError(t, err)
	require.NoError(t, f.svc.CompletePasswordReset(ctx, testFIN, txnID, "123456", "new-password-1"))

	account, err := f.repo.GetByFIN(ctx, testFIN)
	require.NoError(t, err)
	assert.Equal(t, "Abebe B. Demissie", account.FullName)
	assert.Equal(t, "+251911998877", account.Phone)

	// The refreshed phone resolves on login.
	result, err := f.svc.Login(ctx, "0911998877", "new-password-1", "", "")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Tokens.AccessToken)
}

func TestResetTxnRejectedForRegistration(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	ctx := context.Background()

	// A password-reset transaction must not complete a registration.
	txnID, err := f.svc.InitiatePasswordReset(ctx, testFIN)
	require.NoError(t, err)

	_, err = f.svc.CompleteRegistration(ctx, &RegistrationRequest{
		FIN: testFIN, TxnID: txnID, OTP: "123456",
		Email: "other@example.com", Password: testPassword,
	}, "", "")
	assert.ErrorIs(t, err, ErrVerificationFailed)
}

func TestSignUpAndEmailVerification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, verifyToken, err := f.svc.SignUp(ctx, "new@example.com", testPassword, "New User", "", "")
	require.NoError(t, err)
	require.NotEmpty(t, verifyToken)
	assert.False(t, result.Account.EmailVerified)

	require.NoError(t, f.svc.VerifyEmail(ctx, verifyToken))

	profile, err := f.svc.Profile(ctx, result.Account.AccountID)
	require.NoError(t, err)
	assert.True(t, profile.EmailVerified)

	// Tokens are single-use.
	assert.ErrorIs(t, f.svc.VerifyEmail(ctx, verifyToken), ErrVerificationFailed)
}

func TestSignUpDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.SignUp(ctx, "dup@example.com", testPassword, "", "", "")
	require.NoError(t, err)

	_, _, err = f.svc.SignUp(ctx, "dup@example.com", testPassword, "", "", "")
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
}

func TestSignOutRevokesRefresh(t *testing.T) {
	f := newFixture(t)
	f.register(t)
	ctx := context.Background()

	result, err := f.svc.Login(ctx, testFIN, testPassword, "", "")
	require.NoError(t, err)

	require.NoError(t, f.svc.SignOut(ctx, result.Tokens.RefreshToken))

	_, err = f.svc.RefreshSession(ctx, result.Tokens.RefreshToken, "", "")
	assert.ErrorIs(t, err, ErrSessionExpired)
}
