package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"citizen-auth/internal/audit"
	"citizen-auth/internal/authn"
	"citizen-auth/internal/config"
	"citizen-auth/internal/encryption"
	"citizen-auth/internal/events"
	"citizen-auth/internal/fayda"
	"citizen-auth/internal/models"
	"citizen-auth/internal/phone"
	redisrepo "citizen-auth/internal/repository/redis"
	"citizen-auth/internal/repository/scylla"
	"citizen-auth/internal/search"
	"citizen-auth/internal/util"
)

const minPasswordLength = 8

// IdentityVerifier is the slice of the national-ID gateway the account flows
// need.
type IdentityVerifier interface {
	RequestOTP(ctx context.Context, fin string) (string, error)
	VerifyOTP(ctx context.Context, fin, txnID, otp string) (*fayda.KYCRecord, error)
}

// RegistrationRequest completes a FIN-verified registration.
type RegistrationRequest struct {
	FIN      string `json:"fin"`
	TxnID    string `json:"transaction_id"`
	OTP      string `json:"otp"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AccountProfile is the client-visible projection of an account.
type AccountProfile struct {
	AccountID     string     `json:"account_id"`
	Email         string     `json:"email"`
	FullName      string     `json:"full_name,omitempty"`
	DateOfBirth   string     `json:"date_of_birth,omitempty"`
	Gender        string     `json:"gender,omitempty"`
	Role          string     `json:"role"`
	EmailVerified bool       `json:"email_verified"`
	CreatedAt     time.Time  `json:"created_at"`
	LastLogin     *time.Time `json:"last_login,omitempty"`
}

// AuthResult is what a successful registration or login returns.
type AuthResult struct {
	Account *AccountProfile  `json:"account"`
	Tokens  *authn.TokenPair `json:"tokens"`
}

// AccountService implements the citizen-facing flows: FIN-verified
// registration, login with lockout, password reset, and the standard
// email/password surface.
type AccountService struct {
	repo        scylla.AccountRepository
	provider    authn.Provider
	verifier    IdentityVerifier
	otpTxns     *redisrepo.OTPTxnCache
	emailTokens *redisrepo.EmailTokenCache
	crypto      *encryption.EncryptionManager
	events      *events.Publisher
	audit       *audit.Recorder
	index       *search.AccountIndex
	lockout     config.LockoutConfig
	logger      *zap.Logger
}

func NewAccountService(
	repo scylla.AccountRepository,
	provider authn.Provider,
	verifier IdentityVerifier,
	otpTxns *redisrepo.OTPTxnCache,
	emailTokens *redisrepo.EmailTokenCache,
	crypto *encryption.EncryptionManager,
	eventPublisher *events.Publisher,
	auditRecorder *audit.Recorder,
	accountIndex *search.AccountIndex,
	lockout config.LockoutConfig,
	logger *zap.Logger,
) *AccountService {
	return &AccountService{
		repo:        repo,
		provider:    provider,
		verifier:    verifier,
		otpTxns:     otpTxns,
		emailTokens: emailTokens,
		crypto:      crypto,
		events:      eventPublisher,
		audit:       auditRecorder,
		index:       accountIndex,
		lockout:     lockout,
		logger:      logger,
	}
}

// InitiateRegistration validates the FIN, checks it is not already bound to an
// account, and asks the identity provider to send an OTP. Returns the
// transaction id the client must echo back.
func (s *AccountService) InitiateRegistration(ctx context.Context, fin string) (string, error) {
	fin = phone.Normalize(fin)
	if !phone.IsFIN(fin) {
		return "", fmt.Errorf("%w: identifier is not a 12-digit FIN", ErrInvalidInput)
	}

	exists, err := s.repo.FINExists(ctx, fin)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDependencyFailed, err)
	}
	if exists {
		return "", ErrAlreadyRegistered
	}

	txnID, err := s.verifier.RequestOTP(ctx, fin)
	if err != nil {
		return "", mapVerifierError(err)
	}

	txn := &redisrepo.OTPTxn{TxnID: txnID, FIN: fin, Purpose: redisrepo.PurposeRegistration}
	if err := s.otpTxns.Store(ctx, txn); err != nil {
		return "", fmt.Errorf("%w: %v", ErrDependencyFailed, err)
	}

	util.Info("Registration initiated", zap.String("fin", util.MaskFIN(fin)))
	return txnID, nil
}

// CompleteRegistration verifies the OTP, pulls the KYC record, and creates the
// account with the verified identity attributes.
func (s *AccountService) CompleteRegistration(ctx context.Context, req *RegistrationRequest, ipAddress, userAgent string) (*AuthResult, error) {
	req.FIN = phone.Normalize(req.FIN)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if !phone.IsFIN(req.FIN) {
		return nil, fmt.Errorf("%w: identifier is not a 12-digit FIN", ErrInvalidInput)
	}
	if err := validateEmail(req.Email); err != nil {
		return nil, err
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}
	if req.TxnID == "" || req.OTP == "" {
		return nil, fmt.Errorf("%w: transaction id and otp are required", ErrInvalidInput)
	}

	kyc, err := s.verifyOTPTxn(ctx, req.FIN, req.TxnID, req.OTP, redisrepo.PurposeRegistration)
	if err != nil {
		return nil, err
	}

	passwordHash, err := s.provider.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDependencyFailed, err)
	}

	canonicalPhone := phone.Canonical(kyc.Phone)
	finEncrypted, piiKeyID, err := s.crypto.EncryptPII(ctx, req.FIN)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDependencyFailed, err)
	}
	phoneEncrypted, _, err := s.crypto.EncryptPII(ctx, canonicalPhone)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDependencyFailed, err)
	}

	account := &models.Account{
		Email:          req.Email,
		FIN:            req.FIN,
		FINEncrypted:   finEncrypted,
		Phone:          canonicalPhone,
		PhoneEncrypted: phoneEncrypted,
		PIIKeyID:       piiKeyID,
		FullName:       kyc.FullName,
		DateOfBirth:    kyc.DateOfBirth,
		Gender:         kyc.Gender,
		PhotoRef:       kyc.PhotoRef,
		Role:           models.RoleCitizen,
		PasswordHash:   passwordHash,
	}

	if err := s.repo.CreateAccount(ctx, account, phone.Variants(canonicalPhone)); err != nil {
		if errors.Is(err, scylla.ErrDuplicateFIN) || errors.Is(err, scylla.ErrDuplicateEmail) {
			return nil, ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("%w: %v", ErrDependencyFailed, err)
	}

	tokens, err := s.provider.IssueSession(ctx, account, ipAddress, userAgent)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDependencyFailed, err)
	}

	s.events.Emit(ctx, &models.SecurityEvent{
		EventType: models.EventRegistration,
		AccountID: account.AccountID,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	})
	s.index.Index(ctx, account)

	util.Info("Registration completed",
		zap.String("account_id", account.AccountID),
		zap.String("fin", util.MaskFIN(req.FIN)))

	return &AuthResult{Account: profileOf(account), Tokens: tokens}, nil
}

// Login authenticates by FIN, phone (any representation), or email, enforcing
// the failed-attempt lockout policy.
func (s *AccountService) Login(ctx context.Context, identifier, password, ipAddress, userAgent string) (*AuthResult, error) {
	identifier = phone.Normalize(identifier)
	if identifier == "" || password == "" {
		return nil, fmt.Errorf("%w: identifier and password are required", ErrInvalidInput)
	}

	account, kind, err := s.resolveAccount(ctx, identifier)
	if errors.Is(err, scylla.ErrAccountNotFound) {
		s.audit.RecordLogin(ctx, &models.LoginAudit{
			IdentifierKind: kind,
			Outcome:        models.LoginOutcomeNotFound,
			IPAddress:      ipAddress,
			UserAgent:      userAgent,
		})
		// Deliberately indistinguishable from a bad password.
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDependencyFailed, err)
	}

	now := time.Now().UTC()
	if account.IsLocked(now) {
		s.audit.RecordLogin(ctx, &models.LoginAudit{
			AccountID:      account.AccountID,
			IdentifierKind: kind,
			Outcome:        models.LoginOutcomeLocked,
			IPAddress:      ipAddress,
			UserAgent:      userAgent,
		})
		return nil, ErrAccountLocked
	}

	ok, err := s.provider.VerifyPassword(password, account.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDependencyFailed, err)
	}
	if !ok {
		return nil, s.handleFailedAttempt(ctx, account, kind, ipAddress, userAgent)
	}

	if account.FailedAttempts > 0 || account.LockedUntil != nil {
		if err := s.repo.ResetLockout(ctx, uuid.MustParse(account.AccountID)); err != nil {
			util.Warn("Failed to reset lockout state",
				zap.String("account_id", account.AccountID),
				zap.Error(err))
		}
	}
	if err := s.repo.UpdateLastLogin(ctx, uuid.MustParse(account.AccountID), now); err != nil {
		util.Warn("Failed to update last login",
			zap.String("account_id", account.AccountID),
			zap.Error(err))
	}
	account.LastLogin = &now

	tokens, err := s.provider.IssueSession(ctx, account, ipAddress, userAgent)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDependencyFailed, err)
	}

	s.events.Emit(ctx, &models.SecurityEvent{
		EventType: models.EventLoginSuccess,
		AccountID: account.AccountID,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	})
	s.audit.RecordLogin(ctx, &models.LoginAudit{
		AccountID:      account.AccountID,
		IdentifierKind: kind,
		Outcome:        models.LoginOutcomeSuccess,
		IPAddress:      ipAddress,
		UserAgent:      userAgent,
	})

	return &AuthResult{Account: profileOf(account), Tokens: tokens}, nil
}

// handleFailedAttempt advances the lockout counter with a conditional update.
// When the update loses to a concurrent attempt the account is re-read so a
// lock applied by the winner is still reported to this caller.
func (s *AccountService) handleFailedAttempt(ctx context.Context, account *models.Account, kind, ipAddress, userAgent string) error {
	attempts := account.FailedAttempts + 1
	var lockedUntil *time.Time
	if attempts >= s.lockout.MaxAttempts {
		until := time.Now().UTC().Add(s.lockout.LockDuration)
		lockedUntil = &until
	}

	applied, err := s.repo.RecordFailedAttempt(ctx, account, account.FailedAttempts, lockedUntil)
	if err != nil {
		util.Error("Failed to record login failure",
			zap.String("account_id", account.AccountID),
			zap.Error(err))
		return ErrInvalidCredentials
	}

	if !applied {
		fresh, ferr := s.repo.GetByID(ctx, uuid.MustParse(account.AccountID))
		if ferr != nil {
			return ErrInvalidCredentials
		}
		if fresh.IsLocked(time.Now().UTC()) {
			return ErrAccountLocked
		}
		return &InvalidCredentialsError{
			RemainingAttempts: remainingAttempts(s.lockout.MaxAttempts, fresh.FailedAttempts),
		}
	}

	remaining := remainingAttempts(s.lockout.MaxAttempts, attempts)

	s.audit.RecordLogin(ctx, &models.LoginAudit{
		AccountID:         account.AccountID,
		IdentifierKind:    kind,
		Outcome:           models.LoginOutcomeBadPassword,
		RemainingAttempts: int32(remaining),
		IPAddress:         ipAddress,
		UserAgent:         userAgent,
	})
	s.events.Emit(ctx, &models.SecurityEvent{
		EventType: models.EventLoginFailed,
		AccountID: account.AccountID,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	})

	if lockedUntil != nil {
		s.events.Emit(ctx, &models.SecurityEvent{
			EventType: models.EventAccountLocked,
			AccountID: account.AccountID,
			IPAddress: ipAddress,
			Details:   fmt.Sprintf("locked until %s", lockedUntil.Format(time.RFC3339)),
		})
		util.Warn("Account locked after repeated failures",
			zap.String("account_id", account.AccountID),
			zap.Time("locked_until", *lockedUntil))
		return ErrAccountLocked
	}

	return &InvalidCredentialsError{RemainingAttempts: remaining}
}

func remainingAttempts(maxAttempts, failedAttempts int) int {
	remaining := maxAttempts - failedAttempts
	if remaining < 0 {
		return 0
	}
	return remaining
}

// InitiatePasswordReset starts an OTP-verified reset for the account bound to
// the FIN.
func (s *AccountService) InitiatePasswordReset(ctx context.Context, fin string) (string, error) {
	fin = phone.Normalize(fin)
	if !phone.IsFIN(fin) {
		return "", fmt.Errorf("%w: identifier is not a 12-digit FIN", ErrInvalidInput)
	}

	if _, err := s.repo.GetByFIN(ctx, fin); err != nil {
		if errors.Is(err, scylla.ErrAccountNotFound) {
			// The response must not confirm whether the FIN has an account.
			// Hand back a decoy transaction id that can never verify; the
			// provider is not contacted.
			util.Info("Password reset for unregistered FIN",
				zap.String("fin", util.MaskFIN(fin)))
			return uuid.NewString(), nil
		}
		return "", fmt.Errorf("%w: %v", ErrDependencyFailed, err)
	}

	txnID, err := s.verifier.RequestOTP(ctx, fin)
	if err != nil {
		return "", mapVerifierError(err)
	}

	txn := &redisrepo.OTPTxn{TxnID: txnID, FIN: fin, Purpose: redisrepo.PurposePasswordReset}
	if err := s.otpTxns.Store(ctx, txn); err != nil {
		return "", fmt.Errorf("%w: %v", ErrDependencyFailed, err)
	}

	util.Info("Password reset initiated", zap.String("fin", util.MaskFIN(fin)))
	return txnID, nil
}

// CompletePasswordReset verifies the OTP, sets the new password, clears any
// lockout, and revokes every live session for the account.
func (s *AccountService) CompletePasswordReset(ctx context.Context, fin, txnID, otp, newPassword string) error {
	fin = phone.Normalize(fin)
	if !phone.IsFIN(fin) {
		return fmt.Errorf("%w: identifier is not a 12-digit FIN", ErrInvalidInput)
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	kyc, err := s.verifyOTPTxn(ctx, fin, txnID, otp, redisrepo.PurposePasswordReset)
	if err != nil {
		return err
	}

	account, err := s.repo.GetByFIN(ctx, fin)
	if err != nil {
		if errors.Is(err, scylla.ErrAccountNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrDependencyFailed, err)
	}

	passwordHash, err := s.provider.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDependencyFailed, err)
	}

	accountID := uuid.MustParse(account.AccountID)
	if err := s.repo.SetPassword(ctx, accountID, passwordHash); err != nil {
		return fmt.Errorf("%w: %v", ErrDependencyFailed, err)
	}
	if err := s.repo.ResetLockout(ctx, accountID); err != nil {
		util.Warn("Failed to reset lockout after password reset",
			zap.String("account_id", account.AccountID),
			zap.Error(err))
	}
	if err := s.provider.RevokeAllSessions(ctx, account.AccountID); err != nil {
		util.Warn("Failed to revoke sessions after password reset",
			zap.String("account_id", account.AccountID),
			zap.Error(err))
	}

	s.refreshKYCAttributes(ctx, account, kyc)

	s.events.Emit(ctx, &models.SecurityEvent{
		EventType: models.EventPasswordReset,
		AccountID: account.AccountID,
	})

	util.Info("Password reset completed", zap.String("account_id", account.AccountID))
	return nil
}

// SignUp creates an email/password account with no verified identity
// attributes. Returns the email verification token alongside the session.
func (s *AccountService) SignUp(ctx context.Context, email, password, fullName, ipAddress, userAgent string) (*AuthResult, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateEmail(email); err != nil {
		return nil, "", err
	}
	if err := validatePassword(password); err != nil {
		return nil, "", err
	}

	passwordHash, err := s.provider.HashPassword(password)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDependencyFailed, err)
	}

	account := &models.Account{
		Email:        email,
		FullName:     strings.TrimSpace(fullName),
		Role:         models.RoleCitizen,
		PasswordHash: passwordHash,
	}

	if err := s.repo.CreateAccount(ctx, account, nil); err != nil {
		if errors.Is(err, scylla.ErrDuplicateEmail) {
			return nil, "", ErrAlreadyRegistered
		}
		return nil, "", fmt.Errorf("%w: %v", ErrDependencyFailed, err)
	}

	tokens, err := s.provider.IssueSession(ctx, account, ipAddress, userAgent)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDependencyFailed, err)
	}

	verifyToken, err := s.emailTokens.Issue(ctx, account.AccountID)
	if err != nil {
		util.Warn("Failed to issue email verification token",
			zap.String("account_id", account.AccountID),
			zap.Error(err))
		verifyToken = ""
	}

	s.events.Emit(ctx, &models.SecurityEvent{
		EventType: models.EventRegistration,
		AccountID: account.AccountID,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		Details:   "email signup",
	})
	s.index.Index(ctx, account)

	return &AuthResult{Account: profileOf(account), Tokens: tokens}, verifyToken, nil
}

// VerifyEmail consumes a verification token and marks the account's email
// address verified.
func (s *AccountService) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("%w: token is required", ErrInvalidInput)
	}

	accountID, err := s.emailTokens.Consume(ctx, token)
	if errors.Is(err, redisrepo.ErrEmailTokenNotFound) {
		return ErrVerificationFailed
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDependencyFailed, err)
	}

	parsed, err := uuid.Parse(accountID)
	if err != nil {
		return ErrVerificationFailed
	}
	if err := s.repo.MarkEmailVerified(ctx, parsed); err != nil {
		return fmt.Errorf("%w: %v", ErrDependencyFailed, err)
	}

	if account, gerr := s.repo.GetByID(ctx, parsed); gerr == nil {
		s.index.Index(ctx, account)
	}

	s.events.Emit(ctx, &models.SecurityEvent{
		EventType: models.EventEmailVerified,
		AccountID: accountID,
	})
	return nil
}

// RequestEmailVerification issues a fresh verification token for the account.
func (s *AccountService) RequestEmailVerification(ctx context.Context, accountID string) (string, error) {
	token, err := s.emailTokens.Issue(ctx, accountID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDependencyFailed, err)
	}
	return token, nil
}

// RefreshSession exchanges a refresh token for a new token pair.
func (s *AccountService) RefreshSession(ctx context.Context, refreshToken, ipAddress, userAgent string) (*authn.TokenPair, error) {
	tokens, err := s.provider.RefreshSession(ctx, refreshToken, ipAddress, userAgent)
	if errors.Is(err, authn.ErrSessionRevoked) {
		return nil, ErrSessionExpired
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDependencyFailed, err)
	}
	return tokens, nil
}

// SignOut revokes the presented refresh token. Unknown tokens are a no-op.
func (s *AccountService) SignOut(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return fmt.Errorf("%w: refresh token is required", ErrInvalidInput)
	}
	if err := s.provider.RevokeSession(ctx, refreshToken); err != nil {
		return fmt.Errorf("%w: %v", ErrDependencyFailed, err)
	}
	return nil
}

// ValidateAccess checks an access token and returns its claims.
func (s *AccountService) ValidateAccess(tokenString string) (*authn.Claims, error) {
	claims, err := s.provider.ValidateAccessToken(tokenString)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	return claims, nil
}

// Profile returns the client-visible projection of an account.
func (s *AccountService) Profile(ctx context.Context, accountID string) (*AccountProfile, error) {
	parsed, err := uuid.Parse(accountID)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed account id", ErrInvalidInput)
	}

	account, err := s.repo.GetByID(ctx, parsed)
	if errors.Is(err, scylla.ErrAccountNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDependencyFailed, err)
	}
	return profileOf(account), nil
}

// resolveAccount classifies the identifier and fetches the account it names.
// Emails resolve by exact address, 12-digit strings by FIN, everything else
// by phone representation set.
func (s *AccountService) resolveAccount(ctx context.Context, identifier string) (*models.Account, string, error) {
	if strings.Contains(identifier, "@") {
		account, err := s.repo.GetByEmail(ctx, strings.ToLower(identifier))
		return account, "email", err
	}

	id, kind := phone.Classify(identifier)
	if kind == phone.KindFIN {
		account, err := s.repo.GetByFIN(ctx, id)
		return account, string(phone.KindFIN), err
	}

	account, err := s.repo.GetByPhone(ctx, phone.Variants(id))
	return account, string(phone.KindPhone), err
}

// verifyOTPTxn runs the shared transaction checks: the transaction must
// exist, match the flow it was issued for, be under the attempt cap, and
// carry an OTP the provider accepts. Successful verifications consume the
// transaction.
func (s *AccountService) verifyOTPTxn(ctx context.Context, fin, txnID, otp, purpose string) (*fayda.KYCRecord, error) {
	txn, err := s.otpTxns.Get(ctx, txnID)
	if errors.Is(err, redisrepo.ErrTxnNotFound) {
		return nil, ErrVerificationFailed
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDependencyFailed, err)
	}
	if txn.FIN != fin || txn.Purpose != purpose {
		return nil, ErrVerificationFailed
	}

	if err := s.otpTxns.RecordAttempt(ctx, txnID); err != nil {
		if errors.Is(err, redisrepo.ErrTooManyOTPRetries) {
			_ = s.otpTxns.Consume(ctx, txnID)
			return nil, ErrVerificationFailed
		}
		return nil, fmt.Errorf("%w: %v", ErrDependencyFailed, err)
	}

	kyc, err := s.verifier.VerifyOTP(ctx, fin, txnID, otp)
	if err != nil {
		return nil, mapVerifierError(err)
	}

	if err := s.otpTxns.Consume(ctx, txnID); err != nil {
		util.Warn("Failed to consume verification transaction",
			zap.String("txn_id", txnID),
			zap.Error(err))
	}
	return kyc, nil
}

// refreshKYCAttributes re-syncs the account with the KYC record the provider
// returned alongside an OTP verification. Best-effort: the reset itself has
// already been applied.
func (s *AccountService) refreshKYCAttributes(ctx context.Context, account *models.Account, kyc *fayda.KYCRecord) {
	if kyc == nil {
		return
	}

	account.FullName = kyc.FullName
	account.DateOfBirth = kyc.DateOfBirth
	account.Gender = kyc.Gender
	account.PhotoRef = kyc.PhotoRef

	var representations []string
	if kyc.Phone != "" {
		canonical := phone.Canonical(kyc.Phone)
		if canonical != account.Phone {
			encrypted, keyID, err := s.crypto.EncryptPII(ctx, canonical)
			if err != nil {
				util.Warn("Failed to encrypt refreshed phone",
					zap.String("account_id", account.AccountID),
					zap.Error(err))
				return
			}
			account.Phone = canonical
			account.PhoneEncrypted = encrypted
			account.PIIKeyID = keyID
			representations = phone.Variants(canonical)
		}
	}

	if err := s.repo.UpdateKYCProfile(ctx, account, representations); err != nil {
		util.Warn("Failed to refresh KYC attributes",
			zap.String("account_id", account.AccountID),
			zap.Error(err))
		return
	}
	s.index.Index(ctx, account)
}

func mapVerifierError(err error) error {
	switch {
	case errors.Is(err, fayda.ErrUnknownFIN):
		return ErrNotFound
	case errors.Is(err, fayda.ErrInvalidOTP), errors.Is(err, fayda.ErrTxnExpired):
		return ErrVerificationFailed
	default:
		return fmt.Errorf("%w: %v", ErrDependencyFailed, err)
	}
}

func profileOf(account *models.Account) *AccountProfile {
	return &AccountProfile{
		AccountID:     account.AccountID,
		Email:         account.Email,
		FullName:      account.FullName,
		DateOfBirth:   account.DateOfBirth,
		Gender:        account.Gender,
		Role:          account.Role,
		EmailVerified: account.EmailVerified,
		CreatedAt:     account.CreatedAt,
		LastLogin:     account.LastLogin,
	}
}

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: malformed email address", ErrInvalidInput)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	return nil
}
