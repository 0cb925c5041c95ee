package service

import (
	"errors"
	"fmt"
)

// Service-level errors. The HTTP layer maps these to status codes; anything
// not in this set surfaces as an internal error.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account temporarily locked")
	ErrForbidden          = errors.New("insufficient privileges")
	ErrNotFound           = errors.New("resource not found")
	ErrAlreadyRegistered  = errors.New("account already registered")
	ErrVerificationFailed = errors.New("identity verification failed")
	ErrSessionExpired     = errors.New("session expired or revoked")
	ErrDependencyFailed   = errors.New("upstream dependency failed")
)

// InvalidCredentialsError is the failed-password outcome for an existing,
// unlocked account. RemainingAttempts is how many more failures the lockout
// policy tolerates before the account locks. It unwraps to
// ErrInvalidCredentials so status mapping is unchanged.
type InvalidCredentialsError struct {
	RemainingAttempts int
}

func (e *InvalidCredentialsError) Error() string {
	return fmt.Sprintf("invalid credentials: %d attempts remaining", e.RemainingAttempts)
}

func (e *InvalidCredentialsError) Unwrap() error { return ErrInvalidCredentials }
