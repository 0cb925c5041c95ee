package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"citizen-auth/internal/client"
	"citizen-auth/internal/util"
)

var (
	ErrTxnNotFound       = errors.New("verification transaction not found")
	ErrTooManyOTPRetries = errors.New("too many verification attempts")
)

const (
	otpTxnPrefix     = "otp_txn:"
	otpAttemptPrefix = "otp_attempts:"
	maxOTPAttempts   = 5
)

// OTPTxn tracks an in-flight identity verification: the provider transaction
// id plus the flow it was started for, so a registration transaction cannot be
// replayed into a password reset.
type OTPTxn struct {
	TxnID   string `json:"txn_id"`
	FIN     string `json:"fin"`
	Purpose string `json:"purpose"`
}

const (
	PurposeRegistration  = "registration"
	PurposePasswordReset = "password_reset"
)

// OTPTxnCache holds pending verification transactions with a short TTL, and
// counts verify attempts per transaction to cap OTP guessing.
type OTPTxnCache struct {
	redis  *client.RedisClient
	ttl    time.Duration
	logger *zap.Logger
}

func NewOTPTxnCache(redis *client.RedisClient, ttl time.Duration, logger *zap.Logger) *OTPTxnCache {
	return &OTPTxnCache{
		redis:  redis,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *OTPTxnCache) Store(ctx context.Context, txn *OTPTxn) error {
	data, err := json.Marshal(txn)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %w", err)
	}
	if err := c.redis.Set(ctx, otpTxnPrefix+txn.TxnID, data, c.ttl); err != nil {
		return fmt.Errorf("failed to store transaction: %w", err)
	}
	return nil
}

func (c *OTPTxnCache) Get(ctx context.Context, txnID string) (*OTPTxn, error) {
	data, err := c.redis.Get(ctx, otpTxnPrefix+txnID)
	if err == client.ErrKeyNotFound {
		return nil, ErrTxnNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	txn := &OTPTxn{}
	if err := json.Unmarshal([]byte(data), txn); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transaction: %w", err)
	}
	return txn, nil
}

// RecordAttempt counts a verify attempt against the transaction and returns
// ErrTooManyOTPRetries once the cap is exceeded.
func (c *OTPTxnCache) RecordAttempt(ctx context.Context, txnID string) error {
	count, err := c.redis.IncrWithExpire(ctx, otpAttemptPrefix+txnID, c.ttl)
	if err != nil {
		return fmt.Errorf("failed to count attempt: %w", err)
	}
	if count > maxOTPAttempts {
		util.Warn("Verification attempt cap exceeded", zap.String("txn_id", txnID))
		return ErrTooManyOTPRetries
	}
	return nil
}

// Consume deletes a transaction after a successful verification so it cannot
// be replayed.
func (c *OTPTxnCache) Consume(ctx context.Context, txnID string) error {
	return c.redis.Del(ctx, otpTxnPrefix+txnID, otpAttemptPrefix+txnID)
}
