package fayda

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"citizen-auth/internal/config"
	"citizen-auth/internal/util"
)

var (
	ErrInvalidOTP     = errors.New("invalid or expired OTP")
	ErrUnknownFIN     = errors.New("FIN not found at identity provider")
	ErrTxnExpired     = errors.New("OTP transaction expired")
	ErrProviderFailed = errors.New("identity provider request failed")
)

// KYCRecord carries the identity attributes returned by the provider after a
// successful OTP verification.
type KYCRecord struct {
	FullName    string `json:"full_name"`
	Phone       string `json:"phone"`
	DateOfBirth string `json:"date_of_birth"`
	Gender      string `json:"gender"`
	PhotoRef    string `json:"photo"`
}

// Client talks to the national-ID verification gateway. Two calls only:
// request an OTP for a FIN, and verify an OTP to obtain the KYC record.
// Failures are never retried; each one is scoped to the request that made it.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(cfg *config.Config, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.Identity.BaseURL, "/"),
		apiKey:  cfg.Identity.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Identity.Timeout,
		},
		logger: logger,
	}
}

type otpRequest struct {
	FIN string `json:"fin"`
}

type otpResponse struct {
	TransactionID string `json:"transaction_id"`
	Message       string `json:"message"`
}

type verifyRequest struct {
	FIN           string `json:"fin"`
	TransactionID string `json:"transaction_id"`
	OTP           string `json:"otp"`
}

type verifyResponse struct {
	Verified bool       `json:"verified"`
	KYC      *KYCRecord `json:"kyc"`
	Error    string     `json:"error"`
}

// RequestOTP asks the provider to send an OTP to the phone registered for the
// FIN. Returns the provider transaction id to be echoed back on verification.
func (c *Client) RequestOTP(ctx context.Context, fin string) (string, error) {
	startTime := time.Now()

	var out otpResponse
	status, err := c.post(ctx, "/v1/otp/request", otpRequest{FIN: fin}, &out)
	if err != nil {
		return "", err
	}

	switch status {
	case http.StatusOK:
	case http.StatusNotFound:
		return "", ErrUnknownFIN
	default:
		return "", fmt.Errorf("%w: status %d", ErrProviderFailed, status)
	}

	if out.TransactionID == "" {
		return "", fmt.Errorf("%w: empty transaction id", ErrProviderFailed)
	}

	c.logger.Info("OTP requested from identity provider",
		util.String("txn_id", out.TransactionID),
		util.Duration("duration", time.Since(startTime)),
	)
	return out.TransactionID, nil
}

// VerifyOTP confirms the OTP for a pending transaction and returns the KYC
// record on success.
func (c *Client) VerifyOTP(ctx context.Context, fin, txnID, otp string) (*KYCRecord, error) {
	startTime := time.Now()

	var out verifyResponse
	status, err := c.post(ctx, "/v1/otp/verify", verifyRequest{FIN: fin, TransactionID: txnID, OTP: otp}, &out)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusBadRequest:
		return nil, ErrInvalidOTP
	case http.StatusGone:
		return nil, ErrTxnExpired
	case http.StatusNotFound:
		return nil, ErrUnknownFIN
	default:
		return nil, fmt.Errorf("%w: status %d", ErrProviderFailed, status)
	}

	if !out.Verified || out.KYC == nil {
		return nil, ErrInvalidOTP
	}

	c.logger.Info("OTP verified with identity provider",
		util.String("txn_id", txnID),
		util.Duration("duration", time.Since(startTime)),
	)
	return out.KYC, nil
}

func (c *Client) post(ctx context.Context, path string, in, out interface{}) (int, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Identity provider request failed",
			util.String("path", path),
			util.ErrorField(err),
		)
		return 0, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("%w: malformed response", ErrProviderFailed)
		}
	}
	return resp.StatusCode, nil
}
