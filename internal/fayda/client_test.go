package fayda

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"citizen-auth/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.Identity.BaseURL = srv.URL
	cfg.Identity.Timeout = 2 * time.Second
	return NewClient(cfg, zap.NewNop())
}

func TestRequestOTP(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/otp/request", r.URL.Path)
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "123456789012", req["fin"])

		json.NewEncoder(w).Encode(map[string]string{"transaction_id": "txn-1"})
	})

	txn, err := client.RequestOTP(context.Background(), "123456789012")
	require.NoError(t, err)
	assert.Equal(t, "txn-1", txn)
}

func TestRequestOTPUnknownFIN(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.RequestOTP(context.Background(), "999999999999")
	assert.ErrorIs(t, err, ErrUnknownFIN)
}

func TestVerifyOTP(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/otp/verify", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"verified": true,
			"kyc": map[string]string{
				"full_name":     "Abebe Bikila",
				"phone":         "+251911223344",
				"date_of_birth": "1990-04-12",
				"gender":        "male",
				"photo":         "photos/abc.jpg",
			},
		})
	})

	kyc, err := client.VerifyOTP(context.Background(), "123456789012", "txn-1", "000111")
	require.NoError(t, err)
	assert.Equal(t, "Abebe Bikila", kyc.FullName)
	assert.Equal(t, "+251911223344", kyc.Phone)
}

func TestVerifyOTPRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.VerifyOTP(context.Background(), "123456789012", "txn-1", "bad")
	assert.ErrorIs(t, err, ErrInvalidOTP)
}

func TestVerifyOTPExpiredTxn(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	})

	_, err := client.VerifyOTP(context.Background(), "123456789012", "txn-stale", "000111")
	assert.ErrorIs(t, err, ErrTxnExpired)
}

func TestProviderUnreachable(t *testing.T) {
	cfg := &config.Config{}
	cfg.Identity.BaseURL = "http://127.0.0.1:1"
	cfg.Identity.Timeout = 500 * time.Millisecond
	client := NewClient(cfg, zap.NewNop())

	_, err := client.RequestOTP(context.Background(), "123456789012")
	assert.ErrorIs(t, err, ErrProviderFailed)
}
