package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	redisrepo "citizen-auth/internal/repository/redis"
	"citizen-auth/internal/service"
	"citizen-auth/internal/util"
)

// AuthHandler serves the citizen-facing authentication routes.
type AuthHandler struct {
	accounts *service.AccountService
	limiter  *redisrepo.RateLimitCache
	logger   *zap.Logger
}

func NewAuthHandler(accounts *service.AccountService, limiter *redisrepo.RateLimitCache, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		limiter:  limiter,
		logger:   logger,
	}
}

// RegisterRoutes mounts the auth routes on the router.
func (h *AuthHandler) RegisterRoutes(router chi.Router) {
	router.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(RateLimit(h.limiter, "otp", 10, time.Minute))
			r.Post("/register/initiate", h.InitiateRegistration)
			r.Post("/password-reset/initiate", h.InitiatePasswordReset)
		})

		r.Group(func(r chi.Router) {
			r.Use(RateLimit(h.limiter, "login", 30, time.Minute))
			r.Post("/login", h.Login)
			r.Post("/signin", h.Login)
		})

		r.Post("/register/complete", h.CompleteRegistration)
		r.Post("/password-reset/complete", h.CompletePasswordReset)
		r.Post("/signup", h.SignUp)
		r.Post("/signout", h.SignOut)
		r.Post("/refresh", h.Refresh)
		r.Post("/verify-email", h.VerifyEmail)

		r.Group(func(r chi.Router) {
			r.Use(RequireAuth(h.accounts))
			r.Get("/session", h.Session)
			r.Post("/verify-email/request", h.RequestEmailVerification)
		})
	})
}

type initiateRequest struct {
	FIN string `json:"fin"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

type resetCompleteRequest struct {
	FIN         string `json:"fin"`
	TxnID       string `json:"transaction_id"`
	OTP         string `json:"otp"`
	NewPassword string `json:"new_password"`
}

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type verifyEmailRequest struct {
	Token string `json:"token"`
}

func (h *AuthHandler) InitiateRegistration(w http.ResponseWriter, r *http.Request) {
	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	txnID, err := h.accounts.InitiateRegistration(r.Context(), req.FIN)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to initiate registration")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(
		map[string]string{"transaction_id": txnID},
		"OTP sent to the phone registered for this FIN"))
}

func (h *AuthHandler) CompleteRegistration(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	var req service.RegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	result, err := h.accounts.CompleteRegistration(r.Context(), &req, clientIP(r), r.UserAgent())
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to complete registration")
		return
	}

	respondWithJSON(w, http.StatusCreated, successResponse(result, "Account created"))
	h.logger.Info("Registration completed via HTTP",
		util.String("account_id", result.Account.AccountID),
		util.Duration("duration", time.Since(startTime)),
	)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	identifier := req.Identifier
	if identifier == "" {
		identifier = req.Email
	}

	result, err := h.accounts.Login(r.Context(), identifier, req.Password, clientIP(r), r.UserAgent())
	if err != nil {
		respondWithLoginError(w, err, "Login failed")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(result, "Login successful"))
	h.logger.Info("Login via HTTP",
		util.String("account_id", result.Account.AccountID),
		util.Duration("duration", time.Since(startTime)),
	)
}

func (h *AuthHandler) InitiatePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	txnID, err := h.accounts.InitiatePasswordReset(r.Context(), req.FIN)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to initiate password reset")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(
		map[string]string{"transaction_id": txnID},
		"OTP sent to the phone registered for this FIN"))
}

func (h *AuthHandler) CompletePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req resetCompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	err := h.accounts.CompletePasswordReset(r.Context(), req.FIN, req.TxnID, req.OTP, req.NewPassword)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to reset password")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(nil, "Password reset, all sessions revoked"))
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	result, verifyToken, err := h.accounts.SignUp(r.Context(), req.Email, req.Password, req.FullName, clientIP(r), r.UserAgent())
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to sign up")
		return
	}

	// The verification token is returned in the response until outbound
	// email delivery is wired up.
	respondWithJSON(w, http.StatusCreated, successResponse(map[string]interface{}{
		"account":            result.Account,
		"tokens":             result.Tokens,
		"verification_token": verifyToken,
	}, "Account created"))
}

func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	if err := h.accounts.SignOut(r.Context(), req.RefreshToken); err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to sign out")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(nil, "Signed out"))
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	tokens, err := h.accounts.RefreshSession(r.Context(), req.RefreshToken, clientIP(r), r.UserAgent())
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to refresh session")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(tokens, "Session refreshed"))
}

func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, errors.New("missing claims"), "Authentication required")
		return
	}

	profile, err := h.accounts.Profile(r.Context(), claims.AccountID)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to load session profile")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(profile, "Session active"))
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	if err := h.accounts.VerifyEmail(r.Context(), req.Token); err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to verify email")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(nil, "Email verified"))
}

func (h *AuthHandler) RequestEmailVerification(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, errors.New("missing claims"), "Authentication required")
		return
	}

	token, err := h.accounts.RequestEmailVerification(r.Context(), claims.AccountID)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to issue verification token")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(
		map[string]string{"verification_token": token},
		"Verification token issued"))
}
