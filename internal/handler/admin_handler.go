package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	redisrepo "citizen-auth/internal/repository/redis"
	"citizen-auth/internal/search"
	"citizen-auth/internal/service"
	"citizen-auth/internal/util"
)

// AdminHandler serves the administrator surface.
type AdminHandler struct {
	accounts *service.AccountService
	admin    *service.AdminService
	limiter  *redisrepo.RateLimitCache
	logger   *zap.Logger
}

func NewAdminHandler(accounts *service.AccountService, admin *service.AdminService, limiter *redisrepo.RateLimitCache, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		accounts: accounts,
		admin:    admin,
		limiter:  limiter,
		logger:   logger,
	}
}

// RegisterRoutes mounts the admin routes on the router.
func (h *AdminHandler) RegisterRoutes(router chi.Router) {
	router.Route("/admin", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(RateLimit(h.limiter, "admin_login", 10, time.Minute))
			r.Post("/login", h.Login)
		})
		r.Post("/refresh", h.Refresh)
		r.Post("/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(RequireAuth(h.accounts))
			r.Use(RequireAdmin)
			r.Get("/me", h.Me)
			r.Get("/accounts", h.ListAccounts)
			r.Patch("/accounts/{accountID}/role", h.UpdateRole)
		})
	})
}

type adminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	var req adminLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	result, err := h.admin.Login(r.Context(), req.Email, req.Password, clientIP(r), r.UserAgent())
	if err != nil {
		respondWithLoginError(w, err, "Admin login failed")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(result, "Login successful"))
	h.logger.Info("Admin login via HTTP",
		util.String("account_id", result.Account.AccountID),
		util.Duration("duration", time.Since(startTime)),
	)
}

func (h *AdminHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	tokens, err := h.admin.Refresh(r.Context(), req.RefreshToken, clientIP(r), r.UserAgent())
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to refresh session")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(tokens, "Session refreshed"))
}

func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	if err := h.admin.Logout(r.Context(), req.RefreshToken); err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to log out")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(nil, "Logged out"))
}

func (h *AdminHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, errors.New("missing claims"), "Authentication required")
		return
	}

	profile, err := h.admin.Me(r.Context(), claims.AccountID)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to load profile")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(profile, "Profile loaded"))
}

func (h *AdminHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, errors.New("missing claims"), "Authentication required")
		return
	}

	query := search.ListQuery{
		Role:   r.URL.Query().Get("role"),
		Search: r.URL.Query().Get("q"),
	}
	if page, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil {
		query.Page = page
	}
	if size, err := strconv.Atoi(r.URL.Query().Get("size")); err == nil {
		query.Size = size
	}

	result, err := h.admin.ListAccounts(r.Context(), claims.Role, query)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to list accounts")
		return
	}

	respondWithJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    result.Accounts,
		Meta: &Meta{
			Page:     result.Page,
			PageSize: result.Size,
			Total:    result.Total,
		},
	})
}

func (h *AdminHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, errors.New("missing claims"), "Authentication required")
		return
	}

	targetID := chi.URLParam(r, "accountID")

	var req updateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	err := h.admin.UpdateRole(r.Context(), claims.AccountID, claims.Role, targetID, req.Role)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to update role")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(nil, "Role updated"))
	h.logger.Info("Role updated via HTTP",
		util.String("target_id", targetID),
		util.String("role", req.Role),
		util.String("actor_id", claims.AccountID),
	)
}
