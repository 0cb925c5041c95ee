package handler

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"citizen-auth/internal/authn"
	"citizen-auth/internal/models"
	redisrepo "citizen-auth/internal/repository/redis"
	"citizen-auth/internal/service"
)

type contextKey string

const claimsContextKey contextKey = "auth_claims"

// ClaimsFromContext returns the access-token claims placed by RequireAuth.
func ClaimsFromContext(ctx context.Context) (*authn.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*authn.Claims)
	return claims, ok
}

// RequireAuth validates the bearer token and stores its claims in the request
// context.
func RequireAuth(accounts *service.AccountService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				respondWithError(w, http.StatusUnauthorized,
					errors.New("missing bearer token"), "Authentication required")
				return
			}

			claims, err := accounts.ValidateAccess(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				respondWithError(w, http.StatusUnauthorized, err, "Authentication required")
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects requests whose token does not carry an administrator
// role. Must run after RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			respondWithError(w, http.StatusUnauthorized,
				errors.New("missing claims"), "Authentication required")
			return
		}
		if claims.Role != models.RoleAdmin && claims.Role != models.RoleSuperAdmin {
			respondWithError(w, http.StatusForbidden,
				service.ErrForbidden, "Administrator access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimit caps requests per client IP for the wrapped routes. A nil limiter
// disables the cap.
func RateLimit(limiter *redisrepo.RateLimitCache, name string, limit int64, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := name + ":" + clientIP(r)
			allowed := limiter.Allow(r.Context(), key, limit, window)
			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(limit, 10))
			w.Header().Set("X-RateLimit-Remaining",
				strconv.FormatInt(limiter.Remaining(r.Context(), key, limit), 10))
			if !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(window/time.Second)))
				respondWithError(w, http.StatusTooManyRequests,
					errors.New("rate limit exceeded"), "Too many requests, slow down")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	// middleware.RealIP has already rewritten RemoteAddr from the forwarding
	// headers when present.
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
