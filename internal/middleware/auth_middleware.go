package middleware

import (
	"net/http"
	"strings"

	"github.com/Msocha19/SSBD-TUL-2023/internal/api"
	"github.com/Msocha19/SSBD-TUL-2023/internal/auth"
	appctx "github.com/Msocha19/SSBD-TUL-2023/internal/context"
	"github.com/Msocha19/SSBD-TUL-2023/internal/repository"
)

// AuthMiddleware validates access tokens on protected routes and injects the
// caller's identity into the request context.
type AuthMiddleware struct {
	tokenService *auth.TokenService
}

// NewAuthMiddleware creates a new AuthMiddleware instance.
func NewAuthMiddleware(tokenService *auth.TokenService) *AuthMiddleware {
	return &AuthMiddleware{tokenService: tokenService}
}

// Authenticate validates the Bearer token from the Authorization header.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			api.WriteError(w, http.StatusUnauthorized, api.CodeAuthTokenInvalid, "Authorization header is required", nil)
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			api.WriteError(w, http.StatusUnauthorized, api.CodeAuthTokenInvalid, "Invalid authorization header format", nil)
			return
		}

		claims, err := m.tokenService.Validate(parts[1])
		if err != nil {
			api.WriteError(w, http.StatusUnauthorized, api.CodeAuthTokenInvalid, "Invalid or expired token", nil)
			return
		}

		ctx := appctx.WithCaller(r.Context(), claims.Subject, claims.AccessTypes())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAccess rejects requests whose caller holds none of the given access
// types. It must run after Authenticate.
func (m *AuthMiddleware) RequireAccess(types ...repository.AccessType) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, t := range types {
				if appctx.CallerHasAccess(r.Context(), t) {
					next.ServeHTTP(w, r)
					return
				}
			}
			api.WriteError(w, http.StatusForbidden, api.CodeAccessDenied, "Access denied", nil)
		})
	}
}
