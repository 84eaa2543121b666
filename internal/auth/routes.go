package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the session endpoints. Login is additionally rate
// limited to slow down credential guessing.
func RegisterRoutes(r chi.Router, handler *Handler, loginLimiter func(next http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.With(loginLimiter).Post("/login", handler.Login)
		r.Post("/refresh", handler.Refresh)
		r.Delete("/logout", handler.Logout)
	})
}
