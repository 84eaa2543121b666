package account

import (
	"github.com/go-chi/chi/v5"

	"github.com/Msocha19/SSBD-TUL-2023/internal/middleware"
	"github.com/Msocha19/SSBD-TUL-2023/internal/repository"
)

// RegisterRoutes mounts the account endpoints under /accounts.
func RegisterRoutes(r chi.Router, handler *Handler, authMW *middleware.AuthMiddleware) {
	r.Route("/accounts", func(r chi.Router) {
		// Anonymous flows.
		r.Post("/register", handler.Register)
		r.Put("/confirm-registration", handler.ConfirmRegistration)
		r.Post("/reset-password", handler.RequestPasswordReset)
		r.Put("/reset-password/confirm", handler.ConfirmPasswordReset)
		r.Put("/override-password", handler.OverrideForcedPassword)

		// Self-service, any authenticated account.
		r.Group(func(r chi.Router) {
			r.Use(authMW.Authenticate)
			r.Get("/me", handler.GetMe)
			r.Put("/me", handler.EditMe)
			r.Post("/me/change-email", handler.RequestEmailChange)
			r.Put("/me/confirm-email", handler.ConfirmEmailChange)
			r.Put("/me/password", handler.ChangePassword)
			r.Put("/me/language", handler.ChangeLanguage)
			r.Post("/me/access-level/{level}", handler.ChangeAccessLevel)
		})

		// Administration, admin or manager callers.
		r.Group(func(r chi.Router) {
			r.Use(authMW.Authenticate)
			r.Use(authMW.RequireAccess(repository.AccessAdmin, repository.AccessManager))
			r.Get("/", handler.ListAccounts)
			r.Get("/{id}", handler.GetAccount)
			r.Put("/{id}/active", handler.ChangeActiveStatus)
		})

		// Administration, admin only.
		r.Group(func(r chi.Router) {
			r.Use(authMW.Authenticate)
			r.Use(authMW.RequireAccess(repository.AccessAdmin))
			r.Put("/{id}", handler.EditAccount)
			r.Post("/{id}/access-levels", handler.GrantAccessLevel)
			r.Delete("/{id}/access-levels/{level}", handler.RevokeAccessLevel)
			r.Put("/force-password-change/{login}", handler.ForcePasswordChange)
		})
	})
}
