package rates

import (
	"github.com/go-chi/chi/v5"

	"github.com/Msocha19/SSBD-TUL-2023/internal/middleware"
	"github.com/Msocha19/SSBD-TUL-2023/internal/repository"
)

// RegisterRoutes mounts the rate table endpoints under /rates.
func RegisterRoutes(r chi.Router, handler *Handler, authMW *middleware.AuthMiddleware) {
	r.Route("/rates", func(r chi.Router) {
		r.Get("/", handler.ListCurrent)

		r.Group(func(r chi.Router) {
			r.Use(authMW.Authenticate)
			r.Use(authMW.RequireAccess(repository.AccessManager))
			r.Post("/", handler.Create)
			r.Delete("/{id}", handler.Remove)
		})
	})
}
