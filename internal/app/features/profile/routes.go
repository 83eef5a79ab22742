// internal/app/features/profile/routes.go
package profile

import (
	"github.com/dalemusser/opshub/internal/app/system/auth"
	"github.com/dalemusser/opshub/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Routes serves the caller's own profile; mounted under /profile.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Get("/", h.ServeProfile)
	r.Patch("/", h.HandleUpdateContact)
	r.Post("/onboarding", h.HandleOnboarding)
	return r
}

// AdminRoutes serves role changes; mounted under /admin/profiles.
func AdminRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireCapability(authz.ManageRoles))
	r.Patch("/{uid}/role", h.HandleSetRole)
	return r
}
