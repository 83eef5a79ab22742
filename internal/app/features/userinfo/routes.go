// internal/app/features/userinfo/routes.go
package userinfo

import "github.com/go-chi/chi/v5"

// MountRoutes registers GET /auth/me on the supplied router.
// No auth-specific middleware is required because the handler itself
// checks the context via auth.CurrentProfile.
func MountRoutes(r chi.Router, h *Handler) {
	r.Get("/auth/me", h.ServeMe)
}
