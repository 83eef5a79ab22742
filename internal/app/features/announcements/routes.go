// internal/app/features/announcements/routes.go
package announcements

import (
	"github.com/dalemusser/opshub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// MountRoutes mounts all announcement routes on the given router.
// Everyone signed in may read; posting is checked by the notify service.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(auth.RequireSignedIn)
	r.Get("/", h.List)
	r.Post("/", h.Create)
}
