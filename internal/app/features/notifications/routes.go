// internal/app/features/notifications/routes.go
package notifications

import (
	"github.com/dalemusser/opshub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Get("/", h.ServeList)
	r.Get("/unread_count", h.ServeUnreadCount)
	r.Post("/read_all", h.HandleMarkAllRead)
	r.Post("/{id}/read", h.HandleMarkRead)
	return r
}
