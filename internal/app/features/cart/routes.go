// internal/app/features/cart/routes.go
package cart

import (
	"github.com/dalemusser/opshub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Get("/", h.ServeCart)
	r.Delete("/", h.HandleClear)
	r.Post("/items", h.HandleAdd)
	r.Post("/items/{id}/increment", h.HandleIncrement)
	r.Post("/items/{id}/decrement", h.HandleDecrement)
	r.Delete("/items/{id}", h.HandleRemove)
	return r
}
