// internal/app/features/projects/routes.go
package projects

import (
	"github.com/dalemusser/opshub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes is mounted under /projects. Capability checks happen in the
// workflow engine so a refusal is audited.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Post("/", h.HandleCreate)
	r.Get("/", h.ServeList)
	r.Get("/summary", h.ServeSummary)
	r.Get("/{id}", h.ServeGet)
	r.Post("/{id}/accept", h.HandleAccept)
	r.Post("/{id}/reject", h.HandleReject)
	r.Delete("/{id}", h.HandleDelete)
	return r
}
