// internal/app/features/auditlog/routes.go
package auditlog

import (
	"github.com/dalemusser/opshub/internal/app/system/auth"
	"github.com/dalemusser/opshub/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Routes mounts all audit log routes under the path where this
// router is mounted (typically "/admin/audit" from bootstrap).
//
// Access is restricted to profiles that may manage roles (owners).
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireCapability(authz.ManageRoles))

		pr.Get("/", h.ServeList)
		pr.Get("/subjects/{id}", h.ServeSubject)
	})

	return r
}
