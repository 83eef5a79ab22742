// internal/app/features/login/routes.go
package login

import "github.com/go-chi/chi/v5"

// Routes serves POST /signup and POST /signin; mounted under /auth.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/signup", h.HandleSignUp)
	r.Post("/signin", h.HandleSignIn)
	return r
}
