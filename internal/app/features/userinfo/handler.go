// internal/app/features/userinfo/handler.go
package userinfo

import (
	"encoding/json"
	"net/http"

	"github.com/dalemusser/opshub/internal/app/system/auth"
)

// Handler serves the caller's identity.
type Handler struct{}

// NewHandler creates a new userinfo handler.
func NewHandler() *Handler {
	return &Handler{}
}

// ServeMe returns the signed-in caller's freshly loaded profile and the
// capabilities derived from it.
//
// Response format:
//
//	{ "isAuthenticated": bool, "profile": {...}, "capabilities": ["manage_projects", ...] }
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	p, ok := auth.CurrentProfile(r)
	if !ok {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"isAuthenticated": false,
			"profile":         nil,
			"capabilities":    []string{},
		})
		return
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"isAuthenticated": true,
		"profile":         p,
		"capabilities":    auth.Capabilities(r).List(),
	})
}
