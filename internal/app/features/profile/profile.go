// internal/app/features/profile/profile.go
package profile

import (
	"net/http"

	uierrors "github.com/dalemusser/opshub/internal/app/features/errors"
	"github.com/dalemusser/opshub/internal/app/identity"
	"github.com/dalemusser/opshub/internal/app/system/auth"
	"github.com/dalemusser/opshub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
)

// ServeProfile handles GET /profile. The profile in context was loaded on
// this request, so it is returned as is.
func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.CurrentProfile(r)
	uierrors.JSON(w, http.StatusOK, p)
}

// HandleUpdateContact handles PATCH /profile.
func (h *Handler) HandleUpdateContact(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.CurrentProfile(r)

	var in identity.ContactInput
	if err := uierrors.Decode(w, r, &in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode contact", err, "invalid request body")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update contact")
	defer cancel()

	updated, err := h.Identity.UpdateContact(ctx, p.UID, in)
	if err != nil {
		h.ErrLog.Write(w, r, "update contact", err)
		return
	}
	uierrors.JSON(w, http.StatusOK, updated)
}

// HandleOnboarding handles POST /profile/onboarding. It succeeds once.
func (h *Handler) HandleOnboarding(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.CurrentProfile(r)

	var in identity.OnboardingInput
	if err := uierrors.Decode(w, r, &in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode onboarding", err, "invalid request body")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "onboarding")
	defer cancel()

	updated, err := h.Identity.CompleteOnboarding(ctx, p.UID, in)
	if err != nil {
		h.ErrLog.Write(w, r, "onboarding", err)
		return
	}
	uierrors.JSON(w, http.StatusOK, updated)
}

// HandleSetRole handles PATCH /admin/profiles/{uid}/role.
func (h *Handler) HandleSetRole(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentProfile(r)

	var in identity.RoleInput
	if err := uierrors.Decode(w, r, &in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode role", err, "invalid request body")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "set role")
	defer cancel()

	updated, err := h.Identity.SetRole(ctx, actor, chi.URLParam(r, "uid"), in)
	if err != nil {
		h.ErrLog.Write(w, r, "set role", err)
		return
	}
	uierrors.JSON(w, http.StatusOK, updated)
}
