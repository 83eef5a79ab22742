// internal/app/features/announcements/announcements.go
package announcements

import (
	"net/http"
	"strconv"

	uierrors "github.com/dalemusser/opshub/internal/app/features/errors"
	"github.com/dalemusser/opshub/internal/app/system/auth"
	"github.com/dalemusser/opshub/internal/app/system/timeouts"
)

type postRequest struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// List handles GET /announcements, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list announcements")
	defer cancel()

	list, err := h.Notify.Announcements(ctx, limit)
	if err != nil {
		h.ErrLog.Write(w, r, "list announcements", err)
		return
	}
	uierrors.JSON(w, http.StatusOK, map[string]any{"announcements": list})
}

// Create handles POST /announcements. Every profile gets a copy.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentProfile(r)

	var in postRequest
	if err := uierrors.Decode(w, r, &in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode announcement", err, "invalid request body")
		return
	}

	// Fan-out to every profile can take a while.
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "post announcement")
	defer cancel()

	a, err := h.Notify.Post(ctx, actor, in.Title, in.Message)
	if err != nil {
		h.ErrLog.Write(w, r, "post announcement", err)
		return
	}
	uierrors.JSON(w, http.StatusCreated, a)
}
