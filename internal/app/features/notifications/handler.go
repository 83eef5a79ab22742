// internal/app/features/notifications/handler.go
package notifications

import (
	"net/http"
	"strconv"

	uierrors "github.com/dalemusser/opshub/internal/app/features/errors"
	"github.com/dalemusser/opshub/internal/app/notify"
	"github.com/dalemusser/opshub/internal/app/system/auth"
	"github.com/dalemusser/opshub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves the caller's own notifications.
type Handler struct {
	Notify *notify.Service
	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
}

func NewHandler(n *notify.Service, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{Notify: n, ErrLog: errLog, Log: logger}
}

// ServeList handles GET /notifications?unread=true&limit=50.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.CurrentProfile(r)
	q := r.URL.Query()
	unread, _ := strconv.ParseBool(q.Get("unread"))
	limit, _ := strconv.ParseInt(q.Get("limit"), 10, 64)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list notifications")
	defer cancel()

	list, err := h.Notify.List(ctx, p.UID, unread, limit)
	if err != nil {
		h.ErrLog.Write(w, r, "list notifications", err)
		return
	}
	uierrors.JSON(w, http.StatusOK, map[string]any{"notifications": list})
}

// ServeUnreadCount handles GET /notifications/unread_count.
func (h *Handler) ServeUnreadCount(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.CurrentProfile(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "unread count")
	defer cancel()

	n, err := h.Notify.UnreadCount(ctx, p.UID)
	if err != nil {
		h.ErrLog.Write(w, r, "unread count", err)
		return
	}
	uierrors.JSON(w, http.StatusOK, map[string]int64{"unread": n})
}

// HandleMarkRead handles POST /notifications/{id}/read. Repeating it is a no-op.
func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.CurrentProfile(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "mark read")
	defer cancel()

	if err := h.Notify.MarkRead(ctx, p.UID, chi.URLParam(r, "id")); err != nil {
		h.ErrLog.Write(w, r, "mark read", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMarkAllRead handles POST /notifications/read_all.
func (h *Handler) HandleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.CurrentProfile(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "mark all read")
	defer cancel()

	n, err := h.Notify.MarkAllRead(ctx, p.UID)
	if err != nil {
		h.ErrLog.Write(w, r, "mark all read", err)
		return
	}
	uierrors.JSON(w, http.StatusOK, map[string]int64{"marked": n})
}
