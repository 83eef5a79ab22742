// internal/app/features/auditlog/list.go
package auditlog

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	uierrors "github.com/dalemusser/opshub/internal/app/features/errors"
	"github.com/dalemusser/opshub/internal/app/store/audit"
	"github.com/dalemusser/opshub/internal/app/system/timeouts"
	"github.com/dalemusser/opshub/internal/domain/errs"
	"github.com/go-chi/chi/v5"
)

const (
	pageSize = 50
	maxLimit = 500
)

// ServeList handles GET /admin/audit.
//
// Query parameters: category, event_type, actor, subject, since (RFC 3339 or
// YYYY-MM-DD) and limit.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := audit.QueryFilter{
		ActorUID:  strings.TrimSpace(q.Get("actor")),
		SubjectID: strings.TrimSpace(q.Get("subject")),
		Category:  strings.TrimSpace(q.Get("category")),
		EventType: strings.TrimSpace(q.Get("event_type")),
	}
	if !validCategory(filter.Category) {
		h.ErrLog.Write(w, r, "audit log list", errs.Invalid("category", "unknown category"))
		return
	}

	limit, err := parseLimit(q.Get("limit"))
	if err != nil {
		h.ErrLog.Write(w, r, "audit log list", err)
		return
	}
	filter.Limit = limit

	if s := strings.TrimSpace(q.Get("since")); s != "" {
		since, err := parseSince(s)
		if err != nil {
			h.ErrLog.Write(w, r, "audit log list", err)
			return
		}
		filter.Since = &since
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "audit log list")
	defer cancel()

	events, err := h.Store.Query(ctx, filter)
	if err != nil {
		h.ErrLog.Write(w, r, "audit log list", err)
		return
	}
	uierrors.JSON(w, http.StatusOK, listResponse{Events: toItems(events)})
}

// ServeSubject handles GET /admin/audit/subjects/{id}: the history of one
// profile or project.
func (h *Handler) ServeSubject(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		h.ErrLog.Write(w, r, "audit subject history", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "audit subject history")
	defer cancel()

	events, err := h.Store.BySubject(ctx, chi.URLParam(r, "id"), limit)
	if err != nil {
		h.ErrLog.Write(w, r, "audit subject history", err)
		return
	}
	uierrors.JSON(w, http.StatusOK, listResponse{Events: toItems(events)})
}

func parseLimit(s string) (int64, error) {
	if s == "" {
		return pageSize, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 1 {
		return 0, errs.Invalid("limit", "must be a positive integer")
	}
	if n > maxLimit {
		n = maxLimit
	}
	return n, nil
}

func parseSince(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, errs.Invalid("since", "use RFC 3339 or YYYY-MM-DD")
}
