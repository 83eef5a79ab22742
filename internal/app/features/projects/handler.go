// internal/app/features/projects/handler.go
package projects

import (
	"net/http"
	"strconv"

	uierrors "github.com/dalemusser/opshub/internal/app/features/errors"
	"github.com/dalemusser/opshub/internal/app/system/auth"
	"github.com/dalemusser/opshub/internal/app/system/normalize"
	"github.com/dalemusser/opshub/internal/app/system/timeouts"
	"github.com/dalemusser/opshub/internal/app/workflow"
	"github.com/dalemusser/opshub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler exposes the project workflow over HTTP.
type Handler struct {
	Workflow *workflow.Engine
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(wf *workflow.Engine, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{Workflow: wf, ErrLog: errLog, Log: logger}
}

// HandleCreate handles POST /projects.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.CurrentProfile(r)

	var fields models.ProjectFields
	if err := uierrors.Decode(w, r, &fields); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode project", err, "invalid request body")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "create project")
	defer cancel()

	id, err := h.Workflow.CreateProject(ctx, p.UID, fields)
	if err != nil {
		h.ErrLog.Write(w, r, "create project", err)
		return
	}
	uierrors.JSON(w, http.StatusCreated, map[string]string{"id": id})
}

// ServeList handles GET /projects?status=pending&limit=50.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.CurrentProfile(r)
	status := models.ProjectStatus(normalize.Status(r.URL.Query().Get("status")))

	var limit int64
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n < 1 {
			h.ErrLog.LogBadRequest(w, r, "parse limit", err, "limit must be a positive integer")
			return
		}
		limit = n
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list projects")
	defer cancel()

	list, err := h.Workflow.ListProjects(ctx, p, status, limit)
	if err != nil {
		h.ErrLog.Write(w, r, "list projects", err)
		return
	}
	uierrors.JSON(w, http.StatusOK, map[string]any{"projects": list})
}

// ServeSummary handles GET /projects/summary.
func (h *Handler) ServeSummary(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.CurrentProfile(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "project summary")
	defer cancel()

	counts, err := h.Workflow.Summary(ctx, p)
	if err != nil {
		h.ErrLog.Write(w, r, "project summary", err)
		return
	}
	uierrors.JSON(w, http.StatusOK, counts)
}

// ServeGet handles GET /projects/{id}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.CurrentProfile(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get project")
	defer cancel()

	proj, err := h.Workflow.GetProject(ctx, p, chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.Write(w, r, "get project", err)
		return
	}
	uierrors.JSON(w, http.StatusOK, proj)
}

// HandleAccept handles POST /projects/{id}/accept. The body, when present,
// carries the acceptance fields.
func (h *Handler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.CurrentProfile(r)

	var acc models.AcceptanceFields
	if r.ContentLength != 0 {
		if err := uierrors.Decode(w, r, &acc); err != nil {
			h.ErrLog.LogBadRequest(w, r, "decode acceptance", err, "invalid request body")
			return
		}
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "accept project")
	defer cancel()

	proj, err := h.Workflow.AcceptProject(ctx, p, chi.URLParam(r, "id"), acc)
	if err != nil {
		h.ErrLog.Write(w, r, "accept project", err)
		return
	}
	uierrors.JSON(w, http.StatusOK, proj)
}

// HandleReject handles POST /projects/{id}/reject.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.CurrentProfile(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "reject project")
	defer cancel()

	proj, err := h.Workflow.RejectProject(ctx, p, chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.Write(w, r, "reject project", err)
		return
	}
	uierrors.JSON(w, http.StatusOK, proj)
}

// HandleDelete handles DELETE /projects/{id}. Only rejected projects can go.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.CurrentProfile(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete project")
	defer cancel()

	if err := h.Workflow.DeleteRejectedProject(ctx, p, chi.URLParam(r, "id")); err != nil {
		h.ErrLog.Write(w, r, "delete project", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
