// internal/app/features/logout/handler.go
package logout

import (
	"net/http"

	"github.com/dalemusser/opshub/internal/app/system/auditlog"
	"github.com/dalemusser/opshub/internal/app/system/auth"
	"go.uber.org/zap"
)

type Handler struct {
	Log        *zap.Logger
	Audit      *auditlog.Logger
	SessionMgr *auth.SessionManager
}

func NewHandler(sessionMgr *auth.SessionManager, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		Audit:      audit,
		SessionMgr: sessionMgr,
	}
}

// ServeSignOut handles POST /auth/signout. The cookie is expired even when
// the session could not be decoded.
func (h *Handler) ServeSignOut(w http.ResponseWriter, r *http.Request) {
	if p, ok := auth.CurrentProfile(r); ok {
		h.Audit.SignOut(r.Context(), p.UID)
	}
	if err := h.SessionMgr.SignOut(w, r); err != nil {
		h.Log.Error("signout: save session", zap.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}
