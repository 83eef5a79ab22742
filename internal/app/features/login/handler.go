// internal/app/features/login/handler.go
package login

import (
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/opshub/internal/app/features/errors"
	"github.com/dalemusser/opshub/internal/app/identity"
	"github.com/dalemusser/opshub/internal/app/system/auditlog"
	"github.com/dalemusser/opshub/internal/app/system/auth"
	"github.com/dalemusser/opshub/internal/app/system/authz"
	"github.com/dalemusser/opshub/internal/app/system/metrics"
	"github.com/dalemusser/opshub/internal/app/system/ratelimit"
	"github.com/dalemusser/opshub/internal/app/system/timeouts"
	"github.com/dalemusser/opshub/internal/domain/errs"
	"github.com/dalemusser/opshub/internal/domain/models"
	"go.uber.org/zap"
)

// Handler serves sign-up and sign-in.
type Handler struct {
	Identity   *identity.Service
	SessionMgr *auth.SessionManager
	Limiter    *ratelimit.SignInLimiter
	Metrics    *metrics.Metrics // optional
	Audit      *auditlog.Logger
	ErrLog     *uierrors.ErrorLogger
	Log        *zap.Logger
}

func NewHandler(id *identity.Service, sessionMgr *auth.SessionManager, limiter *ratelimit.SignInLimiter, audit *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Identity:   id,
		SessionMgr: sessionMgr,
		Limiter:    limiter,
		Audit:      audit,
		ErrLog:     errLog,
		Log:        logger,
	}
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// meResponse is returned by sign-up, sign-in and /auth/me.
type meResponse struct {
	Profile      models.Profile `json:"profile"`
	Capabilities []string       `json:"capabilities"`
}

// HandleSignUp handles POST /auth/signup. The new user is signed in.
func (h *Handler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var in identity.SignUpInput
	if err := uierrors.Decode(w, r, &in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode signup", err, "invalid request body")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "signup")
	defer cancel()

	p, err := h.Identity.SignUp(ctx, in)
	if err != nil {
		h.ErrLog.Write(w, r, "signup", err)
		return
	}
	if err := h.SessionMgr.SignIn(w, r, p.UID); err != nil {
		h.ErrLog.Write(w, r, "signup session", err)
		return
	}
	uierrors.JSON(w, http.StatusCreated, h.me(p))
}

// HandleSignIn handles POST /auth/signin.
func (h *Handler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var in signInRequest
	if err := uierrors.Decode(w, r, &in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode signin", err, "invalid request body")
		return
	}

	if h.Limiter != nil && !h.Limiter.Allow(r, in.Email) {
		h.Audit.SignInRateLimited(r.Context(), in.Email)
		h.Metrics.SignIn(metrics.OutcomeDenied)
		w.Header().Set("Retry-After", "60")
		uierrors.JSON(w, http.StatusTooManyRequests, map[string]string{"error": "too many sign-in attempts, try again later"})
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "signin")
	defer cancel()

	p, err := h.Identity.SignIn(ctx, in.Email, in.Password)
	if err != nil {
		if errors.Is(err, errs.ErrInvalidCredentials) {
			h.Metrics.SignIn(metrics.OutcomeInvalid)
		} else {
			h.Metrics.SignIn(metrics.OutcomeError)
		}
		h.ErrLog.Write(w, r, "signin", err)
		return
	}
	h.Metrics.SignIn(metrics.OutcomeOK)
	if h.Limiter != nil {
		h.Limiter.Succeeded(in.Email)
	}
	if err := h.SessionMgr.SignIn(w, r, p.UID); err != nil {
		h.ErrLog.Write(w, r, "signin session", err)
		return
	}
	uierrors.JSON(w, http.StatusOK, h.me(p))
}

func (h *Handler) me(p models.Profile) meResponse {
	return meResponse{Profile: p, Capabilities: authz.Evaluate(h.SessionMgr.Table(), p).List()}
}
