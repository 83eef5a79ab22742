// Package errors turns service errors into JSON responses.
package errors

import (
	stderrors "errors"
	"net/http"

	"github.com/dalemusser/opshub/internal/app/notify"
	"github.com/dalemusser/opshub/internal/app/system/auth"
	"github.com/dalemusser/opshub/internal/domain/errs"
	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

// Status maps err to an HTTP status code.
func Status(err error) int {
	var partial *notify.PartialFanoutError
	switch {
	case err == nil:
		return http.StatusOK
	case stderrors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	case stderrors.Is(err, errs.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case stderrors.Is(err, errs.ErrPermissionDenied):
		return http.StatusForbidden
	case stderrors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case stderrors.Is(err, errs.ErrInvalidTransition),
		stderrors.Is(err, errs.ErrDuplicate),
		stderrors.Is(err, errs.ErrOnboardingDone):
		return http.StatusConflict
	case stderrors.Is(err, errs.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case stderrors.As(err, &partial):
		// The primary write landed; replay finishes delivery.
		return http.StatusAccepted
	}
	return http.StatusInternalServerError
}

// Message is the client-facing text for err. Server errors never leak
// their cause.
func Message(err error) string {
	var ve *errs.ValidationError
	switch {
	case stderrors.As(err, &ve):
		return ve.Error()
	case stderrors.Is(err, errs.ErrInvalidCredentials):
		return errs.ErrInvalidCredentials.Error()
	case stderrors.Is(err, errs.ErrPermissionDenied):
		return "not authorized"
	case stderrors.Is(err, errs.ErrNotFound):
		return "not found"
	case stderrors.Is(err, errs.ErrInvalidTransition):
		return "the item was changed by someone else; reload and try again"
	case stderrors.Is(err, errs.ErrDuplicate):
		return "already exists"
	case stderrors.Is(err, errs.ErrOnboardingDone):
		return errs.ErrOnboardingDone.Error()
	case stderrors.Is(err, errs.ErrStoreUnavailable):
		return "temporarily unavailable, try again"
	}
	return "internal error"
}

// ErrorLogger writes error responses and logs them at a level that fits
// the status. 5xx errors also go to Sentry.
type ErrorLogger struct {
	Log *zap.Logger
}

// NewErrorLogger constructs an ErrorLogger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{Log: logger}
}

// Write responds with Status(err) and {"error": Message(err)}.
// what names the operation for the log line.
func (e *ErrorLogger) Write(w http.ResponseWriter, r *http.Request, what string, err error) {
	status := Status(err)
	fields := []zap.Field{
		zap.String("op", what),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Error(err),
	}
	if p, ok := auth.CurrentProfile(r); ok {
		fields = append(fields, zap.String("uid", p.UID))
	}

	if status >= http.StatusInternalServerError {
		e.Log.Error(what, fields...)
		capture(r, err)
	} else {
		e.Log.Debug(what, fields...)
	}
	JSON(w, status, map[string]string{"error": Message(err)})
}

// LogBadRequest responds 400 with msg, for malformed bodies or parameters
// that never reached a service.
func (e *ErrorLogger) LogBadRequest(w http.ResponseWriter, r *http.Request, what string, err error, msg string) {
	e.Log.Debug(what, zap.String("path", r.URL.Path), zap.Error(err))
	JSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func capture(r *http.Request, err error) {
	hub := sentry.GetHubFromContext(r.Context())
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.CaptureException(err)
}
