// internal/app/features/announcements/handler.go
package announcements

import (
	uierrors "github.com/dalemusser/opshub/internal/app/features/errors"
	"github.com/dalemusser/opshub/internal/app/notify"
	"go.uber.org/zap"
)

// Handler owns all Announcements handlers.
type Handler struct {
	Notify *notify.Service
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger
}

// NewHandler constructs an Announcements Handler.
func NewHandler(n *notify.Service, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Notify: n,
		Log:    logger,
		ErrLog: errLog,
	}
}
