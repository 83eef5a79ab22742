// internal/app/features/profile/handler.go
package profile

import (
	uierrors "github.com/dalemusser/opshub/internal/app/features/errors"
	"github.com/dalemusser/opshub/internal/app/identity"
	"go.uber.org/zap"
)

// Handler owns the profile endpoints, including the owner-only role change.
type Handler struct {
	Identity *identity.Service
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
}

// NewHandler constructs a Handler bound to the identity service and logger.
func NewHandler(id *identity.Service, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Identity: id,
		Log:      logger,
		ErrLog:   errLog,
	}
}
