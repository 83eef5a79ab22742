// internal/app/features/auditlog/handler.go
package auditlog

import (
	uierrors "github.com/dalemusser/opshub/internal/app/features/errors"
	"github.com/dalemusser/opshub/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Store  *audit.Store
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger
}

// NewHandler constructs an Audit Log feature handler bound to
// the given Mongo database and logger.
func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Store:  audit.New(db),
		Log:    logger,
		ErrLog: errLog,
	}
}
