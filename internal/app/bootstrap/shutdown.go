// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"
	"time"

	"github.com/dalemusser/waffle/config"
	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

// Shutdown stops background work, flushes outbound integrations and closes
// the database connection.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if rt := deps.Runtime; rt != nil {
		if rt.Tasks != nil {
			logger.Info("stopping background jobs")
			rt.Tasks.Stop()
		}
		if rt.Limiter != nil {
			rt.Limiter.Stop()
		}
		if rt.Events != nil {
			rt.Events.Close()
		}
		if rt.Sentry && !sentry.Flush(2*time.Second) {
			logger.Warn("sentry flush timed out")
		}
	}

	if deps.MongoClient != nil {
		logger.Info("disconnecting MongoDB client")
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	return nil
}
