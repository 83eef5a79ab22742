// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/opshub/internal/app/cart"
	"github.com/dalemusser/opshub/internal/app/identity"
	"github.com/dalemusser/opshub/internal/app/notify"
	"github.com/dalemusser/opshub/internal/app/store/audit"
	"github.com/dalemusser/opshub/internal/app/system/auditlog"
	"github.com/dalemusser/opshub/internal/app/system/auth"
	"github.com/dalemusser/opshub/internal/app/system/authz"
	"github.com/dalemusser/opshub/internal/app/system/events"
	"github.com/dalemusser/opshub/internal/app/system/federation"
	"github.com/dalemusser/opshub/internal/app/system/metrics"
	"github.com/dalemusser/opshub/internal/app/system/ratelimit"
	"github.com/dalemusser/opshub/internal/app/system/tasks"
	"github.com/dalemusser/opshub/internal/app/system/timeouts"
	"github.com/dalemusser/opshub/internal/app/workflow"
	"github.com/dalemusser/waffle/config"
	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

// Runtime holds the services built at startup.
type Runtime struct {
	SessionMgr *auth.SessionManager
	Table      authz.Table
	Events     events.Publisher
	Audit      *auditlog.Logger
	Notify     *notify.Service
	Workflow   *workflow.Engine
	Identity   *identity.Service
	Cart       *cart.Service
	Limiter    *ratelimit.SignInLimiter
	Tasks      *tasks.Runner
	Metrics    *metrics.Metrics // nil when metrics are disabled
	Sentry     bool
}

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It builds
// the services, starts background jobs and promotes the configured owner.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	rt := deps.Runtime
	if rt == nil {
		return fmt.Errorf("startup: runtime not allocated")
	}
	db := deps.MongoDatabase

	key := appCfg.SessionKey
	if key == "" {
		logger.Warn("session_key not set; using a random dev key")
		key = auth.DevSessionKey()
	}
	sm, err := auth.NewSessionManager(key, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, coreCfg.Env == "prod", logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return err
	}

	rt.Table = authz.NewTable(appCfg.AdminInheritsOwner)

	rt.Events = events.Nop{}
	if appCfg.NATSURL != "" {
		nc, err := events.Connect(appCfg.NATSURL, logger)
		if err != nil {
			return err
		}
		rt.Events = nc
		logger.Info("publishing domain events", zap.String("nats_url", appCfg.NATSURL))
	}

	if appCfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              appCfg.SentryDSN,
			Environment:      appCfg.SentryEnv,
			AttachStacktrace: true,
		}); err != nil {
			return fmt.Errorf("sentry init: %w", err)
		}
		rt.Sentry = true
		logger.Info("sentry error reporting enabled", zap.String("env", appCfg.SentryEnv))
	}

	realms, err := federation.ParseRealms(appCfg.FederationRealms)
	if err != nil {
		return err
	}

	rt.Audit = auditlog.New(audit.New(db), logger, auditlog.Config{
		Auth:     appCfg.AuditLogAuth,
		Workflow: appCfg.AuditLogWorkflow,
		Admin:    appCfg.AuditLogAdmin,
	})
	rt.Notify = notify.New(db, notify.Config{
		Concurrency: appCfg.FanoutConcurrency,
		MaxAttempts: appCfg.FanoutMaxAttempts,
		Table:       rt.Table,
	}, rt.Audit, rt.Events, logger)
	rt.Workflow = workflow.New(db, rt.Table, rt.Notify, rt.Audit, rt.Events, logger)
	rt.Identity = identity.New(db, identity.Config{
		BcryptCost: appCfg.BcryptCost,
		Federation: federation.NewChecker(realms, logger),
		Table:      rt.Table,
	}, rt.Notify, rt.Audit, rt.Events, logger)
	rt.Cart = cart.New(db, logger)

	if appCfg.MetricsEnabled {
		rt.Metrics = metrics.New()
		rt.Workflow.UseMetrics(rt.Metrics)
		rt.Notify.UseMetrics(rt.Metrics)
	}

	sm.UseProfiles(rt.Identity, rt.Table)
	rt.SessionMgr = sm
	rt.Limiter = ratelimit.NewSignInLimiter(appCfg.SignInRateLimit)

	if appCfg.OwnerEmail != "" {
		octx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), logger, "bootstrap owner")
		err := rt.Identity.BootstrapOwner(octx, appCfg.OwnerEmail)
		cancel()
		if err != nil {
			logger.Error("owner bootstrap failed", zap.Error(err))
			return err
		}
	}

	rt.Tasks = tasks.NewRunner(logger,
		tasks.FanoutRetryJob(rt.Notify, logger),
		tasks.AssociationRepairJob(rt.Workflow, logger),
	)
	rt.Tasks.Start()

	return nil
}
