// internal/app/bootstrap/routes.go
package bootstrap

import (
	"fmt"
	"net/http"

	announcementsfeature "github.com/dalemusser/opshub/internal/app/features/announcements"
	auditlogfeature "github.com/dalemusser/opshub/internal/app/features/auditlog"
	cartfeature "github.com/dalemusser/opshub/internal/app/features/cart"
	errorsfeature "github.com/dalemusser/opshub/internal/app/features/errors"
	healthfeature "github.com/dalemusser/opshub/internal/app/features/health"
	loginfeature "github.com/dalemusser/opshub/internal/app/features/login"
	logoutfeature "github.com/dalemusser/opshub/internal/app/features/logout"
	notificationsfeature "github.com/dalemusser/opshub/internal/app/features/notifications"
	profilefeature "github.com/dalemusser/opshub/internal/app/features/profile"
	projectsfeature "github.com/dalemusser/opshub/internal/app/features/projects"
	userinfofeature "github.com/dalemusser/opshub/internal/app/features/userinfo"
	"github.com/dalemusser/opshub/internal/app/system/auditlog"
	"github.com/dalemusser/opshub/internal/app/system/events"
	"github.com/dalemusser/waffle/config"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// Startup have completed. The services live in deps.Runtime.
//
// OpsHub applies Sentry, Prometheus and CORS when configured, then request
// metadata for the audit log and session loading, and mounts one router per
// feature.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	rt := deps.Runtime
	if rt == nil || rt.SessionMgr == nil {
		return nil, fmt.Errorf("build handler: startup did not run")
	}

	errLog := errorsfeature.NewErrorLogger(logger)

	r := chi.NewRouter()

	if rt.Sentry {
		r.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	}
	if rt.Metrics != nil {
		r.Use(rt.Metrics.Middleware)
	}
	if len(appCfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   appCfg.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(auditlog.RequestMeta)

	// Loads the caller's profile and capabilities into the request context.
	// Handlers read them with auth.CurrentProfile(r) and auth.Capabilities(r).
	r.Use(rt.SessionMgr.LoadProfile)

	if rt.Metrics != nil {
		r.Handle("/metrics", rt.Metrics.Handler())
	}

	var broker healthfeature.Broker
	if nc, ok := rt.Events.(*events.NATS); ok {
		broker = nc
	}
	r.Mount("/health", healthfeature.Routes(healthfeature.NewHandler(deps.MongoClient, broker, logger)))

	// Identity
	loginHandler := loginfeature.NewHandler(rt.Identity, rt.SessionMgr, rt.Limiter, rt.Audit, errLog, logger)
	loginHandler.Metrics = rt.Metrics
	logoutHandler := logoutfeature.NewHandler(rt.SessionMgr, rt.Audit, logger)
	r.Route("/auth", func(ar chi.Router) {
		ar.Mount("/", loginfeature.Routes(loginHandler))
		ar.Mount("/signout", logoutfeature.Routes(logoutHandler))
	})
	userinfofeature.MountRoutes(r, userinfofeature.NewHandler())

	profileHandler := profilefeature.NewHandler(rt.Identity, errLog, logger)
	r.Mount("/profile", profilefeature.Routes(profileHandler))
	r.Mount("/admin/profiles", profilefeature.AdminRoutes(profileHandler))
	r.Mount("/admin/audit", auditlogfeature.Routes(auditlogfeature.NewHandler(deps.MongoDatabase, errLog, logger)))

	// Workflow
	r.Mount("/projects", projectsfeature.Routes(projectsfeature.NewHandler(rt.Workflow, errLog, logger)))

	// Notifications and announcements
	r.Mount("/notifications", notificationsfeature.Routes(notificationsfeature.NewHandler(rt.Notify, errLog, logger)))
	announcementsHandler := announcementsfeature.NewHandler(rt.Notify, errLog, logger)
	r.Route("/announcements", announcementsHandler.MountRoutes)

	// Cart
	r.Mount("/cart", cartfeature.Routes(cartfeature.NewHandler(rt.Cart, errLog, logger)))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		errorsfeature.JSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		errorsfeature.JSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	})

	return r, nil
}
