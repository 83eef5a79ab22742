// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/opshub/internal/app/identity"
	"github.com/dalemusser/opshub/internal/app/notify"
	"github.com/dalemusser/opshub/internal/app/system/federation"
	"github.com/dalemusser/opshub/internal/app/system/inputval"
	"github.com/dalemusser/opshub/internal/app/system/normalize"
	"github.com/dalemusser/opshub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const defaultRetention = 180 * 24 * time.Hour

// appConfigKeys defines the configuration keys for OpsHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: OPSHUB_MONGO_URI, OPSHUB_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "opshub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "", Desc: "Session signing key (required outside dev; 32+ chars)"},
	{Name: "session_name", Default: "opshub-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "168h", Desc: "Session cookie lifetime"},

	// Timeouts
	{Name: "timeout_short", Default: "5s", Desc: "Timeout for single-document operations"},
	{Name: "timeout_medium", Default: "10s", Desc: "Timeout for list queries and two-collection writes"},
	{Name: "timeout_long", Default: "30s", Desc: "Timeout for fan-out, schema setup and sweeps"},

	// Authorization
	{Name: "admin_inherits_owner", Default: false, Desc: "Let admins delete rejected projects"},

	// Notifications
	{Name: "notification_retention", Default: "4320h", Desc: "Delete notifications older than this (0 keeps them)"},
	{Name: "fanout_concurrency", Default: notify.DefaultConcurrency, Desc: "Parallel writes per notification fan-out"},
	{Name: "fanout_max_attempts", Default: notify.DefaultMaxAttempts, Desc: "Failed delivery passes before a fan-out is marked failed"},

	// Integrations
	{Name: "nats_url", Default: "", Desc: "NATS server URL for domain events (blank disables)"},
	{Name: "sentry_dsn", Default: "", Desc: "Sentry DSN for server error reporting (blank disables)"},
	{Name: "sentry_env", Default: "", Desc: "Sentry environment name (defaults to the WAFFLE env)"},
	{Name: "metrics_enabled", Default: true, Desc: "Serve Prometheus metrics at /metrics"},
	{Name: "cors_allowed_origins", Default: "", Desc: "Comma-separated browser origins allowed to call the API"},

	// Identity
	{Name: "federation_realms", Default: "", Desc: "JSON array of partner realms checked at sign-up"},
	{Name: "owner_email", Default: "", Desc: "Email of the account promoted to owner on startup"},
	{Name: "signin_rate_limit", Default: 10, Desc: "Sign-in attempts allowed per IP per minute"},
	{Name: "bcrypt_cost", Default: identity.DefaultBcryptCost, Desc: "bcrypt cost for password hashes"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_workflow", Default: "all", Desc: "Project workflow event logging: 'all', 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config.yaml/json/toml
// files, environment variables (WAFFLE_* for core, OPSHUB_* for app) and
// command-line flags, merged with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "OPSHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		SessionMaxAge:    appValues.Duration("session_max_age", 7*24*time.Hour),

		TimeoutShort:  appValues.Duration("timeout_short", timeouts.DefaultShort),
		TimeoutMedium: appValues.Duration("timeout_medium", timeouts.DefaultMedium),
		TimeoutLong:   appValues.Duration("timeout_long", timeouts.DefaultLong),

		AdminInheritsOwner: appValues.Bool("admin_inherits_owner"),

		NotificationRetention: appValues.Duration("notification_retention", defaultRetention),
		FanoutConcurrency:     appValues.Int("fanout_concurrency"),
		FanoutMaxAttempts:     appValues.Int("fanout_max_attempts"),

		NATSURL:   appValues.String("nats_url"),
		SentryDSN: appValues.String("sentry_dsn"),
		SentryEnv: appValues.String("sentry_env"),

		MetricsEnabled:     appValues.Bool("metrics_enabled"),
		CORSAllowedOrigins: normalize.List(strings.Split(appValues.String("cors_allowed_origins"), ",")),

		FederationRealms: appValues.String("federation_realms"),
		OwnerEmail:       appValues.String("owner_email"),
		SignInRateLimit:  appValues.Int("signin_rate_limit"),
		BcryptCost:       appValues.Int("bcrypt_cost"),

		AuditLogAuth:     appValues.String("audit_log_auth"),
		AuditLogWorkflow: appValues.String("audit_log_workflow"),
		AuditLogAdmin:    appValues.String("audit_log_admin"),
	}

	if appCfg.SentryEnv == "" {
		appCfg.SentryEnv = coreCfg.Env
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// OpsHub checks the MongoDB URI, the session key outside dev, the
// federation realm list and numeric bounds before connecting to anything.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if appCfg.SessionKey == "" && coreCfg.Env != "dev" {
		return fmt.Errorf("session_key is required when env is %q", coreCfg.Env)
	}

	if _, err := federation.ParseRealms(appCfg.FederationRealms); err != nil {
		return err
	}

	// Credentials are allowed, so every origin must be explicit.
	for _, o := range appCfg.CORSAllowedOrigins {
		if !inputval.IsValidHTTPURL(o) {
			return fmt.Errorf("cors_allowed_origins: %q is not an http(s) origin", o)
		}
	}

	if appCfg.TimeoutShort < 0 || appCfg.TimeoutMedium < 0 || appCfg.TimeoutLong < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}

	if appCfg.NotificationRetention < 0 {
		return fmt.Errorf("notification_retention must not be negative")
	}
	if appCfg.FanoutConcurrency < 1 {
		return fmt.Errorf("fanout_concurrency must be at least 1, got %d", appCfg.FanoutConcurrency)
	}
	if appCfg.FanoutMaxAttempts < 1 {
		return fmt.Errorf("fanout_max_attempts must be at least 1, got %d", appCfg.FanoutMaxAttempts)
	}
	if appCfg.BcryptCost < bcrypt.MinCost || appCfg.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	return nil
}
