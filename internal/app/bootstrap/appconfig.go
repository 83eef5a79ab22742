// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like ports, TLS,
// logging level and request limits. Everything OpsHub needs on top of
// that lives here and is passed to every lifecycle hook.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionName   string // Cookie name for sessions (default: opshub-session)
	SessionDomain string // Cookie domain (blank means current host)
	SessionMaxAge time.Duration

	// Operation timeouts (zero keeps the built-in default)
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration

	// Authorization
	AdminInheritsOwner bool // when true, admins may also delete rejected projects

	// Notifications
	NotificationRetention time.Duration // TTL on notifications; 0 keeps them forever
	FanoutConcurrency     int           // parallel recipient writes per fan-out
	FanoutMaxAttempts     int           // failed passes before a fan-out is abandoned

	// Domain events (blank disables publishing)
	NATSURL string

	// Error reporting (blank disables Sentry)
	SentryDSN string
	SentryEnv string

	// Browser origins allowed to call the API with credentials (blank disables CORS)
	CORSAllowedOrigins []string

	// Prometheus metrics at /metrics
	MetricsEnabled bool

	// Identity
	FederationRealms string // JSON array of partner realms
	OwnerEmail       string // promoted to owner on startup when the account exists
	SignInRateLimit  int    // sign-in attempts per IP per minute
	BcryptCost       int

	// Audit logging: "all", "db", "log" or "off" per category
	AuditLogAuth     string
	AuditLogWorkflow string
	AuditLogAdmin    string
}
