// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/dalemusser/opshub/internal/app/store/audit"
	"github.com/dalemusser/opshub/internal/app/system/ratelimit"
	"go.uber.org/zap"
)

// Config holds audit logging configuration. Each value is one of
// "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only) or "off".
type Config struct {
	Auth     string // sign-up, sign-in, sign-out, onboarding
	Workflow string // project create/accept/reject/delete, denied transitions
	Admin    string // role changes, announcements
}

// DefaultConfig records everything everywhere.
func DefaultConfig() Config {
	return Config{Auth: "all", Workflow: "all", Admin: "all"}
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Request metadata                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

type metaKey struct{}

type requestMeta struct {
	ip        string
	userAgent string
}

// RequestMeta is middleware that carries the caller's IP and user agent in
// the context so services can audit without seeing the request.
func RequestMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), metaKey{}, requestMeta{
			ip:        ratelimit.ClientIP(r),
			userAgent: r.UserAgent(),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func fillMeta(ctx context.Context, event *audit.Event) {
	if m, ok := ctx.Value(metaKey{}).(requestMeta); ok {
		if event.IP == "" {
			event.IP = m.ip
		}
		if event.UserAgent == "" {
			event.UserAgent = m.userAgent
		}
	}
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}
	if event.ActorUID != "" {
		fields = append(fields, zap.String("actor_uid", event.ActorUID))
	}
	if event.SubjectID != "" {
		fields = append(fields, zap.String("subject_id", event.SubjectID))
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// A nil Logger is a no-op so tests can pass nil.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryWorkflow:
		setting = l.config.Workflow
	case audit.CategoryAdmin:
		setting = l.config.Admin
	}
	if setting == "" {
		setting = "all"
	}
	if setting == "off" {
		return
	}

	fillMeta(ctx, &event)

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}
	if setting == "all" || setting == "db" {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// --- Auth Events ---

// SignUp logs a new account.
func (l *Logger) SignUp(ctx context.Context, uid, email string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventSignUp,
		ActorUID:  uid,
		SubjectID: uid,
		Success:   true,
		Details:   map[string]string{"email": email},
	})
}

// SignUpRejected logs a sign-up refused after validation passed.
func (l *Logger) SignUpRejected(ctx context.Context, email, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventSignUpRejected,
		FailureReason: reason,
		Details:       map[string]string{"email": email},
	})
}

// SignInSuccess logs a successful sign-in.
func (l *Logger) SignInSuccess(ctx context.Context, uid string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventSignInSuccess,
		ActorUID:  uid,
		SubjectID: uid,
		Success:   true,
	})
}

// SignInFailed logs a failed sign-in. uid is empty when no account matched.
func (l *Logger) SignInFailed(ctx context.Context, uid, email, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventSignInFailed,
		SubjectID:     uid,
		FailureReason: reason,
		Details:       map[string]string{"email": email},
	})
}

// SignInRateLimited logs a throttled sign-in attempt.
func (l *Logger) SignInRateLimited(ctx context.Context, email string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventSignInRateLimited,
		FailureReason: "rate limited",
		Details:       map[string]string{"email": email},
	})
}

// SignOut logs a sign-out.
func (l *Logger) SignOut(ctx context.Context, uid string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventSignOut,
		ActorUID:  uid,
		SubjectID: uid,
		Success:   true,
	})
}

// OnboardingComplete logs the one-time profile configuration.
func (l *Logger) OnboardingComplete(ctx context.Context, uid string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventOnboardingComplete,
		ActorUID:  uid,
		SubjectID: uid,
		Success:   true,
	})
}

// --- Workflow Events ---

// ProjectCreated logs a new pending project.
func (l *Logger) ProjectCreated(ctx context.Context, actorUID, projectID, name string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryWorkflow,
		EventType: audit.EventProjectCreated,
		ActorUID:  actorUID,
		SubjectID: projectID,
		Success:   true,
		Details:   map[string]string{"name": name},
	})
}

// ProjectAccepted logs pending → accepted.
func (l *Logger) ProjectAccepted(ctx context.Context, actorUID, projectID string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryWorkflow,
		EventType: audit.EventProjectAccepted,
		ActorUID:  actorUID,
		SubjectID: projectID,
		Success:   true,
	})
}

// ProjectRejected logs pending → rejected.
func (l *Logger) ProjectRejected(ctx context.Context, actorUID, projectID string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryWorkflow,
		EventType: audit.EventProjectRejected,
		ActorUID:  actorUID,
		SubjectID: projectID,
		Success:   true,
	})
}

// ProjectDeleted logs the hard delete of a rejected project. The audit
// record outlives the project, so the name is kept in details.
func (l *Logger) ProjectDeleted(ctx context.Context, actorUID, projectID, name string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryWorkflow,
		EventType: audit.EventProjectDeleted,
		ActorUID:  actorUID,
		SubjectID: projectID,
		Success:   true,
		Details:   map[string]string{"name": name},
	})
}

// TransitionDenied logs a refused workflow action.
func (l *Logger) TransitionDenied(ctx context.Context, actorUID, projectID, action, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryWorkflow,
		EventType:     audit.EventTransitionDenied,
		ActorUID:      actorUID,
		SubjectID:     projectID,
		FailureReason: reason,
		Details:       map[string]string{"action": action},
	})
}

// --- Admin Events ---

// RoleChanged logs a role or flag change on a profile.
func (l *Logger) RoleChanged(ctx context.Context, actorUID, subjectUID string, details map[string]string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventRoleChanged,
		ActorUID:  actorUID,
		SubjectID: subjectUID,
		Success:   true,
		Details:   details,
	})
}

// AnnouncementPosted logs an owner broadcast.
func (l *Logger) AnnouncementPosted(ctx context.Context, actorUID, announcementID, title string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventAnnouncementPosted,
		ActorUID:  actorUID,
		SubjectID: announcementID,
		Success:   true,
		Details:   map[string]string{"title": title},
	})
}

// OwnerBootstrapped logs the startup promotion of the configured owner email.
func (l *Logger) OwnerBootstrapped(ctx context.Context, uid, email string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventOwnerBootstrapped,
		SubjectID: uid,
		Success:   true,
		Details:   map[string]string{"email": email},
	})
}
