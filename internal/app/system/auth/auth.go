package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/opshub/internal/app/system/authz"
	"github.com/dalemusser/opshub/internal/domain/errs"
	"github.com/dalemusser/opshub/internal/domain/models"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Session constants                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

const (
	DefaultSessionName = "opshub-session"

	uidKey = "uid"
)

// ProfileLoader fetches the caller's profile by uid. The profiles store
// satisfies it.
type ProfileLoader interface {
	Get(ctx context.Context, uid string) (models.Profile, error)
}

// SessionManager owns the cookie store and the authorization table used to
// derive capabilities for each request.
type SessionManager struct {
	store  *sessions.CookieStore
	name   string
	table  authz.Table
	loader ProfileLoader
	log    *zap.Logger
}

// NewSessionManager builds a cookie-backed session manager.
//
// Cookies are SameSite=Lax so cross-site POSTs never carry the session.
// In local dev over http://localhost use secure=false so cookies are accepted.
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide ≥32 random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}
	if name == "" {
		name = DefaultSessionName
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	logger.Info("session store initialized",
		zap.String("name", name),
		zap.Bool("secure", secure),
		zap.String("domain", domain))

	return &SessionManager{
		store: store,
		name:  name,
		table: authz.DefaultTable(),
		log:   logger,
	}, nil
}

// DevSessionKey returns a random key for local development when none is
// configured. Sessions do not survive a restart with it.
func DevSessionKey() string {
	return string(securecookie.GenerateRandomKey(32))
}

// UseProfiles sets the loader and authorization table the middleware uses.
func (sm *SessionManager) UseProfiles(loader ProfileLoader, table authz.Table) {
	sm.loader = loader
	if table != nil {
		sm.table = table
	}
}

// Table returns the authorization table capabilities are derived from.
func (sm *SessionManager) Table() authz.Table { return sm.table }

// SignIn stores uid in the session cookie.
func (sm *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, uid string) error {
	sess, _ := sm.store.Get(r, sm.name)
	sess.Values[uidKey] = uid
	return sess.Save(r, w)
}

// SignOut expires the session cookie.
func (sm *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, _ := sm.store.Get(r, sm.name)
	delete(sess.Values, uidKey)
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// SessionUID returns the uid carried by the request's session cookie.
func (sm *SessionManager) SessionUID(r *http.Request) (string, bool) {
	sess, err := sm.store.Get(r, sm.name)
	if err != nil {
		return "", false
	}
	uid, ok := sess.Values[uidKey].(string)
	return uid, ok && uid != ""
}

/*─────────────────────────────────────────────────────────────────────────────*
| Middleware                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

// LoadProfile loads the signed-in caller's profile fresh on every request and
// puts it, with its capabilities, in the request context. A session whose
// profile no longer exists is treated as signed out.
func (sm *SessionManager) LoadProfile(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, ok := sm.SessionUID(r)
		if !ok || sm.loader == nil {
			next.ServeHTTP(w, r)
			return
		}

		p, err := sm.loader.Get(r.Context(), uid)
		switch {
		case err == nil:
			r = withProfile(r, p, authz.Evaluate(sm.table, p))
		case errors.Is(err, errs.ErrNotFound):
			sm.log.Warn("session refers to missing profile", zap.String("uid", uid))
		default:
			sm.log.Error("load session profile failed", zap.String("uid", uid), zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "profile store unavailable")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSignedIn rejects requests without a profile in context with 401.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return RequireSignedIn(next)
}

// RequireSignedIn rejects requests without a profile in context with 401.
func RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentProfile(r); !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireCapability rejects callers lacking c: 401 when signed out, 403 otherwise.
func RequireCapability(c authz.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := CurrentProfile(r); !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if !Capabilities(r).Has(c) {
				writeError(w, http.StatusForbidden, errs.ErrPermissionDenied.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Context helpers                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

type ctxKey string

const (
	profileKey ctxKey = "profile"
	capsKey    ctxKey = "capabilities"
)

// CurrentProfile returns the caller's profile & "found?" flag.
func CurrentProfile(r *http.Request) (models.Profile, bool) {
	p, ok := r.Context().Value(profileKey).(models.Profile)
	return p, ok
}

// Capabilities returns the caller's capability set; empty when signed out.
func Capabilities(r *http.Request) authz.Capabilities {
	c, _ := r.Context().Value(capsKey).(authz.Capabilities)
	return c
}

// WithTestProfile injects a profile and capability set into the request
// context. Intended for handler tests.
func WithTestProfile(r *http.Request, p models.Profile, caps authz.Capabilities) *http.Request {
	return withProfile(r, p, caps)
}

func withProfile(r *http.Request, p models.Profile, caps authz.Capabilities) *http.Request {
	ctx := context.WithValue(r.Context(), profileKey, p)
	ctx = context.WithValue(ctx, capsKey, caps)
	return r.WithContext(ctx)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
