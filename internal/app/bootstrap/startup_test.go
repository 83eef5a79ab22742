package bootstrap

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/opshub/internal/testutil"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func validConfig() AppConfig {
	return AppConfig{
		MongoURI:              "mongodb://localhost:27017",
		MongoDatabase:         "opshub",
		SessionKey:            "0123456789abcdef0123456789abcdef",
		SessionMaxAge:         time.Hour,
		NotificationRetention: defaultRetention,
		FanoutConcurrency:     4,
		FanoutMaxAttempts:     5,
		SignInRateLimit:       50,
		BcryptCost:            bcrypt.MinCost,
		AuditLogAuth:          "all",
		AuditLogWorkflow:      "all",
		AuditLogAdmin:         "all",
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		mutate  func(*AppConfig)
		wantErr bool
	}{
		{"valid", "prod", func(*AppConfig) {}, false},
		{"bad mongo uri", "prod", func(c *AppConfig) { c.MongoURI = "localhost" }, true},
		{"missing session key in prod", "prod", func(c *AppConfig) { c.SessionKey = "" }, true},
		{"missing session key in dev", "dev", func(c *AppConfig) { c.SessionKey = "" }, false},
		{"bad realms", "prod", func(c *AppConfig) { c.FederationRealms = "{" }, true},
		{"realm without base url", "prod", func(c *AppConfig) { c.FederationRealms = `[{"domain":"x.org"}]` }, true},
		{"negative retention", "prod", func(c *AppConfig) { c.NotificationRetention = -time.Hour }, true},
		{"retention disabled", "prod", func(c *AppConfig) { c.NotificationRetention = 0 }, false},
		{"zero concurrency", "prod", func(c *AppConfig) { c.FanoutConcurrency = 0 }, true},
		{"zero max attempts", "prod", func(c *AppConfig) { c.FanoutMaxAttempts = 0 }, true},
		{"cors origin", "prod", func(c *AppConfig) { c.CORSAllowedOrigins = []string{"https://app.example.com"} }, false},
		{"cors wildcard", "prod", func(c *AppConfig) { c.CORSAllowedOrigins = []string{"*"} }, true},
		{"negative timeout", "prod", func(c *AppConfig) { c.TimeoutMedium = -time.Second }, true},
		{"bcrypt too high", "prod", func(c *AppConfig) { c.BcryptCost = 40 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := ValidateConfig(&config.CoreConfig{Env: tt.env}, cfg, testLogger())
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// client wraps an http.Client with a cookie jar so the session survives
// between requests.
type client struct {
	t    *testing.T
	base string
	hc   *http.Client
}

func newClient(t *testing.T, base string) *client {
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &client{t: t, base: base, hc: &http.Client{Jar: jar}}
}

func (c *client) do(method, path string, body any, wantStatus int, out any) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.base+path, &buf)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.hc.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		c.t.Fatalf("%s %s: status %d, want %d", method, path, resp.StatusCode, wantStatus)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			c.t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
}

func TestStartupAndHandler_ProjectFlow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	core := &config.CoreConfig{Env: "dev"}
	appCfg := validConfig()
	appCfg.MongoDatabase = db.Name()
	appCfg.OwnerEmail = "owner@example.com"
	appCfg.MetricsEnabled = true
	appCfg.CORSAllowedOrigins = []string{"https://app.example.com"}

	deps := DBDeps{MongoClient: db.Client(), MongoDatabase: db, Runtime: &Runtime{}}
	if err := EnsureSchema(ctx, core, appCfg, deps, testLogger()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if err := Startup(ctx, core, appCfg, deps, testLogger()); err != nil {
		t.Fatalf("Startup: %v", err)
	}
	t.Cleanup(func() {
		deps.Runtime.Tasks.Stop()
		deps.Runtime.Limiter.Stop()
	})

	h, err := BuildHandler(core, appCfg, deps, testLogger())
	if err != nil {
		t.Fatalf("BuildHandler: %v", err)
	}
	srv := httptest.NewServer(h)
	defer srv.Close()

	var health struct {
		Status string `json:"status"`
	}
	newClient(t, srv.URL).do(http.MethodGet, "/health", nil, http.StatusOK, &health)
	if health.Status != "ok" {
		t.Errorf("health status = %q", health.Status)
	}

	owner := newClient(t, srv.URL)
	owner.do(http.MethodPost, "/auth/signup", map[string]string{
		"email": "owner@example.com", "password": "ownerpass1", "username": "owner",
	}, http.StatusCreated, nil)
	// owner_email had no profile at startup; promote it the way a restart would.
	if err := deps.Runtime.Identity.BootstrapOwner(ctx, appCfg.OwnerEmail); err != nil {
		t.Fatalf("BootstrapOwner: %v", err)
	}

	user := newClient(t, srv.URL)
	user.do(http.MethodPost, "/auth/signup", map[string]string{
		"email": "user@example.com", "password": "userpass1", "username": "user1",
	}, http.StatusCreated, nil)

	var me struct {
		IsAuthenticated bool     `json:"isAuthenticated"`
		Capabilities    []string `json:"capabilities"`
	}
	owner.do(http.MethodGet, "/auth/me", nil, http.StatusOK, &me)
	if !me.IsAuthenticated || len(me.Capabilities) == 0 {
		t.Errorf("owner /auth/me = %+v", me)
	}

	var created struct {
		ID string `json:"id"`
	}
	user.do(http.MethodPost, "/projects", map[string]string{"name": "Site", "type": "web"}, http.StatusCreated, &created)
	if created.ID == "" {
		t.Fatal("empty project id")
	}

	user.do(http.MethodPost, "/projects/"+created.ID+"/accept", map[string]any{"cost": 10}, http.StatusForbidden, nil)

	var accepted struct {
		Status  string `json:"status"`
		Version int64  `json:"version"`
	}
	owner.do(http.MethodPost, "/projects/"+created.ID+"/accept", map[string]any{"cost": 1000, "discount_rate": 10}, http.StatusOK, &accepted)
	if accepted.Status != "accepted" || accepted.Version != 2 {
		t.Errorf("accepted = %+v", accepted)
	}
	owner.do(http.MethodPost, "/projects/"+created.ID+"/reject", nil, http.StatusNotFound, nil)

	var unread struct {
		Unread int64 `json:"unread"`
	}
	user.do(http.MethodGet, "/notifications/unread_count", nil, http.StatusOK, &unread)
	if unread.Unread != 1 {
		t.Errorf("user unread = %d, want 1", unread.Unread)
	}

	user.do(http.MethodPost, "/auth/signout", nil, http.StatusNoContent, nil)
	user.do(http.MethodGet, "/projects", nil, http.StatusUnauthorized, nil)
	user.do(http.MethodGet, "/nowhere", nil, http.StatusNotFound, nil)

	preflight, err := http.NewRequest(http.MethodOptions, srv.URL+"/projects", nil)
	if err != nil {
		t.Fatalf("new preflight: %v", err)
	}
	preflight.Header.Set("Origin", "https://app.example.com")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodPost)
	presp, err := http.DefaultClient.Do(preflight)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	presp.Body.Close()
	if got := presp.Header.Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read /metrics: %v", err)
	}
	for _, want := range []string{
		`opshub_project_transitions_total{action="accept",outcome="denied"} 1`,
		`opshub_project_transitions_total{action="accept",outcome="ok"} 1`,
		`opshub_http_request_duration_seconds_count{method="POST"`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("/metrics missing %s", want)
		}
	}
}
