// Package federation asks partner realms whether a username exists there
// before an account with an email in that realm's domain is created.
package federation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

var (
	// ErrNotFederated means the partner realm does not know the username.
	ErrNotFederated = errors.New("username not registered with partner realm")
	// ErrRealmUnavailable means the partner realm could not answer.
	ErrRealmUnavailable = errors.New("partner realm unavailable")
)

// Realm is one partner realm, selected by email domain.
type Realm struct {
	Domain       string `json:"domain"`
	BaseURL      string `json:"base_url"`
	TokenURL     string `json:"token_url"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// ParseRealms decodes the federation_realms config value (a JSON array).
// An empty string yields no realms.
func ParseRealms(raw string) ([]Realm, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var realms []Realm
	if err := json.Unmarshal([]byte(raw), &realms); err != nil {
		return nil, fmt.Errorf("federation_realms: %w", err)
	}
	for i, r := range realms {
		if r.Domain == "" || r.BaseURL == "" {
			return nil, fmt.Errorf("federation_realms[%d]: domain and base_url are required", i)
		}
		if _, err := url.ParseRequestURI(r.BaseURL); err != nil {
			return nil, fmt.Errorf("federation_realms[%d]: base_url: %w", i, err)
		}
	}
	return realms, nil
}

type realmClient struct {
	Realm
	tokens oauth2.TokenSource
}

// Checker verifies usernames against partner realms.
type Checker struct {
	realms map[string]realmClient
	log    *zap.Logger
}

// NewChecker builds a Checker. Realms without a token_url are called
// without credentials.
func NewChecker(realms []Realm, logger *zap.Logger) *Checker {
	c := &Checker{realms: make(map[string]realmClient, len(realms)), log: logger}
	for _, r := range realms {
		rc := realmClient{Realm: r}
		if r.TokenURL != "" {
			cc := &clientcredentials.Config{
				ClientID:     r.ClientID,
				ClientSecret: r.ClientSecret,
				TokenURL:     r.TokenURL,
			}
			rc.tokens = cc.TokenSource(context.Background())
		}
		c.realms[strings.ToLower(r.Domain)] = rc
	}
	return c
}

// Verify returns nil when email's domain has no partner realm or the realm
// knows username.
func (c *Checker) Verify(ctx context.Context, email, username string) error {
	if c == nil || len(c.realms) == 0 {
		return nil
	}
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return nil
	}
	rc, ok := c.realms[strings.ToLower(email[at+1:])]
	if !ok {
		return nil
	}

	client := http.DefaultClient
	if rc.tokens != nil {
		client = oauth2.NewClient(ctx, rc.tokens)
	}

	endpoint := strings.TrimRight(rc.BaseURL, "/") + "/usernames/" + url.PathEscape(username)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRealmUnavailable, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		c.log.Warn("federation check failed",
			zap.String("realm", rc.Domain), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrRealmUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return ErrNotFederated
	default:
		c.log.Warn("federation check unexpected status",
			zap.String("realm", rc.Domain), zap.Int("status", resp.StatusCode))
		return fmt.Errorf("%w: status %d", ErrRealmUnavailable, resp.StatusCode)
	}
}
