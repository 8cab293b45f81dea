package marketplace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/donaldgifford/storefront-proxy/internal/metrics"
	"github.com/donaldgifford/storefront-proxy/pkg/logger"
)

// Grant types, used as metric labels.
const (
	GrantRefreshToken      = "refresh_token"
	GrantAuthorizationCode = "authorization_code"
)

// Setting names reported by ConfigError.
const (
	SettingClientID     = "client_id"
	SettingClientSecret = "client_secret"
	SettingRefreshToken = "refresh_token"
	SettingRedirectURI  = "redirect_uri"
)

// ConfigError lists credential settings required by an operation but not
// configured. No upstream call is made when it is returned.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return "missing credential settings: " + strings.Join(e.Missing, ", ")
}

// GrantError is a non-2xx response from the token endpoint.
type GrantError struct {
	Status int
	Data   any
}

func (e *GrantError) Error() string {
	return fmt.Sprintf("token endpoint returned status %d", e.Status)
}

// Grant is a successful token endpoint response.
type Grant struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
	Scope        string
	TokenType    string
	UserID       any
}

// CredentialsConfig holds the OAuth client settings and seed tokens.
type CredentialsConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthURL      string
	TokenURL     string
	AccessToken  string
	RefreshToken string
}

// Credentials owns the current access/refresh token pair. Reads and writes
// of the pair are serialized; concurrent refreshes are not coalesced and
// the last successful one wins.
type Credentials struct {
	oauth   *oauth2.Config
	client  *http.Client
	log     *slog.Logger
	nowFunc func() time.Time

	mu      sync.RWMutex
	access  string
	refresh string
}

// CredentialsOption configures Credentials.
type CredentialsOption func(*Credentials)

// WithCredentialsHTTPClient sets the client used for token endpoint calls.
func WithCredentialsHTTPClient(c *http.Client) CredentialsOption {
	return func(cr *Credentials) {
		cr.client = c
	}
}

// WithCredentialsLogger sets the logger.
func WithCredentialsLogger(l *slog.Logger) CredentialsOption {
	return func(cr *Credentials) {
		cr.log = l
	}
}

// WithCredentialsNowFunc overrides the clock used to derive expires_in.
func WithCredentialsNowFunc(f func() time.Time) CredentialsOption {
	return func(cr *Credentials) {
		cr.nowFunc = f
	}
}

// NewCredentials creates a credential manager seeded from cfg.
func NewCredentials(cfg CredentialsConfig, opts ...CredentialsOption) *Credentials {
	c := &Credentials{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		client:  &http.Client{Timeout: 10 * time.Second},
		nowFunc: time.Now,
		access:  cfg.AccessToken,
		refresh: cfg.RefreshToken,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = logger.Component(c.log, "credentials")
	return c
}

// Token returns the current access token, or "" when none is held.
func (c *Credentials) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.access
}

// RefreshToken returns the current refresh token, or "".
func (c *Credentials) RefreshToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refresh
}

// Set replaces the token pair. An empty refresh token keeps the current one.
func (c *Credentials) Set(access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.access = access
	if refresh != "" {
		c.refresh = refresh
	}
}

// Missing reports which of the given settings are unset.
func (c *Credentials) Missing(settings ...string) []string {
	var missing []string
	for _, s := range settings {
		var v string
		switch s {
		case SettingClientID:
			v = c.oauth.ClientID
		case SettingClientSecret:
			v = c.oauth.ClientSecret
		case SettingRedirectURI:
			v = c.oauth.RedirectURL
		case SettingRefreshToken:
			v = c.RefreshToken()
		}
		if v == "" {
			missing = append(missing, s)
		}
	}
	return missing
}

// Refresh exchanges the refresh token for a new access token and returns
// it, or "" when refresh is not configured or fails. Failures are logged.
func (c *Credentials) Refresh(ctx context.Context) string {
	g, err := c.RefreshGrant(ctx)
	if err != nil {
		var cerr *ConfigError
		if errors.As(err, &cerr) {
			c.log.Debug("token refresh skipped", "missing", cerr.Missing)
		} else {
			c.log.Warn("token refresh failed", "error", err)
		}
		return ""
	}
	return g.AccessToken
}

// RefreshGrant performs a refresh_token grant and stores the new pair. It
// returns a *ConfigError before any network call when settings are missing
// and a *GrantError when the token endpoint rejects the request.
func (c *Credentials) RefreshGrant(ctx context.Context) (*Grant, error) {
	if missing := c.Missing(SettingClientID, SettingClientSecret, SettingRefreshToken); len(missing) > 0 {
		return nil, &ConfigError{Missing: missing}
	}

	seed := &oauth2.Token{RefreshToken: c.RefreshToken()}
	tok, err := c.oauth.TokenSource(c.clientContext(ctx), seed).Token()
	if err != nil {
		return nil, c.grantFailed(GrantRefreshToken, err)
	}
	return c.granted(GrantRefreshToken, tok), nil
}

// Exchange trades an authorization code for a token pair and stores it.
func (c *Credentials) Exchange(ctx context.Context, code string) (*Grant, error) {
	if missing := c.Missing(SettingClientID, SettingClientSecret, SettingRedirectURI); len(missing) > 0 {
		return nil, &ConfigError{Missing: missing}
	}

	tok, err := c.oauth.Exchange(c.clientContext(ctx), code)
	if err != nil {
		return nil, c.grantFailed(GrantAuthorizationCode, err)
	}
	return c.granted(GrantAuthorizationCode, tok), nil
}

// AuthCodeURL returns the marketplace consent URL carrying state.
func (c *Credentials) AuthCodeURL(state string) (string, error) {
	if missing := c.Missing(SettingClientID, SettingRedirectURI); len(missing) > 0 {
		return "", &ConfigError{Missing: missing}
	}
	return c.oauth.AuthCodeURL(state), nil
}

func (c *Credentials) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.client)
}

func (c *Credentials) granted(grant string, tok *oauth2.Token) *Grant {
	g := &Grant{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		ExpiresIn:    c.expiresIn(tok),
		UserID:       tok.Extra("user_id"),
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		g.Scope = scope
	}

	c.Set(g.AccessToken, g.RefreshToken)
	metrics.TokenRefreshTotal.WithLabelValues(grant, "ok").Inc()
	c.log.Info("token granted", "grant", grant, "expires_in", g.ExpiresIn)
	return g
}

func (c *Credentials) grantFailed(grant string, err error) error {
	metrics.TokenRefreshTotal.WithLabelValues(grant, "error").Inc()

	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) && rerr.Response != nil {
		return &GrantError{
			Status: rerr.Response.StatusCode,
			Data:   decodeBody(rerr.Response.Header.Get("Content-Type"), rerr.Body),
		}
	}
	return fmt.Errorf("%s grant: %w", grant, err)
}

func (c *Credentials) expiresIn(tok *oauth2.Token) int64 {
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		return int64(v)
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	if tok.Expiry.IsZero() {
		return 0
	}
	return int64(tok.Expiry.Sub(c.nowFunc()).Round(time.Second).Seconds())
}
