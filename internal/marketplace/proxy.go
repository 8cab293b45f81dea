package marketplace

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/donaldgifford/storefront-proxy/internal/metrics"
	"github.com/donaldgifford/storefront-proxy/pkg/logger"
)

// ErrInvalidItemID is returned for a blank item ID.
var ErrInvalidItemID = errors.New("invalid item id")

const (
	defaultSearchURL = "https://api.mercadolibre.com/sites/MLB/search"
	defaultItemsURL  = "https://api.mercadolibre.com/items"
)

// Getter performs a single marketplace attempt. *Client implements it.
type Getter interface {
	Get(ctx context.Context, endpoint, rawURL, token string) (*Outcome, error)
}

// TokenSource supplies bearer tokens. *Credentials implements it.
// Refresh returns "" when no new token could be obtained.
type TokenSource interface {
	Token() string
	Refresh(ctx context.Context) string
}

// Proxy fetches marketplace resources, recovering from auth failures by
// refreshing the token and then falling back to an anonymous call. A
// logical request makes at most three upstream calls.
type Proxy struct {
	getter    Getter
	tokens    TokenSource
	searchURL string
	itemsURL  string
	log       *slog.Logger
}

// ProxyOption configures the Proxy.
type ProxyOption func(*Proxy)

// WithSearchURL overrides the marketplace search endpoint.
func WithSearchURL(u string) ProxyOption {
	return func(p *Proxy) {
		if u != "" {
			p.searchURL = u
		}
	}
}

// WithItemsURL overrides the marketplace items endpoint.
func WithItemsURL(u string) ProxyOption {
	return func(p *Proxy) {
		if u != "" {
			p.itemsURL = u
		}
	}
}

// WithProxyLogger sets the logger.
func WithProxyLogger(l *slog.Logger) ProxyOption {
	return func(p *Proxy) {
		p.log = l
	}
}

// NewProxy creates a Proxy. A nil tokens makes every request anonymous
// with a single attempt.
func NewProxy(getter Getter, tokens TokenSource, opts ...ProxyOption) *Proxy {
	p := &Proxy{
		getter:    getter,
		tokens:    tokens,
		searchURL: defaultSearchURL,
		itemsURL:  defaultItemsURL,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = logger.Component(p.log, "proxy")
	return p
}

// FetchSearch runs q against the search endpoint.
func (p *Proxy) FetchSearch(ctx context.Context, q Query) (*Outcome, error) {
	return p.fetch(ctx, EndpointSearch, SearchURL(p.searchURL, q))
}

// FetchItem fetches a single listing by ID.
func (p *Proxy) FetchItem(ctx context.Context, id string) (*Outcome, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrInvalidItemID
	}
	return p.fetch(ctx, EndpointItem, ItemURL(p.itemsURL, id))
}

func (p *Proxy) fetch(ctx context.Context, endpoint, rawURL string) (*Outcome, error) {
	var token string
	if p.tokens != nil {
		token = p.tokens.Token()
	}

	out, err := p.getter.Get(ctx, endpoint, rawURL, token)
	if err != nil {
		return nil, err
	}
	attempts := 1

	if out.Kind == OutcomeAuthFailure && p.tokens != nil {
		if fresh := p.tokens.Refresh(ctx); fresh != "" {
			token = fresh
			metrics.UpstreamRetriesTotal.WithLabelValues("refreshed").Inc()
			p.log.Debug("retrying with refreshed token", "endpoint", endpoint, "status", out.Status)

			if out, err = p.getter.Get(ctx, endpoint, rawURL, token); err != nil {
				return nil, err
			}
			attempts++
		}
	}

	// Retry anonymously only when the failed attempt carried a token.
	if out.Kind == OutcomeAuthFailure && token != "" {
		metrics.UpstreamRetriesTotal.WithLabelValues("anonymous").Inc()
		p.log.Debug("retrying anonymously", "endpoint", endpoint, "status", out.Status)

		if out, err = p.getter.Get(ctx, endpoint, rawURL, ""); err != nil {
			return nil, err
		}
		attempts++
	}

	out.Attempts = attempts
	if out.Kind != OutcomeSuccess {
		p.log.Info("marketplace request failed",
			"endpoint", endpoint,
			"status", out.Status,
			"attempts", attempts,
		)
	}
	return out, nil
}
