// Package search serves normalized marketplace searches through the
// result cache.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/donaldgifford/storefront-proxy/internal/cache"
	"github.com/donaldgifford/storefront-proxy/internal/marketplace"
	"github.com/donaldgifford/storefront-proxy/pkg/logger"
	domain "github.com/donaldgifford/storefront-proxy/pkg/types"
)

// Fetcher retrieves raw marketplace outcomes. *marketplace.Proxy implements it.
type Fetcher interface {
	FetchSearch(ctx context.Context, q marketplace.Query) (*marketplace.Outcome, error)
	FetchItem(ctx context.Context, id string) (*marketplace.Outcome, error)
}

// DefaultFetchTimeout bounds a shared upstream fetch, which outlives the
// request that started it.
const DefaultFetchTimeout = 30 * time.Second

// Result is a search result and whether it came from the cache.
type Result struct {
	domain.SearchResult
	Cached bool
}

// Service answers searches from the cache when possible and otherwise
// through the marketplace proxy, caching only successful results.
// Concurrent misses for the same key share one upstream request.
type Service struct {
	fetcher Fetcher
	cache   cache.Store
	group   singleflight.Group
	timeout time.Duration
	log     *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

// WithCache enables result caching. A nil store disables it.
func WithCache(s cache.Store) Option {
	return func(svc *Service) {
		svc.cache = s
	}
}

// WithFetchTimeout bounds each shared upstream fetch. Non-positive values
// keep DefaultFetchTimeout.
func WithFetchTimeout(d time.Duration) Option {
	return func(svc *Service) {
		if d > 0 {
			svc.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(svc *Service) {
		svc.log = l
	}
}

// NewService creates a Service.
func NewService(fetcher Fetcher, opts ...Option) *Service {
	s := &Service{fetcher: fetcher, timeout: DefaultFetchTimeout}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logger.Component(s.log, "search")
	return s
}

// CacheEnabled reports whether results are cached.
func (s *Service) CacheEnabled() bool {
	return s.cache != nil
}

// Search returns the normalized result for q. A non-2xx upstream outcome
// is returned as a *marketplace.UpstreamError.
func (s *Service) Search(ctx context.Context, q marketplace.Query) (*Result, error) {
	key := cache.Key{Term: q.Term, Offset: q.Offset, Limit: q.Limit}

	if s.cache != nil {
		if res, ok := s.cache.Get(ctx, key); ok {
			return &Result{SearchResult: *res, Cached: true}, nil
		}
	}

	// The fetch runs detached from ctx so one caller going away does not
	// fail the others waiting on the same key.
	ch := s.group.DoChan(key.String(), func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		out, err := s.fetcher.FetchSearch(fetchCtx, q)
		if err != nil {
			return nil, fmt.Errorf("fetching search: %w", err)
		}
		if err := out.Err(); err != nil {
			return nil, err
		}

		res := marketplace.NormalizeSearch(out.Body, q)
		if s.cache != nil {
			s.cache.Put(fetchCtx, key, &res)
		}
		return &res, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		if r.Shared {
			s.log.Debug("shared in-flight search", "term", q.Term)
		}
		return &Result{SearchResult: *r.Val.(*domain.SearchResult)}, nil
	}
}

// Item returns a single normalized listing.
func (s *Service) Item(ctx context.Context, id string) (*domain.Item, error) {
	out, err := s.fetcher.FetchItem(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching item: %w", err)
	}
	if err := out.Err(); err != nil {
		return nil, err
	}

	item := marketplace.NormalizeItem(out.Body)
	return &item, nil
}
