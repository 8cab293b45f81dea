// Package scheduler runs the proxy's periodic background jobs: keeping the
// marketplace access token fresh and pre-warming the result cache with the
// most popular searches.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/donaldgifford/storefront-proxy/internal/marketplace"
	"github.com/donaldgifford/storefront-proxy/internal/metrics"
	"github.com/donaldgifford/storefront-proxy/internal/notify"
	"github.com/donaldgifford/storefront-proxy/internal/search"
	"github.com/donaldgifford/storefront-proxy/internal/store"
	"github.com/donaldgifford/storefront-proxy/pkg/logger"
)

const warmupJob = "cache_warmup"

// TokenRefresher performs a refresh_token grant. *marketplace.Credentials
// implements it.
type TokenRefresher interface {
	RefreshGrant(ctx context.Context) (*marketplace.Grant, error)
}

// Searcher runs a search through the cache. *search.Service implements it.
type Searcher interface {
	Search(ctx context.Context, q marketplace.Query) (*search.Result, error)
}

// Config selects the jobs to run. A zero interval disables a job.
type Config struct {
	TokenRefreshInterval time.Duration
	WarmupInterval       time.Duration
	WarmupQueries        int
	WarmupWindow         time.Duration
	QueryDefaults        marketplace.QueryDefaults
}

// Scheduler owns the cron runner and the job dependencies.
type Scheduler struct {
	cron      *cron.Cron
	cfg       Config
	refresher TokenRefresher
	searcher  Searcher
	store     store.Store
	holder    string
	notifier  notify.Notifier
	log       *slog.Logger
	nowFunc   func() time.Time

	// refreshFailing is only touched by the token refresh job, which cron
	// never runs concurrently with itself.
	refreshFailing bool
}

// Option configures the Scheduler.
type Option func(*Scheduler)

// WithNotifier sends operator events when the token refresh starts
// failing and when it recovers.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Scheduler) {
		s.notifier = n
	}
}

// New registers the enabled jobs. refresher and searcher may be nil when
// their job is disabled.
func New(
	cfg Config,
	refresher TokenRefresher,
	searcher Searcher,
	st store.Store,
	log *slog.Logger,
	opts ...Option,
) (*Scheduler, error) {
	host, _ := os.Hostname() //nolint:errcheck // holder is informational
	s := &Scheduler{
		cron:      cron.New(),
		cfg:       cfg,
		refresher: refresher,
		searcher:  searcher,
		store:     st,
		holder:    host + ":" + strconv.Itoa(os.Getpid()),
		log:       logger.Component(log, "scheduler"),
		nowFunc:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if cfg.TokenRefreshInterval > 0 && refresher != nil {
		if _, err := s.cron.AddFunc("@every "+cfg.TokenRefreshInterval.String(), s.runTokenRefresh); err != nil {
			return nil, fmt.Errorf("scheduling token refresh: %w", err)
		}
	}

	if cfg.WarmupInterval > 0 && searcher != nil && st != nil {
		if _, err := s.cron.AddFunc("@every "+cfg.WarmupInterval.String(), s.runWarmup); err != nil {
			return nil, fmt.Errorf("scheduling cache warm-up: %w", err)
		}
	}

	return s, nil
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	s.log.Info("scheduler started", "jobs", len(s.cron.Entries()))
	s.cron.Start()
}

// Stop stops the scheduler. The returned context is done once running
// jobs finish.
func (s *Scheduler) Stop() context.Context {
	s.log.Info("scheduler stopping")
	return s.cron.Stop()
}

// Entries returns the registered cron entries.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

func (s *Scheduler) runTokenRefresh() {
	ctx := context.Background()
	err := s.RefreshToken(ctx)
	if err != nil {
		s.log.Error("scheduled token refresh failed", "error", err)
	}
	s.reportRefresh(ctx, err)
}

// reportRefresh notifies on the transitions between a working and a
// failing token refresh, not on every run.
func (s *Scheduler) reportRefresh(ctx context.Context, err error) {
	failing := err != nil
	if s.notifier == nil || failing == s.refreshFailing {
		s.refreshFailing = failing
		return
	}
	s.refreshFailing = failing

	e := &notify.Event{
		Title:    "Marketplace token refresh recovered",
		Detail:   "Searches are authenticated again.",
		Severity: notify.SeverityResolved,
		At:       s.nowFunc(),
	}
	if failing {
		e = &notify.Event{
			Title:    "Marketplace token refresh failing",
			Detail:   err.Error(),
			Severity: notify.SeverityCritical,
			Fields:   map[string]string{"interval": s.cfg.TokenRefreshInterval.String()},
			At:       s.nowFunc(),
		}
		var gerr *marketplace.GrantError
		if errors.As(err, &gerr) {
			e.Fields["status"] = strconv.Itoa(gerr.Status)
		}
	}

	if nerr := s.notifier.Notify(ctx, e); nerr != nil {
		s.log.Warn("sending notification", "title", e.Title, "error", nerr)
	}
}

func (s *Scheduler) runWarmup() {
	if _, err := s.WarmCache(context.Background()); err != nil {
		s.log.Error("scheduled cache warm-up failed", "error", err)
	}
}

// RefreshToken renews the access token ahead of expiry. Missing refresh
// configuration is not an error.
func (s *Scheduler) RefreshToken(ctx context.Context) error {
	_, err := s.refresher.RefreshGrant(ctx)

	var cerr *marketplace.ConfigError
	if errors.As(err, &cerr) {
		s.log.Debug("token refresh skipped", "missing", cerr.Missing)
		return nil
	}
	return err
}

// WarmCache searches the most popular recent terms so their first page is
// cached. Only one replica warms per interval. It returns the number of
// terms warmed.
func (s *Scheduler) WarmCache(ctx context.Context) (int, error) {
	ok, err := s.store.AcquireSchedulerLock(ctx, warmupJob, s.holder, s.cfg.WarmupInterval)
	if err != nil {
		return 0, err
	}
	if !ok {
		s.log.Debug("cache warm-up held by another replica")
		return 0, nil
	}
	defer func() {
		if err := s.store.ReleaseSchedulerLock(ctx, warmupJob, s.holder); err != nil {
			s.log.Warn("releasing warm-up lock", "error", err)
		}
	}()

	top, err := s.store.TopQueries(ctx, s.nowFunc().Add(-s.cfg.WarmupWindow), s.cfg.WarmupQueries)
	if err != nil {
		return 0, err
	}

	warmed := 0
	for _, qc := range top {
		q, err := marketplace.NormalizeQuery(qc.Term, "", "", s.cfg.QueryDefaults)
		if err != nil {
			continue
		}
		if _, err := s.searcher.Search(ctx, q); err != nil {
			metrics.WarmupQueriesTotal.WithLabelValues("error").Inc()
			s.log.Warn("warm-up search failed", "term", q.Term, "error", err)
			continue
		}
		metrics.WarmupQueriesTotal.WithLabelValues("ok").Inc()
		warmed++
	}

	s.log.Info("cache warm-up complete", "terms", len(top), "warmed", warmed)
	return warmed, nil
}
