package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/donaldgifford/storefront-proxy/internal/api"
	"github.com/donaldgifford/storefront-proxy/internal/api/handlers"
	"github.com/donaldgifford/storefront-proxy/internal/cache"
	"github.com/donaldgifford/storefront-proxy/internal/config"
	"github.com/donaldgifford/storefront-proxy/internal/marketplace"
	"github.com/donaldgifford/storefront-proxy/internal/notify"
	"github.com/donaldgifford/storefront-proxy/internal/scheduler"
	"github.com/donaldgifford/storefront-proxy/internal/search"
	"github.com/donaldgifford/storefront-proxy/internal/store"
	"github.com/donaldgifford/storefront-proxy/internal/telemetry"
	"github.com/donaldgifford/storefront-proxy/pkg/affiliate"
)

// app holds the assembled server and the resources it owns.
type app struct {
	server    *echo.Echo
	scheduler *scheduler.Scheduler
	closers   []func() error
}

// Close releases the cache and store connections.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

func buildApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, error) {
	a := &app{}

	quota := marketplace.NewQuota(
		cfg.Marketplace.RateLimit.PerSecond,
		cfg.Marketplace.RateLimit.Burst,
		cfg.Marketplace.RateLimit.DailyLimit,
	)

	hc := &http.Client{
		Transport: telemetry.Transport(nil),
		Timeout:   cfg.Marketplace.Timeout,
	}

	client := marketplace.NewClient(
		marketplace.WithHTTPClient(hc),
		marketplace.WithUserAgent(cfg.Marketplace.UserAgent),
		marketplace.WithAcceptLanguage(cfg.Marketplace.AcceptLanguage),
		marketplace.WithQuota(quota),
		marketplace.WithLogger(log),
	)

	creds := marketplace.NewCredentials(marketplace.CredentialsConfig{
		ClientID:     cfg.Auth.ClientID,
		ClientSecret: cfg.Auth.ClientSecret,
		RedirectURI:  cfg.Auth.RedirectURI,
		AuthURL:      cfg.Marketplace.AuthURL,
		TokenURL:     cfg.Marketplace.TokenURL,
		AccessToken:  cfg.Auth.AccessToken,
		RefreshToken: cfg.Auth.RefreshToken,
	},
		marketplace.WithCredentialsHTTPClient(hc),
		marketplace.WithCredentialsLogger(log),
	)
	missing := creds.Missing(
		marketplace.SettingClientID,
		marketplace.SettingClientSecret,
		marketplace.SettingRefreshToken,
	)
	if len(missing) > 0 {
		log.Warn("marketplace credentials incomplete, token refresh disabled", "missing", missing)
	}

	proxy := marketplace.NewProxy(client, creds,
		marketplace.WithSearchURL(cfg.Marketplace.SearchURL),
		marketplace.WithItemsURL(cfg.Marketplace.ItemsURL),
		marketplace.WithProxyLogger(log),
	)

	var readyChecks []handlers.Check
	searchOpts := []search.Option{
		search.WithLogger(log),
		// Three search attempts plus the refresh grant.
		search.WithFetchTimeout(4 * cfg.Marketplace.Timeout),
	}
	if cfg.Cache.IsEnabled() {
		results, check := newCache(cfg, log)
		searchOpts = append(searchOpts, search.WithCache(results))
		a.closers = append(a.closers, results.Close)
		if check != nil {
			readyChecks = append(readyChecks, *check)
		}
	}
	svc := search.NewService(proxy, searchOpts...)

	st, err := newStore(ctx, cfg, log)
	if err != nil {
		_ = a.Close() //nolint:errcheck // already failing
		return nil, err
	}
	a.closers = append(a.closers, func() error { st.Close(); return nil })

	defaults := marketplace.QueryDefaults{
		Term:     cfg.Search.DefaultTerm,
		Limit:    cfg.Search.DefaultLimit,
		MaxLimit: cfg.Search.MaxLimit,
		Strict:   cfg.Search.Strict,
	}

	sched, err := scheduler.New(scheduler.Config{
		TokenRefreshInterval: cfg.Schedule.TokenRefreshInterval,
		WarmupInterval:       cfg.Schedule.WarmupInterval,
		WarmupQueries:        cfg.Schedule.WarmupQueries,
		WarmupWindow:         cfg.Schedule.WarmupWindow,
		QueryDefaults:        defaults,
	}, creds, svc, st, log, scheduler.WithNotifier(newNotifier(cfg, hc, log)))
	if err != nil {
		_ = a.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("creating scheduler: %w", err)
	}
	a.scheduler = sched

	a.server = api.NewServer(&api.Deps{
		Searcher:       svc,
		OAuth:          creds,
		Store:          st,
		Quota:          quota,
		Links:          affiliate.New(cfg.Affiliate.ID, cfg.Affiliate.Source),
		AllowedHosts:   cfg.Marketplace.AllowedHosts,
		Defaults:       defaults,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		ReadyChecks:    readyChecks,
		Version:        Version,
		Logger:         log,
	})
	a.server.Server.ReadTimeout = cfg.Server.ReadTimeout
	a.server.Server.WriteTimeout = cfg.Server.WriteTimeout

	return a, nil
}

// newCache returns the configured result cache and, for Redis, a readiness
// check on its connection.
func newCache(cfg *config.Config, log *slog.Logger) (cache.Store, *handlers.Check) {
	if cfg.Cache.Backend != "redis" {
		log.Info("result cache enabled", "backend", "memory", "ttl", cfg.Cache.TTL)
		return cache.NewMemory(cfg.Cache.TTL, cfg.Cache.MaxEntries), nil
	}

	r := cache.NewRedis(cache.RedisConfig{
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
		Prefix:   cfg.Cache.Redis.Prefix,
		TTL:      cfg.Cache.TTL,
	}, log)
	log.Info("result cache enabled", "backend", "redis", "addr", cfg.Cache.Redis.Addr, "ttl", cfg.Cache.TTL)
	return r, &handlers.Check{Name: "cache", Ping: r.Ping}
}

// newStore connects and migrates the analytics database, or returns a
// no-op store when none is configured.
func newStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (store.Store, error) {
	if !cfg.Database.Enabled() {
		log.Info("analytics database not configured, events are discarded")
		return store.NewNoopStore(), nil
	}

	pg, err := store.NewPostgresStore(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	applied, err := pg.Migrate(ctx)
	if err != nil {
		pg.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	if len(applied) > 0 {
		log.Info("applied migrations", "migrations", applied)
	}

	return pg, nil
}

func newNotifier(cfg *config.Config, hc *http.Client, log *slog.Logger) notify.Notifier {
	if cfg.Notify.DiscordWebhookURL == "" {
		return notify.NewNoOpNotifier(log)
	}
	return notify.NewDiscordNotifier(cfg.Notify.DiscordWebhookURL, notify.WithHTTPClient(hc))
}
