// Package api assembles the proxy's HTTP surface: Echo middleware, the
// Huma operations and the operational endpoints.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/donaldgifford/storefront-proxy/internal/api/handlers"
	"github.com/donaldgifford/storefront-proxy/internal/api/middleware"
	"github.com/donaldgifford/storefront-proxy/internal/marketplace"
	"github.com/donaldgifford/storefront-proxy/internal/store"
	"github.com/donaldgifford/storefront-proxy/pkg/affiliate"
	"github.com/donaldgifford/storefront-proxy/pkg/logger"
)

const apiTitle = "Storefront Proxy"

// Deps are the collaborators behind the HTTP handlers.
type Deps struct {
	Searcher     handlers.Searcher
	OAuth        handlers.OAuthClient
	Store        store.Store
	Quota        *marketplace.Quota
	Links        *affiliate.Builder
	AllowedHosts []string
	Defaults     marketplace.QueryDefaults
	// AllowedOrigins lists CORS origins. Empty allows any origin.
	AllowedOrigins []string
	ReadyChecks    []handlers.Check
	Version        string
	Logger         *slog.Logger
}

// HumaConfig returns the Huma configuration used by the server. Response
// bodies are written as declared, without a $schema link, so the storefront
// envelopes stay exact.
func HumaConfig(version string) huma.Config {
	cfg := huma.DefaultConfig(apiTitle, version)
	cfg.CreateHooks = nil
	return cfg
}

// NewServer builds the Echo instance with every route registered.
func NewServer(d *Deps) *echo.Echo {
	log := logger.Component(d.Logger, "http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestLog(log))
	e.Use(middleware.Recovery(log))
	e.Use(middleware.Metrics())
	e.Use(middleware.NoStore())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  allowOrigins(d.AllowedOrigins),
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{echo.HeaderContentType, echo.HeaderAuthorization, "X-Request-ID"},
		ExposeHeaders: []string{"X-Cache", "X-Request-ID"},
	}))

	health := handlers.NewHealthHandler(d.Store, d.ReadyChecks...)
	e.GET("/healthz", health.Healthz)
	e.GET("/readyz", health.Readyz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	oauth := handlers.NewOAuthHandler(d.OAuth, d.Logger)
	e.GET("/oauth/authorize", oauth.Authorize)

	redirect := handlers.NewRedirectHandler(d.Links, d.AllowedHosts, d.Store, d.Logger)
	e.GET("/go", redirect.Go)

	humaAPI := humaecho.New(e, HumaConfig(d.Version))
	handlers.RegisterSearchRoutes(humaAPI, handlers.NewSearchHandler(d.Searcher, d.Store, d.Defaults, d.Logger))
	handlers.RegisterOAuthRoutes(humaAPI, oauth)
	handlers.RegisterQuotaRoutes(humaAPI, handlers.NewQuotaHandler(d.Quota))
	handlers.RegisterAnalyticsRoutes(humaAPI, handlers.NewAnalyticsHandler(d.Store))

	return e
}

func allowOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
