package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/donaldgifford/storefront-proxy/internal/metrics"
	"github.com/donaldgifford/storefront-proxy/internal/store"
	"github.com/donaldgifford/storefront-proxy/pkg/affiliate"
	"github.com/donaldgifford/storefront-proxy/pkg/logger"
	domain "github.com/donaldgifford/storefront-proxy/pkg/types"
)

// RedirectHandler hands storefront visitors off to the marketplace with
// affiliate tracking attached.
type RedirectHandler struct {
	links        *affiliate.Builder
	allowedHosts []string
	store        store.Store
	log          *slog.Logger
}

// NewRedirectHandler creates a RedirectHandler that only redirects to
// allowedHosts and their subdomains.
func NewRedirectHandler(
	links *affiliate.Builder,
	allowedHosts []string,
	st store.Store,
	log *slog.Logger,
) *RedirectHandler {
	return &RedirectHandler{
		links:        links,
		allowedHosts: allowedHosts,
		store:        st,
		log:          logger.Component(log, "handlers.redirect"),
	}
}

// Go redirects to a marketplace listing (url) or listing search (q).
//
// @Summary Redirect to the marketplace
// @Tags redirect
// @Param url query string false "Marketplace permalink"
// @Param q query string false "Search term, used when url is absent"
// @Param item_id query string false "Item ID recorded with the click"
// @Success 302
// @Failure 400 {object} Failure
// @Router /go [get]
func (h *RedirectHandler) Go(c echo.Context) error {
	var target string
	if raw := c.QueryParam("url"); raw != "" {
		if !h.allowed(raw) {
			return c.JSON(http.StatusBadRequest, Failure{Error: "url not allowed"})
		}
		target = h.links.BuildURL(raw)
	} else {
		target = h.links.SearchURL(c.QueryParam("q"))
	}

	if target == "" {
		return c.JSON(http.StatusBadRequest, Failure{Error: "url or q required"})
	}

	h.record(c.Request().Context(), &domain.ClickEvent{
		TargetURL: target,
		ItemID:    c.QueryParam("item_id"),
	})

	return c.Redirect(http.StatusFound, target)
}

func (h *RedirectHandler) allowed(raw string) bool {
	u, err := url.Parse(affiliate.SecureURL(strings.TrimSpace(raw)))
	if err != nil || u.Scheme != "https" {
		return false
	}

	host := strings.ToLower(u.Hostname())
	for _, allowed := range h.allowedHosts {
		allowed = strings.ToLower(allowed)
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}

func (h *RedirectHandler) record(ctx context.Context, e *domain.ClickEvent) {
	if h.store == nil {
		return
	}
	if err := h.store.RecordClick(context.WithoutCancel(ctx), e); err != nil {
		metrics.EventWriteFailuresTotal.Inc()
		h.log.Warn("recording click event", "error", err)
	}
}
