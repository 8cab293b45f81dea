// Package middleware provides Echo middleware for the storefront proxy.
package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/donaldgifford/storefront-proxy/internal/metrics"
)

// operationalPaths are excluded from request metrics. Probe paths map to
// an up/down gauge instead; /metrics maps to nil.
var operationalPaths = map[string]prometheus.Gauge{
	"/metrics": nil,
	"/healthz": metrics.HealthzUp,
	"/readyz":  metrics.ReadyzUp,
}

// Metrics returns Echo middleware that records request duration and status
// per route template, so /items/{id} is one series regardless of ID.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Path()
			if path == "" {
				path = c.Request().URL.Path
			}

			if gauge, operational := operationalPaths[path]; operational {
				err := next(c)
				if gauge != nil {
					gauge.Set(upValue(c.Response().Status))
				}
				return err
			}

			start := time.Now()
			err := next(c)

			labels := []string{c.Request().Method, path, strconv.Itoa(c.Response().Status)}
			metrics.HTTPRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
			metrics.HTTPRequestsTotal.WithLabelValues(labels...).Inc()

			return err
		}
	}
}

func upValue(status int) float64 {
	if status >= 200 && status < 300 {
		return 1
	}
	return 0
}
