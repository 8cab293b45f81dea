package main

import "errors"

// KnownMetrics is the set of metric names exported by storefront-proxy
// plus recording rule names referenced in dashboards and alerts.
var KnownMetrics = map[string]bool{
	// HTTP metrics.
	"sfp_http_request_duration_seconds_bucket": true,
	"sfp_http_requests_total":                  true,
	"sfp_http_panics_total":                    true,

	// Health metrics.
	"sfp_healthz_up": true,
	"sfp_readyz_up":  true,

	// Marketplace metrics.
	"sfp_upstream_requests_total":                  true,
	"sfp_upstream_request_duration_seconds_bucket": true,
	"sfp_upstream_retries_total":                   true,
	"sfp_upstream_daily_usage":                     true,
	"sfp_upstream_daily_limit_hits_total":          true,
	"sfp_token_refresh_total":                      true,

	// Cache metrics.
	"sfp_cache_lookups_total":   true,
	"sfp_cache_evictions_total": true,
	"sfp_cache_entries":         true,

	// Background and analytics metrics.
	"sfp_warmup_queries_total":        true,
	"sfp_event_write_failures_total":  true,
	"sfp_notification_failures_total": true,

	// Recording rules.
	"sfp:http_requests:rate5m":     true,
	"sfp:http_errors:rate5m":       true,
	"sfp:upstream_requests:rate5m": true,
	"sfp:upstream_blocked:rate5m":  true,
	"sfp:cache_hit_ratio:rate5m":   true,

	// Standard Prometheus metrics referenced in dashboards.
	"up":                         true,
	"process_start_time_seconds": true,
}

// Config controls which artifacts the generator produces and where they go.
type Config struct {
	OutputDir        string
	DashboardEnabled bool
	RulesEnabled     bool
}

// DefaultConfig returns a Config that generates all artifacts into ../../deploy
// (relative to tools/dashgen/).
func DefaultConfig() Config {
	return Config{
		OutputDir:        "../../deploy",
		DashboardEnabled: true,
		RulesEnabled:     true,
	}
}

// Validate checks that the config is usable.
func (c Config) Validate() error {
	if c.OutputDir == "" {
		return errors.New("output directory must be set")
	}
	if !c.DashboardEnabled && !c.RulesEnabled {
		return errors.New("at least one of dashboard or rules must be enabled")
	}
	return nil
}
