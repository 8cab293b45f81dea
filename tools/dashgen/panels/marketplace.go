package panels

import (
	"fmt"

	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// UpstreamOutcomes returns a timeseries panel of marketplace calls by
// outcome.
func UpstreamOutcomes() *timeseries.PanelBuilder {
	return Timeseries("Upstream Calls", "Marketplace calls per second by outcome", 8).
		WithTarget(PromQuery(`sfp:upstream_requests:rate5m`, "{{outcome}}", "A")).
		Unit("reqps").
		Thresholds(ThresholdsGreenOnly())
}

// UpstreamRetries returns a timeseries panel of retries by kind: after a
// token refresh or anonymously.
func UpstreamRetries() *timeseries.PanelBuilder {
	return Timeseries("Auth Retries", "Retries after an auth failure, by kind", 8).
		WithTarget(PromQuery(`sum(rate(sfp_upstream_retries_total[5m])) by (kind)`, "{{kind}}", "A")).
		Unit("reqps").
		Thresholds(ThresholdsGreenOnly())
}

// UpstreamLatency returns a timeseries panel of p95 marketplace latency.
func UpstreamLatency() *timeseries.PanelBuilder {
	return Timeseries("Upstream Latency p95", "Marketplace call duration by endpoint", 8).
		WithTarget(PromQuery(
			`histogram_quantile(0.95, sum(rate(sfp_upstream_request_duration_seconds_bucket[5m])) by (le, endpoint))`,
			"{{endpoint}}", "A",
		)).
		Unit("s").
		Thresholds(ThresholdsGreenOnly())
}

// DailyUsage returns a timeseries panel showing marketplace requests made
// today against the daily budget.
func DailyUsage() *timeseries.PanelBuilder {
	return Timeseries("Daily Usage vs Limit",
		fmt.Sprintf("Marketplace requests today (default limit: %d)", DailyLimit), 8).
		WithTarget(PromQuery(fmt.Sprintf(`sfp_upstream_daily_usage{job=%q}`, Job), "usage", "A")).
		Thresholds(ThresholdsGreenYellowRed(float64(DailyLimit)*0.8, float64(DailyLimit))).
		ColorScheme(ColorSchemeThresholds())
}

// TokenRefreshes returns a timeseries panel of OAuth grants by result.
func TokenRefreshes() *timeseries.PanelBuilder {
	return Timeseries("Token Grants", "OAuth grants by grant type and result", 8).
		WithTarget(PromQuery(
			`sum(increase(sfp_token_refresh_total[1h])) by (grant, result)`,
			"{{grant}} {{result}}", "A",
		)).
		Thresholds(ThresholdsGreenOnly())
}

// LimitHits returns a stat panel showing the number of daily limit hits
// in the past 24 hours.
func LimitHits() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Limit Hits (24h)").
		Description("Requests rejected because the daily budget was spent").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(
			fmt.Sprintf(`increase(sfp_upstream_daily_limit_hits_total{job=%q}[24h])`, Job),
			"", "A",
		)).
		Thresholds(ThresholdsGreenYellowRed(1, 100)).
		ColorScheme(ColorSchemeThresholds()).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeArea)
}
