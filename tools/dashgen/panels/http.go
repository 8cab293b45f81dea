package panels

import (
	"fmt"

	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// RequestRate returns a timeseries panel showing the HTTP request rate by
// route.
func RequestRate() *timeseries.PanelBuilder {
	return Timeseries("Request Rate", "HTTP requests per second by route", TSWidth).
		WithTarget(PromQuery(`sfp:http_requests:rate5m`, "{{path}}", "A")).
		Unit("reqps").
		Legend(TableLegend("mean", "max")).
		Thresholds(ThresholdsGreenOnly())
}

// LatencyPercentiles returns a timeseries panel showing p50, p95, and p99
// HTTP request latencies.
func LatencyPercentiles() *timeseries.PanelBuilder {
	b := Timeseries("Latency Percentiles", "HTTP request duration percentiles", TSWidth)
	for i, q := range []string{"0.50", "0.95", "0.99"} {
		b = b.WithTarget(PromQuery(
			fmt.Sprintf(
				`histogram_quantile(%s, sum(rate(sfp_http_request_duration_seconds_bucket{job=%q}[5m])) by (le))`,
				q, Job,
			),
			"p"+q[2:],
			string(rune('A'+i)),
		))
	}
	return b.
		Unit("s").
		Legend(TableLegend("mean", "max")).
		Thresholds(ThresholdsGreenOnly())
}

// ErrorRate returns a timeseries panel showing the HTTP 5xx error rate
// as a percentage.
func ErrorRate() *timeseries.PanelBuilder {
	return Timeseries("Error Rate %", "HTTP 5xx error rate as percentage of total requests", TSWidth).
		WithTarget(PromQuery(
			`sum(sfp:http_errors:rate5m) / sum(sfp:http_requests:rate5m) * 100`,
			"error %", "A",
		)).
		Unit("percent").
		Thresholds(ThresholdsGreenYellowRed(1, 5)).
		ColorScheme(ColorSchemeThresholds())
}
