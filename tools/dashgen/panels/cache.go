package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// CacheHitRatio returns a timeseries panel of the result cache hit ratio.
func CacheHitRatio() *timeseries.PanelBuilder {
	return Timeseries("Cache Hit Ratio", "Share of searches served from the result cache", 8).
		WithTarget(PromQuery(`sfp:cache_hit_ratio:rate5m`, "hit ratio", "A")).
		Unit("percentunit").
		Min(0).
		Max(1).
		Thresholds(ThresholdsRedGreen(0.3)).
		ColorScheme(ColorSchemeThresholds())
}

// CacheEntries returns a timeseries panel of in-memory cache size and
// eviction rate.
func CacheEntries() *timeseries.PanelBuilder {
	return Timeseries("Cache Entries", "In-memory cache entries and evictions per second", 8).
		WithTarget(PromQuery(`sfp_cache_entries`, "entries", "A")).
		WithTarget(PromQuery(`rate(sfp_cache_evictions_total[5m])`, "evictions/s", "B")).
		Thresholds(ThresholdsGreenOnly())
}

// Warmups returns a timeseries panel of scheduled cache warm-up queries.
func Warmups() *timeseries.PanelBuilder {
	return Timeseries("Cache Warm-up", "Warm-up queries per run by result", 8).
		WithTarget(PromQuery(`sum(increase(sfp_warmup_queries_total[1h])) by (result)`, "{{result}}", "A")).
		Thresholds(ThresholdsGreenOnly())
}

// EventWriteFailures returns a timeseries panel of dropped analytics
// events.
func EventWriteFailures() *timeseries.PanelBuilder {
	return Timeseries("Analytics Write Failures", "Search and click events that could not be stored", FullWidth).
		WithTarget(PromQuery(`rate(sfp_event_write_failures_total[5m])`, "failures/s", "A")).
		Thresholds(ThresholdsGreenYellowRed(0.01, 1)).
		ColorScheme(ColorSchemeThresholds())
}
