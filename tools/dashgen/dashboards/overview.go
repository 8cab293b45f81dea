// Package dashboards assembles Grafana dashboard definitions from panel builders.
package dashboards

import (
	"github.com/grafana/grafana-foundation-sdk/go/dashboard"

	"github.com/donaldgifford/storefront-proxy/tools/dashgen/panels"
)

// BuildOverview constructs the Storefront Proxy overview dashboard.
func BuildOverview() *dashboard.DashboardBuilder {
	b := dashboard.NewDashboardBuilder("Storefront Proxy Overview").
		Uid("sfp-overview").
		Tags([]string{"sfp", "storefront-proxy"}).
		Refresh("30s").
		Time("now-6h", "now").
		Timezone("browser").
		Editable().
		Tooltip(dashboard.DashboardCursorSyncCrosshair).
		WithVariable(datasourceVar())

	b.WithRow(dashboard.NewRowBuilder("Overview").
		WithPanel(panels.HealthzStat()).
		WithPanel(panels.ReadyzStat()).
		WithPanel(panels.QuotaGauge()).
		WithPanel(panels.UptimeStat()))

	b.WithRow(dashboard.NewRowBuilder("HTTP").
		WithPanel(panels.RequestRate()).
		WithPanel(panels.LatencyPercentiles()).
		WithPanel(panels.ErrorRate()))

	b.WithRow(dashboard.NewRowBuilder("Marketplace").
		WithPanel(panels.UpstreamOutcomes()).
		WithPanel(panels.UpstreamRetries()).
		WithPanel(panels.UpstreamLatency()).
		WithPanel(panels.DailyUsage()).
		WithPanel(panels.TokenRefreshes()).
		WithPanel(panels.LimitHits()))

	b.WithRow(dashboard.NewRowBuilder("Cache").
		WithPanel(panels.CacheHitRatio()).
		WithPanel(panels.CacheEntries()).
		WithPanel(panels.Warmups()))

	b.WithRow(dashboard.NewRowBuilder("Analytics").
		WithPanel(panels.EventWriteFailures()))

	return b
}

func datasourceVar() *dashboard.DatasourceVariableBuilder {
	return dashboard.NewDatasourceVariableBuilder("datasource").
		Label("Datasource").
		Type("prometheus")
}
