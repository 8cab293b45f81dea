package rules

// RecordingRules returns the pre-computed rates used by the dashboard and
// the alert rules.
func RecordingRules() PrometheusRule {
	return newRule("sfp-recording-rules",
		RuleGroup{
			Name: "sfp-recording",
			Rules: []Rule{
				{
					Record: "sfp:http_requests:rate5m",
					Expr:   `sum(rate(sfp_http_requests_total[5m])) by (path)`,
				},
				{
					Record: "sfp:http_errors:rate5m",
					Expr:   `sum(rate(sfp_http_requests_total{status=~"5.."}[5m])) by (path)`,
				},
				{
					Record: "sfp:upstream_requests:rate5m",
					Expr:   `sum(rate(sfp_upstream_requests_total[5m])) by (outcome)`,
				},
				{
					Record: "sfp:upstream_blocked:rate5m",
					Expr:   `sum(rate(sfp_upstream_requests_total{outcome="auth_failure",auth="anonymous"}[5m]))`,
				},
				{
					Record: "sfp:cache_hit_ratio:rate5m",
					Expr: `sum(rate(sfp_cache_lookups_total{result="hit"}[5m]))` +
						` / sum(rate(sfp_cache_lookups_total[5m]))`,
				},
			},
		},
	)
}
