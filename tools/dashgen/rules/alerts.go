package rules

// AlertRules returns the operational alerts for storefront-proxy.
func AlertRules() PrometheusRule {
	return newRule("sfp-alerts",
		RuleGroup{
			Name: "sfp-alerts",
			Rules: []Rule{
				{
					Alert:  "SfpDown",
					Expr:   `absent(up{job="storefront-proxy"})`,
					For:    "2m",
					Labels: severity("critical"),
					Annotations: map[string]string{
						"summary":     "Storefront Proxy is down",
						"description": "The storefront-proxy job has been absent for more than 2 minutes.",
					},
				},
				{
					Alert:  "SfpReadinessDown",
					Expr:   `sfp_readyz_up == 0`,
					For:    "2m",
					Labels: severity("critical"),
					Annotations: map[string]string{
						"summary":     "Storefront Proxy readiness check is failing",
						"description": "The analytics store or the Redis cache has been unreachable for more than 2 minutes.",
					},
				},
				{
					Alert:  "SfpHighErrorRate",
					Expr:   `sum(sfp:http_errors:rate5m) / sum(sfp:http_requests:rate5m) > 0.05`,
					For:    "5m",
					Labels: severity("warning"),
					Annotations: map[string]string{
						"summary":     "High HTTP error rate on Storefront Proxy",
						"description": "More than 5% of HTTP requests are returning 5xx errors over the last 5 minutes.",
					},
				},
				{
					Alert:  "SfpMarketplaceBlocked",
					Expr:   `sfp:upstream_blocked:rate5m > 0.1`,
					For:    "10m",
					Labels: severity("warning"),
					Annotations: map[string]string{
						"summary":     "Marketplace is rejecting anonymous requests",
						"description": "Anonymous retries keep failing authorization. Check the OAuth credentials and refresh token.",
					},
				},
				{
					Alert:  "SfpTokenRefreshFailing",
					Expr:   `increase(sfp_token_refresh_total{grant="refresh_token",result="error"}[30m]) > 2`,
					For:    "0m",
					Labels: severity("warning"),
					Annotations: map[string]string{
						"summary":     "Marketplace token refresh is failing",
						"description": "The refresh_token grant failed repeatedly in the last 30 minutes. Re-run the OAuth authorization flow.",
					},
				},
				{
					Alert:  "SfpQuotaHigh",
					Expr:   `sfp_upstream_daily_usage > 80000`,
					For:    "5m",
					Labels: severity("warning"),
					Annotations: map[string]string{
						"summary":     "Marketplace daily usage is above 80% of the quota",
						"description": "Daily marketplace usage has exceeded 80000 requests (default limit is 100000).",
					},
				},
				{
					Alert:  "SfpDailyLimitReached",
					Expr:   `increase(sfp_upstream_daily_limit_hits_total[5m]) > 0`,
					For:    "0m",
					Labels: severity("critical"),
					Annotations: map[string]string{
						"summary":     "Marketplace daily limit has been reached",
						"description": "Searches are answered with 429 until calls age out of the rolling 24-hour window.",
					},
				},
				{
					Alert:  "SfpEventWriteFailures",
					Expr:   `increase(sfp_event_write_failures_total[5m]) > 0`,
					For:    "5m",
					Labels: severity("warning"),
					Annotations: map[string]string{
						"summary":     "Analytics events are being dropped",
						"description": "Search or click events could not be written to the analytics database.",
					},
				},
				{
					Alert:  "SfpHandlerPanics",
					Expr:   `sum(increase(sfp_http_panics_total[10m])) by (path) > 0`,
					For:    "0m",
					Labels: severity("warning"),
					Annotations: map[string]string{
						"summary":     "HTTP handlers are panicking",
						"description": "A route recovered from a panic in the last 10 minutes. See the stack in the server logs.",
					},
				},
				{
					Alert:  "SfpNotificationFailures",
					Expr:   `increase(sfp_notification_failures_total[15m]) > 0`,
					For:    "1m",
					Labels: severity("warning"),
					Annotations: map[string]string{
						"summary":     "Operator notification delivery failures detected",
						"description": "One or more Discord webhook notifications have failed to send.",
					},
				},
			},
		},
	)
}
