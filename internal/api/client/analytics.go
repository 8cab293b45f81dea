package client

import (
	"context"
	"net/url"
	"strconv"
	"time"

	domain "github.com/donaldgifford/storefront-proxy/pkg/types"
)

// QuotaResponse is the proxy's marketplace quota status.
type QuotaResponse struct {
	DailyLimit int64     `json:"daily_limit"`
	DailyUsed  int64     `json:"daily_used"`
	Remaining  int64     `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
}

// TopQueriesResponse ranks popular search terms.
type TopQueriesResponse struct {
	Queries []domain.QueryCount `json:"queries"`
	Since   time.Time           `json:"since"`
}

// Quota returns the proxy's marketplace quota status.
func (c *Client) Quota(ctx context.Context) (*QuotaResponse, error) {
	var resp QuotaResponse
	if err := c.get(ctx, "/quota", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TopQueries returns the most searched terms in the last hours. Zero
// values use the proxy defaults.
func (c *Client) TopQueries(ctx context.Context, hours, limit int) (*TopQueriesResponse, error) {
	q := url.Values{}
	if hours > 0 {
		q.Set("hours", strconv.Itoa(hours))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	path := "/analytics/top-queries"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp TopQueriesResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
