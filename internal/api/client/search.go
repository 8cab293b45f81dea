package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/donaldgifford/storefront-proxy/internal/marketplace"
	domain "github.com/donaldgifford/storefront-proxy/pkg/types"
)

// SearchResponse is a successful search from the proxy.
type SearchResponse struct {
	Query  string        `json:"q"`
	Paging domain.Paging `json:"paging"`
	Items  []domain.Item `json:"items"`
}

type itemEnvelope struct {
	Item domain.Item `json:"item"`
}

// Search queries the proxy. Failures are returned as *HTTPError or wrap
// ErrUnreachable.
func (c *Client) Search(ctx context.Context, q marketplace.Query) (*domain.SearchResult, error) {
	var resp SearchResponse
	if err := c.get(ctx, "/search?"+q.Values().Encode(), &resp); err != nil {
		return nil, err
	}
	return &domain.SearchResult{Items: resp.Items, Paging: resp.Paging}, nil
}

// Item returns a single listing through the proxy.
func (c *Client) Item(ctx context.Context, id string) (*domain.Item, error) {
	var env itemEnvelope
	if err := c.get(ctx, "/items/"+url.PathEscape(id), &env); err != nil {
		return nil, fmt.Errorf("getting item %s: %w", id, err)
	}
	return &env.Item, nil
}
