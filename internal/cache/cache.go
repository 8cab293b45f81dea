// Package cache stores normalized search results for a bounded time.
package cache

import (
	"context"
	"fmt"

	domain "github.com/donaldgifford/storefront-proxy/pkg/types"
)

// Key identifies a cached search: the normalized term with its window.
type Key struct {
	Term   string
	Offset int
	Limit  int
}

func (k Key) String() string {
	return fmt.Sprintf("%d:%d:%s", k.Offset, k.Limit, k.Term)
}

// Store is a TTL-bounded result cache. Get reports a miss for expired
// entries. Implementations are safe for concurrent use and never fail a
// request: backend errors read as misses and are logged.
type Store interface {
	Get(ctx context.Context, key Key) (*domain.SearchResult, bool)
	Put(ctx context.Context, key Key, result *domain.SearchResult)
	Close() error
}
