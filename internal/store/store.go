// Package store persists analytics events recorded by the proxy. Handlers
// and jobs depend on the Store interface; PostgresStore backs it when a
// database is configured and NoopStore otherwise.
package store

import (
	"context"
	"time"

	domain "github.com/donaldgifford/storefront-proxy/pkg/types"
)

// Store defines analytics data access.
type Store interface {
	RecordSearch(ctx context.Context, e *domain.SearchEvent) error
	RecordClick(ctx context.Context, e *domain.ClickEvent) error
	ListSearchEvents(ctx context.Context, q *EventQuery) ([]domain.SearchEvent, int, error)
	// TopQueries returns the most searched terms since the given time,
	// most frequent first.
	TopQueries(ctx context.Context, since time.Time, limit int) ([]domain.QueryCount, error)

	AcquireSchedulerLock(ctx context.Context, jobName, holder string, ttl time.Duration) (bool, error)
	ReleaseSchedulerLock(ctx context.Context, jobName, holder string) error

	Ping(ctx context.Context) error
	Close()
}
