package store

import (
	"context"
	"time"

	domain "github.com/donaldgifford/storefront-proxy/pkg/types"
)

// NoopStore discards events. It is used when no database is configured.
type NoopStore struct{}

// NewNoopStore returns a Store that records nothing.
func NewNoopStore() *NoopStore {
	return &NoopStore{}
}

// RecordSearch discards e.
func (*NoopStore) RecordSearch(context.Context, *domain.SearchEvent) error { return nil }

// RecordClick discards e.
func (*NoopStore) RecordClick(context.Context, *domain.ClickEvent) error { return nil }

// ListSearchEvents returns no events.
func (*NoopStore) ListSearchEvents(context.Context, *EventQuery) ([]domain.SearchEvent, int, error) {
	return []domain.SearchEvent{}, 0, nil
}

// TopQueries returns no queries.
func (*NoopStore) TopQueries(context.Context, time.Time, int) ([]domain.QueryCount, error) {
	return nil, nil
}

// AcquireSchedulerLock always succeeds; a single process needs no lock.
func (*NoopStore) AcquireSchedulerLock(context.Context, string, string, time.Duration) (bool, error) {
	return true, nil
}

// ReleaseSchedulerLock does nothing.
func (*NoopStore) ReleaseSchedulerLock(context.Context, string, string) error { return nil }

// Ping always succeeds.
func (*NoopStore) Ping(context.Context) error { return nil }

// Close does nothing.
func (*NoopStore) Close() {}
