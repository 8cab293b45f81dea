package handlers_test

import (
	"context"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/mock"

	"github.com/donaldgifford/storefront-proxy/internal/api"
	"github.com/donaldgifford/storefront-proxy/internal/marketplace"
	"github.com/donaldgifford/storefront-proxy/internal/search"
	"github.com/donaldgifford/storefront-proxy/internal/store"
	domain "github.com/donaldgifford/storefront-proxy/pkg/types"
)

// newTestAPI returns a test API configured like the server.
func newTestAPI(t *testing.T) humatest.TestAPI {
	t.Helper()
	_, testAPI := humatest.New(t, api.HumaConfig("test"))
	return testAPI
}

type mockSearcher struct {
	mock.Mock
	cacheEnabled bool
}

func (m *mockSearcher) Search(ctx context.Context, q marketplace.Query) (*search.Result, error) {
	args := m.Called(ctx, q)
	res, _ := args.Get(0).(*search.Result)
	return res, args.Error(1)
}

func (m *mockSearcher) Item(ctx context.Context, id string) (*domain.Item, error) {
	args := m.Called(ctx, id)
	item, _ := args.Get(0).(*domain.Item)
	return item, args.Error(1)
}

func (m *mockSearcher) CacheEnabled() bool {
	return m.cacheEnabled
}

type mockOAuth struct {
	mock.Mock
}

func (m *mockOAuth) RefreshGrant(ctx context.Context) (*marketplace.Grant, error) {
	args := m.Called(ctx)
	g, _ := args.Get(0).(*marketplace.Grant)
	return g, args.Error(1)
}

func (m *mockOAuth) Exchange(ctx context.Context, code string) (*marketplace.Grant, error) {
	args := m.Called(ctx, code)
	g, _ := args.Get(0).(*marketplace.Grant)
	return g, args.Error(1)
}

func (m *mockOAuth) AuthCodeURL(state string) (string, error) {
	args := m.Called(state)
	return args.String(0), args.Error(1)
}

// mockStore records calls to the methods a test sets expectations on and
// discards everything else.
type mockStore struct {
	store.NoopStore
	mock.Mock
}

func (m *mockStore) RecordSearch(ctx context.Context, e *domain.SearchEvent) error {
	return m.Called(ctx, e).Error(0)
}

func (m *mockStore) RecordClick(ctx context.Context, e *domain.ClickEvent) error {
	return m.Called(ctx, e).Error(0)
}

func (m *mockStore) ListSearchEvents(ctx context.Context, q *store.EventQuery) ([]domain.SearchEvent, int, error) {
	args := m.Called(ctx, q)
	events, _ := args.Get(0).([]domain.SearchEvent)
	return events, args.Int(1), args.Error(2)
}

func (m *mockStore) TopQueries(ctx context.Context, since time.Time, limit int) ([]domain.QueryCount, error) {
	args := m.Called(ctx, since, limit)
	top, _ := args.Get(0).([]domain.QueryCount)
	return top, args.Error(1)
}

func (m *mockStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
