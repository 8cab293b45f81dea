//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/donaldgifford/storefront-proxy/internal/store"
	domain "github.com/donaldgifford/storefront-proxy/pkg/types"
)

func setupPostgres(t *testing.T) *store.PostgresStore {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("sfp_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	s, err := store.NewPostgresStore(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	applied, err := s.Migrate(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, applied)

	return s
}

func TestPostgresStore_MigrateIsIdempotent(t *testing.T) {
	s := setupPostgres(t)

	applied, err := s.Migrate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestPostgresStore_SearchEvents(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()

	for _, e := range []domain.SearchEvent{
		{Term: "iphone", Limit: 24, Results: 24, Status: 200},
		{Term: "iPhone", Limit: 24, Results: 24, Status: 200, Cached: true},
		{Term: "notebook", Limit: 24, Results: 10, Status: 200},
		{Term: "blocked", Limit: 24, Status: 403},
	} {
		require.NoError(t, s.RecordSearch(ctx, &e))
		assert.NotEmpty(t, e.ID)
	}

	top, err := s.TopQueries(ctx, time.Now().Add(-time.Hour), 10)
	require.NoError(t, err)
	assert.Equal(t, []domain.QueryCount{
		{Term: "iphone", Count: 2},
		{Term: "notebook", Count: 1},
	}, top)

	cached := true
	events, total, err := s.ListSearchEvents(ctx, &store.EventQuery{Cached: &cached})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, events, 1)
	assert.Equal(t, "iPhone", events[0].Term)

	events, total, err = s.ListSearchEvents(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, events, 4)
}

func TestPostgresStore_RecordClick(t *testing.T) {
	s := setupPostgres(t)

	e := &domain.ClickEvent{TargetURL: "https://produto.mercadolivre.com.br/MLB-1", ItemID: "MLB1"}
	require.NoError(t, s.RecordClick(context.Background(), e))
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.CreatedAt.IsZero())
}

func TestPostgresStore_SchedulerLock(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()

	ok, err := s.AcquireSchedulerLock(ctx, "cache_warmup", "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.AcquireSchedulerLock(ctx, "cache_warmup", "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.ReleaseSchedulerLock(ctx, "cache_warmup", "a"))

	ok, err = s.AcquireSchedulerLock(ctx, "cache_warmup", "b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
