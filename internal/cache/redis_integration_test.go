//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/donaldgifford/storefront-proxy/internal/cache"
)

func setupRedis(t *testing.T, ttl time.Duration) *cache.Redis {
	t.Helper()
	ctx := context.Background()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, ctr.Terminate(ctx))
	})

	endpoint, err := ctr.Endpoint(ctx, "")
	require.NoError(t, err)

	r := cache.NewRedis(cache.RedisConfig{Addr: endpoint, Prefix: "sfp:test:", TTL: ttl}, nil)
	t.Cleanup(func() {
		_ = r.Close()
	})
	require.NoError(t, r.Ping(ctx))

	return r
}

func TestRedis_RoundTrip(t *testing.T) {
	r := setupRedis(t, time.Minute)
	ctx := context.Background()
	key := cache.Key{Term: "notebook", Offset: 24, Limit: 24}

	_, ok := r.Get(ctx, key)
	assert.False(t, ok)

	r.Put(ctx, key, result("MLB1", "MLB2"))

	got, ok := r.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, result("MLB1", "MLB2"), got)
}

func TestRedis_Expiry(t *testing.T) {
	r := setupRedis(t, time.Second)
	ctx := context.Background()
	key := cache.Key{Term: "tv", Limit: 24}

	r.Put(ctx, key, result("a"))
	assert.Eventually(t, func() bool {
		_, ok := r.Get(ctx, key)
		return !ok
	}, 5*time.Second, 100*time.Millisecond)
}
