package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/donaldgifford/storefront-proxy/internal/metrics"
	"github.com/donaldgifford/storefront-proxy/pkg/logger"
	domain "github.com/donaldgifford/storefront-proxy/pkg/types"
)

// RedisConfig configures the Redis store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// Redis is a Store shared across proxy replicas. Results are stored as
// JSON and expire server-side.
type Redis struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	log    *slog.Logger
}

// NewRedis connects to Redis. The connection is lazy; use Ping to check it.
func NewRedis(cfg RedisConfig, log *slog.Logger) *Redis {
	return &Redis{
		rdb: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		prefix: cfg.Prefix,
		ttl:    cfg.TTL,
		log:    logger.Component(log, "cache.redis"),
	}
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("pinging redis: %w", err)
	}
	return nil
}

// Get implements Store.
func (r *Redis) Get(ctx context.Context, key Key) (*domain.SearchResult, bool) {
	b, err := r.rdb.Get(ctx, r.prefix+key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return nil, false
	}
	if err != nil {
		r.log.Warn("cache get failed", "key", key.String(), "error", err)
		metrics.CacheLookupsTotal.WithLabelValues("error").Inc()
		return nil, false
	}

	var res domain.SearchResult
	if err := json.Unmarshal(b, &res); err != nil {
		r.log.Warn("discarding undecodable cache entry", "key", key.String(), "error", err)
		metrics.CacheLookupsTotal.WithLabelValues("error").Inc()
		return nil, false
	}

	metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
	return &res, true
}

// Put implements Store.
func (r *Redis) Put(ctx context.Context, key Key, result *domain.SearchResult) {
	b, err := json.Marshal(result)
	if err != nil {
		r.log.Warn("encoding cache entry", "key", key.String(), "error", err)
		return
	}
	if err := r.rdb.Set(ctx, r.prefix+key.String(), b, r.ttl).Err(); err != nil {
		r.log.Warn("cache put failed", "key", key.String(), "error", err)
	}
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.rdb.Close()
}
