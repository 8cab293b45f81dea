package marketplace

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/donaldgifford/storefront-proxy/internal/metrics"
)

// ErrDailyLimitReached is returned when the rolling daily call budget is spent.
var ErrDailyLimitReached = errors.New("daily marketplace limit reached")

const quotaWindow = 24 * time.Hour

// Quota paces marketplace calls with a token bucket and caps them with a
// rolling 24-hour budget. A zero daily budget disables the cap.
type Quota struct {
	limiter *rate.Limiter
	nowFunc func() time.Time

	mu       sync.Mutex
	used     int64
	maxDaily int64
	resetAt  time.Time
}

// QuotaOption configures a Quota.
type QuotaOption func(*Quota)

// WithQuotaNowFunc overrides the clock.
func WithQuotaNowFunc(f func() time.Time) QuotaOption {
	return func(q *Quota) {
		q.nowFunc = f
	}
}

// NewQuota creates a Quota allowing perSecond calls with the given burst
// and at most maxDaily calls per window. The window restarts 24 hours after
// the first call that opens it.
func NewQuota(perSecond float64, burst int, maxDaily int64, opts ...QuotaOption) *Quota {
	q := &Quota{
		limiter:  rate.NewLimiter(rate.Limit(perSecond), burst),
		maxDaily: maxDaily,
		nowFunc:  time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.resetAt = q.nowFunc().Add(quotaWindow)
	return q
}

// Wait reserves one call, blocking on the token bucket if needed.
func (q *Quota) Wait(ctx context.Context) error {
	if err := q.reserve(); err != nil {
		return err
	}
	if err := q.limiter.Wait(ctx); err != nil {
		q.release()
		return fmt.Errorf("rate limiter wait: %w", err)
	}
	return nil
}

func (q *Quota) reserve() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if now := q.nowFunc(); now.After(q.resetAt) {
		q.used = 0
		q.resetAt = now.Add(quotaWindow)
	}
	if q.maxDaily > 0 && q.used >= q.maxDaily {
		metrics.UpstreamDailyLimitHits.Inc()
		return fmt.Errorf("%w (%d/%d)", ErrDailyLimitReached, q.used, q.maxDaily)
	}
	q.used++
	metrics.UpstreamDailyUsage.Set(float64(q.used))
	return nil
}

func (q *Quota) release() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.used > 0 {
		q.used--
	}
	metrics.UpstreamDailyUsage.Set(float64(q.used))
}

// Used returns the calls spent in the current window.
func (q *Quota) Used() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.used
}

// Remaining returns the calls left in the current window, or -1 when uncapped.
func (q *Quota) Remaining() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.maxDaily <= 0 {
		return -1
	}
	return max(q.maxDaily-q.used, 0)
}

// ResetAt returns when the current window ends.
func (q *Quota) ResetAt() time.Time {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.resetAt
}

// MaxDaily returns the configured daily budget. Zero or less means uncapped.
func (q *Quota) MaxDaily() int64 {
	return q.maxDaily
}
