package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/donaldgifford/storefront-proxy/internal/metrics"
	domain "github.com/donaldgifford/storefront-proxy/pkg/types"
)

type memoryEntry struct {
	key       Key
	result    *domain.SearchResult
	expiresAt time.Time
}

// Memory is an in-process Store with a TTL per entry and an LRU bound on
// the number of entries. Expired entries are dropped lazily on read.
type Memory struct {
	mu         sync.Mutex
	lru        *list.List
	items      map[Key]*list.Element
	ttl        time.Duration
	maxEntries int
	nowFunc    func() time.Time
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithNowFunc overrides the clock.
func WithNowFunc(f func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.nowFunc = f
	}
}

// NewMemory creates a Memory store. maxEntries <= 0 means unbounded.
func NewMemory(ttl time.Duration, maxEntries int, opts ...MemoryOption) *Memory {
	m := &Memory{
		lru:        list.New(),
		items:      make(map[Key]*list.Element),
		ttl:        ttl,
		maxEntries: maxEntries,
		nowFunc:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the entry for key if it has not expired. The result is
// shared and must not be modified.
func (m *Memory) Get(_ context.Context, key Key) (*domain.SearchResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.items[key]
	if !ok {
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return nil, false
	}

	entry := el.Value.(*memoryEntry)
	if m.nowFunc().After(entry.expiresAt) {
		m.removeLocked(el)
		metrics.CacheLookupsTotal.WithLabelValues("expired").Inc()
		return nil, false
	}

	m.lru.MoveToFront(el)
	metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
	return entry.result, true
}

// Put stores result under key, replacing any existing entry, and evicts
// the least recently used entries beyond capacity.
func (m *Memory) Put(_ context.Context, key Key, result *domain.SearchResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	expiresAt := m.nowFunc().Add(m.ttl)
	if el, ok := m.items[key]; ok {
		entry := el.Value.(*memoryEntry)
		entry.result = result
		entry.expiresAt = expiresAt
		m.lru.MoveToFront(el)
		return
	}

	m.items[key] = m.lru.PushFront(&memoryEntry{key: key, result: result, expiresAt: expiresAt})

	for m.maxEntries > 0 && m.lru.Len() > m.maxEntries {
		m.removeLocked(m.lru.Back())
		metrics.CacheEvictionsTotal.Inc()
	}
	metrics.CacheEntries.Set(float64(m.lru.Len()))
}

// Len returns the number of held entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lru.Len()
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}

func (m *Memory) removeLocked(el *list.Element) {
	entry := m.lru.Remove(el).(*memoryEntry)
	delete(m.items, entry.key)
	metrics.CacheEntries.Set(float64(m.lru.Len()))
}
