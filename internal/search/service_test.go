package search_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/storefront-proxy/internal/cache"
	"github.com/donaldgifford/storefront-proxy/internal/marketplace"
	"github.com/donaldgifford/storefront-proxy/internal/search"
)

type fakeFetcher struct {
	calls   atomic.Int32
	outcome *marketplace.Outcome
	err     error
	// gate, when set, blocks FetchSearch until closed.
	gate chan struct{}
}

func (f *fakeFetcher) FetchSearch(ctx context.Context, _ marketplace.Query) (*marketplace.Outcome, error) {
	f.calls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.outcome, f.err
}

func (f *fakeFetcher) FetchItem(context.Context, string) (*marketplace.Outcome, error) {
	f.calls.Add(1)
	return f.outcome, f.err
}

func success(body string) *marketplace.Outcome {
	return &marketplace.Outcome{Kind: marketplace.OutcomeSuccess, Status: http.StatusOK, Body: []byte(body), Attempts: 1}
}

var tv = marketplace.Query{Term: "tv", Offset: 0, Limit: 24}

func TestService_Search(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		outcome    *marketplace.Outcome
		err        error
		withCache  bool
		wantIDs    []string
		wantStatus int
		wantErr    error
	}{
		{
			name:      "success without cache",
			outcome:   success(`{"results":[{"id":"MLB1"}]}`),
			withCache: false,
			wantIDs:   []string{"MLB1"},
		},
		{
			name:      "success with cache",
			outcome:   success(`{"results":[{"id":"MLB1"},{"id":"MLB2"}]}`),
			withCache: true,
			wantIDs:   []string{"MLB1", "MLB2"},
		},
		{
			name: "upstream failure surfaces status",
			outcome: &marketplace.Outcome{
				Kind:   marketplace.OutcomeAuthFailure,
				Status: http.StatusForbidden,
				Data:   map[string]any{"message": "forbidden"},
			},
			withCache:  true,
			wantStatus: http.StatusForbidden,
		},
		{
			name:      "transport failure",
			err:       marketplace.ErrUnavailable,
			withCache: true,
			wantErr:   marketplace.ErrUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := &fakeFetcher{outcome: tt.outcome, err: tt.err}
			opts := []search.Option{}
			if tt.withCache {
				opts = append(opts, search.WithCache(cache.NewMemory(time.Minute, 10)))
			}
			svc := search.NewService(f, opts...)
			assert.Equal(t, tt.withCache, svc.CacheEnabled())

			res, err := svc.Search(context.Background(), tv)

			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
				return
			case tt.wantStatus != 0:
				status, ok := marketplace.StatusOf(err)
				require.True(t, ok)
				assert.Equal(t, tt.wantStatus, status)
				return
			}

			require.NoError(t, err)
			assert.False(t, res.Cached)
			ids := make([]string, 0, len(res.Items))
			for _, it := range res.Items {
				ids = append(ids, it.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestService_SecondSearchIsCached(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{outcome: success(`{"results":[{"id":"MLB1"}],"paging":{"total":1}}`)}
	svc := search.NewService(f, search.WithCache(cache.NewMemory(time.Minute, 10)))

	first, err := svc.Search(context.Background(), tv)
	require.NoError(t, err)
	second, err := svc.Search(context.Background(), tv)
	require.NoError(t, err)

	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.SearchResult, second.SearchResult)
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestService_FailuresAreNotCached(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{outcome: &marketplace.Outcome{Kind: marketplace.OutcomeOtherFailure, Status: http.StatusBadGateway}}
	svc := search.NewService(f, search.WithCache(cache.NewMemory(time.Minute, 10)))

	for range 2 {
		_, err := svc.Search(context.Background(), tv)
		require.Error(t, err)
	}
	assert.Equal(t, int32(2), f.calls.Load())
}

func TestService_ConcurrentMissesShareFetch(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{
		outcome: success(`{"results":[{"id":"MLB1"}]}`),
		gate:    make(chan struct{}),
	}
	svc := search.NewService(f)

	const n = 5
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Search(context.Background(), tv)
			errs <- err
		}()
	}

	// Let the goroutines pile up behind the first fetch.
	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(f.gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.LessOrEqual(t, f.calls.Load(), int32(n))
	assert.GreaterOrEqual(t, f.calls.Load(), int32(1))
}

func TestService_CanceledCallerLeavesSharedSearchRunning(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{
		outcome: success(`{"results":[{"id":"MLB1"}]}`),
		gate:    make(chan struct{}),
	}
	svc := search.NewService(f, search.WithCache(cache.NewMemory(time.Minute, 10)))

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()
	errA := make(chan error, 1)
	go func() {
		_, err := svc.Search(ctxA, tv)
		errA <- err
	}()
	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	type reply struct {
		res *search.Result
		err error
	}
	replyB := make(chan reply, 1)
	go func() {
		res, err := svc.Search(context.Background(), tv)
		replyB <- reply{res: res, err: err}
	}()
	// Let the second caller join the in-flight fetch.
	time.Sleep(50 * time.Millisecond)

	cancelA()
	require.ErrorIs(t, <-errA, context.Canceled)

	close(f.gate)
	b := <-replyB
	require.NoError(t, b.err)
	require.Len(t, b.res.Items, 1)
	assert.Equal(t, "MLB1", b.res.Items[0].ID)
	assert.Equal(t, int32(1), f.calls.Load())

	third, err := svc.Search(context.Background(), tv)
	require.NoError(t, err)
	assert.True(t, third.Cached)
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestService_ExpiredEntryRefetchesOnce(t *testing.T) {
	t.Parallel()

	var now atomic.Int64
	now.Store(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).UnixNano())
	clock := func() time.Time { return time.Unix(0, now.Load()) }

	f := &fakeFetcher{outcome: success(`{"results":[{"id":"MLB1"}]}`)}
	svc := search.NewService(f, search.WithCache(cache.NewMemory(time.Minute, 10, cache.WithNowFunc(clock))))

	first, err := svc.Search(context.Background(), tv)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	now.Add(int64(61 * time.Second))

	second, err := svc.Search(context.Background(), tv)
	require.NoError(t, err)
	assert.False(t, second.Cached)
	assert.Equal(t, int32(2), f.calls.Load())

	third, err := svc.Search(context.Background(), tv)
	require.NoError(t, err)
	assert.True(t, third.Cached)
	assert.Equal(t, int32(2), f.calls.Load())
}

func TestService_Item(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{outcome: success(`{"id":"MLB9","title":"Mouse","price":99.5,"pictures":[{"url":"http://img/1.jpg"}]}`)}
	svc := search.NewService(f)

	item, err := svc.Item(context.Background(), "MLB9")
	require.NoError(t, err)
	assert.Equal(t, "MLB9", item.ID)
	assert.Equal(t, []string{"https://img/1.jpg"}, item.Pictures)

	f.outcome = nil
	f.err = errors.New("boom")
	_, err = svc.Item(context.Background(), "MLB9")
	require.Error(t, err)
}
