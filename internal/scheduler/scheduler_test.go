package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/storefront-proxy/internal/marketplace"
	"github.com/donaldgifford/storefront-proxy/internal/notify"
	"github.com/donaldgifford/storefront-proxy/internal/search"
	"github.com/donaldgifford/storefront-proxy/internal/store"
	domain "github.com/donaldgifford/storefront-proxy/pkg/types"
)

type mockStore struct {
	store.NoopStore
	mock.Mock
}

func (m *mockStore) TopQueries(ctx context.Context, since time.Time, limit int) ([]domain.QueryCount, error) {
	args := m.Called(ctx, since, limit)
	qc, _ := args.Get(0).([]domain.QueryCount)
	return qc, args.Error(1)
}

func (m *mockStore) AcquireSchedulerLock(ctx context.Context, job, holder string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, job, holder, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) ReleaseSchedulerLock(ctx context.Context, job, holder string) error {
	return m.Called(ctx, job, holder).Error(0)
}

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) Search(ctx context.Context, q marketplace.Query) (*search.Result, error) {
	args := m.Called(ctx, q)
	res, _ := args.Get(0).(*search.Result)
	return res, args.Error(1)
}

type mockRefresher struct {
	mock.Mock
}

func (m *mockRefresher) RefreshGrant(ctx context.Context) (*marketplace.Grant, error) {
	args := m.Called(ctx)
	g, _ := args.Get(0).(*marketplace.Grant)
	return g, args.Error(1)
}

type recordingNotifier struct {
	events []*notify.Event
}

func (r *recordingNotifier) Notify(_ context.Context, e *notify.Event) error {
	r.events = append(r.events, e)
	return nil
}

var defaults = marketplace.QueryDefaults{Term: "iphone", Limit: 24, MaxLimit: 50}

func TestNew_RegistersEnabledJobs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
		want int
	}{
		{name: "none", cfg: Config{}, want: 0},
		{name: "token refresh only", cfg: Config{TokenRefreshInterval: time.Hour}, want: 1},
		{name: "both", cfg: Config{TokenRefreshInterval: time.Hour, WarmupInterval: 10 * time.Minute}, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, err := New(tt.cfg, &mockRefresher{}, &mockSearcher{}, &mockStore{}, nil)
			require.NoError(t, err)
			assert.Len(t, s.Entries(), tt.want)
		})
	}
}

func TestScheduler_StartStop(t *testing.T) {
	t.Parallel()

	s, err := New(Config{TokenRefreshInterval: time.Hour}, &mockRefresher{}, nil, nil, nil)
	require.NoError(t, err)

	s.Start()
	<-s.Stop().Done()
}

func TestRefreshToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{name: "success"},
		{name: "missing config is skipped", err: &marketplace.ConfigError{Missing: []string{"refresh_token"}}},
		{name: "upstream rejection", err: &marketplace.GrantError{Status: 400}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := &mockRefresher{}
			var grant *marketplace.Grant
			if tt.err == nil {
				grant = &marketplace.Grant{AccessToken: "APP-new"}
			}
			r.On("RefreshGrant", mock.Anything).Return(grant, tt.err).Once()

			s, err := New(Config{}, r, nil, nil, nil)
			require.NoError(t, err)

			err = s.RefreshToken(context.Background())
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			r.AssertExpectations(t)
		})
	}
}

func TestWarmCache(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	st := &mockStore{}
	st.On("AcquireSchedulerLock", mock.Anything, warmupJob, mock.Anything, 10*time.Minute).Return(true, nil).Once()
	st.On("ReleaseSchedulerLock", mock.Anything, warmupJob, mock.Anything).Return(nil).Once()
	st.On("TopQueries", mock.Anything, now.Add(-24*time.Hour), 3).Return([]domain.QueryCount{
		{Term: "iphone", Count: 40},
		{Term: " notebook ", Count: 12},
		{Term: "broken", Count: 2},
	}, nil).Once()

	se := &mockSearcher{}
	se.On("Search", mock.Anything, marketplace.Query{Term: "iphone", Limit: 24}).Return(&search.Result{}, nil).Once()
	se.On("Search", mock.Anything, marketplace.Query{Term: "notebook", Limit: 24}).Return(&search.Result{}, nil).Once()
	se.On("Search", mock.Anything, marketplace.Query{Term: "broken", Limit: 24}).
		Return(nil, &marketplace.UpstreamError{Status: 503}).Once()

	s, err := New(Config{
		WarmupInterval: 10 * time.Minute,
		WarmupQueries:  3,
		WarmupWindow:   24 * time.Hour,
		QueryDefaults:  defaults,
	}, nil, se, st, nil)
	require.NoError(t, err)
	s.nowFunc = func() time.Time { return now }

	warmed, err := s.WarmCache(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, warmed)

	st.AssertExpectations(t)
	se.AssertExpectations(t)
}

func TestWarmCache_LockHeldElsewhere(t *testing.T) {
	t.Parallel()

	st := &mockStore{}
	st.On("AcquireSchedulerLock", mock.Anything, warmupJob, mock.Anything, time.Minute).Return(false, nil).Once()

	se := &mockSearcher{}
	s, err := New(Config{WarmupInterval: time.Minute, WarmupQueries: 5}, nil, se, st, nil)
	require.NoError(t, err)

	warmed, err := s.WarmCache(context.Background())
	require.NoError(t, err)
	assert.Zero(t, warmed)
	se.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
	st.AssertExpectations(t)
}

func TestWarmCache_TopQueriesError(t *testing.T) {
	t.Parallel()

	st := &mockStore{}
	st.On("AcquireSchedulerLock", mock.Anything, warmupJob, mock.Anything, time.Minute).Return(true, nil).Once()
	st.On("ReleaseSchedulerLock", mock.Anything, warmupJob, mock.Anything).Return(nil).Once()
	st.On("TopQueries", mock.Anything, mock.Anything, 5).Return(nil, errors.New("db down")).Once()

	s, err := New(Config{WarmupInterval: time.Minute, WarmupQueries: 5}, nil, &mockSearcher{}, st, nil)
	require.NoError(t, err)

	_, err = s.WarmCache(context.Background())
	require.Error(t, err)
	st.AssertExpectations(t)
}

func TestRunTokenRefresh_NotifiesOnTransitions(t *testing.T) {
	t.Parallel()

	r := &mockRefresher{}
	rejected := &marketplace.GrantError{Status: 400}
	r.On("RefreshGrant", mock.Anything).Return(nil, rejected).Twice()
	r.On("RefreshGrant", mock.Anything).Return(&marketplace.Grant{AccessToken: "APP-new"}, nil).Twice()

	n := &recordingNotifier{}
	s, err := New(Config{TokenRefreshInterval: time.Hour}, r, nil, nil, nil, WithNotifier(n))
	require.NoError(t, err)

	for range 4 {
		s.runTokenRefresh()
	}

	require.Len(t, n.events, 2)
	assert.Equal(t, notify.SeverityCritical, n.events[0].Severity)
	assert.Equal(t, "400", n.events[0].Fields["status"])
	assert.Equal(t, "1h0m0s", n.events[0].Fields["interval"])
	assert.Equal(t, notify.SeverityResolved, n.events[1].Severity)
	r.AssertExpectations(t)
}

func TestRunTokenRefresh_SkippedConfigIsNotAFailure(t *testing.T) {
	t.Parallel()

	r := &mockRefresher{}
	r.On("RefreshGrant", mock.Anything).Return(nil, &marketplace.ConfigError{Missing: []string{"client_id"}})

	n := &recordingNotifier{}
	s, err := New(Config{}, r, nil, nil, nil, WithNotifier(n))
	require.NoError(t, err)

	s.runTokenRefresh()
	assert.Empty(t, n.events)
}
