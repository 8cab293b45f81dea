package handlers_test

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/storefront-proxy/internal/api/handlers"
	"github.com/donaldgifford/storefront-proxy/internal/store"
	domain "github.com/donaldgifford/storefront-proxy/pkg/types"
)

func TestListSearchEvents(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		path       string
		match      func(*store.EventQuery) bool
		events     []domain.SearchEvent
		total      int
		err        error
		wantStatus int
		wantBody   []string
	}{
		{
			name: "no filters",
			path: "/analytics/searches",
			match: func(q *store.EventQuery) bool {
				return q.Term == nil && q.Cached == nil && q.Status == nil && q.Since == nil
			},
			wantStatus: http.StatusOK,
			wantBody:   []string{`"events":[]`, `"total":0`},
		},
		{
			name: "all filters",
			path: "/analytics/searches?term=tv&cached=false&status=403&since=2026-03-01T00:00:00Z&limit=10&offset=20",
			match: func(q *store.EventQuery) bool {
				return *q.Term == "tv" && !*q.Cached && *q.Status == 403 &&
					q.Since.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) &&
					q.Limit == 10 && q.Offset == 20
			},
			events:     []domain.SearchEvent{{ID: "e1", Term: "tv", Status: 403}},
			total:      31,
			wantStatus: http.StatusOK,
			wantBody:   []string{`"id":"e1"`, `"total":31`, `"offset":20`},
		},
		{
			name:       "store error",
			path:       "/analytics/searches",
			match:      func(*store.EventQuery) bool { return true },
			err:        errors.New("db down"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   []string{"db down"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			st := &mockStore{}
			st.On("ListSearchEvents", mock.Anything, mock.MatchedBy(tt.match)).
				Return(tt.events, tt.total, tt.err).Once()

			api := newTestAPI(t)
			handlers.RegisterAnalyticsRoutes(api, handlers.NewAnalyticsHandler(st))

			resp := api.Get(tt.path)
			require.Equal(t, tt.wantStatus, resp.Code)
			for _, want := range tt.wantBody {
				assert.Contains(t, resp.Body.String(), want)
			}
			st.AssertExpectations(t)
		})
	}
}

func TestTopQueries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		path       string
		wantLimit  int
		wantWindow time.Duration
	}{
		{name: "defaults", path: "/analytics/top-queries", wantLimit: 10, wantWindow: 24 * time.Hour},
		{name: "explicit", path: "/analytics/top-queries?hours=2&limit=3", wantLimit: 3, wantWindow: 2 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			before := time.Now()
			st := &mockStore{}
			st.On("TopQueries", mock.Anything, mock.MatchedBy(func(since time.Time) bool {
				return !since.Before(before.Add(-tt.wantWindow)) && since.Before(time.Now().Add(-tt.wantWindow+time.Minute))
			}), tt.wantLimit).Return([]domain.QueryCount{{Term: "iphone", Count: 7}}, nil).Once()

			api := newTestAPI(t)
			handlers.RegisterAnalyticsRoutes(api, handlers.NewAnalyticsHandler(st))

			resp := api.Get(tt.path)
			require.Equal(t, http.StatusOK, resp.Code)
			assert.Contains(t, resp.Body.String(), `"queries":[{"term":"iphone","count":7}]`)
			st.AssertExpectations(t)
		})
	}
}
