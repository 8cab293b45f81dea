package cmd

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/storefront-proxy/internal/config"
	"github.com/donaldgifford/storefront-proxy/pkg/logger"
)

func TestBuildApp_ServesCachedSearch(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"paging":{"total":1,"offset":0,"limit":24},"results":[{"id":"MLB1","title":"Phone","price":10}]}`)
	}))
	defer upstream.Close()

	cfg, err := config.Parse([]byte(fmt.Sprintf(`
marketplace:
  search_url: %s
cache:
  backend: memory
`, upstream.URL)))
	require.NoError(t, err)

	a, err := buildApp(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)
	defer func() { require.NoError(t, a.Close()) }()

	for _, want := range []string{"MISS", "HIT"} {
		req := httptest.NewRequest(http.MethodGet, "/search?q=phone", http.NoBody)
		rec := httptest.NewRecorder()
		a.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, want, rec.Header().Get("X-Cache"))
		assert.Contains(t, rec.Body.String(), `"id":"MLB1"`)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestBuildApp_CacheDisabled(t *testing.T) {
	t.Parallel()

	cfg, err := config.Parse([]byte("cache:\n  enabled: false\n"))
	require.NoError(t, err)

	a, err := buildApp(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)
	defer func() { require.NoError(t, a.Close()) }()

	rec := httptest.NewRecorder()
	a.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, a.scheduler.Entries())
}

func TestBuildApp_OAuthWithoutCredentials(t *testing.T) {
	t.Parallel()

	cfg, err := config.Parse([]byte("{}"))
	require.NoError(t, err)

	a, err := buildApp(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)
	defer func() { require.NoError(t, a.Close()) }()

	rec := httptest.NewRecorder()
	a.server.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/oauth/refresh", http.NoBody))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t,
		`{"error":"missing_env","missing":["client_id","client_secret","refresh_token"]}`,
		rec.Body.String(),
	)
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	cmd := versionCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "storefront-proxy dev\n", out.String())
}
