package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/donaldgifford/storefront-proxy/internal/marketplace"
)

func loadTestFixture(t *testing.T) *searchResponse {
	t.Helper()
	fixture, err := loadFixture(filepath.Join("testdata", "search_response.json"))
	if err != nil {
		t.Fatalf("loading fixture: %v", err)
	}
	return fixture
}

func newTestServer(t *testing.T, opts mockOptions) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(newMux(testLogger(), loadTestFixture(t), opts))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, rawURL, token string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return resp, body
}

func TestLoadFixture(t *testing.T) {
	fixture := loadTestFixture(t)
	if len(fixture.Results) == 0 {
		t.Fatal("expected items in fixture")
	}
	if fixture.Paging.Total != len(fixture.Results) {
		t.Errorf("total=%d, want %d", fixture.Paging.Total, len(fixture.Results))
	}
}

func TestSearch(t *testing.T) {
	srv := newTestServer(t, mockOptions{})

	tests := []struct {
		name      string
		query     string
		wantTotal int
		wantCount int
	}{
		{name: "all items", query: "", wantTotal: 6, wantCount: 6},
		{name: "case insensitive filter", query: "q=IPHONE", wantTotal: 2, wantCount: 2},
		{name: "limit", query: "limit=4", wantTotal: 6, wantCount: 4},
		{name: "offset past end", query: "offset=10", wantTotal: 6, wantCount: 0},
		{name: "offset and limit", query: "offset=4&limit=4", wantTotal: 6, wantCount: 2},
		{name: "no match", query: "q=nonexistent_xyz_product", wantTotal: 0, wantCount: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := get(t, srv.URL+"/sites/MLB/search?"+tt.query, "")
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status=%d, want 200", resp.StatusCode)
			}

			results, ok := body["results"].([]any)
			if !ok {
				t.Fatalf("results=%v, want array", body["results"])
			}
			if len(results) != tt.wantCount {
				t.Errorf("results=%d, want %d", len(results), tt.wantCount)
			}
			p := body["paging"].(map[string]any)
			if p["total"] != float64(tt.wantTotal) {
				t.Errorf("total=%v, want %d", p["total"], tt.wantTotal)
			}
		})
	}
}

func TestItem(t *testing.T) {
	srv := newTestServer(t, mockOptions{})

	resp, body := get(t, srv.URL+"/items/MLB3846022135", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d, want 200", resp.StatusCode)
	}
	if body["id"] != "MLB3846022135" {
		t.Errorf("id=%v", body["id"])
	}

	resp, body = get(t, srv.URL+"/items/MLB0", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status=%d, want 404", resp.StatusCode)
	}
	if body["error"] != "not_found" {
		t.Errorf("error=%v, want not_found", body["error"])
	}
}

func TestAccess(t *testing.T) {
	tests := []struct {
		name       string
		opts       mockOptions
		token      string
		wantStatus int
	}{
		{name: "anonymous allowed", wantStatus: http.StatusOK},
		{name: "anonymous blocked", opts: mockOptions{blockAnonymous: true}, wantStatus: http.StatusForbidden},
		{name: "unknown token", token: "expired", wantStatus: http.StatusUnauthorized},
		{name: "issued token", opts: mockOptions{blockAnonymous: true}, token: tokenPrefix + "1", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.opts)
			resp, _ := get(t, srv.URL+"/sites/MLB/search?q=iphone", tt.token)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status=%d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestTokenHandler(t *testing.T) {
	tests := []struct {
		name       string
		form       url.Values
		basicAuth  bool
		wantStatus int
		wantError  string
	}{
		{
			name:       "refresh grant with form credentials",
			form:       url.Values{"grant_type": {"refresh_token"}, "refresh_token": {"TG-1"}, "client_id": {"app"}},
			wantStatus: http.StatusOK,
		},
		{
			name:       "code grant with basic auth",
			form:       url.Values{"grant_type": {"authorization_code"}, "code": {"TG-code"}},
			basicAuth:  true,
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing client",
			form:       url.Values{"grant_type": {"refresh_token"}, "refresh_token": {"TG-1"}},
			wantStatus: http.StatusUnauthorized,
			wantError:  "invalid_client",
		},
		{
			name:       "missing refresh token",
			form:       url.Values{"grant_type": {"refresh_token"}, "client_id": {"app"}},
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid_grant",
		},
		{
			name:       "unsupported grant",
			form:       url.Values{"grant_type": {"password"}, "client_id": {"app"}},
			wantStatus: http.StatusBadRequest,
			wantError:  "unsupported_grant_type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/oauth/token", strings.NewReader(tt.form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if tt.basicAuth {
				req.SetBasicAuth("app", "secret")
			}
			w := httptest.NewRecorder()

			tokenHandler(testLogger())(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status=%d, want %d", w.Code, tt.wantStatus)
			}
			var resp map[string]any
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decoding response: %v", err)
			}
			if tt.wantError != "" {
				if resp["error"] != tt.wantError {
					t.Errorf("error=%v, want %s", resp["error"], tt.wantError)
				}
				return
			}
			token, _ := resp["access_token"].(string)
			if !strings.HasPrefix(token, tokenPrefix) {
				t.Errorf("access_token=%q, want prefix %s", token, tokenPrefix)
			}
			if resp["token_type"] != "Bearer" {
				t.Errorf("token_type=%v, want Bearer", resp["token_type"])
			}
		})
	}
}

// The proxy recovers from a stale token by refreshing it against the mock
// token endpoint and retrying.
func TestProxyRefreshesStaleToken(t *testing.T) {
	srv := newTestServer(t, mockOptions{blockAnonymous: true})

	creds := marketplace.NewCredentials(marketplace.CredentialsConfig{
		ClientID:     "app",
		ClientSecret: "secret",
		TokenURL:     srv.URL + "/oauth/token",
		AccessToken:  "stale",
		RefreshToken: "TG-seed",
	})
	proxy := marketplace.NewProxy(marketplace.NewClient(), creds,
		marketplace.WithSearchURL(srv.URL+"/sites/MLB/search"),
	)

	out, err := proxy.FetchSearch(context.Background(), marketplace.Query{Term: "iphone", Limit: 10})
	if err != nil {
		t.Fatalf("FetchSearch: %v", err)
	}
	if out.Kind != marketplace.OutcomeSuccess {
		t.Fatalf("kind=%v status=%d, want success", out.Kind, out.Status)
	}
	if out.Attempts != 2 {
		t.Errorf("attempts=%d, want 2", out.Attempts)
	}
	if !strings.HasPrefix(creds.Token(), tokenPrefix) {
		t.Errorf("token=%q, want a freshly issued token", creds.Token())
	}

	res := marketplace.NormalizeSearch(out.Body, marketplace.Query{Term: "iphone", Limit: 10})
	if len(res.Items) != 2 {
		t.Errorf("items=%d, want 2", len(res.Items))
	}
	if !strings.HasPrefix(res.Items[0].ThumbnailURL, "https://") {
		t.Errorf("thumbnail=%q, want https", res.Items[0].ThumbnailURL)
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}
