// Package main implements a mock Mercado Livre API for local development.
// It serves canned search and item responses from a JSON fixture and
// issues tokens from a fake OAuth endpoint, so the proxy can run without
// real marketplace credentials.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

const tokenPrefix = "APP_USR-mock-"

type searchResponse struct {
	SiteID  string            `json:"site_id"`
	Query   string            `json:"query,omitempty"`
	Paging  paging            `json:"paging"`
	Results []json.RawMessage `json:"results"`
}

type paging struct {
	Total          int `json:"total"`
	Offset         int `json:"offset"`
	Limit          int `json:"limit"`
	PrimaryResults int `json:"primary_results"`
}

type itemSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type indexedItem struct {
	raw   json.RawMessage
	id    string
	title string
}

// mockOptions control failure simulation.
type mockOptions struct {
	// blockAnonymous answers 403 to requests without a bearer token, as
	// the marketplace does for some networks.
	blockAnonymous bool
}

func main() {
	port := flag.Int("port", 8089, "port to listen on")
	fixtureFile := flag.String("fixture", "tools/mock-server/testdata/search_response.json", "path to search response fixture")
	blockAnonymous := flag.Bool("block-anonymous", false, "reject anonymous requests with 403")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	fixture, err := loadFixture(*fixtureFile)
	if err != nil {
		logger.Error("failed to load fixture", "path", *fixtureFile, "error", err)
		os.Exit(1)
	}
	logger.Info("loaded fixture", "items", len(fixture.Results))

	addr := fmt.Sprintf(":%d", *port)
	logger.Info("starting mock marketplace server", "addr", addr, "block_anonymous", *blockAnonymous)

	srv := &http.Server{
		Addr:         addr,
		Handler:      newMux(logger, fixture, mockOptions{blockAnonymous: *blockAnonymous}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func newMux(logger *slog.Logger, fixture *searchResponse, opts mockOptions) http.Handler {
	items := indexItems(fixture)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth/token", tokenHandler(logger))
	mux.Handle("GET /sites/MLB/search", requireAccess(opts, searchHandler(logger, items)))
	mux.Handle("GET /items/{id}", requireAccess(opts, itemHandler(logger, items)))
	return requestLogger(logger, mux)
}

func loadFixture(path string) (*searchResponse, error) {
	data, err := os.ReadFile(path) //nolint:gosec // fixture path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	var resp searchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}
	return &resp, nil
}

func indexItems(fixture *searchResponse) []indexedItem {
	items := make([]indexedItem, 0, len(fixture.Results))
	for _, raw := range fixture.Results {
		var s itemSummary
		//nolint:errcheck,gosec // fixture data is trusted; extraction is best-effort
		json.Unmarshal(raw, &s)
		items = append(items, indexedItem{raw: raw, id: s.ID, title: strings.ToLower(s.Title)})
	}
	return items
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("request", "method", r.Method, "path", r.URL.Path, "query", r.URL.RawQuery)
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
	json.NewEncoder(w).Encode(v)
}

func apiError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"message": message,
		"error":   code,
		"status":  status,
		"cause":   []any{},
	})
}

// requireAccess rejects unknown bearer tokens with 401 and, when
// configured, anonymous requests with 403.
func requireAccess(opts mockOptions, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		switch {
		case auth == "":
			if opts.blockAnonymous {
				apiError(w, http.StatusForbidden, "forbidden", "access denied")
				return
			}
		case !strings.HasPrefix(auth, "Bearer "+tokenPrefix):
			apiError(w, http.StatusUnauthorized, "unauthorized", "invalid access token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func tokenHandler(logger *slog.Logger) http.HandlerFunc {
	var issued atomic.Int64

	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			apiError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
			return
		}

		clientID := r.PostForm.Get("client_id")
		if id, _, ok := r.BasicAuth(); ok {
			clientID = id
		}
		if clientID == "" {
			logger.Warn("token request missing client credentials")
			apiError(w, http.StatusUnauthorized, "invalid_client", "client authentication failed")
			return
		}

		switch grant := r.PostForm.Get("grant_type"); grant {
		case "refresh_token":
			if r.PostForm.Get("refresh_token") == "" {
				apiError(w, http.StatusBadRequest, "invalid_grant", "refresh_token is required")
				return
			}
		case "authorization_code":
			if r.PostForm.Get("code") == "" {
				apiError(w, http.StatusBadRequest, "invalid_grant", "code is required")
				return
			}
		default:
			apiError(w, http.StatusBadRequest, "unsupported_grant_type", "unsupported grant_type "+strconv.Quote(grant))
			return
		}

		n := issued.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  tokenPrefix + strconv.FormatInt(n, 10),
			"refresh_token": "TG-mock-" + strconv.FormatInt(n, 10),
			"expires_in":    21600,
			"scope":         "offline_access read",
			"token_type":    "Bearer",
			"user_id":       123456789,
		})
		logger.Info("issued mock token", "grant_type", r.PostForm.Get("grant_type"), "n", n)
	}
}

func searchHandler(logger *slog.Logger, items []indexedItem) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
		limit := 50
		if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
			limit = v
		}
		offset := 0
		if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v >= 0 {
			offset = v
		}

		matched := []json.RawMessage{}
		for _, item := range items {
			if q == "" || strings.Contains(item.title, q) {
				matched = append(matched, item.raw)
			}
		}
		total := len(matched)

		if offset >= total {
			matched = []json.RawMessage{}
		} else {
			matched = matched[offset:min(offset+limit, total)]
		}

		writeJSON(w, http.StatusOK, searchResponse{
			SiteID: "MLB",
			Query:  r.URL.Query().Get("q"),
			Paging: paging{
				Total:          total,
				Offset:         offset,
				Limit:          limit,
				PrimaryResults: total,
			},
			Results: matched,
		})
		logger.Info("search", "query", q, "matched", total, "returned", len(matched), "offset", offset, "limit", limit)
	}
}

func itemHandler(logger *slog.Logger, items []indexedItem) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		for _, item := range items {
			if item.id == id {
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
				w.Write(item.raw)
				logger.Info("item", "id", id)
				return
			}
		}
		apiError(w, http.StatusNotFound, "not_found", fmt.Sprintf("Item with id %s not found", id))
	}
}
