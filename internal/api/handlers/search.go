// Package handlers implements HTTP handlers for the storefront proxy API.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/storefront-proxy/internal/marketplace"
	"github.com/donaldgifford/storefront-proxy/internal/metrics"
	"github.com/donaldgifford/storefront-proxy/internal/search"
	"github.com/donaldgifford/storefront-proxy/internal/store"
	"github.com/donaldgifford/storefront-proxy/pkg/logger"
	domain "github.com/donaldgifford/storefront-proxy/pkg/types"
)

// Cache states reported in the X-Cache header.
const (
	CacheHit  = "HIT"
	CacheMiss = "MISS"
)

// Searcher serves normalized searches and item lookups. *search.Service
// implements it.
type Searcher interface {
	Search(ctx context.Context, q marketplace.Query) (*search.Result, error)
	Item(ctx context.Context, id string) (*domain.Item, error)
	CacheEnabled() bool
}

// SearchHandler handles the search and item detail endpoints.
type SearchHandler struct {
	searcher Searcher
	store    store.Store
	defaults marketplace.QueryDefaults
	log      *slog.Logger
}

// NewSearchHandler creates a new SearchHandler. Served searches are
// recorded to st.
func NewSearchHandler(
	s Searcher,
	st store.Store,
	defaults marketplace.QueryDefaults,
	log *slog.Logger,
) *SearchHandler {
	return &SearchHandler{
		searcher: s,
		store:    st,
		defaults: defaults,
		log:      logger.Component(log, "handlers.search"),
	}
}

// --- Input/Output types ---

// SearchInput holds the raw search parameters. Offset and limit are kept
// as strings so malformed values fall back to defaults instead of failing
// validation.
type SearchInput struct {
	Q      string `query:"q"      doc:"Search term"                                   example:"iphone"`
	Offset string `query:"offset" doc:"Result offset, invalid values read as 0"       example:"0"`
	Limit  string `query:"limit"  doc:"Page size, capped at the configured maximum"   example:"24"`
}

// SearchBody is the search response envelope.
type SearchBody struct {
	OK     bool          `json:"ok"`
	Q      string        `json:"q,omitempty"      example:"iphone"`
	Paging domain.Paging `json:"paging"`
	Items  []domain.Item `json:"items"`
	Status int           `json:"status,omitempty" doc:"Marketplace status on upstream failure"`
	Data   any           `json:"data,omitempty"   doc:"Marketplace body on upstream failure"`
	Error  string        `json:"error,omitempty"`
}

// MarshalJSON writes the success shape {ok,q,paging,items} or the failure
// shape {ok,status,data,error}, never a mix of the two.
func (b SearchBody) MarshalJSON() ([]byte, error) {
	if !b.OK {
		return json.Marshal(Failure{Status: b.Status, Data: b.Data, Error: b.Error})
	}

	items := b.Items
	if items == nil {
		items = []domain.Item{}
	}
	return json.Marshal(struct {
		OK     bool          `json:"ok"`
		Q      string        `json:"q"`
		Paging domain.Paging `json:"paging"`
		Items  []domain.Item `json:"items"`
	}{OK: true, Q: b.Q, Paging: b.Paging, Items: items})
}

// SearchOutput is the response for a search.
type SearchOutput struct {
	Status int
	XCache string `header:"X-Cache" doc:"HIT or MISS when the result cache is enabled"`
	Body   SearchBody
}

// ItemInput is the input for a single listing.
type ItemInput struct {
	ID string `path:"id" doc:"Marketplace item ID" example:"MLB3846022135"`
}

// ItemBody is the item response envelope.
type ItemBody struct {
	OK     bool         `json:"ok"`
	Item   *domain.Item `json:"item,omitempty"`
	Status int          `json:"status,omitempty"`
	Data   any          `json:"data,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// ItemOutput is the response for a single listing.
type ItemOutput struct {
	Status int
	Body   ItemBody
}

// --- Handlers ---

// Search normalizes the query, serves it through the cache and records the
// outcome. Failures are reported in the envelope, never as huma errors.
func (h *SearchHandler) Search(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	q, err := marketplace.NormalizeQuery(input.Q, input.Offset, input.Limit, h.defaults)
	if err != nil {
		status, f := failureFor(err)
		return &SearchOutput{Status: status, Body: SearchBody{Error: f.Error}}, nil
	}

	res, err := h.searcher.Search(ctx, q)
	if err != nil {
		status, f := failureFor(err)
		if !upstream(err) {
			h.log.Error("search failed", "term", q.Term, "status", status, "error", err)
		}
		h.record(ctx, &domain.SearchEvent{Term: q.Term, Offset: q.Offset, Limit: q.Limit, Status: status})
		return &SearchOutput{
			Status: status,
			Body:   SearchBody{Status: f.Status, Data: f.Data, Error: f.Error},
		}, nil
	}

	out := &SearchOutput{
		Status: http.StatusOK,
		Body: SearchBody{
			OK:     true,
			Q:      q.Term,
			Paging: res.Paging,
			Items:  res.Items,
		},
	}
	if h.searcher.CacheEnabled() {
		out.XCache = CacheMiss
		if res.Cached {
			out.XCache = CacheHit
		}
	}

	h.record(ctx, &domain.SearchEvent{
		Term:    q.Term,
		Offset:  q.Offset,
		Limit:   q.Limit,
		Results: len(res.Items),
		Cached:  res.Cached,
		Status:  http.StatusOK,
	})

	return out, nil
}

// GetItem returns a single normalized listing.
func (h *SearchHandler) GetItem(ctx context.Context, input *ItemInput) (*ItemOutput, error) {
	item, err := h.searcher.Item(ctx, input.ID)
	if err != nil {
		status, f := failureFor(err)
		if !upstream(err) && status >= http.StatusInternalServerError {
			h.log.Error("item lookup failed", "id", input.ID, "status", status, "error", err)
		}
		return &ItemOutput{
			Status: status,
			Body:   ItemBody{Status: f.Status, Data: f.Data, Error: f.Error},
		}, nil
	}

	return &ItemOutput{
		Status: http.StatusOK,
		Body:   ItemBody{OK: true, Item: item},
	}, nil
}

// record persists a search event. Analytics failures never fail the
// request.
func (h *SearchHandler) record(ctx context.Context, e *domain.SearchEvent) {
	if h.store == nil {
		return
	}
	if err := h.store.RecordSearch(context.WithoutCancel(ctx), e); err != nil {
		metrics.EventWriteFailuresTotal.Inc()
		h.log.Warn("recording search event", "term", e.Term, "error", err)
	}
}

// RegisterSearchRoutes registers the search and item endpoints with the
// Huma API.
func RegisterSearchRoutes(api huma.API, h *SearchHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "search",
		Method:      http.MethodGet,
		Path:        "/search",
		Summary:     "Search marketplace listings",
		Description: "Returns normalized listings for a query. Marketplace failures are mirrored with their status and body.",
		Tags:        []string{"search"},
	}, h.Search)

	huma.Register(api, huma.Operation{
		OperationID: "get-item",
		Method:      http.MethodGet,
		Path:        "/items/{id}",
		Summary:     "Get a marketplace listing",
		Description: "Returns a single normalized listing with its pictures.",
		Tags:        []string{"search"},
	}, h.GetItem)
}
