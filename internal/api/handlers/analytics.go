package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/storefront-proxy/internal/store"
	domain "github.com/donaldgifford/storefront-proxy/pkg/types"
)

const (
	defaultTopQueriesHours = 24
	defaultTopQueriesLimit = 10
)

// AnalyticsHandler exposes the recorded search events.
type AnalyticsHandler struct {
	store store.Store
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(s store.Store) *AnalyticsHandler {
	return &AnalyticsHandler{store: s}
}

// --- Input/Output types ---

// ListSearchEventsInput filters recorded searches.
type ListSearchEventsInput struct {
	Term   string    `query:"term"   doc:"Case-insensitive exact term"`
	Cached string    `query:"cached" doc:"Filter by cache hit"              enum:"true,false,"`
	Status int       `query:"status" doc:"Filter by response status"                            minimum:"0" maximum:"599"`
	Since  time.Time `query:"since"  doc:"Only events at or after this time"`
	Limit  int       `query:"limit"  doc:"Number of results (default 50)"                       minimum:"0" maximum:"500"`
	Offset int       `query:"offset" doc:"Pagination offset"                                    minimum:"0"`
}

// ListSearchEventsOutput is the response for listing search events.
type ListSearchEventsOutput struct {
	Body struct {
		Events []domain.SearchEvent `json:"events"`
		Total  int                  `json:"total"`
		Offset int                  `json:"offset"`
	}
}

// TopQueriesInput selects the ranking window.
type TopQueriesInput struct {
	Hours int `query:"hours" doc:"Look-back window in hours (default 24)" minimum:"0" maximum:"720"`
	Limit int `query:"limit" doc:"Number of terms (default 10)"           minimum:"0" maximum:"100"`
}

// TopQueriesOutput is the response for the top queries ranking.
type TopQueriesOutput struct {
	Body struct {
		Queries []domain.QueryCount `json:"queries"`
		Since   time.Time           `json:"since"`
	}
}

// --- Handlers ---

// ListSearchEvents returns recorded searches, newest first.
func (h *AnalyticsHandler) ListSearchEvents(
	ctx context.Context,
	input *ListSearchEventsInput,
) (*ListSearchEventsOutput, error) {
	q := &store.EventQuery{
		Limit:  input.Limit,
		Offset: input.Offset,
	}

	if input.Term != "" {
		q.Term = &input.Term
	}
	if input.Cached != "" {
		cached := input.Cached == "true"
		q.Cached = &cached
	}
	if input.Status != 0 {
		q.Status = &input.Status
	}
	if !input.Since.IsZero() {
		q.Since = &input.Since
	}

	events, total, err := h.store.ListSearchEvents(ctx, q)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing search events: " + err.Error())
	}

	resp := &ListSearchEventsOutput{}
	resp.Body.Events = events
	if resp.Body.Events == nil {
		resp.Body.Events = []domain.SearchEvent{}
	}
	resp.Body.Total = total
	resp.Body.Offset = q.Offset

	return resp, nil
}

// TopQueries returns the most searched terms in the window.
func (h *AnalyticsHandler) TopQueries(
	ctx context.Context,
	input *TopQueriesInput,
) (*TopQueriesOutput, error) {
	hours := input.Hours
	if hours == 0 {
		hours = defaultTopQueriesHours
	}
	limit := input.Limit
	if limit == 0 {
		limit = defaultTopQueriesLimit
	}

	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	top, err := h.store.TopQueries(ctx, since, limit)
	if err != nil {
		return nil, huma.Error500InternalServerError("ranking queries: " + err.Error())
	}

	resp := &TopQueriesOutput{}
	resp.Body.Queries = top
	if resp.Body.Queries == nil {
		resp.Body.Queries = []domain.QueryCount{}
	}
	resp.Body.Since = since

	return resp, nil
}

// RegisterAnalyticsRoutes registers analytics endpoints with the Huma API.
func RegisterAnalyticsRoutes(api huma.API, h *AnalyticsHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-search-events",
		Method:      http.MethodGet,
		Path:        "/analytics/searches",
		Summary:     "List recorded searches",
		Description: "Returns served searches with optional filters for term, cache state, status and time.",
		Tags:        []string{"analytics"},
	}, h.ListSearchEvents)

	huma.Register(api, huma.Operation{
		OperationID: "top-queries",
		Method:      http.MethodGet,
		Path:        "/analytics/top-queries",
		Summary:     "Rank popular search terms",
		Description: "Returns the most searched terms within the window, most frequent first.",
		Tags:        []string{"analytics"},
	}, h.TopQueries)
}
