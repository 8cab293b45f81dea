package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/storefront-proxy/internal/marketplace"
)

// QuotaHandler provides the marketplace quota status endpoint.
type QuotaHandler struct {
	quota *marketplace.Quota
}

// NewQuotaHandler creates a new QuotaHandler.
func NewQuotaHandler(q *marketplace.Quota) *QuotaHandler {
	return &QuotaHandler{quota: q}
}

// QuotaOutput is the response body for the quota endpoint.
type QuotaOutput struct {
	Body struct {
		DailyLimit int64     `json:"daily_limit" example:"100000"               doc:"Configured daily call budget, 0 when uncapped"`
		DailyUsed  int64     `json:"daily_used"  example:"142"                  doc:"Marketplace calls made in the current 24-hour window"`
		Remaining  int64     `json:"remaining"   example:"99858"                doc:"Calls left in the window, -1 when uncapped"`
		ResetAt    time.Time `json:"reset_at"    example:"2026-06-16T14:30:00Z" doc:"When the current 24-hour window expires"`
	}
}

// GetQuota returns the current marketplace quota status.
func (h *QuotaHandler) GetQuota(_ context.Context, _ *struct{}) (*QuotaOutput, error) {
	resp := &QuotaOutput{}
	if h.quota == nil {
		return resp, nil
	}

	resp.Body.DailyLimit = max(h.quota.MaxDaily(), 0)
	resp.Body.DailyUsed = h.quota.Used()
	resp.Body.Remaining = h.quota.Remaining()
	resp.Body.ResetAt = h.quota.ResetAt()

	return resp, nil
}

// RegisterQuotaRoutes registers the quota endpoint with the Huma API.
func RegisterQuotaRoutes(api huma.API, h *QuotaHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-quota",
		Method:      http.MethodGet,
		Path:        "/quota",
		Summary:     "Get marketplace quota status",
		Description: "Returns the current daily call usage, remaining budget and window reset time.",
		Tags:        []string{"marketplace"},
	}, h.GetQuota)
}
