// Package domain defines the core types shared by the storefront proxy,
// its API client and the CLI.
package domain

import "time"

// DefaultCurrency is applied when the marketplace omits currency_id.
const DefaultCurrency = "BRL"

// Item is a marketplace listing normalized into the storefront schema.
type Item struct {
	ID           string   `json:"id"                 doc:"Marketplace item ID"       example:"MLB3846022135"`
	Title        string   `json:"title"              doc:"Listing title"`
	Price        float64  `json:"price"              doc:"Price, never negative"     minimum:"0"`
	CurrencyCode string   `json:"currency_id"        doc:"ISO currency code"         example:"BRL"`
	ThumbnailURL string   `json:"thumbnail"          doc:"HTTPS thumbnail or empty"`
	DetailURL    string   `json:"permalink"          doc:"Marketplace detail page"`
	Pictures     []string `json:"pictures,omitempty" doc:"HTTPS pictures (item detail only)"`
}

// Paging describes the window of a search result.
type Paging struct {
	Total  int `json:"total"  minimum:"0"`
	Offset int `json:"offset" minimum:"0"`
	Limit  int `json:"limit"  minimum:"1"`
}

// SearchResult is the normalized response to a search query.
type SearchResult struct {
	Items  []Item `json:"items"`
	Paging Paging `json:"paging"`
}

// EventType identifies an analytics event recorded by the proxy.
type EventType string

// Event type constants.
const (
	EventSearchPerformed EventType = "search_performed"
	EventOutboundClick   EventType = "outbound_click"
)

// SearchEvent records one search served by the proxy.
type SearchEvent struct {
	ID        string    `json:"id"         db:"id"`
	Term      string    `json:"term"       db:"term"`
	Offset    int       `json:"offset"     db:"offset_value"`
	Limit     int       `json:"limit"      db:"limit_value"`
	Results   int       `json:"results"    db:"results"`
	Cached    bool      `json:"cached"     db:"cached"`
	Status    int       `json:"status"     db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ClickEvent records a hand-off to the marketplace through /go.
type ClickEvent struct {
	ID        string    `json:"id"         db:"id"`
	TargetURL string    `json:"target_url" db:"target_url"`
	ItemID    string    `json:"item_id"    db:"item_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// QueryCount is a search term with the number of times it was searched.
type QueryCount struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}
