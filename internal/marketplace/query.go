package marketplace

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
)

// Fallbacks used when QueryDefaults leaves a field unset.
const (
	DefaultTerm     = "iphone"
	DefaultLimit    = 24
	DefaultMaxLimit = 50
)

// ErrMissingQuery is returned in strict mode when the search term is blank.
var ErrMissingQuery = errors.New("query missing")

// Query is a validated search request.
type Query struct {
	Term   string
	Offset int
	Limit  int
}

// QueryDefaults controls how raw parameters are completed.
type QueryDefaults struct {
	Term     string
	Limit    int
	MaxLimit int
	// Strict rejects a blank term instead of substituting Term.
	Strict bool
}

func (d QueryDefaults) withFallbacks() QueryDefaults {
	if strings.TrimSpace(d.Term) == "" {
		d.Term = DefaultTerm
	}
	if d.MaxLimit <= 0 {
		d.MaxLimit = DefaultMaxLimit
	}
	if d.Limit <= 0 {
		d.Limit = min(DefaultLimit, d.MaxLimit)
	}
	d.Limit = min(d.Limit, d.MaxLimit)
	return d
}

// NormalizeQuery turns raw request parameters into a Query. The term is
// trimmed; offset falls back to 0 and limit to the default when absent or
// not a positive integer, and limit is capped at MaxLimit.
func NormalizeQuery(term, offset, limit string, d QueryDefaults) (Query, error) {
	d = d.withFallbacks()

	q := Query{Term: strings.TrimSpace(term)}
	if q.Term == "" {
		if d.Strict {
			return Query{}, ErrMissingQuery
		}
		q.Term = d.Term
	}

	q.Offset = parseNonNegative(offset, 0)

	q.Limit = parseNonNegative(limit, d.Limit)
	if q.Limit == 0 {
		q.Limit = d.Limit
	}
	q.Limit = min(q.Limit, d.MaxLimit)

	return q, nil
}

func parseNonNegative(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

// Values encodes q as marketplace search parameters.
func (q Query) Values() url.Values {
	v := url.Values{}
	v.Set("q", q.Term)
	v.Set("offset", strconv.Itoa(q.Offset))
	v.Set("limit", strconv.Itoa(q.Limit))
	return v
}

// SearchURL appends q to the marketplace search endpoint.
func SearchURL(base string, q Query) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + q.Values().Encode()
}

// ItemURL returns the detail endpoint for a single listing.
func ItemURL(base, id string) string {
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(id)
}
