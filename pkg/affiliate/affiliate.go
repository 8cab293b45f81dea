// Package affiliate builds outbound marketplace links carrying affiliate
// tracking parameters.
package affiliate

import (
	"net/url"
	"regexp"
	"strings"
)

const (
	toolParam = "matt_tool"
	wordParam = "matt_word"

	defaultSearchBase = "https://lista.mercadolivre.com.br"
)

// Builder appends affiliate parameters to marketplace URLs. The zero value
// is usable and adds no parameters.
type Builder struct {
	// ID is the affiliate identifier (matt_tool).
	ID string
	// Source labels the traffic source (matt_word).
	Source string
	// SearchBase is the marketplace listing host used by SearchURL.
	SearchBase string
}

// New creates a Builder for the given affiliate ID and source.
func New(id, source string) *Builder {
	return &Builder{ID: id, Source: source, SearchBase: defaultSearchBase}
}

// BuildURL returns permalink with tracking parameters set. An http://
// permalink is upgraded to https://. Input that does not parse as an
// absolute URL is returned unchanged apart from the scheme upgrade.
func (b *Builder) BuildURL(permalink string) string {
	normalized := SecureURL(strings.TrimSpace(permalink))
	if normalized == "" {
		return ""
	}

	u, err := url.Parse(normalized)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return normalized
	}

	b.apply(u)
	return u.String()
}

// SearchURL returns the marketplace listing page for query, with tracking
// parameters. Empty queries produce an empty string.
func (b *Builder) SearchURL(query string) string {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return ""
	}

	base := b.SearchBase
	if base == "" {
		base = defaultSearchBase
	}

	u, err := url.Parse(base)
	if err != nil {
		return ""
	}

	if slug := Slugify(trimmed); slug != "" {
		u.Path = "/" + slug
	} else {
		q := u.Query()
		q.Set("q", trimmed)
		u.RawQuery = q.Encode()
	}

	b.apply(u)
	return u.String()
}

func (b *Builder) apply(u *url.URL) {
	if b.ID == "" && b.Source == "" {
		return
	}
	q := u.Query()
	if b.ID != "" {
		q.Set(toolParam, b.ID)
	}
	if b.Source != "" {
		q.Set(wordParam, b.Source)
	}
	u.RawQuery = q.Encode()
}

var (
	nonWord     = regexp.MustCompile(`[^\p{L}\p{N}]+`)
	edgeHyphens = regexp.MustCompile(`^-+|-+$`)
)

// Slugify lowercases query and joins its letter/number runs with hyphens.
func Slugify(query string) string {
	s := strings.ToLower(strings.TrimSpace(query))
	s = nonWord.ReplaceAllString(s, "-")
	return edgeHyphens.ReplaceAllString(s, "")
}

// SecureURL rewrites an http:// URL to https://. Other input is returned
// as is.
func SecureURL(raw string) string {
	if rest, ok := strings.CutPrefix(raw, "http://"); ok {
		return "https://" + rest
	}
	return raw
}
