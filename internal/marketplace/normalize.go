package marketplace

import (
	"encoding/json"
	"strings"

	domain "github.com/donaldgifford/storefront-proxy/pkg/types"
)

// NormalizeSearch maps a marketplace search payload into a SearchResult.
// It never fails: malformed input yields an empty result whose paging is
// taken from q. Entries of results that are not objects are skipped.
func NormalizeSearch(body []byte, q Query) domain.SearchResult {
	var raw rawSearch
	if !isObject(body) || json.Unmarshal(body, &raw) != nil {
		raw = rawSearch{}
	}

	items := toItems(raw.Results)
	return domain.SearchResult{
		Items:  items,
		Paging: toPaging(raw.Paging, len(items), q),
	}
}

// NormalizeItem maps a marketplace item detail payload into an Item,
// including its pictures. A malformed payload yields a zero-valued Item
// with the default currency.
func NormalizeItem(body []byte) domain.Item {
	var raw rawItem
	if !isObject(body) || json.Unmarshal(body, &raw) != nil {
		raw = rawItem{}
	}
	item := toItem(&raw)
	item.Pictures = toPictures(raw.Pictures)
	return item
}

func toItems(results json.RawMessage) []domain.Item {
	items := make([]domain.Item, 0)

	var entries []json.RawMessage
	if json.Unmarshal(results, &entries) != nil {
		return items
	}

	for _, entry := range entries {
		if !isObject(entry) {
			continue
		}
		var raw rawItem
		if json.Unmarshal(entry, &raw) != nil {
			continue
		}
		items = append(items, toItem(&raw))
	}
	return items
}

func toItem(raw *rawItem) domain.Item {
	item := domain.Item{
		ID:           raw.ID.Value,
		Title:        raw.Title.Value,
		CurrencyCode: raw.CurrencyID.Value,
		DetailURL:    raw.Permalink.Value,
		ThumbnailURL: secureImage(firstNonEmpty(
			raw.Thumbnail.Value,
			raw.SecureThumbnail.Value,
			raw.SecureURL.Value,
		)),
	}
	if item.CurrencyCode == "" {
		item.CurrencyCode = domain.DefaultCurrency
	}
	if raw.Price.Valid && raw.Price.Value > 0 {
		item.Price = raw.Price.Value
	}
	return item
}

func toPictures(raw json.RawMessage) []string {
	var entries []json.RawMessage
	if json.Unmarshal(raw, &entries) != nil {
		return nil
	}

	var pics []string
	for _, entry := range entries {
		if !isObject(entry) {
			continue
		}
		var p rawPicture
		if json.Unmarshal(entry, &p) != nil {
			continue
		}
		if u := secureImage(firstNonEmpty(p.SecureURL.Value, p.URL.Value)); u != "" {
			pics = append(pics, u)
		}
	}
	return pics
}

func toPaging(raw json.RawMessage, count int, q Query) domain.Paging {
	var p rawPaging
	if !isObject(raw) || json.Unmarshal(raw, &p) != nil {
		p = rawPaging{}
	}

	paging := domain.Paging{
		Total:  count,
		Offset: q.Offset,
		Limit:  q.Limit,
	}
	if p.Total.Set {
		paging.Total = nonNegative(p.Total)
	}
	if p.Offset.Set {
		paging.Offset = nonNegative(p.Offset)
	}
	if p.Limit.Valid && int(p.Limit.Value) > 0 {
		paging.Limit = int(p.Limit.Value)
	}
	return paging
}

func nonNegative(n flexNumber) int {
	if !n.Valid || n.Value < 0 {
		return 0
	}
	return int(n.Value)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// secureImage upgrades plain-HTTP image URLs so the storefront never
// serves mixed content.
// The scheme is matched case-insensitively.
func secureImage(u string) string {
	const insecure = "http://"
	if len(u) >= len(insecure) && strings.EqualFold(u[:len(insecure)], insecure) {
		return "https://" + u[len(insecure):]
	}
	return u
}
