package marketplace

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Marketplace payloads are loosely typed: fields may be missing, null, or
// carry a number where a string is expected. The wire types below decode
// every field leniently and record whether a usable value was present.

type rawSearch struct {
	Results json.RawMessage `json:"results"`
	Paging  json.RawMessage `json:"paging"`
}

type rawPaging struct {
	Total  flexNumber `json:"total"`
	Offset flexNumber `json:"offset"`
	Limit  flexNumber `json:"limit"`
}

type rawItem struct {
	ID              flexString      `json:"id"`
	Title           flexString      `json:"title"`
	Price           flexNumber      `json:"price"`
	CurrencyID      flexString      `json:"currency_id"`
	Thumbnail       flexString      `json:"thumbnail"`
	SecureThumbnail flexString      `json:"secure_thumbnail"`
	SecureURL       flexString      `json:"secure_url"`
	Permalink       flexString      `json:"permalink"`
	Pictures        json.RawMessage `json:"pictures"`
}

type rawPicture struct {
	URL       flexString `json:"url"`
	SecureURL flexString `json:"secure_url"`
}

// flexString accepts a JSON string or number. Anything else reads as absent.
type flexString struct {
	Value string
	Set   bool
}

func (f *flexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil && !isNull(b) {
		f.Value, f.Set = s, true
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil && !isNull(b) {
		f.Value, f.Set = n.String(), true
	}
	return nil
}

// flexNumber accepts a JSON number or numeric string. Set means a non-null
// value was present; Valid means it parsed to a finite number.
type flexNumber struct {
	Value float64
	Set   bool
	Valid bool
}

func (f *flexNumber) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		return nil
	}
	f.Set = true

	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		var s string
		if json.Unmarshal(b, &s) != nil {
			return nil
		}
		if v, err = strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
			return nil
		}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	f.Value, f.Valid = v, true
	return nil
}

func isNull(b []byte) bool {
	return bytes.Equal(bytes.TrimSpace(b), []byte("null"))
}

func isObject(b []byte) bool {
	b = bytes.TrimSpace(b)
	return len(b) > 0 && b[0] == '{'
}
