package listquery

import (
	"net/url"
	"strconv"
	"strings"
)

// SortCasing selects how a backend expects sortOrder on the wire.
type SortCasing int

const (
	SortUpper SortCasing = iota // ASC / DESC
	SortLower                   // asc / desc
)

// EncodeOptions carries the per-resource wire conventions.
type EncodeOptions struct {
	SortCasing      SortCasing
	SearchMinLength int
}

// DefaultEncodeOptions is upper-case sorting with the standard search threshold.
func DefaultEncodeOptions() EncodeOptions {
	return EncodeOptions{SortCasing: SortUpper, SearchMinLength: SearchMinLength}
}

var reservedParams = map[string]bool{
	"page":      true,
	"limit":     true,
	"search":    true,
	"sortBy":    true,
	"sortOrder": true,
}

// Values encodes the query as request parameters. Short searches and empty
// filter values are dropped; a filter can never shadow a reserved parameter.
func (q ListQuery) Values(opts EncodeOptions) url.Values {
	v := url.Values{}
	page := q.Page
	if page < 1 {
		page = DefaultPage
	}
	limit := q.Limit
	if limit < 1 {
		limit = DefaultLimit
	}
	v.Set("page", strconv.Itoa(page))
	v.Set("limit", strconv.Itoa(limit))

	if search := EffectiveSearch(q.Search, opts.SearchMinLength); search != "" {
		v.Set("search", search)
	}

	for key, value := range q.Filters {
		if value == "" || reservedParams[key] {
			continue
		}
		v.Set(key, value)
	}

	if q.SortBy != "" {
		v.Set("sortBy", q.SortBy)
		order := q.SortOrder
		if order == "" {
			order = SortAsc
		}
		if opts.SortCasing == SortLower {
			v.Set("sortOrder", strings.ToLower(string(order)))
		} else {
			v.Set("sortOrder", strings.ToUpper(string(order)))
		}
	}
	return v
}
