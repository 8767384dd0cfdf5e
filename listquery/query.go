package listquery

import (
	"maps"
	"strconv"
	"strings"
	"unicode/utf8"
)

// SearchMinLength is the shortest search term forwarded to the backend.
const SearchMinLength = 2

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// SortOrder is the normalized sort direction of a list query.
type SortOrder string

const (
	SortAsc  SortOrder = "ASC"
	SortDesc SortOrder = "DESC"
)

// ParseSortOrder accepts either casing and returns the normalized order.
// Anything it does not recognize yields SortAsc and false.
func ParseSortOrder(s string) (SortOrder, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ASC":
		return SortAsc, true
	case "DESC":
		return SortDesc, true
	}
	return SortAsc, false
}

// ListQuery describes one page of a list resource.
type ListQuery struct {
	Page      int               `json:"page"`
	Limit     int               `json:"limit"`
	Search    string            `json:"search"`
	Filters   map[string]string `json:"filters"`
	SortBy    string            `json:"sortBy"`
	SortOrder SortOrder         `json:"sortOrder"`
}

// New returns a query for the first page with the given limit.
func New(limit int) ListQuery {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return ListQuery{Page: DefaultPage, Limit: limit}
}

// Clone returns a copy that does not share the filter map.
func (q ListQuery) Clone() ListQuery {
	q.Filters = maps.Clone(q.Filters)
	return q
}

// WithPage returns a copy on page n. Search and filters are untouched.
func (q ListQuery) WithPage(n int) ListQuery {
	q = q.Clone()
	q.Page = n
	return q
}

// WithSearch returns a copy with the search term set and the page reset to 1.
func (q ListQuery) WithSearch(search string) ListQuery {
	q = q.Clone()
	q.Search = search
	q.Page = DefaultPage
	return q
}

// WithFilter returns a copy with the filter set (or removed when value is empty)
// and the page reset to 1.
func (q ListQuery) WithFilter(key, value string) ListQuery {
	q = q.Clone()
	if value == "" {
		delete(q.Filters, key)
	} else {
		if q.Filters == nil {
			q.Filters = make(map[string]string)
		}
		q.Filters[key] = value
	}
	q.Page = DefaultPage
	return q
}

// WithFlag sets a boolean filter.
func (q ListQuery) WithFlag(key string, value bool) ListQuery {
	return q.WithFilter(key, strconv.FormatBool(value))
}

// WithSort returns a copy sorted by field. Sorting keeps the current page.
func (q ListQuery) WithSort(field string, order SortOrder) ListQuery {
	q = q.Clone()
	q.SortBy = field
	q.SortOrder = order
	return q
}

// EffectiveSearch trims raw and returns it only when it has at least min runes.
func EffectiveSearch(raw string, min int) string {
	s := strings.TrimSpace(raw)
	if utf8.RuneCountInString(s) < min {
		return ""
	}
	return s
}
