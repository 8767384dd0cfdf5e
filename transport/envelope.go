package transport

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/goliatone/go-resource-query/apierr"
	"github.com/goliatone/go-resource-query/listquery"
)

// Envelope names the response shape a list endpoint uses.
type Envelope int

const (
	// EnvelopeWrapped is {success, data: {data: [...], pagination}, message?, meta?}.
	EnvelopeWrapped Envelope = iota
	// EnvelopeRecords is {records: [...], pagination, summary}.
	EnvelopeRecords
)

func (e Envelope) String() string {
	if e == EnvelopeRecords {
		return "records"
	}
	return "wrapped"
}

// ParseEnvelope reads an envelope name from configuration.
func ParseEnvelope(s string) (Envelope, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "wrapped":
		return EnvelopeWrapped, true
	case "records":
		return EnvelopeRecords, true
	default:
		return EnvelopeWrapped, false
	}
}

type envelopePaths struct {
	items      string
	pagination string
	summary    string
}

var paths = map[Envelope]envelopePaths{
	EnvelopeWrapped: {items: "data.data", pagination: "data.pagination", summary: "data.summary"},
	EnvelopeRecords: {items: "records", pagination: "pagination", summary: "summary"},
}

// Spellings seen across endpoints, preferred first.
var (
	currentPageKeys = []string{"currentPage", "page"}
	totalPagesKeys  = []string{"totalPages", "pages"}
	totalItemsKeys  = []string{"totalItems", "total"}
	perPageKeys     = []string{"itemsPerPage", "limit", "perPage"}
)

// DecodeList normalizes a list body into a PageResult. Pagination flags are
// recomputed, not read. A list without a pagination block is a single page.
func DecodeList[T any](env Envelope, body []byte) (listquery.PageResult[T], error) {
	if !gjson.ValidBytes(body) {
		return listquery.PageResult[T]{}, apierr.General(0, "malformed list response")
	}
	p := paths[env]

	items := gjson.GetBytes(body, p.items)
	if !items.Exists() && env == EnvelopeWrapped {
		// some wrapped endpoints put the array directly under data
		if data := gjson.GetBytes(body, "data"); data.IsArray() {
			items = data
		}
	}

	var list []T
	if items.Exists() && items.Type != gjson.Null {
		if !items.IsArray() {
			return listquery.PageResult[T]{}, apierr.General(0, "list response items are not an array")
		}
		if err := json.Unmarshal([]byte(items.Raw), &list); err != nil {
			return listquery.PageResult[T]{}, apierr.Ensure(err, "decode "+env.String()+" list items")
		}
	}

	pagination := decodePagination(gjson.GetBytes(body, p.pagination), len(list))
	return listquery.NewPageResult(list, pagination, decodeSummary(gjson.GetBytes(body, p.summary))), nil
}

// DecodeItem reads a {success, data} detail body. A body without a data field
// is taken as the entity itself.
func DecodeItem[T any](body []byte) (T, error) {
	var out T
	if !gjson.ValidBytes(body) {
		return out, apierr.General(0, "malformed detail response")
	}
	raw := body
	if data := gjson.GetBytes(body, "data"); data.Exists() && gjson.GetBytes(body, "success").Exists() {
		raw = []byte(data.Raw)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, apierr.Ensure(err, "decode detail response")
	}
	return out, nil
}

func decodePagination(block gjson.Result, count int) listquery.PaginationInfo {
	if !block.IsObject() {
		return listquery.NewPaginationInfo(1, count, count)
	}
	return listquery.PaginationInfo{
		CurrentPage:  int(first(block, currentPageKeys).Int()),
		TotalPages:   int(first(block, totalPagesKeys).Int()),
		TotalItems:   int(first(block, totalItemsKeys).Int()),
		ItemsPerPage: int(first(block, perPageKeys).Int()),
	}.Normalize()
}

func decodeSummary(block gjson.Result) listquery.Summary {
	if !block.IsObject() {
		return nil
	}
	summary := listquery.Summary{}
	block.ForEach(func(key, value gjson.Result) bool {
		if value.Type == gjson.Number {
			summary[key.String()] = value.Int()
		}
		return true
	})
	if len(summary) == 0 {
		return nil
	}
	return summary
}

func first(block gjson.Result, keys []string) gjson.Result {
	for _, k := range keys {
		if v := block.Get(k); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}
