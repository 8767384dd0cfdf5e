package listquery

// PaginationInfo is the canonical pagination block of a page result.
type PaginationInfo struct {
	CurrentPage     int  `json:"currentPage"`
	TotalPages      int  `json:"totalPages"`
	TotalItems      int  `json:"totalItems"`
	ItemsPerPage    int  `json:"itemsPerPage"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// NewPaginationInfo computes total pages and the navigation flags.
func NewPaginationInfo(currentPage, totalItems, itemsPerPage int) PaginationInfo {
	totalPages := 0
	if itemsPerPage > 0 {
		totalPages = (totalItems + itemsPerPage - 1) / itemsPerPage
	}
	return PaginationInfo{
		CurrentPage:  currentPage,
		TotalPages:   totalPages,
		TotalItems:   totalItems,
		ItemsPerPage: itemsPerPage,
	}.Normalize()
}

// Normalize fills TotalPages when the backend left it out and recomputes the
// flags, which are never trusted from the wire.
func (p PaginationInfo) Normalize() PaginationInfo {
	if p.CurrentPage < 1 {
		p.CurrentPage = 1
	}
	if p.TotalPages <= 0 && p.TotalItems > 0 && p.ItemsPerPage > 0 {
		p.TotalPages = (p.TotalItems + p.ItemsPerPage - 1) / p.ItemsPerPage
	}
	if p.TotalPages < 0 {
		p.TotalPages = 0
	}
	p.HasNextPage = p.CurrentPage < p.TotalPages
	p.HasPreviousPage = p.CurrentPage > 1
	return p
}

// Summary holds aggregate counts some resources return next to a page.
type Summary map[string]int64

// PageResult is the one list shape the rest of the library sees.
type PageResult[T any] struct {
	Items      []T            `json:"items"`
	Pagination PaginationInfo `json:"pagination"`
	Summary    Summary        `json:"summary,omitempty"`
}

// NewPageResult builds a result and guarantees a non-nil item slice.
func NewPageResult[T any](items []T, pagination PaginationInfo, summary Summary) PageResult[T] {
	if items == nil {
		items = []T{}
	}
	return PageResult[T]{
		Items:      items,
		Pagination: pagination.Normalize(),
		Summary:    summary,
	}
}

// Empty reports a successful page with no items. It is not an error.
func (r PageResult[T]) Empty() bool {
	return len(r.Items) == 0
}
