package listview

import (
	"time"

	"github.com/goliatone/go-resource-query/detail"
	"github.com/goliatone/go-resource-query/listquery"
)

// State is what a view renders. It is a copy; changing it has no effect.
type State[T any] struct {
	// Query is the query of the page being shown or loaded.
	Query listquery.ListQuery
	// SearchInput is what the user typed, which may not be committed yet.
	SearchInput string

	Page      listquery.PageResult[T]
	HasData   bool
	Loading   bool
	Err       error
	FetchedAt time.Time

	Overlay Overlay
	// MutationErr is the error of the last create, update or delete. The
	// overlay that caused it stays open.
	MutationErr error
	FieldErrors map[string]string
	Saving      bool

	Detail detail.State[T]
}

// Empty reports a successful load that returned no items.
func (s State[T]) Empty() bool {
	return s.HasData && s.Err == nil && !s.Loading && len(s.Page.Items) == 0
}

// Failed reports that the last load failed. Page may still hold earlier data.
func (s State[T]) Failed() bool {
	return s.Err != nil
}

// Items returns the items of the current page.
func (s State[T]) Items() []T {
	return s.Page.Items
}
