// Package listview drives one list view of a resource: its query, the search box,
// the pager, the open dialog and the detail panel.
//
// One Controller[T] per view replaces state that every feature view would
// otherwise keep for itself. Loads are sequence-guarded, so a response that
// arrives after a newer query was issued never replaces what the newer query
// shows. Committed searches and filter changes reset the page to 1; page changes
// keep search and filters.
package listview

import (
	"context"
	"maps"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"

	"github.com/goliatone/go-resource-query/apierr"
	"github.com/goliatone/go-resource-query/debounce"
	"github.com/goliatone/go-resource-query/detail"
	"github.com/goliatone/go-resource-query/listquery"
	"github.com/goliatone/go-resource-query/pagination"
	"github.com/goliatone/go-resource-query/query"
	"github.com/goliatone/go-resource-query/resourcecache"
	"github.com/goliatone/go-resource-query/resources"
)

// Resource is what a view reads and writes. *resourcecache.CachedResource implements it.
type Resource[T any] interface {
	Definition() resources.Definition
	ListResult(ctx context.Context, q listquery.ListQuery) query.Result[listquery.PageResult[T]]
	Load(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, entity T) (T, error)
	Update(ctx context.Context, id string, entity T) (T, error)
	Delete(ctx context.Context, id string) error
	Refresh(ctx context.Context) error
}

var _ Resource[resources.Driver] = (*resourcecache.CachedResource[resources.Driver])(nil)

// Listener receives every new state.
type Listener[T any] func(State[T])

type settings struct {
	ctx           context.Context
	log           *zap.Logger
	clock         clock.Clock
	cooldown      time.Duration
	searchDelay   time.Duration
	prepareScroll pagination.ScrollHook
	query         listquery.ListQuery
	detailCache   *query.Client
}

// Option configures a Controller.
type Option func(*settings)

// WithContext sets the context of loads the controller starts on its own, such
// as the one after a debounced search commits.
func WithContext(ctx context.Context) Option {
	return func(s *settings) {
		if ctx != nil {
			s.ctx = ctx
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *settings) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock replaces the wall clock of the pager and the search debouncer.
func WithClock(clk clock.Clock) Option {
	return func(s *settings) {
		if clk != nil {
			s.clock = clk
		}
	}
}

// WithCooldown sets the page change cool-down. Zero disables it.
func WithCooldown(d time.Duration) Option {
	return func(s *settings) { s.cooldown = d }
}

// WithSearchDelay sets the quiet interval of the search box.
func WithSearchDelay(d time.Duration) Option {
	return func(s *settings) { s.searchDelay = d }
}

// WithPrepareScroll runs hook before every accepted page change.
func WithPrepareScroll(hook pagination.ScrollHook) Option {
	return func(s *settings) { s.prepareScroll = hook }
}

// WithQuery sets the initial query.
func WithQuery(q listquery.ListQuery) Option {
	return func(s *settings) { s.query = q.Clone() }
}

// WithDetailCache routes detail loads through the detail keys of client.
func WithDetailCache(client *query.Client) Option {
	return func(s *settings) { s.detailCache = client }
}

// Controller is the state of one list view.
type Controller[T any] struct {
	mu    sync.Mutex
	state State[T]
	seq   uint64

	res    Resource[T]
	pager  *pagination.Controller
	search *debounce.Debouncer
	detail *detail.Fetcher[T]

	listeners    *xsync.MapOf[uint64, Listener[T]]
	nextListener atomic.Uint64

	ctx context.Context
	log *zap.Logger
}

// New creates a Controller for res. Nothing is fetched until Load.
func New[T any](res Resource[T], opts ...Option) *Controller[T] {
	s := settings{
		ctx:         context.Background(),
		log:         zap.NewNop(),
		clock:       clock.New(),
		cooldown:    pagination.DefaultCooldown,
		searchDelay: debounce.DefaultDelay,
		query:       listquery.New(listquery.DefaultLimit),
	}
	for _, opt := range opts {
		opt(&s)
	}

	name := res.Definition().Name
	log := s.log.With(zap.String("resource", name))

	c := &Controller[T]{
		res:       res,
		listeners: xsync.NewMapOf[uint64, Listener[T]](),
		ctx:       s.ctx,
		log:       log,
	}
	c.state.Query = s.query
	c.state.Page = listquery.NewPageResult[T](nil, listquery.NewPaginationInfo(s.query.Page, 0, s.query.Limit), nil)

	c.pager = pagination.New(
		pagination.WithCooldown(s.cooldown),
		pagination.WithClock(s.clock),
		pagination.WithPrepareScroll(s.prepareScroll),
		pagination.WithLogger(log),
	)
	c.pager.Jump(s.query.Page)

	c.search = debounce.New(c.commitSearch,
		debounce.WithDelay(s.searchDelay),
		debounce.WithClock(s.clock),
		debounce.WithLogger(log),
	)

	detailOpts := []detail.Option{detail.WithLogger(log)}
	if s.detailCache != nil {
		detailOpts = append(detailOpts, detail.WithCache(s.detailCache, name))
	}
	c.detail = detail.New[T](res.Load, detailOpts...)
	c.detail.OnChange(c.detailChanged)
	return c
}

// Subscribe installs l and returns a func that removes it.
func (c *Controller[T]) Subscribe(l Listener[T]) func() {
	id := c.nextListener.Add(1)
	c.listeners.Store(id, l)
	return func() { c.listeners.Delete(id) }
}

// State returns the current state.
func (c *Controller[T]) State() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Pager exposes the page bounds, for rendering.
func (c *Controller[T]) Pager() *pagination.Controller {
	return c.pager
}

// Load fetches the page of the current query. A superseded load returns the
// state in effect without applying its own result.
func (c *Controller[T]) Load(ctx context.Context) State[T] {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	q := c.state.Query.Clone()
	c.state.Loading = true
	c.state.Err = nil
	loading := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(loading)

	res := c.res.ListResult(ctx, q)

	c.mu.Lock()
	if seq != c.seq {
		current := c.snapshotLocked()
		c.mu.Unlock()
		c.log.Debug("list response discarded", zap.Int("page", q.Page), zap.Uint64("seq", seq))
		return current
	}
	c.state.Loading = false
	c.state.Err = res.Err
	if res.HasData {
		c.state.Page = res.Data
		c.state.HasData = true
		c.state.FetchedAt = res.FetchedAt
		c.pager.SetTotalPages(res.Data.Pagination.TotalPages)
	}
	stepBack := res.Err == nil && res.HasData && len(res.Data.Items) == 0 &&
		q.Page > 1 && res.Data.Pagination.TotalPages < q.Page
	if stepBack {
		c.state.Query = c.state.Query.WithPage(max(res.Data.Pagination.TotalPages, 1))
	}
	st := c.snapshotLocked()
	c.mu.Unlock()

	if stepBack {
		c.log.Debug("page beyond the last page, stepping back",
			zap.Int("page", q.Page),
			zap.Int("total_pages", res.Data.Pagination.TotalPages),
		)
		c.pager.Jump(st.Query.Page)
		return c.Load(ctx)
	}
	if res.Err != nil {
		c.log.Warn("list load failed",
			zap.Int("page", q.Page),
			zap.Bool("kept_previous", st.HasData),
			zap.Stringer("kind", apierr.KindOf(res.Err)),
			zap.Error(res.Err),
		)
	}
	c.publish(st)
	return st
}

// Retry repeats the last load.
func (c *Controller[T]) Retry(ctx context.Context) State[T] {
	return c.Load(ctx)
}

// Refresh drops the cached pages of the resource and loads again.
func (c *Controller[T]) Refresh(ctx context.Context) State[T] {
	if err := c.res.Refresh(ctx); err != nil {
		c.log.Warn("refresh invalidation failed", zap.Error(err))
	}
	return c.Load(ctx)
}

// Search records typed input. The query follows once the input is quiet.
func (c *Controller[T]) Search(input string) {
	c.mu.Lock()
	c.state.SearchInput = input
	st := c.snapshotLocked()
	c.mu.Unlock()

	c.search.Input(input)
	c.publish(st)
}

// SubmitSearch commits the typed input now.
func (c *Controller[T]) SubmitSearch() {
	c.search.Flush()
}

// ClearSearch empties the search box and loads without a search.
func (c *Controller[T]) ClearSearch(ctx context.Context) State[T] {
	c.search.Reset()
	c.mu.Lock()
	c.state.SearchInput = ""
	changed := c.state.Query.Search != ""
	if changed {
		c.state.Query = c.state.Query.WithSearch("")
	}
	c.mu.Unlock()
	if !changed {
		return c.State()
	}
	c.pager.Reset()
	return c.Load(ctx)
}

func (c *Controller[T]) commitSearch(committed string) {
	c.mu.Lock()
	if c.state.Query.Search == committed {
		c.mu.Unlock()
		return
	}
	c.state.Query = c.state.Query.WithSearch(committed)
	c.mu.Unlock()

	c.pager.Reset()
	c.Load(c.ctx)
}

// SetFilter sets or, with an empty value, removes a filter and loads page 1.
func (c *Controller[T]) SetFilter(ctx context.Context, key, value string) State[T] {
	c.mu.Lock()
	if c.state.Query.Filters[key] == value {
		st := c.snapshotLocked()
		c.mu.Unlock()
		return st
	}
	c.state.Query = c.state.Query.WithFilter(key, value)
	c.mu.Unlock()

	c.pager.Reset()
	return c.Load(ctx)
}

// SetFlag sets a boolean filter and loads page 1.
func (c *Controller[T]) SetFlag(ctx context.Context, key string, value bool) State[T] {
	return c.SetFilter(ctx, key, strconv.FormatBool(value))
}

// SetSort changes the sort and loads the current page.
func (c *Controller[T]) SetSort(ctx context.Context, field string, order listquery.SortOrder) State[T] {
	c.mu.Lock()
	c.state.Query = c.state.Query.WithSort(field, order)
	c.mu.Unlock()
	return c.Load(ctx)
}

// ChangePage moves to page n and loads it. It reports false, without loading,
// when the pager rejects the change.
func (c *Controller[T]) ChangePage(ctx context.Context, n int) bool {
	if !c.pager.ChangePage(n) {
		return false
	}
	c.mu.Lock()
	c.state.Query = c.state.Query.WithPage(n)
	c.mu.Unlock()

	c.Load(ctx)
	return true
}

// NextPage moves one page forward.
func (c *Controller[T]) NextPage(ctx context.Context) bool {
	return c.ChangePage(ctx, c.pager.Current()+1)
}

// PrevPage moves one page back.
func (c *Controller[T]) PrevPage(ctx context.Context) bool {
	return c.ChangePage(ctx, c.pager.Current()-1)
}

// OpenCreate opens the create dialog.
func (c *Controller[T]) OpenCreate() { c.open(Overlay{Kind: OverlayCreate}) }

// OpenEdit opens the edit dialog of id.
func (c *Controller[T]) OpenEdit(id string) { c.open(Overlay{Kind: OverlayEdit, ID: id}) }

// OpenDelete opens the delete confirmation of id.
func (c *Controller[T]) OpenDelete(id string) { c.open(Overlay{Kind: OverlayDelete, ID: id}) }

// OpenExport opens the export dialog.
func (c *Controller[T]) OpenExport() { c.open(Overlay{Kind: OverlayExport}) }

// OpenDetail opens the detail panel of id and loads it. Opening the id that is
// already shown refetches it.
func (c *Controller[T]) OpenDetail(ctx context.Context, id string) detail.State[T] {
	c.open(Overlay{Kind: OverlayDetail, ID: id})
	return c.detail.Select(ctx, id)
}

// RetryDetail reloads the open detail.
func (c *Controller[T]) RetryDetail(ctx context.Context) detail.State[T] {
	return c.detail.Retry(ctx)
}

// Close closes whatever dialog is open and clears its error.
func (c *Controller[T]) Close() {
	c.mu.Lock()
	wasDetail := c.state.Overlay.Kind == OverlayDetail
	c.mu.Unlock()

	c.open(Overlay{})
	if wasDetail {
		c.detail.Select(c.ctx, "")
	}
}

func (c *Controller[T]) open(o Overlay) {
	c.mu.Lock()
	c.state.Overlay = o
	c.state.MutationErr = nil
	c.state.FieldErrors = nil
	st := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(st)
}

// Create sends entity. On success the dialog closes and the list reloads; on
// failure the dialog stays open with the error and any field errors.
func (c *Controller[T]) Create(ctx context.Context, entity T) (T, error) {
	var created T
	err := c.mutate(ctx, mutationCreate, "", func(ctx context.Context) error {
		var err error
		created, err = c.res.Create(ctx, entity)
		return err
	})
	return created, err
}

// Update sends entity for id. It behaves like Create.
func (c *Controller[T]) Update(ctx context.Context, id string, entity T) (T, error) {
	var updated T
	err := c.mutate(ctx, mutationUpdate, id, func(ctx context.Context) error {
		var err error
		updated, err = c.res.Update(ctx, id, entity)
		return err
	})
	return updated, err
}

// Delete removes id. When it was the only item of the last page the view steps
// back to the page before.
func (c *Controller[T]) Delete(ctx context.Context, id string) error {
	return c.mutate(ctx, mutationDelete, id, func(ctx context.Context) error {
		return c.res.Delete(ctx, id)
	})
}

type mutationKind int

const (
	mutationCreate mutationKind = iota
	mutationUpdate
	mutationDelete
)

func (c *Controller[T]) mutate(ctx context.Context, kind mutationKind, id string, run func(ctx context.Context) error) error {
	c.mu.Lock()
	c.state.Saving = true
	c.state.MutationErr = nil
	c.state.FieldErrors = nil
	st := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(st)

	err := run(ctx)

	c.mu.Lock()
	c.state.Saving = false
	if err != nil {
		c.state.MutationErr = err
		c.state.FieldErrors = apierr.FieldMessages(err)
		st := c.snapshotLocked()
		c.mu.Unlock()
		c.publish(st)
		return err
	}

	c.state.Overlay = Overlay{}
	q := c.state.Query
	pg := c.state.Page.Pagination
	if kind == mutationDelete && len(c.state.Page.Items) == 1 && q.Page > 1 && q.Page >= pg.TotalPages {
		c.state.Query = q.WithPage(q.Page - 1)
	}
	page := c.state.Query.Page
	c.mu.Unlock()

	if page != q.Page {
		c.log.Debug("last item of the last page deleted, stepping back", zap.Int("page", page))
		c.pager.Jump(page)
	}
	if kind == mutationDelete && c.detail.State().ID == id {
		c.detail.Select(ctx, "")
	}
	c.Load(ctx)
	return nil
}

// Stop cancels a pending search commit.
func (c *Controller[T]) Stop() {
	c.search.Cancel()
}

func (c *Controller[T]) detailChanged(st detail.State[T]) {
	c.mu.Lock()
	c.state.Detail = st
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap)
}

func (c *Controller[T]) snapshotLocked() State[T] {
	st := c.state
	st.Query = st.Query.Clone()
	st.FieldErrors = maps.Clone(st.FieldErrors)
	return st
}

func (c *Controller[T]) publish(st State[T]) {
	c.listeners.Range(func(_ uint64, l Listener[T]) bool {
		l(st)
		return true
	})
}
