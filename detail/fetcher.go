// Package detail fetches a single entity only once a view asks for it.
//
// A Fetcher moves through Idle, Loading, Ready and Error. An empty id is Idle and
// never touches the network. Selecting the id that is already Ready is a refresh and
// always goes to the backend. Selecting another id drops the previous entity.
package detail

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-resource-query/apierr"
	"github.com/goliatone/go-resource-query/query"
)

// Status of a detail selection.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// State is a read-only view of the selection.
type State[T any] struct {
	ID        string
	Status    Status
	Data      T
	HasData   bool
	Err       error
	FetchedAt time.Time
}

// LoadFunc fetches one entity.
type LoadFunc[T any] func(ctx context.Context, id string) (T, error)

// Listener is called after every state change.
type Listener[T any] func(State[T])

type settings struct {
	client   *query.Client
	resource string
	log      *zap.Logger
}

// Option configures a Fetcher.
type Option func(*settings)

// WithCache routes loads through the detail keys of resource in client.
func WithCache(client *query.Client, resource string) Option {
	return func(s *settings) {
		s.client = client
		s.resource = resource
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

// Fetcher holds one detail selection.
type Fetcher[T any] struct {
	mu       sync.Mutex
	state    State[T]
	seq      uint64
	load     LoadFunc[T]
	listener Listener[T]
	settings
}

// New creates an idle Fetcher.
func New[T any](load LoadFunc[T], opts ...Option) *Fetcher[T] {
	s := settings{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&s)
	}
	return &Fetcher[T]{load: load, settings: s}
}

// OnChange installs the listener. It replaces any previous one.
func (f *Fetcher[T]) OnChange(l Listener[T]) {
	f.mu.Lock()
	f.listener = l
	f.mu.Unlock()
}

// State returns the current state.
func (f *Fetcher[T]) State() State[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Select opens the detail of id and blocks until its load completes. An empty
// id clears the selection. The returned state is the one in effect when Select
// returns, which is not this call's result if a newer Select superseded it.
func (f *Fetcher[T]) Select(ctx context.Context, id string) State[T] {
	if id == "" {
		f.mu.Lock()
		f.seq++
		f.state = State[T]{}
		st, l := f.state, f.listener
		f.mu.Unlock()
		notify(l, st)
		return st
	}

	f.mu.Lock()
	force := f.state.ID == id && f.state.Status == StatusReady
	f.mu.Unlock()
	return f.fetch(ctx, id, force)
}

// Retry reloads the current selection, bypassing the cache.
func (f *Fetcher[T]) Retry(ctx context.Context) State[T] {
	f.mu.Lock()
	id := f.state.ID
	f.mu.Unlock()
	if id == "" {
		return f.State()
	}
	return f.fetch(ctx, id, true)
}

func (f *Fetcher[T]) fetch(ctx context.Context, id string, force bool) State[T] {
	f.mu.Lock()
	f.seq++
	seq := f.seq
	if f.state.ID != id {
		f.state = State[T]{ID: id}
	}
	f.state.Status = StatusLoading
	f.state.Err = nil
	loading, l := f.state, f.listener
	f.mu.Unlock()
	notify(l, loading)

	res := f.run(ctx, id, force)

	f.mu.Lock()
	if seq != f.seq {
		current := f.state
		f.mu.Unlock()
		f.log.Debug("detail response discarded", zap.String("id", id), zap.Uint64("seq", seq))
		return current
	}
	next := State[T]{ID: id, FetchedAt: res.FetchedAt, Err: res.Err}
	switch {
	case res.HasData:
		next.Data = res.Data
		next.HasData = true
	case f.state.HasData:
		next.Data = f.state.Data
		next.HasData = true
		next.FetchedAt = f.state.FetchedAt
	}
	if res.Err != nil {
		next.Status = StatusError
	} else {
		next.Status = StatusReady
	}
	f.state = next
	l = f.listener
	f.mu.Unlock()

	notify(l, next)
	return next
}

func (f *Fetcher[T]) run(ctx context.Context, id string, force bool) query.Result[T] {
	if f.client == nil {
		v, err := f.load(ctx, id)
		if err != nil {
			return query.Result[T]{Err: apierr.Ensure(err, "load "+id)}
		}
		return query.Result[T]{Data: v, HasData: true, FetchedAt: time.Now()}
	}

	if force {
		if err := f.client.InvalidateDetail(ctx, f.resource, id); err != nil {
			f.log.Warn("detail invalidation failed", zap.String("id", id), zap.Error(err))
		}
	}
	key := f.client.DetailKey(f.resource, id)
	return query.Fetch(ctx, f.client, f.resource, key, func(ctx context.Context) (T, error) {
		return f.load(ctx, id)
	})
}

func notify[T any](l Listener[T], st State[T]) {
	if l != nil {
		l(st)
	}
}
