package query

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/goliatone/go-resource-query/apierr"
	"github.com/goliatone/go-resource-query/cache"
)

// Result is what a read hands back to a view.
//
// Err and Data can both be set: HasData with a non-nil Err means the fetch failed
// and Data is the last successful value for the key.
type Result[T any] struct {
	Data      T
	HasData   bool
	Err       error
	FetchedAt time.Time
	FromCache bool
}

// Stale reports a failed fetch that still carries earlier data.
func (r Result[T]) Stale() bool {
	return r.Err != nil && r.HasData
}

// Snapshot is the read-only state of one key.
type Snapshot struct {
	Resource  string
	Loading   bool
	HasData   bool
	Err       error
	FetchedAt time.Time
	LastRead  time.Time
}

type entry struct {
	mu        sync.Mutex
	resource  string
	data      any
	hasData   bool
	err       error
	fetchedAt time.Time
	lastRead  time.Time
	inFlight  int
}

func (e *entry) snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		Resource:  e.resource,
		Loading:   e.inFlight > 0,
		HasData:   e.hasData,
		Err:       e.err,
		FetchedAt: e.fetchedAt,
		LastRead:  e.lastRead,
	}
}

func (e *entry) idle(now time.Time, after time.Duration) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inFlight == 0 && now.Sub(e.lastRead) >= after
}

func (e *entry) begin(now time.Time) {
	e.mu.Lock()
	e.inFlight++
	e.lastRead = now
	e.mu.Unlock()
}

// finish records the outcome and returns the data to hand out. A successful
// value replaces the previous one; a failure keeps it. A value that was
// superseded by an invalidation is handed out but not recorded.
func (e *entry) finish(v any, fetchedAt time.Time, err error, superseded bool) (data any, hasData bool, at time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inFlight--
	switch {
	case err != nil:
		e.err = err
	case superseded:
		return v, true, fetchedAt
	default:
		e.data = v
		e.hasData = true
		e.fetchedAt = fetchedAt
		e.err = nil
	}
	return e.data, e.hasData, e.fetchedAt
}

// Fetch reads key of resource through the cache, calling fn only on a miss.
// The error in the result is always classified by apierr.
func Fetch[T any](ctx context.Context, c *Client, resource, key string, fn cache.FetchFn[T]) Result[T] {
	ns := cache.Namespace(resource)
	ctx, span := c.tracer.Start(ctx, "query.fetch", trace.WithAttributes(
		attribute.String("query.resource", ns),
		attribute.String("query.key", key),
	))
	defer span.End()

	svc, err := c.service(resource)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cache unavailable")
		return Result[T]{Err: apierr.Ensure(err, "cache unavailable for "+ns)}
	}

	start := c.clock.Now()
	c.maybePrune(start)
	e := c.entry(resource, key)
	e.begin(start)

	var (
		fetched    atomic.Bool
		superseded bool
		v          stamped[T]
	)
	for attempt := 0; ; attempt++ {
		v, err = cache.GetOrFetch(ctx, svc, key, func(ctx context.Context) (stamped[T], error) {
			fetched.Store(true)
			gen := c.gens.of(resource, key)
			data, err := fn(ctx)
			if err != nil {
				return stamped[T]{}, err
			}
			return stamped[T]{value: data, gen: gen, fetchedAt: c.clock.Now()}, nil
		})
		if err != nil || v.gen == c.gens.of(resource, key) {
			break
		}
		// the value was fetched before an invalidation of key and must not be read again
		if derr := svc.Delete(ctx, key); derr != nil {
			c.log.Warn("query drop superseded value failed", zap.String("resource", ns), zap.String("key", key), zap.Error(derr))
		}
		if fetched.Load() || attempt > 0 {
			superseded = true
			break
		}
	}
	if err != nil {
		err = apierr.Ensure(err, "fetch "+ns)
	}

	var value any
	if err == nil {
		value = v.value
	}
	data, hasData, fetchedAt := e.finish(value, v.fetchedAt, err, superseded)

	res := Result[T]{
		Err:       err,
		FetchedAt: fetchedAt,
		FromCache: err == nil && !fetched.Load(),
	}
	if hasData {
		if typed, ok := data.(T); ok {
			res.Data = typed
			res.HasData = true
		}
	}

	span.SetAttributes(attribute.Bool("query.cache_hit", res.FromCache))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apierr.Message(err))
		c.log.Warn("query fetch failed",
			zap.String("resource", ns),
			zap.String("key", key),
			zap.Bool("kept_previous", res.HasData),
			zap.Error(err),
		)
		return res
	}

	if res.FromCache {
		c.log.Debug("query cache hit", zap.String("resource", ns), zap.String("key", key))
	} else {
		c.log.Debug("query fetched",
			zap.String("resource", ns),
			zap.String("key", key),
			zap.Duration("took", c.clock.Since(start)),
		)
	}
	return res
}

// Peek returns the last successful value of key without fetching.
func Peek[T any](c *Client, key string) (T, bool) {
	var zero T
	e, ok := c.snapshots.Load(key)
	if !ok {
		return zero, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.hasData {
		return zero, false
	}
	typed, ok := e.data.(T)
	return typed, ok
}
