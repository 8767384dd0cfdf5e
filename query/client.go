// Package query is the keyed, time-boxed cache every list and detail read goes through.
//
// A fetch for a key that is still fresh is served without calling the fetch function.
// Concurrent fetches for the same key share one upstream call. When a fetch fails the
// data of the last successful fetch for that key is returned next to the error, so a
// view can offer a retry without dropping what it already shows.
package query

import (
	"context"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/puzpuzpuz/xsync/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/goliatone/go-resource-query/cache"
)

const tracerName = "github.com/goliatone/go-resource-query/query"

// DefaultIdleAfter is how long an unread snapshot is kept.
const DefaultIdleAfter = 10 * time.Minute

// Client owns every cache entry. Views only read Results and Snapshots.
type Client struct {
	mu       sync.RWMutex
	services map[string]cache.CacheService
	defaults cache.Config

	keys      cache.KeySerializer
	snapshots *xsync.MapOf[string, *entry]
	gens      *generations

	clock     clock.Clock
	idleAfter time.Duration
	lastPrune atomic.Int64

	log    *zap.Logger
	tracer trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithClock replaces the wall clock, mostly for tests.
func WithClock(clk clock.Clock) Option {
	return func(c *Client) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithIdleAfter sets how long a snapshot may go unread before Prune drops it.
// Zero disables idle eviction.
func WithIdleAfter(d time.Duration) Option {
	return func(c *Client) { c.idleAfter = d }
}

// WithKeySerializer replaces the default key serializer.
func WithKeySerializer(keys cache.KeySerializer) Option {
	return func(c *Client) {
		if keys != nil {
			c.keys = keys
		}
	}
}

// WithDefaultConfig sets the cache config used for resources that were never registered.
func WithDefaultConfig(cfg cache.Config) Option {
	return func(c *Client) { c.defaults = cfg }
}

// WithTracer replaces the tracer taken from the global provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// New creates a Client.
func New(opts ...Option) *Client {
	c := &Client{
		services:  make(map[string]cache.CacheService),
		defaults:  cache.DefaultConfig(),
		keys:      cache.NewDefaultKeySerializer(),
		snapshots: xsync.NewMapOf[string, *entry](),
		gens:      newGenerations(),
		clock:     clock.New(),
		idleAfter: DefaultIdleAfter,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	c.lastPrune.Store(c.clock.Now().UnixNano())
	return c
}

// Register gives resource its own cache namespace built from cfg.
// Registering a resource again replaces its namespace and drops what it held.
func (c *Client) Register(resource string, cfg cache.Config) error {
	if cfg.Namespace == "" {
		cfg.Namespace = cache.Namespace(resource)
	}
	svc, err := cache.NewCacheService(cfg)
	if err != nil {
		return err
	}
	c.RegisterService(resource, svc)
	c.log.Debug("query resource registered",
		zap.String("resource", cache.Namespace(resource)),
		zap.Duration("stale_after", cfg.StaleAfter),
		zap.Int("capacity", cfg.Capacity),
	)
	return nil
}

// RegisterService installs a prebuilt CacheService for resource.
func (c *Client) RegisterService(resource string, svc cache.CacheService) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[cache.Namespace(resource)] = svc
}

// Keys returns the serializer used to build keys for this client.
func (c *Client) Keys() cache.KeySerializer {
	return c.keys
}

// ListKey builds a list key for resource.
func (c *Client) ListKey(resource string, params url.Values) string {
	return c.keys.SerializeKey(resource, cache.OpList, params)
}

// DetailKey builds the detail key of one entity.
func (c *Client) DetailKey(resource, id string) string {
	return c.keys.SerializeKey(resource, cache.OpDetail, cache.DetailParams(id))
}

func (c *Client) service(resource string) (cache.CacheService, error) {
	ns := cache.Namespace(resource)

	c.mu.RLock()
	svc, ok := c.services[ns]
	c.mu.RUnlock()
	if ok {
		return svc, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if svc, ok := c.services[ns]; ok {
		return svc, nil
	}
	svc, err := cache.NewCacheService(c.defaults)
	if err != nil {
		return nil, err
	}
	c.services[ns] = svc
	c.log.Debug("query resource registered with defaults", zap.String("resource", ns))
	return svc, nil
}

func (c *Client) registered(resource string) (cache.CacheService, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	svc, ok := c.services[cache.Namespace(resource)]
	return svc, ok
}

// Invalidate drops every cached key of resource so the next read refetches.
// Snapshots keep their last data so a failing refetch can still show it.
// A fetch still in flight is handed to its callers but never stored for later reads.
func (c *Client) Invalidate(ctx context.Context, resource string) error {
	c.gens.bumpResource(resource)
	svc, ok := c.registered(resource)
	if !ok {
		return nil
	}
	if err := svc.DeleteByPrefix(ctx, cache.Prefix(resource)); err != nil {
		return err
	}
	c.log.Debug("query resource invalidated", zap.String("resource", cache.Namespace(resource)))
	return nil
}

// InvalidateLists drops every list key of resource and keeps its detail keys.
func (c *Client) InvalidateLists(ctx context.Context, resource string) error {
	c.gens.bumpLists(resource)
	svc, ok := c.registered(resource)
	if !ok {
		return nil
	}
	return svc.DeleteByPrefix(ctx, cache.OpPrefix(resource, cache.OpList))
}

// InvalidateDetail drops the detail key of one entity.
func (c *Client) InvalidateDetail(ctx context.Context, resource, id string) error {
	return c.InvalidateKey(ctx, resource, c.DetailKey(resource, id))
}

// InvalidateKey drops a single key of resource.
func (c *Client) InvalidateKey(ctx context.Context, resource, key string) error {
	c.gens.bumpKey(key)
	svc, ok := c.registered(resource)
	if !ok {
		return nil
	}
	return svc.Delete(ctx, key)
}

// Snapshot returns the read-only state of key. The zero Snapshot means the key was never fetched.
func (c *Client) Snapshot(key string) Snapshot {
	e, ok := c.snapshots.Load(key)
	if !ok {
		return Snapshot{}
	}
	return e.snapshot()
}

// Prune drops snapshots that were not read for the idle period and are not loading.
// It returns how many were dropped.
func (c *Client) Prune() int {
	if c.idleAfter <= 0 {
		return 0
	}
	now := c.clock.Now()
	c.lastPrune.Store(now.UnixNano())

	var stale []string
	c.snapshots.Range(func(key string, e *entry) bool {
		if e.idle(now, c.idleAfter) {
			stale = append(stale, key)
		}
		return true
	})
	for _, key := range stale {
		c.snapshots.Delete(key)
	}
	if len(stale) > 0 {
		c.log.Debug("query snapshots pruned", zap.Int("count", len(stale)))
	}
	return len(stale)
}

func (c *Client) maybePrune(now time.Time) {
	if c.idleAfter <= 0 {
		return
	}
	last := time.Unix(0, c.lastPrune.Load())
	if now.Sub(last) >= c.idleAfter/2 {
		c.Prune()
	}
}

func (c *Client) entry(resource, key string) *entry {
	e, _ := c.snapshots.LoadOrStore(key, &entry{resource: cache.Namespace(resource)})
	return e
}
