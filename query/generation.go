package query

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/goliatone/go-resource-query/cache"
)

// generations counts invalidations per scope. The generation of a key is the sum
// of the counters of every scope covering it, so it moves only when an
// invalidation that could drop that key runs.
type generations struct {
	resources *xsync.MapOf[string, *atomic.Uint64]
	lists     *xsync.MapOf[string, *atomic.Uint64]
	keys      *xsync.MapOf[string, *atomic.Uint64]
}

func newGenerations() *generations {
	return &generations{
		resources: xsync.NewMapOf[string, *atomic.Uint64](),
		lists:     xsync.NewMapOf[string, *atomic.Uint64](),
		keys:      xsync.NewMapOf[string, *atomic.Uint64](),
	}
}

func counter(m *xsync.MapOf[string, *atomic.Uint64], name string) *atomic.Uint64 {
	n, _ := m.LoadOrCompute(name, func() *atomic.Uint64 { return new(atomic.Uint64) })
	return n
}

func read(m *xsync.MapOf[string, *atomic.Uint64], name string) uint64 {
	if n, ok := m.Load(name); ok {
		return n.Load()
	}
	return 0
}

func (g *generations) bumpResource(resource string) {
	counter(g.resources, cache.Namespace(resource)).Add(1)
}

func (g *generations) bumpLists(resource string) {
	counter(g.lists, cache.Namespace(resource)).Add(1)
}

func (g *generations) bumpKey(key string) {
	counter(g.keys, key).Add(1)
}

func (g *generations) of(resource, key string) uint64 {
	ns := cache.Namespace(resource)
	gen := read(g.resources, ns) + read(g.keys, key)
	if strings.HasPrefix(key, cache.OpPrefix(resource, cache.OpList)) {
		gen += read(g.lists, ns)
	}
	return gen
}

// stamped is what the query layer stores: the value, the generation of its key
// when the upstream call started, and when that call returned.
type stamped[T any] struct {
	value     T
	gen       uint64
	fetchedAt time.Time
}
