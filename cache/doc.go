// Package cache provides the caching interfaces and key serialization used by the query layer.
//
// # Overview
//
// This package exports two main interfaces and their default implementations:
//
//   - CacheService: a read-through cache that shares one in-flight fetch per key
//   - KeySerializer: builds stable keys from a resource, an operation and request parameters
//
// Each resource (drivers, vehicles, violations, ...) gets its own CacheService built from
// its own Config, so staleness and capacity are set per resource. A search-heavy list can
// use a 30 second window while a statistics summary keeps 15 minutes.
//
// # Basic Usage
//
//	svc, err := cache.NewCacheService(cache.DefaultConfig().WithStaleAfter(30 * time.Second))
//	keys := cache.NewDefaultKeySerializer()
//	key := keys.SerializeKey("violations", cache.OpList, query.Values(opts))
//
//	page, err := cache.GetOrFetch(ctx, svc, key, func(ctx context.Context) (Page, error) {
//		return api.ListViolations(ctx, query)
//	})
//
// # Key Layout
//
// Keys are made of "::"-separated segments:
//
//	<namespace>::<operation>[::<encoded params>]
//
// The namespace is the resource name passed through Namespace, so every key of a
// resource starts with Prefix(resource) and a resource-wide invalidation is a single
// DeleteByPrefix call. The default serializer writes the url-encoded parameters, which
// are sorted by name. NewHashedKeySerializer replaces that segment with an xxhash digest
// for views with many filters.
//
// # Error Handling
//
// Fetch errors are returned to the caller and never cached. Keeping the last successful
// value around after a failure is the job of the query package, not of this one.
package cache
