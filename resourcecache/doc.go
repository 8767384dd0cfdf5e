// Package resourcecache decorates a resources.Source with the query cache.
//
// # Overview
//
// A CachedResource wraps the uncached REST source of one resource. Reads go
// through query.Fetch under list and detail keys built from the resource
// definition, so a page that is still fresh is served without a request and
// concurrent reads of the same page share one. Writes go straight to the base
// source through mutation.Do and, when they succeed, invalidate what they made
// stale.
//
// # Basic Usage
//
//	api, _ := transport.New("https://inspect.example.com/api")
//	client := query.New()
//	_ = client.Register(resources.NameDrivers, resources.Drivers.CacheConfig(cache.DefaultConfig()))
//
//	drivers := resourcecache.New(resources.NewREST[resources.Driver](api, resources.Drivers), resources.Drivers, client)
//	page, err := drivers.List(ctx, listquery.New(10).WithSearch("otieno"))
//
// # Invalidation
//
//   - Create drops every list key of the resource
//   - Update and Delete drop every list key and the detail key of the id
//   - Related resources of the definition lose all their keys
//
// Detail keys of other entities survive a mutation. When a refetch after an
// invalidation fails, ListResult and GetResult still carry the last data.
package resourcecache
