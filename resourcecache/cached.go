package resourcecache

import (
	"context"
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/goliatone/go-resource-query/listquery"
	"github.com/goliatone/go-resource-query/mutation"
	"github.com/goliatone/go-resource-query/query"
	"github.com/goliatone/go-resource-query/resources"
)

var (
	_ resources.Source[resources.Driver] = (*CachedResource[resources.Driver])(nil)
	_ mutation.Invalidator               = (*query.Client)(nil)
)

// CachedResource decorates a resources.Source with the query cache.
type CachedResource[T any] struct {
	base   resources.Source[T]
	def    resources.Definition
	client *query.Client
	opts   []mutation.Option
	create *mutation.Controller[T, T]
	log    *zap.Logger
}

// Option configures a CachedResource.
type Option func(*cachedOptions)

type cachedOptions struct {
	log      *zap.Logger
	mutation []mutation.Option
}

// WithLogger sets the logger used for reads and mutations.
func WithLogger(log *zap.Logger) Option {
	return func(o *cachedOptions) {
		if log != nil {
			o.log = log
		}
	}
}

// WithMutationOptions passes opts to every mutation.
func WithMutationOptions(opts ...mutation.Option) Option {
	return func(o *cachedOptions) { o.mutation = append(o.mutation, opts...) }
}

// New wraps base. Reads of def go through client and mutations invalidate it.
func New[T any](base resources.Source[T], def resources.Definition, client *query.Client, opts ...Option) *CachedResource[T] {
	o := cachedOptions{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	mopts := append([]mutation.Option{mutation.WithLogger(o.log), mutation.WithRelatedResources(def.Related...)}, o.mutation...)
	c := &CachedResource[T]{
		base:   base,
		def:    def,
		client: client,
		opts:   mopts,
		log:    o.log,
	}
	c.create = mutation.New[T, T](client, mutation.OpCreate, def.Name, base.Create, c.createdIDs, mopts...)
	return c
}

// createdIDs drops a detail key the new id may already occupy.
func (c *CachedResource[T]) createdIDs(_ T, created T) []string {
	id, err := EntityID(created)
	if err != nil {
		c.log.Debug("created entity has no id", zap.String("resource", c.def.Name), zap.Error(err))
		return nil
	}
	return []string{id}
}

// Definition returns the resource being cached.
func (c *CachedResource[T]) Definition() resources.Definition {
	return c.def
}

// ListResult reads one page through the cache. On failure the result keeps the
// last page fetched for the same query.
func (c *CachedResource[T]) ListResult(ctx context.Context, q listquery.ListQuery) query.Result[listquery.PageResult[T]] {
	key := c.client.ListKey(c.def.Name, c.def.Encode(q))
	return query.Fetch(ctx, c.client, c.def.Name, key, func(ctx context.Context) (listquery.PageResult[T], error) {
		return c.base.List(ctx, q)
	})
}

// List reads one page through the cache.
func (c *CachedResource[T]) List(ctx context.Context, q listquery.ListQuery) (listquery.PageResult[T], error) {
	res := c.ListResult(ctx, q)
	if res.Err != nil {
		return listquery.PageResult[T]{}, res.Err
	}
	return res.Data, nil
}

// GetResult reads one entity through the cache.
func (c *CachedResource[T]) GetResult(ctx context.Context, id string) query.Result[T] {
	return query.Fetch(ctx, c.client, c.def.Name, c.client.DetailKey(c.def.Name, id), func(ctx context.Context) (T, error) {
		return c.base.Get(ctx, id)
	})
}

// Get reads one entity through the cache.
func (c *CachedResource[T]) Get(ctx context.Context, id string) (T, error) {
	res := c.GetResult(ctx, id)
	if res.Err != nil {
		var zero T
		return zero, res.Err
	}
	return res.Data, nil
}

// Load reads id from the base source, skipping the cache. It suits a
// detail.Fetcher that is given the query client itself.
func (c *CachedResource[T]) Load(ctx context.Context, id string) (T, error) {
	return c.base.Get(ctx, id)
}

// Create sends entity and invalidates every list of the resource.
func (c *CachedResource[T]) Create(ctx context.Context, entity T) (T, error) {
	return c.create.Mutate(ctx, entity)
}

// Update sends entity for id and invalidates the lists plus the detail of id.
func (c *CachedResource[T]) Update(ctx context.Context, id string, entity T) (T, error) {
	return mutation.Do(ctx, c.client, c.scope(mutation.OpUpdate, id), func(ctx context.Context) (T, error) {
		return c.base.Update(ctx, id, entity)
	}, c.opts...)
}

// Delete removes id and invalidates the lists plus the detail of id.
func (c *CachedResource[T]) Delete(ctx context.Context, id string) error {
	_, err := mutation.Do(ctx, c.client, c.scope(mutation.OpDelete, id), func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.base.Delete(ctx, id)
	}, c.opts...)
	return err
}

// Refresh drops every cached key of the resource.
func (c *CachedResource[T]) Refresh(ctx context.Context) error {
	return c.client.Invalidate(ctx, c.def.Name)
}

func (c *CachedResource[T]) scope(op string, ids ...string) mutation.Scope {
	return mutation.Scope{
		Op:       op,
		Resource: c.def.Name,
		IDs:      ids,
	}
}

type identified interface {
	GetID() string
}

// EntityID returns the id of entity, from GetID when it has one and otherwise
// from an ID or Id field.
func EntityID(entity any) (string, error) {
	if e, ok := entity.(identified); ok {
		return e.GetID(), nil
	}
	v := reflect.ValueOf(entity)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return "", fmt.Errorf("nil entity")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return "", fmt.Errorf("entity of kind %s has no id", v.Kind())
	}
	for _, name := range []string{"ID", "Id"} {
		field := v.FieldByName(name)
		if field.IsValid() && field.CanInterface() {
			return fmt.Sprintf("%v", field.Interface()), nil
		}
	}
	return "", fmt.Errorf("no ID field found in %s", v.Type())
}
