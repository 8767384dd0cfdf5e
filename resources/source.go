package resources

import (
	"context"
	"net/http"
	"net/url"

	"github.com/goliatone/go-resource-query/apierr"
	"github.com/goliatone/go-resource-query/listquery"
	"github.com/goliatone/go-resource-query/transport"
)

// Source is the uncached contract every resource is served through.
type Source[T any] interface {
	List(ctx context.Context, q listquery.ListQuery) (listquery.PageResult[T], error)
	Get(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, entity T) (T, error)
	Update(ctx context.Context, id string, entity T) (T, error)
	Delete(ctx context.Context, id string) error
}

// API is the part of transport.Client a REST source needs.
type API interface {
	Get(ctx context.Context, path string, params url.Values) ([]byte, error)
	Post(ctx context.Context, path string, body any) ([]byte, error)
	Put(ctx context.Context, path string, body any) ([]byte, error)
	Delete(ctx context.Context, path string) ([]byte, error)
}

var _ API = (*transport.Client)(nil)

// REST serves a resource from its endpoints.
type REST[T any] struct {
	def Definition
	api API
}

var _ Source[Driver] = (*REST[Driver])(nil)

// NewREST creates a REST source for def.
func NewREST[T any](api API, def Definition) *REST[T] {
	return &REST[T]{def: def, api: api}
}

// Definition returns the resource this source serves.
func (r *REST[T]) Definition() Definition {
	return r.def
}

// List validates q locally and fetches one page. An empty page is a result, not an error.
func (r *REST[T]) List(ctx context.Context, q listquery.ListQuery) (listquery.PageResult[T], error) {
	if r.def.DetailOnly {
		return listquery.PageResult[T]{}, apierr.General(http.StatusMethodNotAllowed, r.def.Name+" has no list endpoint")
	}
	if err := q.Validate(); err != nil {
		return listquery.PageResult[T]{}, apierr.FromValidation(err, "invalid "+r.def.Name+" query")
	}
	body, err := r.api.Get(ctx, r.def.Path, r.def.Encode(q))
	if err != nil {
		return listquery.PageResult[T]{}, err
	}
	return transport.DecodeList[T](r.def.Envelope, body)
}

// Get fetches one entity. For a detail-only resource an empty id reads the
// resource path itself.
func (r *REST[T]) Get(ctx context.Context, id string) (T, error) {
	path := r.def.Path
	if id != "" {
		path = r.def.ItemPath(id)
	}
	body, err := r.api.Get(ctx, path, nil)
	if err != nil {
		var zero T
		return zero, err
	}
	return transport.DecodeItem[T](body)
}

func (r *REST[T]) Create(ctx context.Context, entity T) (T, error) {
	body, err := r.api.Post(ctx, r.def.Path, entity)
	if err != nil {
		var zero T
		return zero, err
	}
	return transport.DecodeItem[T](body)
}

func (r *REST[T]) Update(ctx context.Context, id string, entity T) (T, error) {
	body, err := r.api.Put(ctx, r.def.ItemPath(id), entity)
	if err != nil {
		var zero T
		return zero, err
	}
	return transport.DecodeItem[T](body)
}

func (r *REST[T]) Delete(ctx context.Context, id string) error {
	_, err := r.api.Delete(ctx, r.def.ItemPath(id))
	return err
}
