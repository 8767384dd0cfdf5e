package cache

import (
	"context"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

// FetchFn is the function signature CacheService expects when fetching from the source of truth.
type FetchFn[T any] func(ctx context.Context) (T, error)

// CacheService exposes the read-through operations the query layer needs.
// Implementations must share one in-flight fetch between concurrent callers of the same key.
type CacheService interface {
	GetOrFetch(ctx context.Context, key string, fetchFn FetchFn[any]) (any, error)
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	InvalidateKeys(ctx context.Context, keys []string) error
	Keys() []string
}

// TextCodeTypeMismatch marks a stored value that is not of the requested type,
// which means two readers share a key with different entity types.
const TextCodeTypeMismatch = "CACHE_TYPE_MISMATCH"

// GetOrFetch is a type-safe wrapper function that provides generic support for CacheService.
// A nil stored value yields the zero T. Any other value of the wrong type is an internal error.
func GetOrFetch[T any](ctx context.Context, service CacheService, key string, fetchFn FetchFn[T]) (T, error) {
	var zero T
	result, err := service.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		return fetchFn(ctx)
	})
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}
	typed, ok := result.(T)
	if !ok {
		return zero, goerrors.New(fmt.Sprintf("cached value has type %T, want %T", result, zero), goerrors.CategoryInternal).
			WithTextCode(TextCodeTypeMismatch).
			WithMetadata(map[string]any{"key": key})
	}
	return typed, nil
}
