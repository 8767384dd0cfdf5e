package cache

import (
	"context"
	"time"

	"github.com/goliatone/go-resource-query/internal/cacheinfra"
)

// Config exposes the cache options of one resource namespace.
// StaleAfter is the window in which a cached entry is served without fetching.
// Namespace only labels errors; query.Client.Register fills it in.
type Config struct {
	Namespace          string
	Capacity           int
	NumShards          int
	StaleAfter         time.Duration
	EvictionPercentage int
	EarlyRefresh       *EarlyRefreshConfig
	EvictionInterval   time.Duration
}

// EarlyRefreshConfig mirrors the underlying sturdyc early refresh options.
// When set, entries close to StaleAfter are revalidated in the background while
// the cached value keeps being served.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration
	MaxAsyncRefreshTime time.Duration
	SyncRefreshTime     time.Duration
	RetryBaseDelay      time.Duration
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return convertFromInternal(cacheinfra.DefaultConfig())
}

// WithStaleAfter returns a copy using d as the stale window.
func (c Config) WithStaleAfter(d time.Duration) Config {
	c.StaleAfter = d
	return c
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return c.toInternal().Validate()
}

// NewCacheService constructs the default cache service implementation using the provided configuration.
func NewCacheService(cfg Config) (CacheService, error) {
	svc, err := cacheinfra.NewSturdycService(cfg.toInternal())
	if err != nil {
		return nil, err
	}
	return adapter{svc}, nil
}

// adapter converts between the typed FetchFn and the infra layer's plain func.
type adapter struct {
	*cacheinfra.SturdycService
}

func (a adapter) GetOrFetch(ctx context.Context, key string, fetchFn FetchFn[any]) (any, error) {
	return a.SturdycService.GetOrFetch(ctx, key, fetchFn)
}

func (c Config) toInternal() cacheinfra.Config {
	var early *cacheinfra.EarlyRefreshConfig
	if c.EarlyRefresh != nil {
		early = &cacheinfra.EarlyRefreshConfig{
			MinAsyncRefreshTime: c.EarlyRefresh.MinAsyncRefreshTime,
			MaxAsyncRefreshTime: c.EarlyRefresh.MaxAsyncRefreshTime,
			SyncRefreshTime:     c.EarlyRefresh.SyncRefreshTime,
			RetryBaseDelay:      c.EarlyRefresh.RetryBaseDelay,
		}
	}

	return cacheinfra.Config{
		Namespace:          c.Namespace,
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		StaleAfter:         c.StaleAfter,
		EvictionPercentage: c.EvictionPercentage,
		EarlyRefresh:       early,
		EvictionInterval:   c.EvictionInterval,
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	var early *EarlyRefreshConfig
	if cfg.EarlyRefresh != nil {
		early = &EarlyRefreshConfig{
			MinAsyncRefreshTime: cfg.EarlyRefresh.MinAsyncRefreshTime,
			MaxAsyncRefreshTime: cfg.EarlyRefresh.MaxAsyncRefreshTime,
			SyncRefreshTime:     cfg.EarlyRefresh.SyncRefreshTime,
			RetryBaseDelay:      cfg.EarlyRefresh.RetryBaseDelay,
		}
	}

	return Config{
		Namespace:          cfg.Namespace,
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		StaleAfter:         cfg.StaleAfter,
		EvictionPercentage: cfg.EvictionPercentage,
		EarlyRefresh:       early,
		EvictionInterval:   cfg.EvictionInterval,
	}
}
