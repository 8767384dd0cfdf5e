// Package cacheinfra backs one resource namespace of the query cache with sturdyc.
package cacheinfra

import (
	"context"
	"strings"
	"time"

	"github.com/viccon/sturdyc"
)

// Config sizes the sturdyc client of a single resource namespace.
type Config struct {
	// Namespace names the resource in errors. Optional.
	Namespace string

	// Capacity bounds the entries of the namespace. When it is reached
	// EvictionPercentage of them are dropped, least recently used first.
	Capacity int

	// NumShards splits the entries to reduce lock contention. Capacity is
	// spread across shards, so it must be at least NumShards.
	NumShards int

	// StaleAfter is how long an entry answers reads before the fetch runs again.
	StaleAfter time.Duration

	// EvictionPercentage is between 1 and 100.
	EvictionPercentage int

	// EarlyRefresh revalidates hot entries in the background shortly before
	// they go stale. Nil lets entries expire at StaleAfter.
	EarlyRefresh *EarlyRefreshConfig

	// EvictionInterval is how often expired entries are swept; zero keeps the
	// sturdyc default.
	EvictionInterval time.Duration
}

// EarlyRefreshConfig is passed to sturdyc.WithEarlyRefreshes as is.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration
	MaxAsyncRefreshTime time.Duration
	SyncRefreshTime     time.Duration
	RetryBaseDelay      time.Duration
}

// DefaultConfig holds a few hundred pages of one list resource for five
// minutes, without background refresh.
func DefaultConfig() Config {
	return Config{
		Capacity:           500,
		NumShards:          8,
		StaleAfter:         5 * time.Minute,
		EvictionPercentage: 10,
	}
}

// options returns the sturdyc options beyond the positional constructor
// arguments.
func (c Config) options() []sturdyc.Option {
	var opts []sturdyc.Option
	if e := c.EarlyRefresh; e != nil {
		opts = append(opts, sturdyc.WithEarlyRefreshes(e.MinAsyncRefreshTime, e.MaxAsyncRefreshTime, e.SyncRefreshTime, e.RetryBaseDelay))
	}
	if c.EvictionInterval > 0 {
		opts = append(opts, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}
	return opts
}

// Validate reports the first invalid field as a *ConfigError.
func (c Config) Validate() error {
	fail := func(field, msg string) error {
		return &ConfigError{Namespace: c.Namespace, Field: field, Message: msg}
	}

	switch {
	case c.Capacity <= 0:
		return fail("Capacity", "must be greater than 0")
	case c.NumShards <= 0:
		return fail("NumShards", "must be greater than 0")
	case c.Capacity < c.NumShards:
		return fail("Capacity", "must be at least NumShards")
	case c.StaleAfter <= 0:
		return fail("StaleAfter", "must be greater than 0")
	case c.EvictionPercentage < 1 || c.EvictionPercentage > 100:
		return fail("EvictionPercentage", "must be between 1 and 100")
	}

	if e := c.EarlyRefresh; e != nil {
		if e.MinAsyncRefreshTime < 0 || e.MaxAsyncRefreshTime < 0 || e.SyncRefreshTime < 0 || e.RetryBaseDelay < 0 {
			return fail("EarlyRefresh", "durations must be non-negative")
		}
		if e.MinAsyncRefreshTime > e.MaxAsyncRefreshTime {
			return fail("EarlyRefresh.MinAsyncRefreshTime", "must not exceed MaxAsyncRefreshTime")
		}
		if e.MaxAsyncRefreshTime >= c.StaleAfter {
			return fail("EarlyRefresh.MaxAsyncRefreshTime", "must be shorter than StaleAfter")
		}
	}
	return nil
}

// ConfigError is returned for an invalid Config or a call the service cannot serve.
type ConfigError struct {
	Namespace string
	Field     string
	Message   string
}

func (e *ConfigError) Error() string {
	if e.Namespace == "" {
		return "cache config: " + e.Field + " " + e.Message
	}
	return "cache config " + e.Namespace + ": " + e.Field + " " + e.Message
}

// SturdycService is the cache of one namespace. Concurrent misses of a key
// share one call of the fetch function; failed fetches are not stored.
type SturdycService struct {
	namespace string
	client    *sturdyc.Client[any]
}

// NewSturdycService validates cfg and builds the sturdyc client.
func NewSturdycService(cfg Config) (*SturdycService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := sturdyc.New[any](cfg.Capacity, cfg.NumShards, cfg.StaleAfter, cfg.EvictionPercentage, cfg.options()...)
	return &SturdycService{namespace: cfg.Namespace, client: client}, nil
}

// GetOrFetch returns the fresh entry of key or stores what fetchFn returns.
func (s *SturdycService) GetOrFetch(ctx context.Context, key string, fetchFn func(context.Context) (any, error)) (any, error) {
	if fetchFn == nil {
		return nil, &ConfigError{Namespace: s.namespace, Field: "fetchFn", Message: "cannot be nil"}
	}
	return s.client.GetOrFetch(ctx, key, fetchFn)
}

// Delete drops key.
func (s *SturdycService) Delete(_ context.Context, key string) error {
	s.client.Delete(key)
	return nil
}

// DeleteByPrefix drops every key starting with prefix, such as all the list
// pages of the namespace.
func (s *SturdycService) DeleteByPrefix(_ context.Context, prefix string) error {
	for _, key := range s.KeysWithPrefix(prefix) {
		s.client.Delete(key)
	}
	return nil
}

// InvalidateKeys drops keys.
func (s *SturdycService) InvalidateKeys(_ context.Context, keys []string) error {
	for _, key := range keys {
		s.client.Delete(key)
	}
	return nil
}

// Keys lists the keys held, in no particular order.
func (s *SturdycService) Keys() []string {
	return s.client.ScanKeys()
}

// KeysWithPrefix lists the held keys starting with prefix.
func (s *SturdycService) KeysWithPrefix(prefix string) []string {
	var out []string
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			out = append(out, key)
		}
	}
	return out
}

// Size is the number of entries held, expired ones included until swept.
func (s *SturdycService) Size() int {
	return s.client.Size()
}
