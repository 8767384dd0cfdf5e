// Package config loads the client configuration from a YAML file and the environment.
package config

import (
	"errors"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/goliatone/go-resource-query/cache"
	"github.com/goliatone/go-resource-query/debounce"
	"github.com/goliatone/go-resource-query/listquery"
	"github.com/goliatone/go-resource-query/pagination"
	"github.com/goliatone/go-resource-query/query"
	"github.com/goliatone/go-resource-query/resources"
	"github.com/goliatone/go-resource-query/transport"
)

// EnvPrefix starts every environment override. Double underscores separate
// levels, so INSPECT__API__BASE_URL sets api.base_url.
const EnvPrefix = "INSPECT__"

// Config is the top-level client configuration.
type Config struct {
	API    APIConfig    `koanf:"api" json:"api"`
	Cache  CacheConfig  `koanf:"cache" json:"cache"`
	View   ViewConfig   `koanf:"view" json:"view"`
	Log    LogConfig    `koanf:"log" json:"log"`
	Report ReportConfig `koanf:"report" json:"report"`
}

// APIConfig points the transport at the backend.
type APIConfig struct {
	BaseURL   string        `koanf:"base_url" json:"base_url"`
	Timeout   time.Duration `koanf:"timeout" json:"timeout"`
	Token     string        `koanf:"token" json:"token"`
	TokenFile string        `koanf:"token_file" json:"token_file"`
	UserAgent string        `koanf:"user_agent" json:"user_agent"`
}

// CacheConfig sizes the query cache. Resources overrides the stale window of
// single resources by name.
type CacheConfig struct {
	Capacity           int                      `koanf:"capacity" json:"capacity"`
	NumShards          int                      `koanf:"num_shards" json:"num_shards"`
	EvictionPercentage int                      `koanf:"eviction_percentage" json:"eviction_percentage"`
	StaleAfter         time.Duration            `koanf:"stale_after" json:"stale_after"`
	IdleAfter          time.Duration            `koanf:"idle_after" json:"idle_after"`
	HashKeys           bool                     `koanf:"hash_keys" json:"hash_keys"`
	Resources          map[string]time.Duration `koanf:"resources" json:"resources"`
}

// ViewConfig tunes list views.
type ViewConfig struct {
	PageSize     int           `koanf:"page_size" json:"page_size"`
	SearchDelay  time.Duration `koanf:"search_delay" json:"search_delay"`
	PageCooldown time.Duration `koanf:"page_cooldown" json:"page_cooldown"`
}

// LogConfig selects the level and encoding of the logger.
type LogConfig struct {
	Level  string `koanf:"level" json:"level"`
	Format string `koanf:"format" json:"format"`
}

// ReportConfig formats printable reports.
type ReportConfig struct {
	Timezone string `koanf:"timezone" json:"timezone"`
	Currency string `koanf:"currency" json:"currency"`
}

// Default returns the configuration used for every key the sources leave out.
func Default() Config {
	base := cache.DefaultConfig()
	return Config{
		API: APIConfig{
			Timeout:   transport.DefaultTimeout,
			UserAgent: "go-resource-query",
		},
		Cache: CacheConfig{
			Capacity:           base.Capacity,
			NumShards:          base.NumShards,
			EvictionPercentage: base.EvictionPercentage,
			StaleAfter:         base.StaleAfter,
			IdleAfter:          query.DefaultIdleAfter,
		},
		View: ViewConfig{
			PageSize:     listquery.DefaultLimit,
			SearchDelay:  debounce.DefaultDelay,
			PageCooldown: pagination.DefaultCooldown,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Report: ReportConfig{
			Timezone: "UTC",
			Currency: "KES",
		},
	}
}

// Load reads path, when given, and overlays environment variables on top of
// the defaults. A missing file is an error; an empty path skips the file.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to load config file").
				WithMetadata(map[string]any{"path": path})
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to load environment")
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to unmarshal config")
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKey maps INSPECT__CACHE__STALE_AFTER to cache.stale_after. Single
// underscores stay part of the key name.
func envKey(s string) string {
	key := strings.TrimPrefix(s, EnvPrefix)
	key = strings.ToLower(key)
	return strings.ReplaceAll(key, "__", ".")
}

func (c *Config) normalize() {
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	c.API.Token = strings.TrimSpace(c.API.Token)
	c.API.TokenFile = strings.TrimSpace(c.API.TokenFile)
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	c.Report.Currency = strings.ToUpper(strings.TrimSpace(c.Report.Currency))
}

// Validate checks every section. Field errors are keyed by their config path.
func (c Config) Validate() error {
	err := validation.Errors{
		"api": validation.ValidateStruct(&c.API,
			validation.Field(&c.API.BaseURL, validation.Required, is.URL),
			validation.Field(&c.API.Timeout, validation.Min(time.Duration(0))),
		),
		"cache": validation.ValidateStruct(&c.Cache,
			validation.Field(&c.Cache.Capacity, validation.Required, validation.Min(1)),
			validation.Field(&c.Cache.NumShards, validation.Required, validation.Min(1)),
			validation.Field(&c.Cache.EvictionPercentage, validation.Required, validation.Min(1), validation.Max(100)),
			validation.Field(&c.Cache.StaleAfter, validation.Required, validation.Min(time.Duration(0))),
			validation.Field(&c.Cache.IdleAfter, validation.Min(time.Duration(0))),
			validation.Field(&c.Cache.Resources, validation.By(knownResources)),
		),
		"view": validation.ValidateStruct(&c.View,
			validation.Field(&c.View.PageSize, validation.Required, validation.Min(1), validation.Max(listquery.MaxLimit)),
			validation.Field(&c.View.SearchDelay, validation.Min(time.Duration(0))),
			validation.Field(&c.View.PageCooldown, validation.Min(time.Duration(0))),
		),
		"log": validation.ValidateStruct(&c.Log,
			validation.Field(&c.Log.Level, validation.In("debug", "info", "warn", "error")),
			validation.Field(&c.Log.Format, validation.In("json", "console")),
		),
		"report": validation.ValidateStruct(&c.Report,
			validation.Field(&c.Report.Timezone, validation.By(validTimezone)),
			validation.Field(&c.Report.Currency, validation.Length(3, 3)),
		),
	}.Filter()
	if err == nil {
		return nil
	}
	return goerrors.NewValidation("invalid configuration", flatten("", err)...)
}

func knownResources(value any) error {
	overrides, _ := value.(map[string]time.Duration)
	for name, ttl := range overrides {
		if _, ok := resources.Lookup(name); !ok {
			return errors.New("unknown resource " + name)
		}
		if ttl < 0 {
			return errors.New("stale window of " + name + " must not be negative")
		}
	}
	return nil
}

func validTimezone(value any) error {
	tz, _ := value.(string)
	if tz == "" {
		return nil
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return errors.New("unknown time zone")
	}
	return nil
}

// flatten turns nested ozzo errors into field errors with dotted paths.
func flatten(prefix string, err error) []goerrors.FieldError {
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return []goerrors.FieldError{{Field: prefix, Message: err.Error()}}
	}
	var out []goerrors.FieldError
	for field, ferr := range errs {
		if ferr == nil {
			continue
		}
		path := field
		if prefix != "" {
			path = prefix + "." + field
		}
		out = append(out, flatten(path, ferr)...)
	}
	return out
}

// CacheFor returns the cache namespace config of def, with its stale window
// overridden when the configuration names it.
func (c Config) CacheFor(def resources.Definition) cache.Config {
	base := cache.DefaultConfig()
	base.Capacity = c.Cache.Capacity
	base.NumShards = c.Cache.NumShards
	base.EvictionPercentage = c.Cache.EvictionPercentage
	base.StaleAfter = c.Cache.StaleAfter
	if ttl, ok := c.Cache.Resources[def.Name]; ok && ttl > 0 {
		def = def.WithStaleAfter(ttl)
	}
	return def.CacheConfig(base)
}

// DefaultCache is the namespace config of resources without a definition.
func (c Config) DefaultCache() cache.Config {
	base := cache.DefaultConfig()
	base.Capacity = c.Cache.Capacity
	base.NumShards = c.Cache.NumShards
	base.EvictionPercentage = c.Cache.EvictionPercentage
	base.StaleAfter = c.Cache.StaleAfter
	return base
}

// TokenSource returns where the bearer token comes from: the token itself when
// set, otherwise the token file, otherwise nothing.
func (c Config) TokenSource() transport.TokenSource {
	switch {
	case c.API.Token != "":
		return transport.StaticToken(c.API.Token)
	case c.API.TokenFile != "":
		return transport.FileToken{Path: expandHome(c.API.TokenFile)}
	default:
		return nil
	}
}

// Location returns the report time zone, UTC when unset.
func (c Config) Location() *time.Location {
	if c.Report.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Report.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return home + path[1:]
}
