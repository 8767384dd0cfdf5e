// Package di wires the transport, the query cache and the resources of the
// inspection console from a config.Config.
package di

import (
	"net/http"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/goliatone/go-resource-query/cache"
	"github.com/goliatone/go-resource-query/config"
	"github.com/goliatone/go-resource-query/listquery"
	"github.com/goliatone/go-resource-query/listview"
	"github.com/goliatone/go-resource-query/query"
	"github.com/goliatone/go-resource-query/report"
	"github.com/goliatone/go-resource-query/resourcecache"
	"github.com/goliatone/go-resource-query/resources"
	"github.com/goliatone/go-resource-query/transport"
)

// Container holds the singletons of one console session: the API client, the
// query cache and the logger. Every resource it hands out shares the cache, so
// a mutation through one invalidates what the others read.
type Container struct {
	config  config.Config
	log     *zap.Logger
	clock   clock.Clock
	api     *transport.Client
	queries *query.Client
}

// Option configures a Container.
type Option func(*options)

type options struct {
	log   *zap.Logger
	http  *http.Client
	clock clock.Clock
}

// WithLogger uses log instead of building one from the log section.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithHTTPClient replaces the http.Client of the transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.http = hc }
}

// WithClock sets the clock of the query cache and of list views.
func WithClock(clk clock.Clock) Option {
	return func(o *options) { o.clock = clk }
}

// NewContainer validates cfg and builds the container.
func NewContainer(cfg config.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{clock: clock.New()}
	for _, opt := range opts {
		opt(&o)
	}

	log := o.log
	if log == nil {
		built, err := config.NewLogger(cfg.Log)
		if err != nil {
			return nil, err
		}
		log = built
	}

	topts := []transport.Option{
		transport.WithTimeout(cfg.API.Timeout),
		transport.WithTokenSource(cfg.TokenSource()),
		transport.WithUserAgent(cfg.API.UserAgent),
		transport.WithLogger(log.Named("transport")),
	}
	if o.http != nil {
		topts = append(topts, transport.WithHTTPClient(o.http))
	}
	api, err := transport.New(cfg.API.BaseURL, topts...)
	if err != nil {
		return nil, err
	}

	qopts := []query.Option{
		query.WithLogger(log.Named("query")),
		query.WithClock(o.clock),
		query.WithIdleAfter(cfg.Cache.IdleAfter),
		query.WithDefaultConfig(cfg.DefaultCache()),
	}
	if cfg.Cache.HashKeys {
		qopts = append(qopts, query.WithKeySerializer(cache.NewHashedKeySerializer()))
	}
	queries := query.New(qopts...)
	for _, def := range resources.All() {
		if err := queries.Register(def.Name, cfg.CacheFor(def)); err != nil {
			return nil, err
		}
	}

	log.Info("container ready",
		zap.String("base_url", api.BaseURL()),
		zap.Int("resources", len(resources.All())),
		zap.Bool("hash_keys", cfg.Cache.HashKeys),
	)

	return &Container{
		config:  cfg,
		log:     log,
		clock:   o.clock,
		api:     api,
		queries: queries,
	}, nil
}

// NewContainerFromFile loads the configuration at path, overlaid with the
// environment, and builds the container.
func NewContainerFromFile(path string, opts ...Option) (*Container, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return NewContainer(cfg, opts...)
}

// Config returns the configuration the container was built with.
func (c *Container) Config() config.Config {
	return c.config
}

// Logger returns the root logger.
func (c *Container) Logger() *zap.Logger {
	return c.log
}

// API returns the shared transport client.
func (c *Container) API() *transport.Client {
	return c.api
}

// Queries returns the shared query cache.
func (c *Container) Queries() *query.Client {
	return c.queries
}

// KeySerializer returns the serializer of cache keys.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.queries.Keys()
}

// Close flushes the logger.
func (c *Container) Close() error {
	// stderr sinks return EINVAL on sync
	_ = c.log.Sync()
	return nil
}

// NewResource returns the cached REST resource of def.
//
// Since Go methods cannot have type parameters, this is provided as a package-level function.
// Example: NewResource[resources.Driver](container, resources.Drivers)
func NewResource[T any](c *Container, def resources.Definition) *resourcecache.CachedResource[T] {
	base := resources.NewREST[T](c.api, def)
	return resourcecache.New[T](base, def, c.queries,
		resourcecache.WithLogger(c.log.Named("resource").With(zap.String("resource", def.Name))),
	)
}

// NewListView returns a list view over res tuned by the view section. opts are
// applied after the configured ones.
func NewListView[T any](c *Container, res listview.Resource[T], opts ...listview.Option) *listview.Controller[T] {
	view := c.config.View
	base := []listview.Option{
		listview.WithLogger(c.log.Named("listview").With(zap.String("resource", res.Definition().Name))),
		listview.WithClock(c.clock),
		listview.WithCooldown(view.PageCooldown),
		listview.WithSearchDelay(view.SearchDelay),
		listview.WithQuery(listquery.New(view.PageSize)),
		listview.WithDetailCache(c.queries),
	}
	return listview.New[T](res, append(base, opts...)...)
}

// Drivers returns the cached drivers resource. The other accessors follow the
// same pattern for their resource.
func (c *Container) Drivers() *resourcecache.CachedResource[resources.Driver] {
	return NewResource[resources.Driver](c, resources.Drivers)
}

func (c *Container) Vehicles() *resourcecache.CachedResource[resources.Vehicle] {
	return NewResource[resources.Vehicle](c, resources.Vehicles)
}

func (c *Container) Owners() *resourcecache.CachedResource[resources.Owner] {
	return NewResource[resources.Owner](c, resources.Owners)
}

func (c *Container) Inspectors() *resourcecache.CachedResource[resources.Inspector] {
	return NewResource[resources.Inspector](c, resources.Inspectors)
}

func (c *Container) Users() *resourcecache.CachedResource[resources.User] {
	return NewResource[resources.User](c, resources.Users)
}

func (c *Container) Violations() *resourcecache.CachedResource[resources.Violation] {
	return NewResource[resources.Violation](c, resources.Violations)
}

func (c *Container) InspectionRecords() *resourcecache.CachedResource[resources.InspectionRecord] {
	return NewResource[resources.InspectionRecord](c, resources.InspectionRecords)
}

func (c *Container) InspectionStats() *resourcecache.CachedResource[resources.InspectionStats] {
	return NewResource[resources.InspectionStats](c, resources.Stats)
}

// ReportOptions formats reports in the configured time zone and currency.
func (c *Container) ReportOptions() report.Options {
	opts := report.DefaultOptions()
	opts.Location = c.config.Location()
	if c.config.Report.Currency != "" {
		opts.Currency = c.config.Report.Currency
	}
	return opts
}

// ReportAssembler returns an assembler reading through the query cache.
func (c *Container) ReportAssembler() *report.Assembler {
	return &report.Assembler{
		Records:    c.InspectionRecords(),
		Vehicles:   c.Vehicles(),
		Drivers:    c.Drivers(),
		Violations: c.Violations(),
		Options:    c.ReportOptions(),
		Log:        c.log.Named("report"),
	}
}
