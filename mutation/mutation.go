// Package mutation runs create, update and delete calls and invalidates the cache
// keys they make stale.
//
// Invalidation on success is the only consistency mechanism: there is no
// optimistic merge. The next read of an invalidated key goes to the backend.
package mutation

import (
	"context"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/goliatone/go-resource-query/apierr"
)

const tracerName = "github.com/goliatone/go-resource-query/mutation"

// Operation names used in logs and spans.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Invalidator drops cached keys. *query.Client implements it.
type Invalidator interface {
	Invalidate(ctx context.Context, resource string) error
	InvalidateLists(ctx context.Context, resource string) error
	InvalidateDetail(ctx context.Context, resource, id string) error
}

// Scope names what a successful mutation makes stale: every list of Resource,
// the detail of each entry in IDs, and every key of each Related resource.
type Scope struct {
	Op       string
	Resource string
	IDs      []string
	Related  []string
}

// Func performs the remote call.
type Func[P, E any] func(ctx context.Context, payload P) (E, error)

// IDFunc derives the ids whose detail keys must be dropped.
type IDFunc[P, E any] func(payload P, result E) []string

type settings struct {
	log     *zap.Logger
	tracer  trace.Tracer
	related []string
}

// Option configures Do and Controller.
type Option func(*settings)

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *settings) {
		if log != nil {
			s.log = log
		}
	}
}

// WithTracer replaces the tracer taken from the global provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *settings) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithRelatedResources invalidates resources on every successful mutation.
func WithRelatedResources(resources ...string) Option {
	return func(s *settings) { s.related = append(s.related, resources...) }
}

func newSettings(opts []Option) settings {
	s := settings{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&s)
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	return s
}

// Do runs fn and invalidates scope when it succeeds. The returned error is
// always classified by apierr. A failure to invalidate is logged and does not
// turn a completed mutation into an error.
func Do[E any](ctx context.Context, inv Invalidator, scope Scope, fn func(ctx context.Context) (E, error), opts ...Option) (E, error) {
	return run(ctx, inv, scope, nil, fn, opts)
}

func run[E any](ctx context.Context, inv Invalidator, scope Scope, idsFrom func(E) []string, fn func(ctx context.Context) (E, error), opts []Option) (E, error) {
	s := newSettings(opts)
	scope.Related = dedupeStrings(append(append(relatedFromContext(ctx), s.related...), scope.Related...))

	ctx, span := s.tracer.Start(ctx, "mutation."+scope.Op, trace.WithAttributes(
		attribute.String("mutation.resource", scope.Resource),
	))
	defer span.End()

	result, err := fn(ctx)
	if err != nil {
		err = apierr.Ensure(err, scope.Op+" "+scope.Resource)
		span.RecordError(err)
		span.SetStatus(codes.Error, apierr.Message(err))
		s.log.Info("mutation failed",
			zap.String("op", scope.Op),
			zap.String("resource", scope.Resource),
			zap.Stringer("kind", apierr.KindOf(err)),
			zap.Error(err),
		)
		var zero E
		return zero, err
	}

	if idsFrom != nil {
		scope.IDs = append(scope.IDs, idsFrom(result)...)
	}
	scope.IDs = dedupeStrings(scope.IDs)
	span.SetAttributes(attribute.StringSlice("mutation.ids", scope.IDs))

	invalidate(ctx, inv, scope, s.log)
	s.log.Info("mutation applied",
		zap.String("op", scope.Op),
		zap.String("resource", scope.Resource),
		zap.Strings("ids", scope.IDs),
		zap.Strings("related", scope.Related),
	)
	return result, nil
}

func invalidate(ctx context.Context, inv Invalidator, scope Scope, log *zap.Logger) {
	if inv == nil {
		return
	}
	if err := inv.InvalidateLists(ctx, scope.Resource); err != nil {
		log.Warn("list invalidation failed", zap.String("resource", scope.Resource), zap.Error(err))
	}
	for _, id := range scope.IDs {
		if err := inv.InvalidateDetail(ctx, scope.Resource, id); err != nil {
			log.Warn("detail invalidation failed",
				zap.String("resource", scope.Resource),
				zap.String("id", id),
				zap.Error(err),
			)
		}
	}
	for _, related := range scope.Related {
		if related == scope.Resource {
			continue
		}
		if err := inv.Invalidate(ctx, related); err != nil {
			log.Warn("related invalidation failed", zap.String("resource", related), zap.Error(err))
		}
	}
}

// Controller binds a remote call to the resource it changes.
type Controller[P, E any] struct {
	inv      Invalidator
	op       string
	resource string
	fn       Func[P, E]
	ids      IDFunc[P, E]
	opts     []Option
}

// New creates a Controller. ids may be nil when the call never touches an
// existing entity, as with create.
func New[P, E any](inv Invalidator, op, resource string, fn Func[P, E], ids IDFunc[P, E], opts ...Option) *Controller[P, E] {
	return &Controller[P, E]{
		inv:      inv,
		op:       op,
		resource: resource,
		fn:       fn,
		ids:      ids,
		opts:     opts,
	}
}

// Resource returns the resource the controller invalidates.
func (c *Controller[P, E]) Resource() string {
	return c.resource
}

// Mutate sends payload and invalidates on success.
func (c *Controller[P, E]) Mutate(ctx context.Context, payload P) (E, error) {
	var idsFrom func(E) []string
	if c.ids != nil {
		idsFrom = func(result E) []string { return c.ids(payload, result) }
	}
	scope := Scope{Op: c.op, Resource: c.resource}
	return run(ctx, c.inv, scope, idsFrom, func(ctx context.Context) (E, error) {
		return c.fn(ctx, payload)
	}, c.opts)
}

func dedupeStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || slices.Contains(out, s) {
			continue
		}
		out = append(out, s)
	}
	return out
}
