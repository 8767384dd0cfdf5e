package mutation

import (
	"context"
)

type relatedContextKey struct{}

// WithRelated attaches resources to invalidate after the next successful mutation
// made with ctx, on top of the mutated resource itself. A new violation, for
// example, changes the summary counts of inspection records.
func WithRelated(ctx context.Context, resources ...string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(resources) == 0 {
		return ctx
	}

	combined := dedupeStrings(append(relatedFromContext(ctx), resources...))
	if len(combined) == 0 {
		return ctx
	}

	return context.WithValue(ctx, relatedContextKey{}, combined)
}

// RelatedFromContext returns the resources attached with WithRelated.
func RelatedFromContext(ctx context.Context) []string {
	return relatedFromContext(ctx)
}

func relatedFromContext(ctx context.Context) []string {
	if ctx == nil {
		return nil
	}
	if resources, ok := ctx.Value(relatedContextKey{}).([]string); ok {
		return append([]string(nil), resources...)
	}
	return nil
}
