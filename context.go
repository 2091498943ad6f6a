package scopetrace

import "context"

type contextTracerType int

const contextTracerKey contextTracerType = 0

// WithTracer returns a context carrying t, so code deeper in the call chain can trace without a
// Tracer being threaded through every signature.
//
// Panics if ctx or t is nil. These panics indicate programming errors
// that should be fixed in development, not runtime errors requiring error handling.
func WithTracer(ctx context.Context, t *Tracer) context.Context {
	if ctx == nil {
		panic("context must be defined")
	}
	if t == nil {
		panic("tracer must be defined")
	}
	return context.WithValue(ctx, contextTracerKey, t)
}

// FromContext returns the Tracer stored in ctx, or the default tracer when there is none.
//
// Panics if ctx is nil.
func FromContext(ctx context.Context) *Tracer {
	if ctx == nil {
		panic("context must be defined")
	}
	value := ctx.Value(contextTracerKey)
	if value == nil {
		return Default()
	}
	if t, ok := value.(*Tracer); ok {
		return t
	}
	panic("invalid context tracer type")
}

// Start opens a performance scope for the caller on the tracer carried by ctx.
//
//	scope := scopetrace.Start(ctx, "query")
//	defer scope.End()
func Start(ctx context.Context, tag string) *PerformanceScope {
	return FromContext(ctx).BeginPerformance(callerSite(2), tag)
}

// Trace opens a hierarchy scope for the caller on the tracer carried by ctx.
func Trace(ctx context.Context) *HierarchyScope {
	return FromContext(ctx).BeginHierarchy(callerSite(2))
}
