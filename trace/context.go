package trace

import "context"

type contextKey struct{}

// NewContext returns a context carrying the given scope. Executors place
// their current scope on the context so nested executions sprout children
// from it, producing one causally-ordered tree across arbitrary nesting.
func NewContext(ctx context.Context, scope *Scope) context.Context {
	return context.WithValue(ctx, contextKey{}, scope)
}

// FromContext returns the scope carried by ctx, or nil when the context has
// no active scope (i.e. this is a top-level execution).
func FromContext(ctx context.Context) *Scope {
	scope, _ := ctx.Value(contextKey{}).(*Scope)
	return scope
}
