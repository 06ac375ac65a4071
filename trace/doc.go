// Package trace builds a causally-ordered tree of call records across
// arbitrarily composed executions. Each execution opens a Scope; model and
// tool calls append role-tagged Records; nested executions sprout child
// scopes from the scope carried on the context.
//
// Tracing is best-effort by design: appends to a sealed scope are dropped
// rather than surfaced, and no tracer operation can abort the traced work.
package trace
