// Package agentweave provides a high-level façade over the executor registry
// and the shared observability plumbing (tracer, callback sinks, logging)
// enabling rapid construction of agent and workflow compositions. Most
// applications interact with this package by:
//  1. Creating an AgentWeave via New() (optionally overriding the defaults)
//  2. Registering one or more executors (agents, reasoning loops, workflows)
//  3. Executing them by name (Execute) and inspecting the trace afterwards
//
// The façade delegates all orchestration to the executors themselves while
// keeping setup and usage ergonomics concise. All defaults are safe for
// local development and testing; production deployments typically supply
// callback sinks and a structured logger.
package agentweave

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentweave/callback"
	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/logging"
	"github.com/hupe1980/agentweave/trace"
)

// Options configures the AgentWeave instance.
type Options struct {
	// ProjectID scopes executor identities; defaults to "default".
	ProjectID string

	// Tracer collects the hierarchical execution record. Defaults to a fresh
	// in-memory tracer shared by all registered executors.
	Tracer *trace.Tracer

	// Sinks receive lifecycle, status, response and error messages.
	Sinks []callback.Sink

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// AgentWeave is the high-level façade aggregating the executor registry and
// the shared observability state.
type AgentWeave struct {
	opts     Options
	registry *core.Registry
}

// New creates a new AgentWeave instance with optional overrides.
func New(optFns ...func(o *Options)) *AgentWeave {
	opts := Options{
		ProjectID: "default",
		Tracer:    trace.NewTracer(),
		Logger:    logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &AgentWeave{opts: opts, registry: core.NewRegistry()}
}

// Register adds an executor to the registry under its current name.
func (w *AgentWeave) Register(e core.Executor) { w.registry.Register(e) }

// Registry exposes the underlying executor table, e.g. for wiring an
// orchestrator workflow.
func (w *AgentWeave) Registry() *core.Registry { return w.registry }

// Tracer returns the shared tracer so callers can inspect execution trees
// after the fact.
func (w *AgentWeave) Tracer() *trace.Tracer { return w.opts.Tracer }

// Executor returns the registered executor, if any.
func (w *AgentWeave) Executor(name string) (core.Executor, bool) {
	return w.registry.Get(name)
}

// Initialize prepares every registered executor. Executors that fail leave
// the remainder untouched; the first error is returned.
func (w *AgentWeave) Initialize(ctx context.Context) error {
	for _, name := range w.registry.Names() {
		e, _ := w.registry.Get(name)
		if err := e.Initialize(ctx); err != nil {
			return fmt.Errorf("initialize executor %s: %w", name, err)
		}
	}
	return nil
}

// Cleanup releases every registered executor. All executors are attempted;
// the first error is returned.
func (w *AgentWeave) Cleanup(ctx context.Context) error {
	var firstErr error
	names := w.registry.Names()
	for i := len(names) - 1; i >= 0; i-- {
		e, _ := w.registry.Get(names[i])
		if err := e.Cleanup(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("cleanup executor %s: %w", names[i], err)
		}
	}
	return firstErr
}

// Execute runs the named executor synchronously and returns its response.
func (w *AgentWeave) Execute(ctx context.Context, name, input string, opts ...core.ExecuteOption) (*core.Response, error) {
	e, ok := w.registry.Get(name)
	if !ok {
		return nil, &core.RoutingError{Request: fmt.Sprintf("executor %q", name)}
	}
	return e.Execute(ctx, input, opts...)
}
