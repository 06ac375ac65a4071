package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/agentweave/callback"
	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/internal/util"
	"github.com/hupe1980/agentweave/logging"
	"github.com/hupe1980/agentweave/model"
	"github.com/hupe1980/agentweave/trace"
)

// Options configures the workflow combinators. Use functional options with
// the constructors to override defaults.
type Options struct {
	// ProjectID scopes the executor identity; defaults to "default".
	ProjectID string
	// Tracer used for top-level executions.
	Tracer *trace.Tracer
	// Sinks receive lifecycle/status/response/error messages.
	Sinks []callback.Sink
	// Logger defaults to NoOp.
	Logger logging.Logger

	// MaxIterations bounds the Orchestrator planning rounds and the
	// EvaluatorOptimizer refinement rounds. Defaults to 5.
	MaxIterations int
	// TopK caps the number of executors the Router selects. Defaults to 1.
	TopK int
	// Strategy selects the Orchestrator planning mode. Defaults to
	// StrategyFull.
	Strategy Strategy
	// MinRating is the EvaluatorOptimizer early-stop threshold. Defaults to
	// RatingGood.
	MinRating Rating
}

func newOptions(optFns ...func(o *Options)) Options {
	opts := Options{
		MaxIterations: 5,
		TopK:          1,
		Strategy:      StrategyFull,
		MinRating:     RatingGood,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}

func (o Options) baseOptions() func(*core.BaseOptions) {
	return func(b *core.BaseOptions) {
		if o.ProjectID != "" {
			b.ProjectID = o.ProjectID
		}
		b.Tracer = o.Tracer
		b.Sinks = o.Sinks
		b.Logger = o.Logger
	}
}

// initializeAll initializes child executors in order. A mid-stream failure
// cleans up the already-initialized prefix in reverse before propagating.
func initializeAll(ctx context.Context, executors []core.Executor) error {
	for i, e := range executors {
		if err := e.Initialize(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = executors[j].Cleanup(ctx)
			}
			return fmt.Errorf("initialize executor %s: %w", e.Name(), err)
		}
	}
	return nil
}

// cleanupAll cleans up child executors in reverse-acquisition order,
// collecting failures.
func cleanupAll(ctx context.Context, executors []core.Executor) error {
	var errs []error
	for i := len(executors) - 1; i >= 0; i-- {
		if err := executors[i].Cleanup(ctx); err != nil {
			errs = append(errs, fmt.Errorf("cleanup executor %s: %w", executors[i].Name(), err))
		}
	}
	return errors.Join(errs...)
}

// childIDs collects executor identities for ChildrenIDs.
func childIDs(executors []core.Executor) []string {
	ids := make([]string, 0, len(executors))
	for _, e := range executors {
		ids = append(ids, e.ID())
	}
	return ids
}

// generate performs one model call on behalf of a workflow (router
// classification, orchestrator planning, synthesis) and appends exactly one
// "llm" record to the scope on both paths.
func generate(ctx context.Context, scope *trace.Scope, llm model.Provider, req model.Request) (string, error) {
	resp, err := llm.Generate(ctx, req)
	if err != nil {
		scope.Add(trace.RoleLLM, map[string]any{"prompt": lastUserContent(req), "error": err.Error()})
		return "", err
	}
	scope.Add(trace.RoleLLM, map[string]any{"prompt": lastUserContent(req), "response": resp.Text})
	return resp.Text, nil
}

func lastUserContent(req model.Request) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == model.RoleUser {
			return req.Messages[i].Content
		}
	}
	return ""
}

// renderPrompt renders a prompt template, degrading to the raw template text
// if rendering fails.
func renderPrompt(tmpl string, state map[string]any) string {
	out, err := util.RenderTemplate(tmpl, state)
	if err != nil {
		return tmpl
	}
	return out
}
