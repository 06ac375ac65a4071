package workflow

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/trace"
)

const aggregatePromptTemplate = `Combine the results below into one answer to the original request.

Request: {{.Input}}

Results:
{{.Results}}`

// Parallel fans the same input out to all composed executors concurrently
// and joins them before proceeding: the first failure propagates with no
// partial aggregation, and in-flight siblings are not actively cancelled. On
// success the designated aggregator executor consumes one prompt containing
// every candidate's {description, response} pair in registration order; a
// candidate without a description is labeled by its executor name.
type Parallel struct {
	*core.BaseExecutor
	candidates []Candidate
	aggregator core.Executor
}

// NewParallel creates a fan-out/aggregate workflow.
func NewParallel(name string, candidates []Candidate, aggregator core.Executor, optFns ...func(o *Options)) *Parallel {
	opts := newOptions(optFns...)
	p := &Parallel{
		BaseExecutor: core.NewBaseExecutor(name, core.KindWorkflow, "Parallel", opts.baseOptions()),
		candidates:   candidates,
		aggregator:   aggregator,
	}
	p.SetChildrenIDs(childIDs(append(p.executors(), aggregator)))
	return p
}

func (p *Parallel) executors() []core.Executor {
	out := make([]core.Executor, 0, len(p.candidates))
	for _, c := range p.candidates {
		out = append(out, c.Executor)
	}
	return out
}

// Initialize prepares the fan-out executors and the aggregator.
func (p *Parallel) Initialize(ctx context.Context) error {
	if p.Initialized() {
		return nil
	}
	if err := initializeAll(ctx, append(p.executors(), p.aggregator)); err != nil {
		return err
	}
	p.MarkInitialized()
	return nil
}

// Cleanup releases the aggregator and fan-out executors in reverse order.
func (p *Parallel) Cleanup(ctx context.Context) error {
	if !p.Initialized() {
		return nil
	}
	err := cleanupAll(ctx, append(p.executors(), p.aggregator))
	p.MarkUninitialized()
	return err
}

// Execute implements core.Executor.
func (p *Parallel) Execute(ctx context.Context, input string, opts ...core.ExecuteOption) (*core.Response, error) {
	o := core.NewExecuteOptions(opts...)
	return p.Run(ctx, input, o, func(ctx context.Context, _ *trace.Scope) (*core.Response, error) {
		if len(p.candidates) == 0 {
			return nil, fmt.Errorf("parallel %s has no executors", p.Name())
		}

		// A plain errgroup (no derived context) joins all branches without
		// cancelling siblings when one fails; the join surfaces the first
		// failure.
		results := make([]string, len(p.candidates))
		var g errgroup.Group
		for i, c := range p.candidates {
			g.Go(func() error {
				resp, err := c.Executor.Execute(ctx, input)
				if err != nil {
					return fmt.Errorf("parallel %s failed for executor %s: %w", p.Name(), c.Executor.Name(), err)
				}
				results[i] = resp.Text()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		var pairs strings.Builder
		for i, c := range p.candidates {
			label := c.Description
			if label == "" {
				label = c.Executor.Name()
			}
			fmt.Fprintf(&pairs, "- %s: %s\n", label, results[i])
		}

		prompt := renderPrompt(aggregatePromptTemplate, map[string]any{
			"Input":   input,
			"Results": strings.TrimRight(pairs.String(), "\n"),
		})

		var callOpts []core.ExecuteOption
		if o.Format != "" {
			callOpts = append(callOpts, core.WithFormat(o.Format))
		}
		resp, err := p.aggregator.Execute(ctx, prompt, callOpts...)
		if err != nil {
			return nil, fmt.Errorf("parallel %s aggregation failed: %w", p.Name(), err)
		}

		return core.NewResponse(p.Name(), p.ClassName(), resp.Content), nil
	})
}
