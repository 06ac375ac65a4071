package workflow

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/trace"
)

// Chain pipes executors sequentially: executor i's output text feeds
// executor i+1. Only the last executor receives the output-format hint. Any
// failure aborts the chain; there is no partial-success path.
type Chain struct {
	*core.BaseExecutor
	executors []core.Executor
}

// NewChain creates a sequential pipeline over the given executors.
func NewChain(name string, executors []core.Executor, optFns ...func(o *Options)) *Chain {
	opts := newOptions(optFns...)
	c := &Chain{
		BaseExecutor: core.NewBaseExecutor(name, core.KindWorkflow, "Chain", opts.baseOptions()),
		executors:    executors,
	}
	c.SetChildrenIDs(childIDs(executors))
	return c
}

// Initialize prepares all composed executors in order.
func (c *Chain) Initialize(ctx context.Context) error {
	if c.Initialized() {
		return nil
	}
	if err := initializeAll(ctx, c.executors); err != nil {
		return err
	}
	c.MarkInitialized()
	return nil
}

// Cleanup releases composed executors in reverse order. Idempotent.
func (c *Chain) Cleanup(ctx context.Context) error {
	if !c.Initialized() {
		return nil
	}
	err := cleanupAll(ctx, c.executors)
	c.MarkUninitialized()
	return err
}

// Execute implements core.Executor.
func (c *Chain) Execute(ctx context.Context, input string, opts ...core.ExecuteOption) (*core.Response, error) {
	o := core.NewExecuteOptions(opts...)
	return c.Run(ctx, input, o, func(ctx context.Context, _ *trace.Scope) (*core.Response, error) {
		if len(c.executors) == 0 {
			return nil, fmt.Errorf("chain %s has no executors", c.Name())
		}

		current := input
		for i, e := range c.executors {
			var callOpts []core.ExecuteOption
			if i == len(c.executors)-1 && o.Format != "" {
				callOpts = append(callOpts, core.WithFormat(o.Format))
			}
			resp, err := e.Execute(ctx, current, callOpts...)
			if err != nil {
				return nil, fmt.Errorf("chain %s failed at executor %s: %w", c.Name(), e.Name(), err)
			}
			current = resp.Text()
		}

		return core.NewResponse(c.Name(), c.ClassName(), current), nil
	})
}
