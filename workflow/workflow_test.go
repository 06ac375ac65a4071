package workflow

import (
	"context"
	"sync"

	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/trace"
)

// fakeExecutor is a deterministic core.Executor for combinator tests. Its
// transform function maps input to output; a scripted error wins over the
// transform.
type fakeExecutor struct {
	*core.BaseExecutor
	transform func(input string) string
	err       error

	mu     sync.Mutex
	inputs []string
}

func newFakeExecutor(name string, transform func(input string) string) *fakeExecutor {
	return &fakeExecutor{
		BaseExecutor: core.NewBaseExecutor(name, core.KindAgent, "FakeExecutor"),
		transform:    transform,
	}
}

func (f *fakeExecutor) Execute(ctx context.Context, input string, opts ...core.ExecuteOption) (*core.Response, error) {
	o := core.NewExecuteOptions(opts...)
	return f.Run(ctx, input, o, func(_ context.Context, _ *trace.Scope) (*core.Response, error) {
		f.mu.Lock()
		f.inputs = append(f.inputs, input)
		f.mu.Unlock()

		if f.err != nil {
			return nil, f.err
		}
		return core.NewResponse(f.Name(), f.ClassName(), f.transform(input)), nil
	})
}

func (f *fakeExecutor) Inputs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.inputs))
	copy(out, f.inputs)
	return out
}
