package agent

import (
	"context"
	"errors"

	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/model"
	"github.com/hupe1980/agentweave/trace"
)

// FunctionCallAgent performs exactly one model call, decodes the suggested
// tool call and runs it through the Tool-Call Protocol. There is no
// iteration: when the suggestion cannot be parsed the agent falls back to
// returning the raw model output. An optional formatter executor reformats
// the tool result before it is returned.
type FunctionCallAgent struct {
	*Agent
	formatter core.Executor
}

// NewFunctionCall creates a single-shot tool-calling agent.
func NewFunctionCall(name string, llm model.Provider, optFns ...func(o *Options)) *FunctionCallAgent {
	opts := newOptions(optFns...)
	a := &FunctionCallAgent{
		Agent:     newAgent(name, "FunctionCallAgent", llm, opts),
		formatter: opts.Formatter,
	}
	if a.formatter != nil {
		a.SetChildrenIDs([]string{a.formatter.ID()})
	}
	return a
}

// Initialize prepares the agent and, when present, its formatter executor.
func (a *FunctionCallAgent) Initialize(ctx context.Context) error {
	if err := a.Agent.Initialize(ctx); err != nil {
		return err
	}
	if a.formatter != nil {
		if err := a.formatter.Initialize(ctx); err != nil {
			// Keep Initialize all-or-nothing: release what we acquired.
			_ = a.Agent.Cleanup(ctx)
			return err
		}
	}
	return nil
}

// Cleanup releases the formatter first, then the agent's own providers,
// reversing acquisition order.
func (a *FunctionCallAgent) Cleanup(ctx context.Context) error {
	var errs []error
	if a.formatter != nil {
		if err := a.formatter.Cleanup(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.Agent.Cleanup(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Execute implements core.Executor.
func (a *FunctionCallAgent) Execute(ctx context.Context, input string, opts ...core.ExecuteOption) (*core.Response, error) {
	o := core.NewExecuteOptions(opts...)
	return a.Run(ctx, input, o, func(ctx context.Context, scope *trace.Scope) (*core.Response, error) {
		prompt := renderPrompt(toolSuggestionPromptTemplate, map[string]any{
			"Input": input,
			"Tools": renderCatalog(a.Catalog(), a.providers),
		})

		raw, err := a.generate(ctx, scope, model.Request{
			Instructions: a.instruction,
			Messages:     []model.Message{{Role: model.RoleUser, Content: prompt}},
		})
		if err != nil {
			return nil, err
		}

		call, perr := parseToolCall(raw)
		if perr != nil {
			// No usable suggestion: the raw model output is the answer.
			a.Logger().Debug("tool suggestion parse failed, returning raw output",
				"agent", a.Name(), "error", perr.Error())
			return core.NewResponse(a.Name(), a.ClassName(), raw), nil
		}

		result, err := a.CallTool(ctx, scope, *call)
		if err != nil {
			return nil, err
		}

		text := stringifyResult(result)
		if a.formatter == nil {
			return core.NewResponse(a.Name(), a.ClassName(), text), nil
		}

		formatted, err := a.formatter.Execute(ctx, text, core.WithFormat(o.Format))
		if err != nil {
			return nil, err
		}
		return core.NewResponse(a.Name(), a.ClassName(), formatted.Content), nil
	})
}
