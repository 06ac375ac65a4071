package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/model"
	"github.com/hupe1980/agentweave/trace"
)

// PlanExecuteAgent first plans (one model call producing an ordered step
// list) and then executes each step with an inner bounded reasoning loop
// carrying cumulative history forward. A step that exhausts its inner budget
// yields a degraded result rather than failing the plan; when more than one
// step ran, a synthesis call merges the per-step results, falling back to
// concatenation on synthesis failure.
type PlanExecuteAgent struct {
	*Agent
	maxPlanSteps int
	maxStepIters int
}

// NewPlanExecute creates a plan-and-execute reasoning agent.
func NewPlanExecute(name string, llm model.Provider, optFns ...func(o *Options)) *PlanExecuteAgent {
	opts := newOptions(optFns...)
	return &PlanExecuteAgent{
		Agent:        newAgent(name, "PlanExecuteAgent", llm, opts),
		maxPlanSteps: opts.MaxPlanSteps,
		maxStepIters: opts.MaxExecutionIterations,
	}
}

// Execute implements core.Executor.
func (a *PlanExecuteAgent) Execute(ctx context.Context, input string, opts ...core.ExecuteOption) (*core.Response, error) {
	o := core.NewExecuteOptions(opts...)
	return a.Run(ctx, input, o, func(ctx context.Context, scope *trace.Scope) (*core.Response, error) {
		steps, err := a.plan(ctx, scope, input)
		if err != nil {
			return nil, err
		}

		var results []string
		for _, s := range steps {
			result, err := a.executeStep(ctx, scope, input, s, results)
			if err != nil {
				return nil, err
			}
			results = append(results, fmt.Sprintf("%s: %s", s.Description, result))
		}

		if len(results) == 1 {
			// Strip the single step's description prefix: no synthesis pass
			// is needed for a one-step plan.
			only := results[0]
			if idx := strings.Index(only, ": "); idx >= 0 {
				only = only[idx+2:]
			}
			return core.NewResponse(a.Name(), a.ClassName(), only), nil
		}

		return core.NewResponse(a.Name(), a.ClassName(), a.synthesize(ctx, scope, input, results)), nil
	})
}

// plan produces the ordered step list. An empty or malformed plan falls back
// to one default step covering the whole request; only remote failures
// propagate.
func (a *PlanExecuteAgent) plan(ctx context.Context, scope *trace.Scope, input string) ([]planStep, error) {
	prompt := renderPrompt(planPromptTemplate, map[string]any{
		"Input":    input,
		"MaxSteps": a.maxPlanSteps,
	})

	raw, err := a.generate(ctx, scope, model.Request{
		Instructions: a.instruction,
		Messages:     []model.Message{{Role: model.RoleUser, Content: prompt}},
	})
	if err != nil {
		return nil, err
	}

	steps, perr := parsePlan(raw, a.maxPlanSteps)
	if perr != nil {
		var parseErr *core.ParseError
		if !errors.As(perr, &parseErr) {
			return nil, perr
		}
		a.Logger().Debug("plan parse failed, falling back to single step",
			"agent", a.Name(), "error", perr.Error())
		return []planStep{{Step: 1, Description: input, Goal: "complete the request"}}, nil
	}
	return steps, nil
}

// executeStep drives the inner bounded loop for one plan step. Exhausting
// the step budget yields a degraded summary, never a failure.
func (a *PlanExecuteAgent) executeStep(ctx context.Context, scope *trace.Scope, input string, s planStep, history []string) (string, error) {
	var entries []transcriptEntry
	lastResult := ""

	for i := 0; i < a.maxStepIters; i++ {
		prompt := renderPrompt(stepPromptTemplate, map[string]any{
			"Input":       input,
			"Description": s.Description,
			"Goal":        s.Goal,
			"History":     strings.Join(history, "\n"),
			"Tools":       renderCatalog(a.Catalog(), a.providers),
			"Transcript":  renderTranscript(entries),
		})

		raw, err := a.generate(ctx, scope, model.Request{
			Instructions: a.instruction,
			Messages:     []model.Message{{Role: model.RoleUser, Content: prompt}},
		})
		if err != nil {
			return "", err
		}

		st, perr := parseStep(raw)
		if perr != nil {
			var parseErr *core.ParseError
			if !errors.As(perr, &parseErr) {
				return "", perr
			}
			entries = append(entries, transcriptEntry{label: "Error", text: perr.Error()})
			continue
		}

		entries = append(entries, transcriptEntry{label: "Thought", text: st.thought})

		switch st.kind {
		case stepAnswer:
			return st.answer, nil

		case stepAction:
			entries = append(entries, transcriptEntry{label: "Action", text: describeToolCall(st.action)})
			result, terr := a.CallTool(ctx, scope, *st.action)
			if terr != nil {
				entries = append(entries, transcriptEntry{label: "Result", text: "tool error: " + terr.Error()})
				continue
			}
			lastResult = stringifyResult(result)
			entries = append(entries, transcriptEntry{label: "Result", text: lastResult})

		case stepResult:
			lastResult = st.result
			entries = append(entries, transcriptEntry{label: "Result", text: st.result})
		}
	}

	degraded := fmt.Sprintf("completed after %d iterations", a.maxStepIters)
	if lastResult != "" {
		degraded = fmt.Sprintf("%s: %s", degraded, lastResult)
	}
	return degraded, nil
}

// synthesize merges the per-step results with one model call, falling back
// to concatenation when the call or its output fails.
func (a *PlanExecuteAgent) synthesize(ctx context.Context, scope *trace.Scope, input string, results []string) string {
	prompt := renderPrompt(synthesisPromptTemplate, map[string]any{
		"Input":   input,
		"Results": strings.Join(results, "\n"),
	})

	merged, err := a.generate(ctx, scope, model.Request{
		Instructions: a.instruction,
		Messages:     []model.Message{{Role: model.RoleUser, Content: prompt}},
	})
	if err != nil || strings.TrimSpace(merged) == "" {
		if err != nil {
			a.Logger().Warn("synthesis call failed, concatenating step results",
				"agent", a.Name(), "error", err.Error())
		}
		return strings.Join(results, "\n")
	}
	return merged
}
