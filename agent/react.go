package agent

import (
	"context"
	"errors"

	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/model"
	"github.com/hupe1980/agentweave/trace"
)

// FallbackAnswer is the graceful terminal response of a bounded reasoning
// loop that exhausted its iteration budget. Budget exhaustion is a degraded
// result, never an error.
const FallbackAnswer = "could not find a satisfactory answer"

// ReActAgent alternates thinking, acting and observing in a bounded loop:
// each round renders a prompt over the growing Thought/Action/Result
// transcript, calls the model and branches on the decoded step. Malformed
// model output appends a synthetic error entry and retries, consuming
// budget; exhausting the budget returns FallbackAnswer.
type ReActAgent struct {
	*Agent
	maxIterations int
}

// NewReAct creates a ReAct reasoning agent.
func NewReAct(name string, llm model.Provider, optFns ...func(o *Options)) *ReActAgent {
	opts := newOptions(optFns...)
	return &ReActAgent{
		Agent:         newAgent(name, "ReActAgent", llm, opts),
		maxIterations: opts.MaxIterations,
	}
}

// Execute implements core.Executor.
func (a *ReActAgent) Execute(ctx context.Context, input string, opts ...core.ExecuteOption) (*core.Response, error) {
	o := core.NewExecuteOptions(opts...)
	return a.Run(ctx, input, o, func(ctx context.Context, scope *trace.Scope) (*core.Response, error) {
		return a.loop(ctx, scope, input, o.Format)
	})
}

// loop drives the bounded THINK/ACT/OBSERVE/ANSWER state machine.
func (a *ReActAgent) loop(ctx context.Context, scope *trace.Scope, input, format string) (*core.Response, error) {
	var entries []transcriptEntry

	for i := 0; i < a.maxIterations; i++ {
		prompt := renderPrompt(reactPromptTemplate, map[string]any{
			"Input":      input,
			"Tools":      renderCatalog(a.Catalog(), a.providers),
			"Transcript": renderTranscript(entries),
			"Format":     format,
		})

		raw, err := a.generate(ctx, scope, model.Request{
			Instructions: a.instruction,
			Messages:     []model.Message{{Role: model.RoleUser, Content: prompt}},
		})
		if err != nil {
			return nil, err
		}

		st, perr := parseStep(raw)
		if perr != nil {
			var parseErr *core.ParseError
			if !errors.As(perr, &parseErr) {
				return nil, perr
			}
			a.Logger().Debug("react step parse failed", "agent", a.Name(), "iteration", i+1, "error", perr.Error())
			entries = append(entries, transcriptEntry{label: "Error", text: perr.Error()})
			continue
		}

		entries = append(entries, transcriptEntry{label: "Thought", text: st.thought})

		switch st.kind {
		case stepAnswer:
			return core.NewResponse(a.Name(), a.ClassName(), st.answer), nil

		case stepAction:
			entries = append(entries, transcriptEntry{label: "Action", text: describeToolCall(st.action)})
			result, terr := a.CallTool(ctx, scope, *st.action)
			if terr != nil {
				// The failure is already traced; fold it into the
				// transcript as an observation and keep going.
				entries = append(entries, transcriptEntry{label: "Result", text: "tool error: " + terr.Error()})
				continue
			}
			entries = append(entries, transcriptEntry{label: "Result", text: stringifyResult(result)})

		case stepResult:
			entries = append(entries, transcriptEntry{label: "Result", text: st.result})
		}
	}

	return core.NewResponse(a.Name(), a.ClassName(), FallbackAnswer), nil
}
