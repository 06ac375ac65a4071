package agent

import (
	"context"
	"errors"

	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/model"
	"github.com/hupe1980/agentweave/trace"
)

// ReflectionAgent extends the ReAct machine with a REFLECT state: after
// every acted, observed or answered round a self-critique call runs over the
// same transcript and its "reflection" joins the transcript before the next
// round. Malformed reflection output is a non-fatal parse error.
type ReflectionAgent struct {
	*Agent
	maxIterations int
}

// NewReflection creates a reflection reasoning agent.
func NewReflection(name string, llm model.Provider, optFns ...func(o *Options)) *ReflectionAgent {
	opts := newOptions(optFns...)
	return &ReflectionAgent{
		Agent:         newAgent(name, "ReflectionAgent", llm, opts),
		maxIterations: opts.MaxIterations,
	}
}

// Execute implements core.Executor.
func (a *ReflectionAgent) Execute(ctx context.Context, input string, opts ...core.ExecuteOption) (*core.Response, error) {
	o := core.NewExecuteOptions(opts...)
	return a.Run(ctx, input, o, func(ctx context.Context, scope *trace.Scope) (*core.Response, error) {
		return a.loop(ctx, scope, input, o.Format)
	})
}

func (a *ReflectionAgent) loop(ctx context.Context, scope *trace.Scope, input, format string) (*core.Response, error) {
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
			entries = append(entries, transcriptEntry{label: "Error", text: perr.Error()})
			continue
		}

		entries = append(entries, transcriptEntry{label: "Thought", text: st.thought})

		switch st.kind {
		case stepAnswer:
			entries = append(entries, transcriptEntry{label: "Result", text: st.answer})
			if err := a.reflect(ctx, scope, input, &entries); err != nil {
				return nil, err
			}
			return core.NewResponse(a.Name(), a.ClassName(), st.answer), nil

		case stepAction:
			entries = append(entries, transcriptEntry{label: "Action", text: describeToolCall(st.action)})
			result, terr := a.CallTool(ctx, scope, *st.action)
			if terr != nil {
				entries = append(entries, transcriptEntry{label: "Result", text: "tool error: " + terr.Error()})
			} else {
				entries = append(entries, transcriptEntry{label: "Result", text: stringifyResult(result)})
			}

		case stepResult:
			entries = append(entries, transcriptEntry{label: "Result", text: st.result})
		}

		if err := a.reflect(ctx, scope, input, &entries); err != nil {
			return nil, err
		}
	}

	return core.NewResponse(a.Name(), a.ClassName(), FallbackAnswer), nil
}

// reflect runs the self-critique call and appends its reflection to the
// transcript. Parse failures are logged and skipped; only remote failures
// propagate.
func (a *ReflectionAgent) reflect(ctx context.Context, scope *trace.Scope, input string, entries *[]transcriptEntry) error {
	prompt := renderPrompt(reflectPromptTemplate, map[string]any{
		"Input":      input,
		"Transcript": renderTranscript(*entries),
	})

	raw, err := a.generate(ctx, scope, model.Request{
		Instructions: a.instruction,
		Messages:     []model.Message{{Role: model.RoleUser, Content: prompt}},
	})
	if err != nil {
		return err
	}

	text, perr := parseReflection(raw)
	if perr != nil {
		a.Logger().Debug("reflection parse failed", "agent", a.Name(), "error", perr.Error())
		return nil
	}
	*entries = append(*entries, transcriptEntry{label: "Reflection", text: text})
	return nil
}
