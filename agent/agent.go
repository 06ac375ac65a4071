package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/agentweave/callback"
	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/logging"
	"github.com/hupe1980/agentweave/model"
	"github.com/hupe1980/agentweave/tool"
	"github.com/hupe1980/agentweave/trace"
)

// Options configures an agent and its reasoning-loop variants. Use
// functional options with the constructors to override defaults.
type Options struct {
	// Instruction is the agent's system prompt.
	Instruction string
	// Providers are the tool providers connected at Initialize, in
	// acquisition order.
	Providers []tool.Provider
	// AllowedTools filters each provider's catalog by tool name. A missing
	// entry admits the provider's full catalog.
	AllowedTools map[string][]string

	// ProjectID scopes the executor identity; defaults to "default".
	ProjectID string
	// Tracer used for top-level executions.
	Tracer *trace.Tracer
	// Sinks receive lifecycle/status/response/error messages.
	Sinks []callback.Sink
	// Logger defaults to NoOp.
	Logger logging.Logger

	// MaxIterations bounds the ReAct and Reflection loops. Defaults to 10.
	MaxIterations int
	// MaxPlanSteps caps the plan produced by the planning phase of
	// PlanExecuteAgent. Defaults to 5.
	MaxPlanSteps int
	// MaxExecutionIterations bounds the per-step inner loop of
	// PlanExecuteAgent. Defaults to 5.
	MaxExecutionIterations int
	// Formatter is an optional secondary executor FunctionCallAgent pipes
	// its tool result through for reformatting.
	Formatter core.Executor
}

func newOptions(optFns ...func(o *Options)) Options {
	opts := Options{
		MaxIterations:          10,
		MaxPlanSteps:           5,
		MaxExecutionIterations: 5,
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

// ToolCall is a model-suggested tool invocation: the structured shape the
// Tool-Call Protocol requires.
type ToolCall struct {
	Provider  string         `json:"provider"`
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
}

// Agent is the leaf executor: it owns a model provider, an instruction and a
// set of tool-provider connections with a filtered tool catalog. Executing a
// plain Agent performs a single model call; the reasoning-loop variants
// embed Agent and add their bounded state machines on top.
type Agent struct {
	*core.BaseExecutor

	llm         model.Provider
	instruction string
	providers   []tool.Provider
	allowed     map[string][]string

	mu        sync.Mutex
	connected []tool.Provider              // acquisition order
	catalog   map[string][]tool.Descriptor // provider name -> filtered tools
}

// New creates a plain single-call agent.
func New(name string, llm model.Provider, optFns ...func(o *Options)) *Agent {
	return newAgent(name, "Agent", llm, newOptions(optFns...))
}

func newAgent(name, className string, llm model.Provider, opts Options) *Agent {
	return &Agent{
		BaseExecutor: core.NewBaseExecutor(name, core.KindAgent, className, opts.baseOptions()),
		llm:          llm,
		instruction:  opts.Instruction,
		providers:    opts.Providers,
		allowed:      opts.AllowedTools,
		catalog:      make(map[string][]tool.Descriptor),
	}
}

// Instruction returns the agent's system prompt.
func (a *Agent) Instruction() string { return a.instruction }

// Initialize connects each configured tool provider in order and fetches its
// filtered tool catalog. A mid-stream failure closes the providers that were
// already connected, in reverse order, before the error propagates.
func (a *Agent) Initialize(ctx context.Context) error {
	if a.Initialized() {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.connected = nil
	a.catalog = make(map[string][]tool.Descriptor)

	for _, p := range a.providers {
		if err := p.Connect(ctx); err != nil {
			a.disconnectLocked(ctx)
			return fmt.Errorf("connect to tool provider %s: %w", p.Name(), err)
		}
		a.connected = append(a.connected, p)

		tools, err := p.ListTools(ctx)
		if err != nil {
			a.disconnectLocked(ctx)
			return fmt.Errorf("list tools on provider %s: %w", p.Name(), err)
		}
		a.catalog[p.Name()] = a.filterTools(p.Name(), tools)
	}

	a.MarkInitialized()
	return nil
}

// filterTools applies the per-provider allow-list.
func (a *Agent) filterTools(providerName string, tools []tool.Descriptor) []tool.Descriptor {
	allowed, ok := a.allowed[providerName]
	if !ok {
		return tools
	}
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, name := range allowed {
		allowedSet[name] = struct{}{}
	}
	var filtered []tool.Descriptor
	for _, t := range tools {
		if _, ok := allowedSet[t.Name]; ok {
			filtered = append(filtered, t)
		}
	}
	return filtered
}

// Cleanup reverses Initialize: providers are closed in reverse-acquisition
// order. Cleanup is idempotent.
func (a *Agent) Cleanup(ctx context.Context) error {
	if !a.Initialized() {
		return nil
	}

	a.mu.Lock()
	err := a.disconnectLocked(ctx)
	a.catalog = make(map[string][]tool.Descriptor)
	a.mu.Unlock()

	a.MarkUninitialized()
	return err
}

// disconnectLocked closes connected providers in reverse-acquisition order.
// Callers must hold a.mu.
func (a *Agent) disconnectLocked(ctx context.Context) error {
	var errs []error
	for i := len(a.connected) - 1; i >= 0; i-- {
		p := a.connected[i]
		if err := p.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close tool provider %s: %w", p.Name(), err))
		}
	}
	a.connected = nil
	return errors.Join(errs...)
}

// ChangeServers hot-swaps the agent's tool providers mid-run: Cleanup
// followed by Initialize with the new provider set.
func (a *Agent) ChangeServers(ctx context.Context, providers ...tool.Provider) error {
	if err := a.Cleanup(ctx); err != nil {
		return err
	}
	a.mu.Lock()
	a.providers = providers
	a.mu.Unlock()
	return a.Initialize(ctx)
}

// Catalog returns a copy of the provider->tools catalog assembled at
// Initialize.
func (a *Agent) Catalog() map[string][]tool.Descriptor {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string][]tool.Descriptor, len(a.catalog))
	for name, tools := range a.catalog {
		out[name] = append([]tool.Descriptor(nil), tools...)
	}
	return out
}

// Execute implements core.Executor with a single model call over the
// instruction and input.
func (a *Agent) Execute(ctx context.Context, input string, opts ...core.ExecuteOption) (*core.Response, error) {
	o := core.NewExecuteOptions(opts...)
	return a.Run(ctx, input, o, func(ctx context.Context, scope *trace.Scope) (*core.Response, error) {
		prompt := input
		if o.Format != "" {
			prompt = fmt.Sprintf("%s\n\nFormat the response as %s.", input, o.Format)
		}
		text, err := a.generate(ctx, scope, model.Request{
			Instructions: a.instruction,
			Messages:     []model.Message{{Role: model.RoleUser, Content: prompt}},
		})
		if err != nil {
			return nil, err
		}
		return core.NewResponse(a.Name(), a.ClassName(), text), nil
	})
}

// generate performs one model call and appends exactly one "llm" record to
// the scope, on both the success and the failure path.
func (a *Agent) generate(ctx context.Context, scope *trace.Scope, req model.Request) (string, error) {
	resp, err := a.llm.Generate(ctx, req)
	if err != nil {
		scope.Add(trace.RoleLLM, map[string]any{
			"messages": flattenMessages(req),
			"error":    err.Error(),
		})
		return "", err
	}
	scope.Add(trace.RoleLLM, map[string]any{
		"messages": flattenMessages(req),
		"response": resp.Text,
	})
	return resp.Text, nil
}

// CallTool runs the Tool-Call Protocol for one model-suggested invocation:
// validate the suggestion, resolve provider and tool against the catalog,
// invoke, and record exactly one "tool" trace entry on every path. When the
// provider transparently redirects the call (result carrying
// tool.KeyActualTool / tool.KeyActualArguments), the trace records the
// actual invocation while the caller receives the returned result unchanged.
func (a *Agent) CallTool(ctx context.Context, scope *trace.Scope, call ToolCall) (any, error) {
	record := map[string]any{
		"provider":  call.Provider,
		"tool_name": call.Tool,
		"arguments": call.Arguments,
	}

	fail := func(err error) (any, error) {
		record["error"] = err.Error()
		scope.Add(trace.RoleTool, record)
		return nil, err
	}

	if call.Provider == "" || call.Tool == "" {
		return fail(&core.ToolInvocationError{
			Provider: call.Provider, Tool: call.Tool,
			Reason: "tool call requires provider, tool and arguments",
		})
	}

	provider, descriptor := a.lookupTool(call.Provider, call.Tool)
	if provider == nil {
		return fail(&core.ToolInvocationError{
			Provider: call.Provider, Tool: call.Tool,
			Reason: fmt.Sprintf("unknown provider %q", call.Provider),
		})
	}
	if descriptor == nil {
		return fail(&core.ToolInvocationError{
			Provider: call.Provider, Tool: call.Tool,
			Reason: fmt.Sprintf("unknown tool %q on provider %q", call.Tool, call.Provider),
		})
	}

	result, err := provider.ExecuteTool(ctx, call.Tool, call.Arguments)
	if err != nil {
		return fail(&core.ToolInvocationError{Provider: call.Provider, Tool: call.Tool, Err: err})
	}

	// Transparent redirects are traced as the actual invocation.
	if m, ok := result.(map[string]any); ok {
		if actual, ok := m[tool.KeyActualTool].(string); ok && actual != "" {
			record["tool_name"] = actual
		}
		if actualArgs, ok := m[tool.KeyActualArguments].(map[string]any); ok {
			record["arguments"] = actualArgs
		}
	}

	record["response"] = stringifyResult(result)
	scope.Add(trace.RoleTool, record)
	return result, nil
}

// lookupTool resolves a provider and descriptor by name against the
// connected set and filtered catalog.
func (a *Agent) lookupTool(providerName, toolName string) (tool.Provider, *tool.Descriptor) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var provider tool.Provider
	for _, p := range a.connected {
		if p.Name() == providerName {
			provider = p
			break
		}
	}
	if provider == nil {
		return nil, nil
	}
	for i := range a.catalog[providerName] {
		if a.catalog[providerName][i].Name == toolName {
			return provider, &a.catalog[providerName][i]
		}
	}
	return provider, nil
}

// flattenMessages renders a request for trace records.
func flattenMessages(req model.Request) []map[string]string {
	out := make([]map[string]string, 0, len(req.Messages)+1)
	if req.Instructions != "" {
		out = append(out, map[string]string{"role": model.RoleSystem, "content": req.Instructions})
	}
	for _, m := range req.Messages {
		out = append(out, map[string]string{"role": m.Role, "content": m.Content})
	}
	return out
}

// stringifyResult normalizes a tool result to text for transcripts and
// traces.
func stringifyResult(result any) string {
	switch v := result.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		if data, err := json.Marshal(v); err == nil {
			return string(data)
		}
		return fmt.Sprintf("%v", v)
	}
}
