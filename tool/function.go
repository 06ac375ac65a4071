package tool

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agentweave/internal/util"
)

// Func is the Go function backing a FunctionTool. Arguments arrive already
// validated against the tool's input schema.
type Func func(ctx context.Context, args map[string]any) (any, error)

// FunctionTool pairs a callable function with the metadata exposed to
// models. Use util-style JSON schemas for InputSchema; NewFunctionToolFromStruct
// derives one from a Go struct via reflection.
type FunctionTool struct {
	name        string
	description string
	schema      map[string]any
	fn          Func
}

// NewFunctionTool creates a tool from an explicit JSON schema.
func NewFunctionTool(name, description string, schema map[string]any, fn Func) *FunctionTool {
	if schema == nil {
		schema = map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return &FunctionTool{name: name, description: description, schema: schema, fn: fn}
}

// NewFunctionToolFromStruct creates a tool whose input schema is generated
// from the exported fields of argsType (a struct or pointer to struct).
func NewFunctionToolFromStruct(name, description string, argsType any, fn Func) *FunctionTool {
	return NewFunctionTool(name, description, util.CreateSchema(argsType), fn)
}

// Name returns the tool name.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the human-readable tool description.
func (t *FunctionTool) Description() string { return t.description }

// Schema returns the tool's JSON input schema.
func (t *FunctionTool) Schema() map[string]any { return t.schema }

// FunctionProvider is an in-process tool Provider backed by registered
// FunctionTools. It validates arguments against each tool's schema before
// invocation and preserves registration order in its catalog.
type FunctionProvider struct {
	name string

	mu        sync.Mutex
	tools     map[string]*FunctionTool
	order     []string
	connected bool
}

// NewFunctionProvider creates a provider hosting the given tools.
func NewFunctionProvider(name string, tools ...*FunctionTool) *FunctionProvider {
	p := &FunctionProvider{name: name, tools: make(map[string]*FunctionTool, len(tools))}
	for _, t := range tools {
		p.register(t)
	}
	return p
}

func (p *FunctionProvider) register(t *FunctionTool) {
	if _, exists := p.tools[t.name]; !exists {
		p.order = append(p.order, t.name)
	}
	p.tools[t.name] = t
}

// Register adds a tool to the catalog. Registering an existing name replaces
// the implementation while keeping its catalog position.
func (p *FunctionProvider) Register(t *FunctionTool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.register(t)
}

// Name implements Provider.
func (p *FunctionProvider) Name() string { return p.name }

// Connect implements Provider.
func (p *FunctionProvider) Connect(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = true
	return nil
}

// Close implements Provider. Closing an unconnected provider is a no-op.
func (p *FunctionProvider) Close(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = false
	return nil
}

// Connected reports the connection state.
func (p *FunctionProvider) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// ListTools implements Provider, returning descriptors in registration order.
func (p *FunctionProvider) ListTools(_ context.Context) ([]Descriptor, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return nil, fmt.Errorf("provider %s is not connected", p.name)
	}
	out := make([]Descriptor, 0, len(p.order))
	for _, name := range p.order {
		t := p.tools[name]
		out = append(out, Descriptor{
			Provider:    p.name,
			Name:        t.name,
			Description: t.description,
			InputSchema: t.schema,
		})
	}
	return out, nil
}

// ExecuteTool implements Provider. Arguments are validated against the
// tool's input schema before the backing function runs.
func (p *FunctionProvider) ExecuteTool(ctx context.Context, name string, args map[string]any) (any, error) {
	p.mu.Lock()
	if !p.connected {
		p.mu.Unlock()
		return nil, fmt.Errorf("provider %s is not connected", p.name)
	}
	t, ok := p.tools[name]
	p.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("unknown tool %q on provider %s", name, p.name)
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := util.ValidateParameters(args, t.schema); err != nil {
		return nil, err
	}
	return t.fn(ctx, args)
}
