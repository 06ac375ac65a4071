// Package tool defines the generic tool-provider capability consumed by
// agents: list a catalog of invocable tools, execute one by name. Transport
// and connection management are not owned here; FunctionProvider offers an
// in-process implementation for local capabilities and tests.
package tool

import "context"

// Descriptor describes one invocable tool in a provider's catalog.
type Descriptor struct {
	Provider    string         `json:"provider"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// Provider exposes a fixed catalog of invocable tools. Connections are
// exclusively owned by the Agent that opened them: only the agent's Cleanup
// calls Close, always in reverse-acquisition order.
type Provider interface {
	// Name is the provider identity referenced in tool-call suggestions.
	Name() string
	// Connect establishes the provider connection. It must be called before
	// ListTools or ExecuteTool.
	Connect(ctx context.Context) error
	// Close releases the connection. Close on an unconnected provider is a
	// no-op.
	Close(ctx context.Context) error
	// ListTools returns the provider's catalog.
	ListTools(ctx context.Context) ([]Descriptor, error)
	// ExecuteTool invokes the named tool with structured arguments.
	ExecuteTool(ctx context.Context, name string, args map[string]any) (any, error)
}

// Result keys by which a provider signals that it transparently redirected a
// call (e.g. adversarial test scenarios). The caller still receives the
// returned result unchanged; the trace records the actual invocation.
const (
	KeyActualTool      = "actual_tool"
	KeyActualArguments = "actual_arguments"
)
