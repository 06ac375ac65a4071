package core

import (
	"context"
	"fmt"
)

// Executor kinds used in identities and trace scopes.
const (
	KindAgent    = "agent"
	KindWorkflow = "workflow"
)

// ExecuteOptions carries per-call tuning for Execute. Options are applied via
// functional ExecuteOption values.
type ExecuteOptions struct {
	// Format is an output-format hint appended to the prompt of the final
	// producing executor (e.g. "a JSON object with keys summary and score").
	Format string
	// Metadata is copied onto emitted callback messages.
	Metadata map[string]string
}

// ExecuteOption mutates ExecuteOptions.
type ExecuteOption func(*ExecuteOptions)

// WithFormat sets the output-format hint for the call.
func WithFormat(format string) ExecuteOption {
	return func(o *ExecuteOptions) { o.Format = format }
}

// WithMetadata attaches metadata propagated onto callback messages.
func WithMetadata(md map[string]string) ExecuteOption {
	return func(o *ExecuteOptions) { o.Metadata = md }
}

// NewExecuteOptions applies the given options over defaults.
func NewExecuteOptions(opts ...ExecuteOption) *ExecuteOptions {
	o := &ExecuteOptions{}
	for _, fn := range opts {
		fn(o)
	}
	return o
}

// Executor is the common capability set implemented by both leaf agents and
// composite workflows. Because a workflow is itself an Executor, workflows
// nest inside workflows arbitrarily.
//
// Contract:
//   - Execute requires a prior successful Initialize (PreconditionError
//     otherwise).
//   - Cleanup reverses Initialize and is idempotent.
//   - Every Execute emits exactly one terminal STATUS message (SUCCEEDED or
//     FAILED), even when the concrete logic fails.
type Executor interface {
	// Execute runs the executor's concrete logic over the input.
	Execute(ctx context.Context, input string, opts ...ExecuteOption) (*Response, error)
	// Initialize acquires the executor's resources (tool-provider
	// connections, child executors).
	Initialize(ctx context.Context) error
	// Cleanup releases resources in reverse-acquisition order.
	Cleanup(ctx context.Context) error
	// Reset clears accumulated per-run state without touching lifecycle.
	Reset()

	Name() string
	SetName(name string)
	Kind() string
	// ID returns the executor identity "{project_id}:{kind}:{name}".
	ID() string
	// ChildrenIDs lists the identities of directly composed executors.
	ChildrenIDs() []string
}

// FormatID renders the canonical executor identity, unique within a project.
func FormatID(projectID, kind, name string) string {
	return fmt.Sprintf("%s:%s:%s", projectID, kind, name)
}
