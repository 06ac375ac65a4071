package core

import (
	"context"
	"sync"

	"github.com/hupe1980/agentweave/callback"
	"github.com/hupe1980/agentweave/logging"
	"github.com/hupe1980/agentweave/trace"
)

// State models the executor lifecycle. Executing is transient: it is only
// observable while a Run call is in flight.
type State int

const (
	// StateUninitialized is the zero state before Initialize and after Cleanup.
	StateUninitialized State = iota
	// StateInitialized means resources are acquired and Execute is permitted.
	StateInitialized
	// StateExecuting is the transient state while concrete logic runs.
	StateExecuting
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateInitialized:
		return "INITIALIZED"
	case StateExecuting:
		return "EXECUTING"
	default:
		return "UNINITIALIZED"
	}
}

// BaseOptions configures a BaseExecutor.
type BaseOptions struct {
	// ProjectID scopes the executor identity; defaults to "default".
	ProjectID string
	// Tracer used for top-level executions (nested executions sprout from
	// the scope on the context instead). Defaults to a fresh tracer.
	Tracer *trace.Tracer
	// Sinks receive the lifecycle/status/response/error messages emitted by
	// every Execute call.
	Sinks []callback.Sink
	// Logger defaults to a NoOpLogger.
	Logger logging.Logger
}

// BaseExecutor bundles the identity, lifecycle state machine, callback
// emission and trace-scope handling shared by every concrete agent and
// workflow. Embed it and express the concrete reasoning logic as a RunFunc
// passed to Run.
type BaseExecutor struct {
	mu        sync.Mutex
	name      string
	kind      string
	className string
	projectID string
	state     State
	children  []string

	tracer *trace.Tracer
	bus    *callback.Bus
	sinks  []callback.Sink
	logger logging.Logger
}

// NewBaseExecutor constructs the shared executor core. kind is one of
// KindAgent or KindWorkflow; className names the concrete type and is echoed
// on responses.
func NewBaseExecutor(name, kind, className string, optFns ...func(o *BaseOptions)) *BaseExecutor {
	opts := BaseOptions{
		ProjectID: "default",
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Tracer == nil {
		opts.Tracer = trace.NewTracer()
	}
	logger := logging.OrNoOp(opts.Logger)

	return &BaseExecutor{
		name:      name,
		kind:      kind,
		className: className,
		projectID: opts.ProjectID,
		tracer:    opts.Tracer,
		bus:       callback.NewBus(logger),
		sinks:     opts.Sinks,
		logger:    logger,
	}
}

// Name returns the executor's name.
func (b *BaseExecutor) Name() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.name
}

// SetName renames the executor.
func (b *BaseExecutor) SetName(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.name = name
}

// Kind returns the executor kind ("agent" or "workflow").
func (b *BaseExecutor) Kind() string { return b.kind }

// ClassName returns the concrete type name echoed on responses.
func (b *BaseExecutor) ClassName() string { return b.className }

// ProjectID returns the owning project identifier.
func (b *BaseExecutor) ProjectID() string { return b.projectID }

// ID returns the executor identity "{project_id}:{kind}:{name}".
func (b *BaseExecutor) ID() string {
	return FormatID(b.projectID, b.kind, b.Name())
}

// State returns the current lifecycle state.
func (b *BaseExecutor) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Initialized reports whether Execute is currently permitted.
func (b *BaseExecutor) Initialized() bool {
	return b.State() != StateUninitialized
}

// Initialize marks the executor ready. Concrete types with real resources
// (tool-provider connections, child executors) override this, acquire them,
// then call MarkInitialized.
func (b *BaseExecutor) Initialize(_ context.Context) error {
	b.MarkInitialized()
	return nil
}

// Cleanup reverses Initialize. The base implementation only flips state and
// is idempotent; concrete types release real resources first.
func (b *BaseExecutor) Cleanup(_ context.Context) error {
	b.MarkUninitialized()
	return nil
}

// Reset clears accumulated per-run state. The base executor carries none.
func (b *BaseExecutor) Reset() {}

// MarkInitialized transitions to StateInitialized.
func (b *BaseExecutor) MarkInitialized() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateInitialized
}

// MarkUninitialized transitions back to StateUninitialized.
func (b *BaseExecutor) MarkUninitialized() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateUninitialized
}

// setExecuting toggles the transient executing state.
func (b *BaseExecutor) setExecuting(executing bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if executing {
		b.state = StateExecuting
	} else if b.state == StateExecuting {
		b.state = StateInitialized
	}
}

// ChildrenIDs lists the identities of directly composed executors.
func (b *BaseExecutor) ChildrenIDs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.children))
	copy(out, b.children)
	return out
}

// SetChildrenIDs records the composed executor identities.
func (b *BaseExecutor) SetChildrenIDs(ids []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.children = append([]string(nil), ids...)
}

// Logger returns the configured logger.
func (b *BaseExecutor) Logger() logging.Logger { return b.logger }

// Sinks returns the configured callback sinks.
func (b *BaseExecutor) Sinks() []callback.Sink { return b.sinks }

// Tracer returns the tracer used for top-level executions.
func (b *BaseExecutor) Tracer() *trace.Tracer { return b.tracer }

// RunFunc is the concrete reasoning logic executed inside the Run wrapper.
// The passed context carries the opened trace scope for nested executions.
type RunFunc func(ctx context.Context, scope *trace.Scope) (*Response, error)

// Run implements the execute contract shared by every agent and workflow:
//
//  1. Fail with PreconditionError if the executor is not initialized.
//  2. Open a trace scope: a child of the scope on the context, or a new
//     root on the tracer for top-level calls. The scope is closed on every
//     exit path.
//  3. Emit EVENT(before_call) and STATUS(RUNNING).
//  4. Run the concrete logic.
//  5. On success record {messages, response, response_type, error:""} in the
//     scope and emit RESPONSE, EVENT(after_call), STATUS(SUCCEEDED).
//  6. On failure record the error in the scope, emit ERROR,
//     EVENT(after_call), STATUS(FAILED), then return the error unchanged.
func (b *BaseExecutor) Run(ctx context.Context, input string, opts *ExecuteOptions, fn RunFunc) (*Response, error) {
	if !b.Initialized() {
		return nil, &PreconditionError{Executor: b.ID(), Reason: "execute called before initialize"}
	}
	if opts == nil {
		opts = &ExecuteOptions{}
	}

	var scope *trace.Scope
	if parent := trace.FromContext(ctx); parent != nil {
		scope = parent.Sprout(b.Name(), b.kind)
	} else {
		scope = b.tracer.Root(b.Name(), b.kind)
	}
	defer scope.Close()
	ctx = trace.NewContext(ctx, scope)

	b.setExecuting(true)
	defer b.setExecuting(false)

	source := b.ID()
	b.emit(ctx, callback.NewEventMessage(source, b.projectID, callback.EventBeforeCall), opts)
	b.emit(ctx, callback.NewStatusMessage(source, b.projectID, callback.StatusRunning), opts)

	resp, err := fn(ctx, scope)
	if err != nil {
		scope.Add(b.kind, map[string]any{"error": err.Error()})
		b.emit(ctx, callback.NewErrorMessage(source, b.projectID, err), opts)
		b.emit(ctx, callback.NewEventMessage(source, b.projectID, callback.EventAfterCall), opts)
		b.emit(ctx, callback.NewStatusMessage(source, b.projectID, callback.StatusFailed), opts)
		return nil, err
	}

	if resp == nil {
		resp = NewResponse(b.Name(), b.className, "")
	}
	resp.Name = b.Name()
	resp.ClassName = b.className
	resp.TraceID = scope.ID()

	scope.Add(b.kind, map[string]any{
		"messages":      input,
		"response":      resp.Text(),
		"response_type": resp.ClassName,
		"error":         "",
	})

	b.emit(ctx, callback.NewResponseMessage(source, b.projectID, resp.Content, resp.TraceID), opts)
	b.emit(ctx, callback.NewEventMessage(source, b.projectID, callback.EventAfterCall), opts)
	b.emit(ctx, callback.NewStatusMessage(source, b.projectID, callback.StatusSucceeded), opts)

	return resp, nil
}

// emit sends one message to the configured sinks, attaching call metadata.
func (b *BaseExecutor) emit(ctx context.Context, msg callback.Message, opts *ExecuteOptions) {
	if len(b.sinks) == 0 {
		return
	}
	if len(opts.Metadata) > 0 {
		msg.Metadata = opts.Metadata
	}
	b.bus.Send(ctx, b.sinks, msg)
}
