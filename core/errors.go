package core

import "fmt"

// PreconditionError reports a contract violation such as calling Execute on
// an executor that was never initialized.
type PreconditionError struct {
	Executor string // executor identity "{project_id}:{kind}:{name}"
	Reason   string
}

// Error implements the error interface.
func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed for %s: %s", e.Executor, e.Reason)
}

// ParseError reports malformed structured model output. Reasoning loops
// recover from it via retry or fallback; it is never fatal inside a bounded
// loop.
type ParseError struct {
	Reason string
	Raw    string // the raw model output that failed to decode
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %s", e.Reason)
}

// ToolInvocationError reports a failed or invalid tool call. It is always
// recorded in the trace before propagating.
type ToolInvocationError struct {
	Provider string
	Tool     string
	Reason   string
	Err      error
}

// Error implements the error interface.
func (e *ToolInvocationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tool execution failed: %s on %s: %v", e.Tool, e.Provider, e.Err)
	}
	return fmt.Sprintf("tool call rejected: %s on %s: %s", e.Tool, e.Provider, e.Reason)
}

// Unwrap exposes the underlying provider error.
func (e *ToolInvocationError) Unwrap() error { return e.Err }

// RoutingError reports that no executor matched a routing or dispatch
// request. No partial answer is meaningful, so it is a hard failure.
type RoutingError struct {
	Request string
}

// Error implements the error interface.
func (e *RoutingError) Error() string {
	return fmt.Sprintf("no matching executor: %s", e.Request)
}

// PlanningExhaustedError reports that an orchestrated plan never reached
// completion within its iteration budget.
type PlanningExhaustedError struct {
	Iterations int
}

// Error implements the error interface.
func (e *PlanningExhaustedError) Error() string {
	return fmt.Sprintf("plan did not complete within %d iterations", e.Iterations)
}

// RemoteCallError reports a model-provider failure that persisted through
// the bounded retry policy.
type RemoteCallError struct {
	Attempts int
	Err      error
}

// Error implements the error interface.
func (e *RemoteCallError) Error() string {
	return fmt.Sprintf("remote call failed after %d attempts: %v", e.Attempts, e.Err)
}

// Unwrap exposes the last transport error.
func (e *RemoteCallError) Unwrap() error { return e.Err }
