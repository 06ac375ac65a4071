// Package core provides the foundational contracts of the orchestration
// engine:
//
//   - Executor: the common execute/initialize/cleanup capability implemented
//     by both leaf agents and composite workflows, enabling arbitrary nesting
//   - BaseExecutor: the shared lifecycle state machine plus the Run wrapper
//     that traces every call and emits exactly one terminal status
//   - Response: the normalized execution result with string/mapping accessors
//   - Registry: an explicit name-keyed executor table (no global state)
//   - the error taxonomy separating contract violations from recoverable
//     loop-level conditions
//
// Concrete agents live in package agent; combinators live in package
// workflow. Both embed BaseExecutor and express their logic as a RunFunc.
package core
