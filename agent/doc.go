// Package agent contains the leaf executors of the orchestration engine:
// the agent core (tool-provider lifecycle, filtered tool catalog and the
// Tool-Call Protocol) plus the bounded reasoning-loop variants built on it:
//
//   - Agent: one model call over instruction and input
//   - FunctionCallAgent: one call, one tool invocation, optional reformat
//   - ReActAgent: bounded think/act/observe rounds over a growing transcript
//   - ReflectionAgent: ReAct plus a self-critique call every round
//   - PlanExecuteAgent: plan once, execute steps in inner bounded loops,
//     synthesize
//
// All loops favor forward progress: malformed structured output becomes a
// transcript entry and consumes budget, and budget exhaustion yields a
// degraded but well-formed response rather than an error.
package agent
