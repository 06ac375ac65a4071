// Package workflow provides combinators that compose executors into larger
// control-flow shapes: Chain (sequential pipe), Parallel (fan-out plus
// aggregation), Router (classify then dispatch), Orchestrator
// (plan/dispatch/synthesize) and EvaluatorOptimizer (generate/critique/
// refine). Every combinator is itself a core.Executor, so workflows nest
// arbitrarily.
package workflow
