// Package model defines the generic "generate" capability the orchestration
// engine depends on, together with a bounded retry decorator and a scripted
// mock for tests. Concrete SDK adapters live in the anthropic and openai
// subpackages.
package model
