// Package callback implements the pub/sub notification bus that decouples
// producers (agents, workflows, tool calls) from pluggable sinks (memory,
// persistent stores, UIs). Delivery is fan-out with per-sink failure
// isolation: a broken sink is logged and skipped, never allowed to block
// siblings or abort the producing execution.
package callback
