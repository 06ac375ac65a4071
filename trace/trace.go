package trace

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record roles tag who produced a trace entry.
const (
	RoleLLM      = "llm"
	RoleTool     = "tool"
	RoleAgent    = "agent"
	RoleWorkflow = "workflow"
)

// Record is one structured, role-tagged entry inside a Scope, appended in
// call order.
type Record struct {
	Role      string         `json:"role"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

// Scope is one node of the hierarchical execution record. Children are
// attached in creation order; once a scope is closed it is immutable.
//
// A Scope is safe for concurrent use: concurrent Sprout calls from the same
// parent each receive an independent child, and record appends from one
// branch never interleave with a sibling's record list.
type Scope struct {
	id   string
	name string
	kind string

	mu       sync.Mutex
	records  []Record
	children []*Scope
	closed   bool
}

// newScope constructs an open scope with a generated identifier.
func newScope(name, kind string) *Scope {
	return &Scope{id: uuid.NewString(), name: name, kind: kind}
}

// ID returns the scope's unique identifier.
func (s *Scope) ID() string { return s.id }

// Name returns the human-readable scope name (usually the executor name).
func (s *Scope) Name() string { return s.name }

// Kind returns the scope kind (e.g. "agent", "workflow").
func (s *Scope) Kind() string { return s.kind }

// Sprout creates a new child scope and attaches it to this scope's child
// list immediately, so the attachment survives every exit path of the
// child's work, success or failure. The returned child is independent: a
// concurrent sibling never contends on its record list.
//
// Callers should close the child when its work is done:
//
//	child := scope.Sprout("worker", "agent")
//	defer child.Close()
func (s *Scope) Sprout(name, kind string) *Scope {
	child := newScope(name, kind)
	s.mu.Lock()
	s.children = append(s.children, child)
	s.mu.Unlock()
	return child
}

// Add appends one role-tagged record to this scope in call order. Adding to
// a closed scope is a silent no-op: tracing is best-effort and must never
// abort the traced operation.
func (s *Scope) Add(role string, data map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.records = append(s.records, Record{Role: role, Data: data, Timestamp: time.Now().UTC()})
}

// Close seals the scope. Subsequent Add calls are dropped. Close is
// idempotent; already-attached children remain reachable.
func (s *Scope) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Closed reports whether the scope has been sealed.
func (s *Scope) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Records returns a copy of the scope's records in append order.
func (s *Scope) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Children returns a copy of the scope's child list in creation order.
func (s *Scope) Children() []*Scope {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Scope, len(s.children))
	copy(out, s.children)
	return out
}

// Node is an immutable snapshot of a scope subtree, preserving record and
// child order.
type Node struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Kind     string   `json:"kind"`
	Records  []Record `json:"records"`
	Children []*Node  `json:"children,omitempty"`
}

// Snapshot deep-copies the reachable tree rooted at this scope.
func (s *Scope) Snapshot() *Node {
	node := &Node{ID: s.id, Name: s.name, Kind: s.kind, Records: s.Records()}
	for _, child := range s.Children() {
		node.Children = append(node.Children, child.Snapshot())
	}
	return node
}

// find walks the subtree for a scope with the given id.
func (s *Scope) find(id string) *Scope {
	if s.id == id {
		return s
	}
	for _, child := range s.Children() {
		if found := child.find(id); found != nil {
			return found
		}
	}
	return nil
}

// Tracer owns the forest of root scopes created for top-level executions.
// Nested executions never talk to the Tracer directly; they sprout from the
// scope carried on the context.
type Tracer struct {
	mu    sync.Mutex
	roots []*Scope
}

// NewTracer creates an empty tracer.
func NewTracer() *Tracer {
	return &Tracer{}
}

// Root creates a new root scope for a top-level execution.
func (t *Tracer) Root(name, kind string) *Scope {
	root := newScope(name, kind)
	t.mu.Lock()
	t.roots = append(t.roots, root)
	t.mu.Unlock()
	return root
}

// Roots returns the root scopes in creation order.
func (t *Tracer) Roots() []*Scope {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Scope, len(t.roots))
	copy(out, t.roots)
	return out
}

// Get returns the scope with the given id anywhere in the forest, or nil.
func (t *Tracer) Get(id string) *Scope {
	for _, root := range t.Roots() {
		if found := root.find(id); found != nil {
			return found
		}
	}
	return nil
}

// Trace returns a snapshot of the tree reachable from the scope with the
// given id, or nil when the id is unknown.
func (t *Tracer) Trace(id string) *Node {
	scope := t.Get(id)
	if scope == nil {
		return nil
	}
	return scope.Snapshot()
}
