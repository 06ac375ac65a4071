package model

import (
	"context"
	"fmt"
	"sync"
)

// Message roles used in requests.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one conversational turn in a generation request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request captures the normalized model input produced by agents and
// workflows. Structured output is requested through the prompt itself (the
// reasoning loops expect a JSON object embedded in the response text).
type Request struct {
	// Instructions is the system prompt, kept separate because providers
	// transport it outside the message list.
	Instructions string    `json:"instructions,omitempty"`
	Messages     []Message `json:"messages"`
}

// Response is the final completion returned by a provider.
type Response struct {
	Text string `json:"text"`
}

// Info contains metadata about a provider implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", ...
}

// Provider is the minimal generation capability required by agents and
// workflows. Implementations are expected to be wrapped by WithRetry so that
// transient transport failures are retried a bounded number of times at this
// boundary and nowhere else.
type Provider interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	Info() Info
}

// MockProvider is a scripted in-memory Provider for tests and examples. Each
// Generate call consumes the next scripted reply in order; the final reply
// repeats once the script is exhausted. Scripted errors are supported via
// FailWith. All methods are safe for concurrent use.
type MockProvider struct {
	mu       sync.Mutex
	replies  []string
	errs     map[int]error // call index -> error
	calls    int
	requests []Request
}

// NewMockProvider constructs a provider that replays the given replies in
// order.
func NewMockProvider(replies ...string) *MockProvider {
	return &MockProvider{replies: replies, errs: make(map[int]error)}
}

// FailWith schedules err to be returned on the given zero-based call index
// instead of a reply.
func (m *MockProvider) FailWith(callIndex int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[callIndex] = err
}

// Generate implements Provider.
func (m *MockProvider) Generate(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.calls
	m.calls++
	m.requests = append(m.requests, req)

	if err, ok := m.errs[idx]; ok {
		return nil, err
	}
	if len(m.replies) == 0 {
		return nil, fmt.Errorf("mock provider has no scripted replies")
	}
	if idx >= len(m.replies) {
		idx = len(m.replies) - 1
	}
	return &Response{Text: m.replies[idx]}, nil
}

// Info implements Provider.
func (m *MockProvider) Info() Info { return Info{Name: "mock", Provider: "mock"} }

// Calls reports how many Generate calls were made.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Requests returns a copy of the recorded requests in call order.
func (m *MockProvider) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}
