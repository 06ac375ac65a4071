package callback

import (
	"context"
	"sync"

	"github.com/hupe1980/agentweave/logging"
)

// MemorySink captures delivered messages in memory. It is safe for
// concurrent use and mainly intended for tests and local inspection.
type MemorySink struct {
	mu       sync.Mutex
	messages []Message
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Handle implements Sink.
func (s *MemorySink) Handle(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return nil
}

// Messages returns a copy of the captured messages in delivery order.
func (s *MemorySink) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// OfType returns the captured messages matching the given type, preserving
// delivery order.
func (s *MemorySink) OfType(msgType MessageType) []Message {
	var out []Message
	for _, msg := range s.Messages() {
		if msg.Type == msgType {
			out = append(out, msg)
		}
	}
	return out
}

// Reset drops all captured messages.
func (s *MemorySink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}

// LoggingSink forwards every message to a structured logger.
type LoggingSink struct {
	logger logging.Logger
}

// NewLoggingSink creates a sink writing one log line per message.
func NewLoggingSink(logger logging.Logger) *LoggingSink {
	return &LoggingSink{logger: logging.OrNoOp(logger)}
}

// Handle implements Sink.
func (s *LoggingSink) Handle(_ context.Context, msg Message) error {
	s.logger.Info("callback message",
		"type", string(msg.Type),
		"source", msg.Source,
		"project_id", msg.ProjectID,
		"data", msg.Data,
	)
	return nil
}
