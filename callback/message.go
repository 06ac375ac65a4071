package callback

import (
	"time"

	"github.com/google/uuid"
)

// MessageType is the closed enum of notification categories carried by a
// Message.
type MessageType string

const (
	// TypeEvent marks lifecycle notifications (before/after call).
	TypeEvent MessageType = "EVENT"
	// TypeStatus marks execution status transitions (running, succeeded, failed).
	TypeStatus MessageType = "STATUS"
	// TypeResponse carries the final response payload of an execution.
	TypeResponse MessageType = "RESPONSE"
	// TypeLog carries free-form diagnostic entries.
	TypeLog MessageType = "LOG"
	// TypeError carries failure notifications.
	TypeError MessageType = "ERROR"
	// TypeProgress carries incremental progress notifications.
	TypeProgress MessageType = "PROGRESS"
)

// Lifecycle event names used in EVENT messages.
const (
	EventBeforeCall = "before_call"
	EventAfterCall  = "after_call"
)

// Execution statuses used in STATUS messages. Every execution emits exactly
// one terminal status: StatusSucceeded or StatusFailed.
const (
	StatusRunning   = "RUNNING"
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
)

// Message is the unit of communication between producers (agents, workflows,
// tool calls) and pluggable sinks. After emission it should be treated as
// immutable.
type Message struct {
	ID        string            `json:"id"`
	Source    string            `json:"source"`
	Type      MessageType       `json:"type"`
	ProjectID string            `json:"project_id"`
	Data      map[string]any    `json:"data,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// NewMessage creates a message of the given type. The timestamp is left
// unset; the Bus stamps it at send time if still zero.
func NewMessage(msgType MessageType, source, projectID string, data map[string]any) Message {
	return Message{
		ID:        uuid.NewString(),
		Source:    source,
		Type:      msgType,
		ProjectID: projectID,
		Data:      data,
	}
}

// NewEventMessage creates an EVENT message for a lifecycle notification such
// as EventBeforeCall or EventAfterCall.
func NewEventMessage(source, projectID, event string) Message {
	return NewMessage(TypeEvent, source, projectID, map[string]any{"event": event})
}

// NewStatusMessage creates a STATUS message for an execution state
// transition.
func NewStatusMessage(source, projectID, status string) Message {
	return NewMessage(TypeStatus, source, projectID, map[string]any{"status": status})
}

// NewResponseMessage creates a RESPONSE message carrying the final response
// payload and its trace identifier.
func NewResponseMessage(source, projectID string, response any, traceID string) Message {
	return NewMessage(TypeResponse, source, projectID, map[string]any{
		"response": response,
		"trace_id": traceID,
	})
}

// NewErrorMessage creates an ERROR message for a failed execution.
func NewErrorMessage(source, projectID string, err error) Message {
	return NewMessage(TypeError, source, projectID, map[string]any{"error": err.Error()})
}

// NewProgressMessage creates a PROGRESS message, e.g. per-step notifications
// from a plan executor.
func NewProgressMessage(source, projectID, detail string) Message {
	return NewMessage(TypeProgress, source, projectID, map[string]any{"detail": detail})
}

// NewLogMessage creates a LOG message with a free-form text entry.
func NewLogMessage(source, projectID, text string) Message {
	return NewMessage(TypeLog, source, projectID, map[string]any{"text": text})
}
