package core

import (
	"encoding/json"
	"fmt"
)

// Response is the normalized result of one Execute call. Content may be a
// plain string, a mapping or an arbitrary structured object; Text and
// Mapping provide normalized accessors.
type Response struct {
	Name      string `json:"name"`       // producing executor's name
	ClassName string `json:"class_name"` // producing executor's concrete type
	Content   any    `json:"response"`
	TraceID   string `json:"trace_id"`
}

// NewResponse creates a response carrying arbitrary structured content.
func NewResponse(name, className string, content any) *Response {
	return &Response{Name: name, ClassName: className, Content: content}
}

// Text returns the content normalized to a string. Mappings and structured
// objects are rendered as compact JSON; anything else falls back to fmt.
func (r *Response) Text() string {
	switch v := r.Content.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		if data, err := json.Marshal(v); err == nil {
			return string(data)
		}
		return fmt.Sprintf("%v", v)
	}
}

// Mapping returns the content normalized to a string-keyed map. String
// content is decoded as JSON when possible; non-mapping content yields nil.
func (r *Response) Mapping() map[string]any {
	switch v := r.Content.(type) {
	case map[string]any:
		return v
	case string:
		var m map[string]any
		if err := json.Unmarshal([]byte(v), &m); err == nil {
			return m
		}
		return nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			return nil
		}
		return m
	}
}
