// Package events defines the envelope and payloads emitted over a tool
// call's lifecycle.
package events

import "time"

// Type represents an emitted event type.
type Type string

const (
	SessionStarted     Type = "SessionStarted"
	ToolCallStarted    Type = "ToolCallStarted"
	ToolCallProgress   Type = "ToolCallProgress"
	PermissionPrompted Type = "PermissionPrompted"
	PermissionResolved Type = "PermissionResolved"
	ToolCallFinished   Type = "ToolCallFinished"
	ToolCallFailed     Type = "ToolCallFailed"
	SessionFinished    Type = "SessionFinished"
)

// Event is the common envelope for renderer events.
type Event struct {
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// New wraps a payload in an envelope stamped with the current time.
func New(t Type, payload any) Event {
	return Event{Type: t, Timestamp: time.Now(), Payload: payload}
}

// SessionStartedPayload is emitted when a session opens.
type SessionStartedPayload struct {
	Version       string    `json:"version"`
	SessionID     string    `json:"session_id"`
	WorkspaceRoot string    `json:"workspace_root"`
	Tools         []string  `json:"tools"`
	StartedAt     time.Time `json:"started_at"`
}

// ToolCallStartedPayload marks tool call start.
type ToolCallStartedPayload struct {
	ToolID    string    `json:"tool_id"`
	CallID    string    `json:"call_id"`
	Input     any       `json:"input"`
	StartedAt time.Time `json:"started_at"`
}

// ToolCallProgressPayload carries streamed metadata from a running call.
type ToolCallProgressPayload struct {
	CallID string `json:"call_id"`
	Key    string `json:"key"`
	Value  any    `json:"value"`
}

// PermissionPromptedPayload is emitted when a call needs user confirmation.
type PermissionPromptedPayload struct {
	ToolID     string `json:"tool_id"`
	CallID     string `json:"call_id"`
	Permission string `json:"permission"`
	Subject    string `json:"subject"`
}

// PermissionResolvedPayload records the user's answer.
type PermissionResolvedPayload struct {
	CallID string `json:"call_id"`
	Answer string `json:"answer"`
}

// ToolCallFinishedPayload marks tool call end.
type ToolCallFinishedPayload struct {
	ToolID     string `json:"tool_id"`
	CallID     string `json:"call_id"`
	Title      string `json:"title"`
	Preview    string `json:"preview"`
	LineCount  int    `json:"line_count"`
	ByteCount  int    `json:"byte_count"`
	Truncated  bool   `json:"truncated"`
	DurationMs int64  `json:"duration_ms"`
}

// ToolCallFailedPayload records a failed call.
type ToolCallFailedPayload struct {
	ToolID     string `json:"tool_id"`
	CallID     string `json:"call_id"`
	Kind       string `json:"kind"`
	Message    string `json:"message"`
	DurationMs int64  `json:"duration_ms"`
}

// SessionFinishedPayload closes the session.
type SessionFinishedPayload struct {
	SessionID  string    `json:"session_id"`
	Status     string    `json:"status"`
	FinishedAt time.Time `json:"finished_at"`
}
