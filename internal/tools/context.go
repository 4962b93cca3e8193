package tools

import "context"

// Answer is a user's response to a permission prompt.
type Answer string

const (
	// AnswerAllow permits this call only.
	AnswerAllow Answer = "allow"
	// AnswerAlways permits this call and grants the subject for the rest of
	// the session.
	AnswerAlways Answer = "always"
	// AnswerDeny rejects the call.
	AnswerDeny Answer = "deny"
)

// AskRequest is a pending permission prompt. The receiver must send exactly
// one Answer on Reply; the requester stops listening once its context ends.
type AskRequest struct {
	ToolID     string
	CallID     string
	Permission string
	Subject    string
	Reply      chan Answer
}

// AskFunc presents a permission prompt to the user.
type AskFunc func(ctx context.Context, req AskRequest)

// MetadataFunc receives streaming metadata emitted by a running call, such
// as shell output lines.
type MetadataFunc func(callID, key string, value any)

// ExecContext carries per-call identity and the callbacks a tool uses to
// reach back into the session while it runs.
type ExecContext struct {
	SessionID string
	MessageID string
	CallID    string
	Agent     string

	// WorkspaceRoot anchors relative paths and the external-directory
	// permission boundary.
	WorkspaceRoot string

	// Metadata streams progress from a running call. May be nil.
	Metadata MetadataFunc
	// Ask prompts the user for a permission decision. Nil means prompts are
	// answered with AnswerDeny.
	Ask AskFunc

	// Extra carries host-specific values that tools from plugins may need.
	Extra map[string]any
}

// Meta emits streaming metadata for the current call. Safe to call with a
// nil Metadata callback.
func (ec *ExecContext) Meta(key string, value any) {
	if ec.Metadata != nil {
		ec.Metadata(ec.CallID, key, value)
	}
}

// RequestPermission prompts the user and waits for an answer. A cancelled
// context resolves to AnswerDeny so an abandoned call can never slip through
// as approved.
func (ec *ExecContext) RequestPermission(ctx context.Context, toolID, permission, subject string) Answer {
	if ec.Ask == nil {
		return AnswerDeny
	}
	req := AskRequest{
		ToolID:     toolID,
		CallID:     ec.CallID,
		Permission: permission,
		Subject:    subject,
		Reply:      make(chan Answer, 1),
	}
	go ec.Ask(ctx, req)
	select {
	case ans := <-req.Reply:
		return ans
	case <-ctx.Done():
		return AnswerDeny
	}
}
