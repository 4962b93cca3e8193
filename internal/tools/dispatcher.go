package tools

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"toolrun/internal/events"
	"toolrun/internal/permission"
	"toolrun/internal/repo"
	"toolrun/internal/util"
)

// Default output limits applied when a tool definition sets none.
const (
	DefaultMaxOutputLines = 2000
	DefaultMaxOutputBytes = 64 * 1024
)

// FullOutputKey is the metadata key holding untruncated output for tools
// that opt into KeepFullOutput.
const FullOutputKey = "full_output"

// ExternalDirectoryPermission is evaluated in addition to a tool's own
// permission when its subject path lies outside the workspace root.
const ExternalDirectoryPermission = "external_directory"

// Request is one tool call to dispatch.
type Request struct {
	SessionID string
	MessageID string
	Agent     string
	CallID    string
	ToolID    string
	Args      map[string]any
}

// Dispatcher runs tool calls through validation, the permission gate, and
// output truncation.
type Dispatcher struct {
	Registry      *Registry
	Permissions   *permission.Service
	WorkspaceRoot string
	Logger        *zap.Logger

	// Ask prompts the user when a call resolves to an ask decision. Nil
	// means such calls are denied.
	Ask AskFunc
	// Emit publishes lifecycle events. May be nil.
	Emit func(events.Event)
}

// NewDispatcher wires a dispatcher. Logger defaults to a no-op logger.
func NewDispatcher(reg *Registry, perms *permission.Service, workspaceRoot string, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		Registry:      reg,
		Permissions:   perms,
		WorkspaceRoot: workspaceRoot,
		Logger:        logger,
	}
}

func (d *Dispatcher) emit(t events.Type, payload any) {
	if d.Emit != nil {
		d.Emit(events.New(t, payload))
	}
}

// Dispatch runs one tool call end to end. The returned error, if any, is a
// *Error whose Kind tells the caller which stage rejected the call.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (Result, error) {
	if req.CallID == "" {
		req.CallID = uuid.NewString()
	}
	start := time.Now()
	log := d.Logger.With(
		zap.String("tool", req.ToolID),
		zap.String("call_id", req.CallID),
		zap.String("session_id", req.SessionID),
	)

	d.emit(events.ToolCallStarted, events.ToolCallStartedPayload{
		ToolID:    req.ToolID,
		CallID:    req.CallID,
		Input:     req.Args,
		StartedAt: start,
	})

	res, err := d.dispatch(ctx, req, log)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		log.Warn("tool call failed",
			zap.String("kind", string(KindOf(err))),
			zap.Error(err),
			zap.Int64("duration_ms", elapsed))
		d.emit(events.ToolCallFailed, events.ToolCallFailedPayload{
			ToolID:     req.ToolID,
			CallID:     req.CallID,
			Kind:       string(KindOf(err)),
			Message:    err.Error(),
			DurationMs: elapsed,
		})
		return Result{}, err
	}

	log.Info("tool call finished",
		zap.Int("output_bytes", len(res.Output)),
		zap.Int64("duration_ms", elapsed))
	d.emit(events.ToolCallFinished, events.ToolCallFinishedPayload{
		ToolID:     req.ToolID,
		CallID:     req.CallID,
		Title:      res.Title,
		Preview:    util.Preview(res.Output, 6, 512),
		LineCount:  strings.Count(res.Output, "\n") + 1,
		ByteCount:  len(res.Output),
		Truncated:  res.Metadata["truncated"] == true,
		DurationMs: elapsed,
	})
	return res, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, req Request, log *zap.Logger) (Result, error) {
	tool, err := d.Registry.Get(req.ToolID)
	if err != nil {
		return Result{}, err
	}
	def := tool.Definition()

	if req.Args == nil {
		req.Args = map[string]any{}
	}
	if err := ValidateArgs(def, req.Args); err != nil {
		return Result{}, err
	}

	ec := &ExecContext{
		SessionID:     req.SessionID,
		MessageID:     req.MessageID,
		CallID:        req.CallID,
		Agent:         req.Agent,
		WorkspaceRoot: d.WorkspaceRoot,
		Ask:           d.Ask,
		Metadata: func(callID, key string, value any) {
			d.emit(events.ToolCallProgress, events.ToolCallProgressPayload{
				CallID: callID,
				Key:    key,
				Value:  value,
			})
		},
	}

	if v, ok := tool.(Validator); ok {
		if err := v.Validate(req.Args, ec); err != nil {
			return Result{}, err
		}
	}

	if err := d.authorize(ctx, def, req, ec, log); err != nil {
		return Result{}, err
	}

	res, err := tool.Execute(ctx, req.Args, ec)
	if err != nil {
		if te, ok := err.(*Error); ok {
			return Result{}, te
		}
		return Result{}, WrapExecution(err, "%s", def.ID)
	}

	d.truncate(def, &res)
	return res, nil
}

// authorize evaluates the call's permission, escalating to the
// external-directory permission first when a path subject leaves the
// workspace. Ask decisions are forwarded to the user.
func (d *Dispatcher) authorize(ctx context.Context, def Definition, req Request, ec *ExecContext, log *zap.Logger) error {
	var subject string
	if def.Subject != nil {
		subject = def.Subject(req.Args)
	}

	if def.SubjectIsPath && subject != "" && d.WorkspaceRoot != "" {
		path := subject
		if !filepath.IsAbs(path) {
			path = filepath.Join(d.WorkspaceRoot, path)
		}
		if !repo.Inside(d.WorkspaceRoot, path) {
			if err := d.gate(ctx, def, ExternalDirectoryPermission, subject, req, ec, log); err != nil {
				return err
			}
		}
	}
	return d.gate(ctx, def, def.PermissionName(), subject, req, ec, log)
}

func (d *Dispatcher) gate(ctx context.Context, def Definition, perm, subject string, req Request, ec *ExecContext, log *zap.Logger) error {
	decision := d.Permissions.Evaluate(req.SessionID, perm, subject)
	switch decision {
	case permission.Allow:
		return nil
	case permission.Deny:
		return Permissionf("%s: %s denied for %q", def.ID, perm, subject)
	}

	log.Info("permission prompt", zap.String("permission", perm), zap.String("subject", subject))
	d.emit(events.PermissionPrompted, events.PermissionPromptedPayload{
		ToolID:     def.ID,
		CallID:     req.CallID,
		Permission: perm,
		Subject:    subject,
	})
	ans := ec.RequestPermission(ctx, def.ID, perm, subject)
	d.emit(events.PermissionResolved, events.PermissionResolvedPayload{
		CallID: req.CallID,
		Answer: string(ans),
	})
	switch ans {
	case AnswerAllow:
		return nil
	case AnswerAlways:
		d.Permissions.Grant(req.SessionID, perm, subject)
		return nil
	}
	return Permissionf("%s: %s rejected for %q", def.ID, perm, subject)
}

func (d *Dispatcher) truncate(def Definition, res *Result) {
	maxLines := def.MaxOutputLines
	if maxLines <= 0 {
		maxLines = DefaultMaxOutputLines
	}
	maxBytes := def.MaxOutputBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxOutputBytes
	}
	clamped, truncated := util.ClampOutput(res.Output, maxLines, maxBytes)
	if !truncated {
		return
	}
	if def.KeepFullOutput {
		res.Meta(FullOutputKey, res.Output)
	}
	res.Output = clamped
	res.Meta("truncated", true)
}
