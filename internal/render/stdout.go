package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"toolrun/internal/events"
)

// StdoutRenderer streams events to a plain text writer.
type StdoutRenderer struct {
	w          io.Writer
	mu         sync.Mutex
	verbose    bool
	quiet      bool
	showHeader bool
}

// NewStdoutRenderer creates a renderer for plain text streaming.
func NewStdoutRenderer(w io.Writer, verbose bool, quiet bool, showHeader bool) *StdoutRenderer {
	return &StdoutRenderer{w: w, verbose: verbose, quiet: quiet, showHeader: showHeader}
}

func (r *StdoutRenderer) Emit(event events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch event.Type {
	case events.SessionStarted:
		if payload, ok := event.Payload.(events.SessionStartedPayload); ok {
			if r.quiet || !r.showHeader {
				return
			}
			fmt.Fprintf(r.w, "toolrun v%s | workspace: %s | session: %s\n", payload.Version, payload.WorkspaceRoot, payload.SessionID)
			fmt.Fprintf(r.w, "tools: %s\n", strings.Join(payload.Tools, ", "))
		}
	case events.ToolCallStarted:
		if payload, ok := event.Payload.(events.ToolCallStartedPayload); ok {
			if r.quiet || !r.verbose {
				return
			}
			fmt.Fprintf(r.w, "tool: %s start\n", payload.ToolID)
			fmt.Fprintf(r.w, "input: %v\n", payload.Input)
		}
	case events.ToolCallProgress:
		if payload, ok := event.Payload.(events.ToolCallProgressPayload); ok {
			if r.quiet || !r.verbose {
				return
			}
			if payload.Key == "output_line" {
				fmt.Fprintf(r.w, "  | %v\n", payload.Value)
			}
		}
	case events.PermissionPrompted:
		if payload, ok := event.Payload.(events.PermissionPromptedPayload); ok {
			if r.quiet {
				return
			}
			fmt.Fprintf(r.w, "permission: %s on %q needs approval\n", payload.Permission, payload.Subject)
		}
	case events.PermissionResolved:
		if payload, ok := event.Payload.(events.PermissionResolvedPayload); ok {
			if r.quiet || !r.verbose {
				return
			}
			fmt.Fprintf(r.w, "permission: %s\n", payload.Answer)
		}
	case events.ToolCallFinished:
		if payload, ok := event.Payload.(events.ToolCallFinishedPayload); ok {
			if r.quiet {
				return
			}
			trunc := ""
			if payload.Truncated {
				trunc = ", truncated"
			}
			fmt.Fprintf(r.w, "tool: %s ok (%dms, %d lines, %d bytes%s)\n", payload.ToolID, payload.DurationMs, payload.LineCount, payload.ByteCount, trunc)
			if r.verbose && payload.Preview != "" {
				fmt.Fprintln(r.w, "preview:")
				for _, line := range strings.Split(payload.Preview, "\n") {
					fmt.Fprintf(r.w, "  %s\n", line)
				}
			}
		}
	case events.ToolCallFailed:
		if payload, ok := event.Payload.(events.ToolCallFailedPayload); ok {
			if r.quiet {
				return
			}
			fmt.Fprintf(r.w, "tool: %s err [%s] %s (%dms)\n", payload.ToolID, payload.Kind, payload.Message, payload.DurationMs)
		}
	case events.SessionFinished:
		if payload, ok := event.Payload.(events.SessionFinishedPayload); ok {
			if r.quiet || !r.showHeader {
				return
			}
			fmt.Fprintf(r.w, "session %s: %s\n", payload.SessionID, payload.Status)
		}
	}
}

func (r *StdoutRenderer) Close() error {
	return nil
}
