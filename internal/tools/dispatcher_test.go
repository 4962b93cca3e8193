package tools

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"toolrun/internal/permission"
)

func testDispatcher(t *testing.T, rules map[string]any, reg *Registry) *Dispatcher {
	t.Helper()
	rs := permission.DefaultRuleset()
	if rules != nil {
		var err error
		rs, err = permission.FromMap(rules)
		if err != nil {
			t.Fatalf("FromMap: %v", err)
		}
	}
	perms := permission.NewService(rs, nil)
	return NewDispatcher(reg, perms, t.TempDir(), nil)
}

func TestDispatchUnknownTool(t *testing.T) {
	d := testDispatcher(t, map[string]any{"_": "allow"}, NewRegistry())
	_, err := d.Dispatch(context.Background(), Request{SessionID: "s", ToolID: "nope"})
	if err == nil || KindOf(err) != KindNotFound {
		t.Fatalf("expected not_found error, got %v", err)
	}
}

func TestDispatchMissingRequiredArg(t *testing.T) {
	reg := NewRegistry(stubTool{def: Definition{
		ID:         "echo",
		Parameters: map[string]Parameter{"text": {Type: "string"}},
		Required:   []string{"text"},
	}})
	d := testDispatcher(t, map[string]any{"_": "allow"}, reg)
	_, err := d.Dispatch(context.Background(), Request{SessionID: "s", ToolID: "echo"})
	if err == nil || KindOf(err) != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDispatchWrongArgType(t *testing.T) {
	reg := NewRegistry(stubTool{def: Definition{
		ID:         "echo",
		Parameters: map[string]Parameter{"count": {Type: "integer"}},
	}})
	d := testDispatcher(t, map[string]any{"_": "allow"}, reg)
	_, err := d.Dispatch(context.Background(), Request{
		SessionID: "s",
		ToolID:    "echo",
		Args:      map[string]any{"count": "three"},
	})
	if err == nil || KindOf(err) != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDispatchDeniedByRules(t *testing.T) {
	reg := NewRegistry(stubTool{def: Definition{
		ID:      "echo",
		Subject: func(args map[string]any) string { return StringArg(args, "text") },
	}})
	d := testDispatcher(t, map[string]any{"echo": "deny"}, reg)
	_, err := d.Dispatch(context.Background(), Request{
		SessionID: "s",
		ToolID:    "echo",
		Args:      map[string]any{"text": "hi"},
	})
	if err == nil || KindOf(err) != KindPermission {
		t.Fatalf("expected permission error, got %v", err)
	}
}

func TestDispatchAskWithoutPrompterDenies(t *testing.T) {
	reg := NewRegistry(stubTool{def: Definition{ID: "echo"}})
	d := testDispatcher(t, map[string]any{"echo": "ask"}, reg)
	_, err := d.Dispatch(context.Background(), Request{SessionID: "s", ToolID: "echo"})
	if err == nil || KindOf(err) != KindPermission {
		t.Fatalf("expected permission error without prompter, got %v", err)
	}
}

func TestDispatchAskAllowAndAlways(t *testing.T) {
	reg := NewRegistry(stubTool{def: Definition{
		ID:      "echo",
		Subject: func(args map[string]any) string { return StringArg(args, "text") },
	}})
	d := testDispatcher(t, map[string]any{"echo": "ask"}, reg)

	prompts := 0
	d.Ask = func(ctx context.Context, req AskRequest) {
		prompts++
		req.Reply <- AnswerAlways
	}

	req := Request{SessionID: "s", ToolID: "echo", Args: map[string]any{"text": "hi"}}
	if _, err := d.Dispatch(context.Background(), req); err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	if _, err := d.Dispatch(context.Background(), req); err != nil {
		t.Fatalf("second dispatch: %v", err)
	}
	if prompts != 1 {
		t.Fatalf("always-allow did not cache: %d prompts", prompts)
	}
}

func TestDispatchExternalDirectoryEscalation(t *testing.T) {
	reg := NewRegistry(stubTool{def: Definition{
		ID:            "probe",
		Subject:       func(args map[string]any) string { return StringArg(args, "path") },
		SubjectIsPath: true,
	}})
	d := testDispatcher(t, map[string]any{
		"_":                  "allow",
		"external_directory": "deny",
	}, reg)

	inside := d.WorkspaceRoot + "/file.txt"
	if _, err := d.Dispatch(context.Background(), Request{
		SessionID: "s", ToolID: "probe", Args: map[string]any{"path": inside},
	}); err != nil {
		t.Fatalf("inside workspace should pass: %v", err)
	}

	_, err := d.Dispatch(context.Background(), Request{
		SessionID: "s", ToolID: "probe", Args: map[string]any{"path": "/etc/hosts"},
	})
	if err == nil || KindOf(err) != KindPermission {
		t.Fatalf("outside workspace should be denied, got %v", err)
	}
}

func TestDispatchTruncation(t *testing.T) {
	var big strings.Builder
	for i := 1; i <= 3000; i++ {
		fmt.Fprintf(&big, "line %d\n", i)
	}
	reg := NewRegistry(stubTool{
		def: Definition{ID: "spew", KeepFullOutput: true},
		run: func(ctx context.Context, args map[string]any, ec *ExecContext) (Result, error) {
			return Result{Output: big.String()}, nil
		},
	})
	d := testDispatcher(t, map[string]any{"_": "allow"}, reg)

	res, err := d.Dispatch(context.Background(), Request{SessionID: "s", ToolID: "spew"})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	lines := strings.Split(res.Output, "\n")
	if len(lines) != DefaultMaxOutputLines+1 {
		t.Fatalf("got %d lines, want %d plus marker", len(lines), DefaultMaxOutputLines)
	}
	marker := lines[len(lines)-1]
	if marker != "... [1000 lines omitted]" {
		t.Fatalf("marker = %q", marker)
	}
	full, ok := res.Metadata[FullOutputKey].(string)
	if !ok || strings.Count(full, "\n") != 3000 {
		t.Fatalf("full output not preserved in metadata")
	}
	if res.Metadata["truncated"] != true {
		t.Fatalf("truncated metadata not set")
	}
}

func TestDispatchValidatorRunsBeforePermission(t *testing.T) {
	reg := NewRegistry(validatingTool{})
	d := testDispatcher(t, map[string]any{"checked": "deny"}, reg)
	_, err := d.Dispatch(context.Background(), Request{
		SessionID: "s", ToolID: "checked", Args: map[string]any{"bad": true},
	})
	if err == nil || KindOf(err) != KindValidation {
		t.Fatalf("validator should reject before the permission gate, got %v", err)
	}
}

type validatingTool struct{}

func (validatingTool) Definition() Definition { return Definition{ID: "checked"} }

func (validatingTool) Validate(args map[string]any, ec *ExecContext) error {
	if args["bad"] == true {
		return Validationf("checked: bad argument")
	}
	return nil
}

func (validatingTool) Execute(ctx context.Context, args map[string]any, ec *ExecContext) (Result, error) {
	return Result{}, nil
}
