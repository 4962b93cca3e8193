package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestListTree(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "src"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeTestFile(t, filepath.Join(dir, "src"), "main.go", "x")
	writeTestFile(t, dir, "readme.md", "x")
	writeTestFile(t, dir, ".hidden", "x")
	ec := &ExecContext{WorkspaceRoot: dir}

	res, err := ListTool{}.Execute(context.Background(), map[string]any{"path": dir}, ec)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	out := res.Output
	if !strings.Contains(out, "├── src/") {
		t.Fatalf("directories should come first with a tree connector: %q", out)
	}
	if !strings.Contains(out, "│   └── main.go") {
		t.Fatalf("nested file missing: %q", out)
	}
	if !strings.Contains(out, "└── readme.md") {
		t.Fatalf("last entry should use the closing connector: %q", out)
	}
	if strings.Contains(out, ".hidden") {
		t.Fatalf("dotfiles should be skipped: %q", out)
	}
}

func TestListIgnorePatterns(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "keep.go", "x")
	writeTestFile(t, dir, "skip.log", "x")
	ec := &ExecContext{WorkspaceRoot: dir}

	res, err := ListTool{}.Execute(context.Background(), map[string]any{
		"path":   dir,
		"ignore": []any{"*.log"},
	}, ec)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if strings.Contains(res.Output, "skip.log") {
		t.Fatalf("ignore pattern not applied: %q", res.Output)
	}
	if !strings.Contains(res.Output, "keep.go") {
		t.Fatalf("keep.go missing: %q", res.Output)
	}
}

func TestListWorkspaceIgnoreFile(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, ".gitignore", "# build output\nbin\n*.tmp\n")
	if err := os.MkdirAll(filepath.Join(dir, "bin"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeTestFile(t, dir, "scratch.tmp", "x")
	writeTestFile(t, dir, "main.go", "x")
	ec := &ExecContext{WorkspaceRoot: dir}

	res, err := ListTool{}.Execute(context.Background(), map[string]any{"path": dir}, ec)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if strings.Contains(res.Output, "bin/") || strings.Contains(res.Output, "scratch.tmp") {
		t.Fatalf("workspace ignore file not honored: %q", res.Output)
	}
	if !strings.Contains(res.Output, "main.go") {
		t.Fatalf("main.go missing: %q", res.Output)
	}
}

func TestListNonDirectory(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "f.txt", "x")
	ec := &ExecContext{WorkspaceRoot: dir}
	_, err := ListTool{}.Execute(context.Background(), map[string]any{"path": path}, ec)
	if err == nil || KindOf(err) != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
