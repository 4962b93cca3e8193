package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestGlobRegexp(t *testing.T) {
	cases := []struct {
		pattern string
		rel     string
		want    bool
	}{
		{"*.go", "main.go", true},
		{"*.go", "pkg/main.go", false},
		{"**/*.go", "pkg/sub/main.go", true},
		{"**/*.go", "main.go", true},
		{"pkg/**/*.go", "pkg/a/b/c.go", true},
		{"pkg/**/*.go", "other/a.go", false},
		{"fil?.txt", "file.txt", true},
		{"fil?.txt", "files.txt", false},
	}
	for _, tc := range cases {
		re, err := globRegexp(tc.pattern)
		if err != nil {
			t.Fatalf("globRegexp(%q): %v", tc.pattern, err)
		}
		if got := re.MatchString(tc.rel); got != tc.want {
			t.Errorf("pattern %q against %q = %v, want %v", tc.pattern, tc.rel, got, tc.want)
		}
	}
}

func TestGlobSortsByModTime(t *testing.T) {
	dir := t.TempDir()
	older := writeTestFile(t, dir, "older.go", "package a\n")
	newer := writeTestFile(t, dir, "newer.go", "package a\n")
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	ec := &ExecContext{WorkspaceRoot: dir}

	res, err := GlobTool{}.Execute(context.Background(), map[string]any{"pattern": "*.go"}, ec)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(res.Output), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d results: %q", len(lines), res.Output)
	}
	if lines[0] != newer || lines[1] != older {
		t.Fatalf("order = %v, want newest first", lines)
	}
}

func TestGlobSkipsVendorDirs(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "node_modules", "dep"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeTestFile(t, filepath.Join(dir, "node_modules", "dep"), "index.js", "x")
	writeTestFile(t, dir, "app.js", "x")
	ec := &ExecContext{WorkspaceRoot: dir}

	res, err := GlobTool{}.Execute(context.Background(), map[string]any{"pattern": "**/*.js"}, ec)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if strings.Contains(res.Output, "node_modules") {
		t.Fatalf("vendor dir not skipped: %q", res.Output)
	}
	if !strings.Contains(res.Output, "app.js") {
		t.Fatalf("app.js missing: %q", res.Output)
	}
}

func TestGlobCap(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < globMaxResults+20; i++ {
		writeTestFile(t, dir, fmt.Sprintf("f%03d.txt", i), "x")
	}
	ec := &ExecContext{WorkspaceRoot: dir}

	res, err := GlobTool{}.Execute(context.Background(), map[string]any{"pattern": "*.txt"}, ec)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Metadata["capped"] != true {
		t.Fatalf("capped metadata = %v", res.Metadata["capped"])
	}
	if res.Metadata["count"] != globMaxResults {
		t.Fatalf("count = %v, want %d", res.Metadata["count"], globMaxResults)
	}
	if !strings.Contains(res.Output, "narrow the pattern") {
		t.Fatalf("cap note missing: %q", res.Output)
	}
}

func TestGlobNoMatches(t *testing.T) {
	dir := t.TempDir()
	ec := &ExecContext{WorkspaceRoot: dir}
	res, err := GlobTool{}.Execute(context.Background(), map[string]any{"pattern": "*.zig"}, ec)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(res.Output, "no files match") {
		t.Fatalf("output = %q", res.Output)
	}
}
