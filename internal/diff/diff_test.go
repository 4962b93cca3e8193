package diff

import (
	"strings"
	"testing"
)

func TestUnifiedEqual(t *testing.T) {
	if got := Unified("f.txt", "same\n", "same\n"); got != "" {
		t.Fatalf("equal inputs should produce an empty diff, got %q", got)
	}
}

func TestUnifiedSingleChange(t *testing.T) {
	before := "one\ntwo\nthree\n"
	after := "one\nTWO\nthree\n"
	got := Unified("f.txt", before, after)

	if !strings.HasPrefix(got, "--- f.txt\n+++ f.txt\n") {
		t.Fatalf("missing headers: %q", got)
	}
	if !strings.Contains(got, "-two\n") || !strings.Contains(got, "+TWO\n") {
		t.Fatalf("change lines missing: %q", got)
	}
	if !strings.Contains(got, " one\n") || !strings.Contains(got, " three\n") {
		t.Fatalf("context lines missing: %q", got)
	}
	if !strings.Contains(got, "@@ -1,3 +1,3 @@") {
		t.Fatalf("hunk header = %q", got)
	}
}

func TestUnifiedInsertOnly(t *testing.T) {
	got := Unified("f.txt", "a\nb\n", "a\nnew\nb\n")
	if !strings.Contains(got, "+new\n") {
		t.Fatalf("insertion missing: %q", got)
	}
	if strings.Contains(got, "-") && strings.Contains(got, "\n-a") {
		t.Fatalf("unexpected deletion: %q", got)
	}
}

func TestUnifiedSeparateHunks(t *testing.T) {
	var before, after strings.Builder
	for i := 0; i < 30; i++ {
		line := "line\n"
		before.WriteString(line)
		switch i {
		case 2:
			after.WriteString("changed-top\n")
		case 27:
			after.WriteString("changed-bottom\n")
		default:
			after.WriteString(line)
		}
	}
	got := Unified("f.txt", before.String(), after.String())
	if strings.Count(got, "@@") != 4 {
		t.Fatalf("expected two hunks (four @@ markers), got %q", got)
	}
}

func TestUnifiedLargeInputFallback(t *testing.T) {
	var before, after strings.Builder
	for i := 0; i <= maxDiffLines; i++ {
		before.WriteString("a\n")
		after.WriteString("b\n")
	}
	got := Unified("big.txt", before.String(), after.String())
	if got == "" {
		t.Fatalf("oversized inputs should still produce a diff")
	}
	if !strings.Contains(got, "-a\n") || !strings.Contains(got, "+b\n") {
		t.Fatalf("fallback should emit a whole-file replacement hunk: %.200q", got)
	}
}

func TestUnifiedMergesNearbyChanges(t *testing.T) {
	before := "a\nb\nc\nd\ne\nf\n"
	after := "A\nb\nc\nd\ne\nF\n"
	got := Unified("f.txt", before, after)
	if strings.Count(got, "@@") != 2 {
		t.Fatalf("close changes should share one hunk: %q", got)
	}
}
