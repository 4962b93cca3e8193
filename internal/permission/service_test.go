package permission

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestServiceReplace(t *testing.T) {
	s := NewService(nil, nil)
	if got := s.Evaluate("s1", "bash", "ls"); got != Ask {
		t.Fatalf("default bash decision = %s, want ask", got)
	}

	rs, err := FromMap(map[string]any{"bash": "allow"})
	if err != nil {
		t.Fatalf("FromMap: %v", err)
	}
	s.Replace(rs)
	if got := s.Evaluate("s1", "bash", "ls"); got != Allow {
		t.Fatalf("after replace bash decision = %s, want allow", got)
	}
}

func TestServiceGrant(t *testing.T) {
	s := NewService(nil, nil)
	if got := s.Evaluate("s1", "bash", "git status"); got != Ask {
		t.Fatalf("before grant = %s, want ask", got)
	}

	s.Grant("s1", "bash", "git status")
	if got := s.Evaluate("s1", "bash", "git status"); got != Allow {
		t.Fatalf("after grant = %s, want allow", got)
	}
	if got := s.Evaluate("s2", "bash", "git status"); got != Ask {
		t.Fatalf("grant leaked into another session: %s", got)
	}
	if got := s.Evaluate("s1", "bash", "rm -rf build"); got != Ask {
		t.Fatalf("grant leaked onto another subject: %s", got)
	}

	s.ClearSession("s1")
	if got := s.Evaluate("s1", "bash", "git status"); got != Ask {
		t.Fatalf("after clear = %s, want ask", got)
	}
}

func TestServiceGrantNeverOverridesDeny(t *testing.T) {
	rs, err := FromMap(map[string]any{"read": map[string]any{"*.env": "deny"}})
	if err != nil {
		t.Fatalf("FromMap: %v", err)
	}
	s := NewService(rs, nil)
	s.Grant("s1", "read", "*.env")
	if got := s.Evaluate("s1", "read", "prod.env"); got != Deny {
		t.Fatalf("grant overrode deny: %s", got)
	}
}

func TestServiceWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.txt")
	if err := os.WriteFile(path, []byte("ask"), 0o644); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	s := NewService(nil, nil)
	defer s.Close()

	load := func(p string) (*Ruleset, error) {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		d, err := ParseDecision(string(data))
		if err != nil {
			return nil, err
		}
		return FromMap(map[string]any{"bash": string(d)})
	}
	if err := s.Watch(path, load); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	if err := os.WriteFile(path, []byte("allow"), 0o644); err != nil {
		t.Fatalf("rewrite rules: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.Evaluate("s1", "bash", "ls") == Allow {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("ruleset was not reloaded after file change")
}
