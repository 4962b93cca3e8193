package tools

import "testing"

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "abc", 0},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
	}
	for _, tc := range cases {
		if got := levenshtein(tc.a, tc.b); got != tc.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestSimilarity(t *testing.T) {
	if got := similarity("abcd", "abcd"); got != 1.0 {
		t.Fatalf("identical = %v", got)
	}
	if got := similarity("abcd", "wxyz"); got != 0.0 {
		t.Fatalf("disjoint = %v", got)
	}
	got := similarity("abcdefghij", "abcdefghix")
	if got != 0.9 {
		t.Fatalf("one edit in ten = %v", got)
	}
}

func TestFindMatchesExact(t *testing.T) {
	content := "foo\nbar\nfoo\n"
	matches, strategy := findMatches(content, "foo", 0.95)
	if strategy != "exact" {
		t.Fatalf("strategy = %q", strategy)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
}

func TestFindMatchesLineTrimmed(t *testing.T) {
	content := "func main() {  \n\tdoWork()   \n}\n"
	old := "func main() {\n\tdoWork()\n}"
	matches, strategy := findMatches(content, old, 0.95)
	if strategy != "line-trimmed" {
		t.Fatalf("strategy = %q, want line-trimmed", strategy)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches", len(matches))
	}
	got := content[matches[0].start:matches[0].end]
	if got != "func main() {  \n\tdoWork()   \n}" {
		t.Fatalf("span = %q", got)
	}
}

func TestFindMatchesLineTrimmedBeatsFuzzy(t *testing.T) {
	// Trailing whitespace drift must resolve via line comparison, not the
	// similarity scan, so the replacement span is deterministic.
	content := "alpha   \nbeta\t\ngamma\n"
	_, strategy := findMatches(content, "alpha\nbeta\ngamma", 0.5)
	if strategy != "line-trimmed" {
		t.Fatalf("strategy = %q, want line-trimmed", strategy)
	}
}

func TestFindMatchesFuzzy(t *testing.T) {
	content := "one\ntwoX\nthree\nfour\n"
	old := "one\ntwo\nthree"
	matches, strategy := findMatches(content, old, 0.8)
	if strategy != "fuzzy" {
		t.Fatalf("strategy = %q, want fuzzy", strategy)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches", len(matches))
	}
}

func TestFindMatchesBlockAnchor(t *testing.T) {
	// The function body was rewritten entirely, so neither the exact nor the
	// fuzzy pass can find the block. The frame lines still identify it.
	content := "func setup() {\n\tcompletely rewritten interior\n}\n"
	old := "func setup() {\n\toriginal interior\n}"
	matches, strategy := findMatches(content, old, 0.95)
	if strategy != "block-anchor" {
		t.Fatalf("strategy = %q, want block-anchor", strategy)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches", len(matches))
	}
	got := content[matches[0].start:matches[0].end]
	if got != "func setup() {\n\tcompletely rewritten interior\n}" {
		t.Fatalf("span = %q", got)
	}
}

func TestFindMatchesBlockAnchorDriftedAnchors(t *testing.T) {
	// The anchors themselves may drift a little; they only have to clear the
	// similarity threshold, not compare equal.
	content := "func setupAll() {\n\treturn cache.Lookup(ctx, key)\n}\n"
	old := "func setupXll() {\n\tdb.mu.Lock()\n}"
	if _, strategy := findMatches(content, old, 0.8); strategy != "block-anchor" {
		t.Fatalf("strategy = %q, want block-anchor", strategy)
	}
	// A strict threshold rejects the drifted anchor line.
	if matches, _ := findMatches(content, old, 0.99); len(matches) != 0 {
		t.Fatalf("strict threshold matched %d blocks", len(matches))
	}
}

func TestFindMatchesNone(t *testing.T) {
	matches, strategy := findMatches("completely different\n", "needle", 0.95)
	if len(matches) != 0 || strategy != "" {
		t.Fatalf("expected no matches, got %d via %q", len(matches), strategy)
	}
}
