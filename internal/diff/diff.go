// Package diff renders unified diffs between two text blobs.
package diff

import (
	"fmt"
	"strings"
)

const (
	contextLines = 3

	// maxDiffLines caps the LCS table size. Inputs beyond this fall back to
	// a whole-file replacement hunk so memory stays bounded.
	maxDiffLines = 10000
)

// Unified returns a unified diff of before and after with standard ---/+++
// headers and @@ hunks. It returns "" when the inputs are equal.
func Unified(name string, before, after string) string {
	if before == after {
		return ""
	}
	a := splitLines(before)
	b := splitLines(after)

	var ops []op
	if len(a) > maxDiffLines || len(b) > maxDiffLines {
		ops = replaceAll(a, b)
	} else {
		ops = diffOps(a, b)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- %s\n", name)
	fmt.Fprintf(&sb, "+++ %s\n", name)
	for _, h := range hunks(ops) {
		fmt.Fprintf(&sb, "@@ -%d,%d +%d,%d @@\n", h.aStart, h.aLen, h.bStart, h.bLen)
		for _, o := range h.ops {
			switch o.kind {
			case opEqual:
				sb.WriteString(" " + o.text + "\n")
			case opDelete:
				sb.WriteString("-" + o.text + "\n")
			case opInsert:
				sb.WriteString("+" + o.text + "\n")
			}
		}
	}
	return sb.String()
}

type opKind int

const (
	opEqual opKind = iota
	opDelete
	opInsert
)

type op struct {
	kind opKind
	text string
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}

func replaceAll(a, b []string) []op {
	ops := make([]op, 0, len(a)+len(b))
	for _, line := range a {
		ops = append(ops, op{opDelete, line})
	}
	for _, line := range b {
		ops = append(ops, op{opInsert, line})
	}
	return ops
}

// diffOps computes an edit script via a longest-common-subsequence table.
func diffOps(a, b []string) []op {
	n, m := len(a), len(b)
	lcs := make([][]int, n+1)
	for i := range lcs {
		lcs[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if a[i] == b[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else if lcs[i+1][j] >= lcs[i][j+1] {
				lcs[i][j] = lcs[i+1][j]
			} else {
				lcs[i][j] = lcs[i][j+1]
			}
		}
	}

	var ops []op
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case a[i] == b[j]:
			ops = append(ops, op{opEqual, a[i]})
			i++
			j++
		case lcs[i+1][j] >= lcs[i][j+1]:
			ops = append(ops, op{opDelete, a[i]})
			i++
		default:
			ops = append(ops, op{opInsert, b[j]})
			j++
		}
	}
	for ; i < n; i++ {
		ops = append(ops, op{opDelete, a[i]})
	}
	for ; j < m; j++ {
		ops = append(ops, op{opInsert, b[j]})
	}
	return ops
}

type hunk struct {
	aStart, aLen int
	bStart, bLen int
	ops          []op
}

// hunks groups an edit script into hunks with contextLines lines of context,
// merging hunks whose context would overlap.
func hunks(ops []op) []hunk {
	type change struct{ start, end int }
	var changes []change
	for i := 0; i < len(ops); {
		if ops[i].kind == opEqual {
			i++
			continue
		}
		start := i
		for i < len(ops) && ops[i].kind != opEqual {
			i++
		}
		changes = append(changes, change{start, i})
	}
	if len(changes) == 0 {
		return nil
	}

	// Merge changes separated by at most 2*contextLines equal lines.
	var groups []change
	cur := changes[0]
	for _, c := range changes[1:] {
		if c.start-cur.end <= 2*contextLines {
			cur.end = c.end
			continue
		}
		groups = append(groups, cur)
		cur = c
	}
	groups = append(groups, cur)

	var out []hunk
	for _, g := range groups {
		start := g.start - contextLines
		if start < 0 {
			start = 0
		}
		end := g.end + contextLines
		if end > len(ops) {
			end = len(ops)
		}

		// Line numbers are 1-based; recompute positions by walking the script.
		aLine, bLine := 1, 1
		for _, o := range ops[:start] {
			switch o.kind {
			case opEqual:
				aLine++
				bLine++
			case opDelete:
				aLine++
			case opInsert:
				bLine++
			}
		}

		h := hunk{aStart: aLine, bStart: bLine, ops: ops[start:end]}
		for _, o := range h.ops {
			switch o.kind {
			case opEqual:
				h.aLen++
				h.bLen++
			case opDelete:
				h.aLen++
			case opInsert:
				h.bLen++
			}
		}
		if h.aLen == 0 {
			h.aStart--
		}
		if h.bLen == 0 {
			h.bStart--
		}
		out = append(out, h)
	}
	return out
}
