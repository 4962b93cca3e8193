// Package permission evaluates tool calls against a configurable ruleset.
//
// Rules are keyed by permission name (usually a tool id) and match the call's
// subject, such as a file path or a shell command line, against glob patterns.
// The most specific matching pattern decides; unmatched calls fall through to
// per-permission and then global defaults.
package permission

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Decision is the outcome of evaluating a permission request.
type Decision string

const (
	Allow Decision = "allow"
	Deny  Decision = "deny"
	Ask   Decision = "ask"
)

// DefaultKey is the pattern key that sets a default inside a rule map, and
// the permission key that sets the global default.
const DefaultKey = "_"

// ParseDecision converts a config string into a Decision.
func ParseDecision(s string) (Decision, error) {
	switch Decision(strings.ToLower(strings.TrimSpace(s))) {
	case Allow:
		return Allow, nil
	case Deny:
		return Deny, nil
	case Ask:
		return Ask, nil
	}
	return "", fmt.Errorf("invalid permission decision %q (want allow, deny, or ask)", s)
}

// Node holds the rules for a single permission.
type Node struct {
	Default    Decision
	HasDefault bool
	Patterns   map[string]Decision
}

// Ruleset is an immutable, normalized set of permission rules. Build one with
// FromMap or DefaultRuleset and share it freely across goroutines.
type Ruleset struct {
	Default    Decision
	HasDefault bool
	Nodes      map[string]Node
}

// FromMap builds a Ruleset from decoded configuration. The value for each
// permission is either a bare decision string, which becomes that permission's
// default, or a map of glob pattern to decision string. The top-level "_" key
// sets the global default.
func FromMap(raw map[string]any) (*Ruleset, error) {
	rs := &Ruleset{Nodes: make(map[string]Node)}
	for name, v := range raw {
		switch val := v.(type) {
		case string:
			d, err := ParseDecision(val)
			if err != nil {
				return nil, fmt.Errorf("permission %q: %w", name, err)
			}
			if name == DefaultKey {
				rs.Default = d
				rs.HasDefault = true
				continue
			}
			rs.Nodes[name] = Node{Default: d, HasDefault: true}
		case map[string]any:
			node := Node{Patterns: make(map[string]Decision)}
			for pat, dv := range val {
				ds, ok := dv.(string)
				if !ok {
					return nil, fmt.Errorf("permission %q pattern %q: decision must be a string", name, pat)
				}
				d, err := ParseDecision(ds)
				if err != nil {
					return nil, fmt.Errorf("permission %q pattern %q: %w", name, pat, err)
				}
				if pat == DefaultKey {
					node.Default = d
					node.HasDefault = true
					continue
				}
				node.Patterns[pat] = d
			}
			rs.Nodes[name] = node
		default:
			return nil, fmt.Errorf("permission %q: value must be a decision or a pattern map", name)
		}
	}
	return rs, nil
}

// Evaluate resolves the decision for a permission and subject. A pattern match
// beats the permission default, which beats the global default, which beats
// the built-in Allow. When several patterns match, the one with the most
// literal characters wins; ties break deterministically by pattern order.
func (rs *Ruleset) Evaluate(name, subject string) Decision {
	if node, ok := rs.Nodes[name]; ok {
		if d, ok := node.match(subject); ok {
			return d
		}
		if node.HasDefault {
			return node.Default
		}
	}
	if rs.HasDefault {
		return rs.Default
	}
	return Allow
}

func (n Node) match(subject string) (Decision, bool) {
	type candidate struct {
		pattern string
		d       Decision
	}
	var best *candidate
	bestScore := -1
	keys := make([]string, 0, len(n.Patterns))
	for k := range n.Patterns {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, pat := range keys {
		if !Match(pat, subject) {
			continue
		}
		score := literalLen(pat)
		if score > bestScore {
			bestScore = score
			best = &candidate{pat, n.Patterns[pat]}
		}
	}
	if best == nil {
		return "", false
	}
	return best.d, true
}

func literalLen(pattern string) int {
	n := 0
	for _, r := range pattern {
		if r != '*' && r != '?' {
			n++
		}
	}
	return n
}

var (
	patternMu    sync.Mutex
	patternCache = map[string]*regexp.Regexp{}
)

// Match reports whether a glob pattern matches the subject. '*' matches any
// run of characters including path separators, '?' matches a single
// character; everything else is literal. Compiled patterns are cached.
func Match(pattern, subject string) bool {
	patternMu.Lock()
	re, ok := patternCache[pattern]
	patternMu.Unlock()
	if !ok {
		var sb strings.Builder
		sb.WriteString("^")
		for _, r := range pattern {
			switch r {
			case '*':
				sb.WriteString(".*")
			case '?':
				sb.WriteString(".")
			default:
				sb.WriteString(regexp.QuoteMeta(string(r)))
			}
		}
		sb.WriteString("$")
		var err error
		re, err = regexp.Compile(sb.String())
		if err != nil {
			return false
		}
		patternMu.Lock()
		patternCache[pattern] = re
		patternMu.Unlock()
	}
	return re.MatchString(subject)
}

// DefaultRuleset returns the rules applied when configuration provides none:
// everything is allowed except dotenv files, which are denied for read and
// write (with .env.example exempted), while shell commands and access outside
// the workspace require confirmation.
func DefaultRuleset() *Ruleset {
	rs, err := FromMap(map[string]any{
		DefaultKey: "allow",
		"read": map[string]any{
			"*.env":         "deny",
			"*.env.*":       "deny",
			"*.env.example": "allow",
		},
		"write": map[string]any{
			"*.env":         "deny",
			"*.env.*":       "deny",
			"*.env.example": "allow",
		},
		"bash": map[string]any{
			DefaultKey: "ask",
		},
		"external_directory": map[string]any{
			DefaultKey: "ask",
		},
	})
	if err != nil {
		panic(err)
	}
	return rs
}
