package tools

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// globMaxResults caps glob output; more matches than this means the pattern
// is too broad to be useful.
const globMaxResults = 100

// globSkipDirs are never descended into.
var globSkipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"target":       true,
	"dist":         true,
}

// GlobTool finds files matching a glob pattern, newest first.
type GlobTool struct{}

func (GlobTool) Definition() Definition {
	return Definition{
		ID:          "glob",
		Description: "Find files matching a glob pattern such as **/*.go. Results are sorted by modification time, newest first.",
		Parameters: map[string]Parameter{
			"pattern": {Type: "string", Description: "Glob pattern; ** crosses directories"},
			"path":    {Type: "string", Description: "Directory to search in, default the workspace root"},
		},
		Required:      []string{"pattern"},
		Subject:       func(args map[string]any) string { return StringArg(args, "path") },
		SubjectIsPath: true,
	}
}

type globArgs struct {
	Pattern string `json:"pattern"`
	Path    string `json:"path"`
}

func (GlobTool) Execute(ctx context.Context, args map[string]any, ec *ExecContext) (Result, error) {
	var in globArgs
	if err := DecodeArgs(args, &in); err != nil {
		return Result{}, err
	}
	root := in.Path
	if root == "" {
		root = ec.WorkspaceRoot
	}
	if root == "" {
		root = "."
	}
	root = resolvePath(ec, root)

	re, err := globRegexp(in.Pattern)
	if err != nil {
		return Result{}, Validationf("glob: invalid pattern %q: %v", in.Pattern, err)
	}

	type match struct {
		path  string
		mtime time.Time
	}
	var matches []match
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if globSkipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if !re.MatchString(rel) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		matches = append(matches, match{path, info.ModTime()})
		return nil
	})
	if walkErr != nil {
		if os.IsNotExist(walkErr) {
			return Result{}, Validationf("glob: directory not found: %s", root)
		}
		return Result{}, WrapExecution(walkErr, "glob: walk %s", root)
	}

	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].mtime.Equal(matches[j].mtime) {
			return matches[i].mtime.After(matches[j].mtime)
		}
		return matches[i].path < matches[j].path
	})

	capped := false
	if len(matches) > globMaxResults {
		matches = matches[:globMaxResults]
		capped = true
	}

	if len(matches) == 0 {
		return Result{
			Title:  in.Pattern,
			Output: fmt.Sprintf("no files match %q in %s", in.Pattern, root),
		}, nil
	}

	var sb strings.Builder
	for _, m := range matches {
		sb.WriteString(m.path)
		sb.WriteString("\n")
	}
	if capped {
		fmt.Fprintf(&sb, "(first %d results; narrow the pattern to see the rest)\n", globMaxResults)
	}

	res := Result{Title: in.Pattern, Output: sb.String()}
	res.Meta("count", len(matches))
	res.Meta("capped", capped)
	return res, nil
}

// globRegexp compiles a glob into a regular expression over slash-separated
// relative paths. "**" crosses directories, "*" and "?" stay inside one path
// segment.
func globRegexp(pattern string) (*regexp.Regexp, error) {
	pattern = strings.TrimPrefix(filepath.ToSlash(pattern), "./")
	var sb strings.Builder
	sb.WriteString("^")
	for i := 0; i < len(pattern); {
		switch {
		case strings.HasPrefix(pattern[i:], "**/"):
			sb.WriteString("(?:[^/]+/)*")
			i += 3
		case strings.HasPrefix(pattern[i:], "**"):
			sb.WriteString(".*")
			i += 2
		case pattern[i] == '*':
			sb.WriteString("[^/]*")
			i++
		case pattern[i] == '?':
			sb.WriteString("[^/]")
			i++
		default:
			sb.WriteString(regexp.QuoteMeta(string(pattern[i])))
			i++
		}
	}
	sb.WriteString("$")
	return regexp.Compile(sb.String())
}
