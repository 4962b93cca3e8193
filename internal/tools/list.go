package tools

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"toolrun/internal/repo"
)

// listMaxDepth bounds directory recursion.
const listMaxDepth = 10

// ListTool renders a directory as an indented tree.
type ListTool struct{}

func (ListTool) Definition() Definition {
	return Definition{
		ID:          "list",
		Description: "List a directory as a tree. Directories sort first; dotfiles and ignored paths are skipped.",
		Parameters: map[string]Parameter{
			"path": {Type: "string", Description: "Directory to list, default the workspace root"},
			"ignore": {
				Type:        "array",
				Description: "Extra name patterns to skip",
				Items:       &Parameter{Type: "string"},
			},
		},
		Subject:       func(args map[string]any) string { return StringArg(args, "path") },
		SubjectIsPath: true,
	}
}

type listArgs struct {
	Path   string   `json:"path"`
	Ignore []string `json:"ignore"`
}

func (ListTool) Execute(ctx context.Context, args map[string]any, ec *ExecContext) (Result, error) {
	var in listArgs
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

	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{}, Validationf("list: directory not found: %s", root)
		}
		return Result{}, WrapExecution(err, "list: stat %s", root)
	}
	if !info.IsDir() {
		return Result{}, Validationf("list: %s is not a directory", root)
	}

	ignore := append([]string{}, in.Ignore...)
	if ec.WorkspaceRoot != "" {
		ignore = append(ignore, repo.LoadIgnorePatterns(ec.WorkspaceRoot)...)
	}

	var sb strings.Builder
	sb.WriteString(root + "/\n")
	count, err := listTree(ctx, &sb, root, "", ignore, 1)
	if err != nil {
		return Result{}, err
	}

	res := Result{Title: root, Output: sb.String()}
	res.Meta("entries", count)
	return res, nil
}

func listTree(ctx context.Context, sb *strings.Builder, dir, prefix string, ignore []string, depth int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, WrapExecution(err, "list: cancelled")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, WrapExecution(err, "list: read %s", dir)
	}

	var kept []os.DirEntry
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") || listIgnored(name, ignore) {
			continue
		}
		kept = append(kept, e)
	}
	sort.Slice(kept, func(i, j int) bool {
		if kept[i].IsDir() != kept[j].IsDir() {
			return kept[i].IsDir()
		}
		return kept[i].Name() < kept[j].Name()
	})

	count := 0
	for i, e := range kept {
		connector := "├── "
		childPrefix := prefix + "│   "
		if i == len(kept)-1 {
			connector = "└── "
			childPrefix = prefix + "    "
		}
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		fmt.Fprintf(sb, "%s%s%s\n", prefix, connector, name)
		count++
		if e.IsDir() {
			if depth >= listMaxDepth {
				fmt.Fprintf(sb, "%s└── ...\n", childPrefix)
				continue
			}
			n, err := listTree(ctx, sb, dir+string(os.PathSeparator)+e.Name(), childPrefix, ignore, depth+1)
			if err != nil {
				return count, err
			}
			count += n
		}
	}
	return count, nil
}

func listIgnored(name string, patterns []string) bool {
	for _, p := range patterns {
		if p == name {
			return true
		}
		if strings.HasPrefix(p, "*.") && strings.HasSuffix(name, p[1:]) {
			return true
		}
	}
	return false
}
