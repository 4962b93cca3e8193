package tools

import (
	"bytes"
	"context"
	"os"
	"strings"

	"toolrun/internal/diff"
	"toolrun/internal/repo"
	"toolrun/internal/util"
)

// defaultSimilarity is the fuzzy-match threshold used when none is
// configured.
const defaultSimilarity = 0.95

// EditTool replaces a block of text inside an existing file. The target
// block is located with progressively looser matching, so whitespace drift
// in the caller's copy does not fail the edit.
type EditTool struct {
	// SimilarityThreshold gates the fuzzy strategies. Zero means the
	// default.
	SimilarityThreshold float64
}

func (t EditTool) Definition() Definition {
	return Definition{
		ID:          "edit",
		Description: "Replace old_string with new_string in a file. Fails when old_string matches more than once unless replace_all is set.",
		Parameters: map[string]Parameter{
			"file_path":   {Type: "string", Description: "Absolute or workspace-relative path to the file"},
			"old_string":  {Type: "string", Description: "Text to replace"},
			"new_string":  {Type: "string", Description: "Replacement text"},
			"replace_all": {Type: "boolean", Description: "Replace every occurrence"},
		},
		Required:      []string{"file_path", "old_string", "new_string"},
		Permission:    "write",
		Subject:       func(args map[string]any) string { return StringArg(args, "file_path") },
		SubjectIsPath: true,
	}
}

type editArgs struct {
	FilePath   string `json:"file_path"`
	OldString  string `json:"old_string"`
	NewString  string `json:"new_string"`
	ReplaceAll bool   `json:"replace_all"`
}

func (t EditTool) Validate(args map[string]any, ec *ExecContext) error {
	var in editArgs
	if err := DecodeArgs(args, &in); err != nil {
		return err
	}
	if in.OldString == "" {
		return Validationf("edit: old_string is empty; use the write tool to create files")
	}
	if in.OldString == in.NewString {
		return Validationf("edit: old_string and new_string are identical")
	}
	if repo.IsDenylisted(resolvePath(ec, in.FilePath)) {
		return Permissionf("edit: %s may contain credentials", in.FilePath)
	}
	return nil
}

func (t EditTool) Execute(ctx context.Context, args map[string]any, ec *ExecContext) (Result, error) {
	var in editArgs
	if err := DecodeArgs(args, &in); err != nil {
		return Result{}, err
	}
	path := resolvePath(ec, in.FilePath)

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{}, Validationf("edit: file not found: %s", in.FilePath)
		}
		return Result{}, WrapExecution(err, "edit: stat %s", in.FilePath)
	}
	if info.IsDir() {
		return Result{}, Validationf("edit: %s is a directory", in.FilePath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, WrapExecution(err, "edit: %s", in.FilePath)
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return Result{}, Validationf("edit: %s appears to be a binary file", in.FilePath)
	}
	content := string(data)

	if err := ctx.Err(); err != nil {
		return Result{}, WrapExecution(err, "edit: cancelled")
	}

	threshold := t.SimilarityThreshold
	if threshold <= 0 {
		threshold = defaultSimilarity
	}
	matches, strategy := findMatches(content, in.OldString, threshold)
	if len(matches) == 0 {
		return Result{}, Validationf("edit: old_string not found in %s", in.FilePath)
	}
	if len(matches) > 1 && !in.ReplaceAll {
		return Result{}, Validationf("edit: old_string matches %d locations in %s; add more context or set replace_all", len(matches), in.FilePath)
	}

	var sb strings.Builder
	prev := 0
	for _, m := range matches {
		sb.WriteString(content[prev:m.start])
		sb.WriteString(in.NewString)
		prev = m.end
	}
	sb.WriteString(content[prev:])
	updated := sb.String()

	if err := util.AtomicWriteFile(path, []byte(updated), info.Mode().Perm()); err != nil {
		return Result{}, WrapExecution(err, "edit: %s", in.FilePath)
	}

	res := Result{
		Title:  in.FilePath,
		Output: diff.Unified(in.FilePath, content, updated),
	}
	res.Meta("replacements", len(matches))
	res.Meta("strategy", strategy)
	return res, nil
}
