package tools

import (
	"context"
	"fmt"
	"os"

	"toolrun/internal/repo"
	"toolrun/internal/util"
)

// WriteTool creates or overwrites a file. Writes are atomic: the content
// lands in a temp file in the destination directory and is renamed over the
// target, so a crash never leaves a half-written file.
type WriteTool struct{}

func (WriteTool) Definition() Definition {
	return Definition{
		ID:          "write",
		Description: "Write content to a file, creating it and any missing parent directories. Overwrites existing content.",
		Parameters: map[string]Parameter{
			"file_path": {Type: "string", Description: "Absolute or workspace-relative path to the file"},
			"content":   {Type: "string", Description: "Full content to write"},
		},
		Required:      []string{"file_path", "content"},
		Subject:       func(args map[string]any) string { return StringArg(args, "file_path") },
		SubjectIsPath: true,
	}
}

type writeArgs struct {
	FilePath string `json:"file_path"`
	Content  string `json:"content"`
}

func (WriteTool) Validate(args map[string]any, ec *ExecContext) error {
	var in writeArgs
	if err := DecodeArgs(args, &in); err != nil {
		return err
	}
	if in.FilePath == "" {
		return Validationf("write: file_path is empty")
	}
	if repo.IsDenylisted(resolvePath(ec, in.FilePath)) {
		return Permissionf("write: %s may contain credentials", in.FilePath)
	}
	return nil
}

func (WriteTool) Execute(ctx context.Context, args map[string]any, ec *ExecContext) (Result, error) {
	var in writeArgs
	if err := DecodeArgs(args, &in); err != nil {
		return Result{}, err
	}
	path := resolvePath(ec, in.FilePath)

	existed := false
	perm := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		if info.IsDir() {
			return Result{}, Validationf("write: %s is a directory", in.FilePath)
		}
		existed = true
		perm = info.Mode().Perm()
	}

	if err := ctx.Err(); err != nil {
		return Result{}, WrapExecution(err, "write: cancelled")
	}
	if err := util.AtomicWriteFile(path, []byte(in.Content), perm); err != nil {
		return Result{}, WrapExecution(err, "write: %s", in.FilePath)
	}

	verb := "created"
	if existed {
		verb = "updated"
	}
	res := Result{
		Title:  in.FilePath,
		Output: fmt.Sprintf("%s %s (%d bytes)", verb, in.FilePath, len(in.Content)),
	}
	res.Meta("bytes_written", len(in.Content))
	res.Meta("existed", existed)
	return res, nil
}
