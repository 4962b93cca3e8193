package tools

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"toolrun/internal/repo"
)

const (
	// readMaxFileSize is the largest file the read tool will open.
	readMaxFileSize = 50 * 1024 * 1024
	// readBinaryProbe is how many leading bytes are scanned for null bytes.
	readBinaryProbe = 8 * 1024
	// readDefaultLimit is the number of lines returned when no limit is set.
	readDefaultLimit = 2000
)

// ReadTool returns the contents of a text file with line numbers, supporting
// offset/limit windows for large files.
type ReadTool struct{}

func (ReadTool) Definition() Definition {
	return Definition{
		ID:          "read",
		Description: "Read a file from the filesystem with line numbers. Supports offset and limit for large files.",
		Parameters: map[string]Parameter{
			"file_path": {Type: "string", Description: "Absolute or workspace-relative path to the file"},
			"offset":    {Type: "integer", Description: "0-based line index to start reading from"},
			"limit":     {Type: "integer", Description: "Maximum number of lines to return"},
		},
		Required:       []string{"file_path"},
		Subject:        func(args map[string]any) string { return StringArg(args, "file_path") },
		SubjectIsPath:  true,
		MaxOutputLines: readDefaultLimit + 10,
		MaxOutputBytes: 256 * 1024,
	}
}

type readArgs struct {
	FilePath string `json:"file_path"`
	Offset   int    `json:"offset"`
	Limit    int    `json:"limit"`
}

func (ReadTool) Execute(ctx context.Context, args map[string]any, ec *ExecContext) (Result, error) {
	var in readArgs
	if err := DecodeArgs(args, &in); err != nil {
		return Result{}, err
	}
	path := resolvePath(ec, in.FilePath)

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{}, Validationf("read: file not found: %s", in.FilePath)
		}
		return Result{}, WrapExecution(err, "read: stat %s", in.FilePath)
	}
	if info.IsDir() {
		return Result{}, Validationf("read: %s is a directory", in.FilePath)
	}
	if info.Size() > readMaxFileSize {
		return Result{}, Validationf("read: %s is %d bytes, above the %d byte limit", in.FilePath, info.Size(), readMaxFileSize)
	}
	if repo.IsDenylisted(path) {
		return Result{}, Permissionf("read: %s may contain credentials", in.FilePath)
	}

	if err := ctx.Err(); err != nil {
		return Result{}, WrapExecution(err, "read: cancelled")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, WrapExecution(err, "read: %s", in.FilePath)
	}

	probe := data
	if len(probe) > readBinaryProbe {
		probe = probe[:readBinaryProbe]
	}
	if bytes.IndexByte(probe, 0) >= 0 {
		return Result{}, Validationf("read: %s appears to be a binary file", in.FilePath)
	}

	lines := strings.Split(string(data), "\n")
	total := len(lines)
	if total > 0 && lines[total-1] == "" {
		lines = lines[:total-1]
		total--
	}

	// Offset is a 0-based line index; the printed numbers stay 1-based.
	start := in.Offset
	if start < 0 {
		start = 0
	}
	limit := in.Limit
	if limit <= 0 {
		limit = readDefaultLimit
	}
	if start >= total {
		return Result{}, Validationf("read: offset %d is past the end of the file (%d lines)", start, total)
	}
	end := start + limit
	if end > total {
		end = total
	}

	var sb strings.Builder
	for i := start; i < end; i++ {
		fmt.Fprintf(&sb, "%05d| %s\n", i+1, lines[i])
	}
	if end < total {
		fmt.Fprintf(&sb, "... %d more lines (showing %d-%d of %d)\n", total-end, start+1, end, total)
	}

	res := Result{
		Title:  in.FilePath,
		Output: sb.String(),
	}
	res.Meta("total_lines", total)
	res.Meta("shown_from", start+1)
	res.Meta("shown_to", end)
	return res, nil
}

// resolvePath anchors relative paths at the workspace root.
func resolvePath(ec *ExecContext, path string) string {
	if filepath.IsAbs(path) || ec == nil || ec.WorkspaceRoot == "" {
		return path
	}
	return filepath.Join(ec.WorkspaceRoot, path)
}
