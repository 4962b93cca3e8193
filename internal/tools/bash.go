package tools

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/unicode/norm"

	"toolrun/internal/repo"
	"toolrun/internal/util"
)

const (
	bashDefaultTimeout = 120 * time.Second
	bashMaxTimeout     = 600 * time.Second
	bashDefaultGrace   = 2 * time.Second
	bashMaxOutputBytes = 50 * 1024
)

// blockedCommandPatterns reject commands that destroy data or exfiltrate
// credentials regardless of permission rules. Commands are NFKC-normalized
// before classification so lookalike characters cannot slip past.
var blockedCommandPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(^|[;&|]\s*)rm\s+(-[a-zA-Z]*[rf][a-zA-Z]*\s+)+(/|~|\$HOME)(\s|$)`),
	regexp.MustCompile(`(^|[;&|]\s*)sudo\s+rm\s`),
	regexp.MustCompile(`(^|[;&|]\s*)mkfs(\.[a-z0-9]+)?\s`),
	regexp.MustCompile(`(^|[;&|]\s*)dd\s+[^|;&]*of=/dev/(sd|hd|nvme|disk)`),
	regexp.MustCompile(`(^|[;&|]\s*):\(\)\s*\{\s*:\|:&\s*\}\s*;`),
	regexp.MustCompile(`(^|[;&|]\s*)chmod\s+(-[a-zA-Z]+\s+)*777\s+/(\s|$)`),
	regexp.MustCompile(`(^|[;&|]\s*)(shutdown|reboot|halt|poweroff)(\s|$)`),
	regexp.MustCompile(`>\s*/dev/(sd|hd|nvme)`),
	regexp.MustCompile(`(cat|less|more|head|tail)\s+[^|;&]*(/\.aws/credentials|/\.ssh/id_)`),
}

// BashTool runs a shell command in its own process group and streams output
// as it arrives. On timeout or cancellation the whole group is terminated,
// so background children never outlive the call.
type BashTool struct {
	// Workdir is the directory commands run in when the call does not name
	// one. Empty means the workspace root.
	Workdir string
	// Grace is how long a terminated group gets between SIGTERM and
	// SIGKILL. Zero means the default.
	Grace time.Duration
}

func (t BashTool) Definition() Definition {
	return Definition{
		ID:          "bash",
		Description: "Run a shell command. Output is streamed and the command is killed, with all of its children, when the timeout expires.",
		Parameters: map[string]Parameter{
			"command":     {Type: "string", Description: "Command line to run"},
			"timeout":     {Type: "integer", Description: "Timeout in seconds, default 120, max 600"},
			"workdir":     {Type: "string", Description: "Directory to run in, default workspace root"},
			"description": {Type: "string", Description: "Short human-readable summary of what the command does"},
		},
		Required:       []string{"command"},
		Subject:        func(args map[string]any) string { return StringArg(args, "command") },
		MaxOutputBytes: bashMaxOutputBytes,
		KeepFullOutput: true,
	}
}

type bashArgs struct {
	Command     string `json:"command"`
	Timeout     int    `json:"timeout"`
	Workdir     string `json:"workdir"`
	Description string `json:"description"`
}

func (t BashTool) Validate(args map[string]any, ec *ExecContext) error {
	var in bashArgs
	if err := DecodeArgs(args, &in); err != nil {
		return err
	}
	command := strings.TrimSpace(in.Command)
	if command == "" {
		return Validationf("bash: command is empty")
	}
	if in.Timeout < 0 {
		return Validationf("bash: timeout must be positive")
	}
	normalized := norm.NFKC.String(command)
	for _, p := range blockedCommandPatterns {
		if p.MatchString(normalized) {
			return Permissionf("bash: command is blocked: %s", command)
		}
	}
	return nil
}

func (t BashTool) Execute(ctx context.Context, args map[string]any, ec *ExecContext) (Result, error) {
	var in bashArgs
	if err := DecodeArgs(args, &in); err != nil {
		return Result{}, err
	}
	timeout := bashDefaultTimeout
	if in.Timeout > 0 {
		timeout = time.Duration(in.Timeout) * time.Second
		if timeout > bashMaxTimeout {
			timeout = bashMaxTimeout
		}
	}
	grace := t.Grace
	if grace <= 0 {
		grace = bashDefaultGrace
	}
	workdir := in.Workdir
	if workdir == "" {
		workdir = t.Workdir
	}
	if workdir == "" {
		workdir = ec.WorkspaceRoot
	} else {
		workdir = resolvePath(ec, workdir)
		info, err := os.Stat(workdir)
		if err != nil {
			return Result{}, Validationf("bash: workdir does not exist: %s", in.Workdir)
		}
		if !info.IsDir() {
			return Result{}, Validationf("bash: workdir is not a directory: %s", in.Workdir)
		}
		if ec.WorkspaceRoot != "" && !repo.Inside(ec.WorkspaceRoot, workdir) {
			answer := ec.RequestPermission(ctx, "bash", ExternalDirectoryPermission, workdir)
			if answer != AnswerAllow && answer != AnswerAlways {
				return Result{}, Permissionf("bash: workdir %s is outside the workspace", workdir)
			}
		}
	}

	cmd := shellCommand(in.Command)
	cmd.Dir = workdir
	setProcessGroup(cmd)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, WrapExecution(err, "bash: stdout pipe")
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return Result{}, WrapExecution(err, "bash: stderr pipe")
	}

	if err := cmd.Start(); err != nil {
		return Result{}, WrapExecution(err, "bash: start %q", in.Command)
	}

	var stdout, stderr strings.Builder
	var wg sync.WaitGroup
	stream := func(r *bufio.Scanner, sink *strings.Builder, key string) {
		defer wg.Done()
		for r.Scan() {
			line := r.Text()
			sink.WriteString(line)
			sink.WriteString("\n")
			ec.Meta(key, util.RedactSecrets(line))
		}
	}
	wg.Add(2)
	outScan := bufio.NewScanner(stdoutPipe)
	outScan.Buffer(make([]byte, 64*1024), 1024*1024)
	errScan := bufio.NewScanner(stderrPipe)
	errScan.Buffer(make([]byte, 64*1024), 1024*1024)
	go stream(outScan, &stdout, "output_line")
	go stream(errScan, &stderr, "error_line")

	waitDone := make(chan error, 1)
	go func() {
		wg.Wait()
		waitDone <- cmd.Wait()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var waitErr error
	timedOut, cancelled := false, false
	select {
	case waitErr = <-waitDone:
	case <-timer.C:
		timedOut = true
		waitErr = terminateGroup(cmd, grace, waitDone)
	case <-ctx.Done():
		cancelled = true
		waitErr = terminateGroup(cmd, grace, waitDone)
	}

	output := util.RedactSecrets(composeOutput(stdout.String(), stderr.String()))

	if timedOut || cancelled {
		reason := "timed out after " + timeout.String()
		if cancelled {
			reason = "cancelled"
		}
		tail := util.Tail(output, 4*1024)
		if tail != "" {
			return Result{}, Executionf("bash: %s: %s\npartial output:\n%s", in.Command, reason, tail)
		}
		return Result{}, Executionf("bash: %s: %s", in.Command, reason)
	}

	exitCode := 0
	if waitErr != nil {
		exitCode = exitCodeOf(waitErr)
		if exitCode < 0 {
			return Result{}, WrapExecution(waitErr, "bash: %q", in.Command)
		}
	}

	title := in.Command
	if in.Description != "" {
		title = in.Description
	}
	res := Result{
		Title:  title,
		Output: output,
	}
	res.Meta("exit_code", exitCode)
	return res, nil
}

func exitCodeOf(err error) int {
	if ee, ok := err.(*exec.ExitError); ok {
		return ee.ExitCode()
	}
	return -1
}

// composeOutput joins stdout and stderr, separating them so the caller can
// tell which stream produced what.
func composeOutput(stdout, stderr string) string {
	stdout = strings.TrimRight(stdout, "\n")
	stderr = strings.TrimRight(stderr, "\n")
	switch {
	case stdout == "" && stderr == "":
		return ""
	case stderr == "":
		return stdout
	case stdout == "":
		return fmt.Sprintf("--- stderr ---\n%s", stderr)
	}
	return fmt.Sprintf("%s\n--- stderr ---\n%s", stdout, stderr)
}
