//go:build windows

package tools

import (
	"os/exec"
	"time"
)

func shellCommand(command string) *exec.Cmd {
	return exec.Command("cmd", "/C", command)
}

func setProcessGroup(cmd *exec.Cmd) {}

func terminateGroup(cmd *exec.Cmd, grace time.Duration, waitDone <-chan error) error {
	if cmd.Process == nil {
		return <-waitDone
	}
	_ = cmd.Process.Kill()
	_ = grace
	return <-waitDone
}
