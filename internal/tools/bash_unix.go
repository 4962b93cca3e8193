//go:build !windows

package tools

import (
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

func shellCommand(command string) *exec.Cmd {
	return exec.Command("/bin/sh", "-c", command)
}

// setProcessGroup puts the child in its own process group so termination can
// reach every descendant.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// terminateGroup sends SIGTERM to the whole group, waits up to grace for a
// clean exit, then SIGKILLs. It returns only after the command is reaped.
func terminateGroup(cmd *exec.Cmd, grace time.Duration, waitDone <-chan error) error {
	if cmd.Process == nil {
		return <-waitDone
	}
	pgid := cmd.Process.Pid
	_ = unix.Kill(-pgid, unix.SIGTERM)
	select {
	case err := <-waitDone:
		return err
	case <-time.After(grace):
	}
	_ = unix.Kill(-pgid, unix.SIGKILL)
	return <-waitDone
}
