//go:build !windows

package action

import (
	"os/exec"
	"syscall"
)

// setupProcessGroup puts cmd in its own process group so killProcessGroup can
// reach forked grandchildren (a backgrounded job, a shell pipeline) that
// exec.CommandContext's single-PID kill never touches.
func setupProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// killProcessGroup sends SIGKILL to the whole process group started by a
// setupProcessGroup'd cmd, falling back to killing the direct child if the
// group lookup fails (spec §5/§8: "the child is killed... no zombies
// remain").
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	if err == nil {
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
		return nil
	}
	return cmd.Process.Kill()
}
