//go:build windows

package action

import (
	"fmt"
	"os/exec"
)

// setupProcessGroup is a no-op on Windows; killProcessGroup uses taskkill's
// process-tree kill instead of a POSIX process group.
func setupProcessGroup(cmd *exec.Cmd) {}

// killProcessGroup kills cmd's whole process tree via taskkill /T, falling
// back to killing the direct child if taskkill itself fails.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	kill := exec.Command("taskkill", "/F", "/T", "/PID", fmt.Sprintf("%d", cmd.Process.Pid))
	if err := kill.Run(); err != nil {
		return cmd.Process.Kill()
	}
	return nil
}
