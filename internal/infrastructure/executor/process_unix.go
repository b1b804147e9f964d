//go:build !windows

package executor

import (
	"os/exec"
	"syscall"
)

// configureProcess runs the child in its own process group; cancellation
// kills the whole group.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
