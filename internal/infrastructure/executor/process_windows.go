//go:build windows

package executor

import "os/exec"

func configureProcess(cmd *exec.Cmd) {}
