//go:build !windows

package process

import (
	"os/exec"
	"syscall"
)

// prepareCommand runs cmd in its own process group so that cancelling kills
// the discovery tool and anything it spawned.
func prepareCommand(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = waitDelay
}
