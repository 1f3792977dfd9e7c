//go:build windows

package process

import "os/exec"

// prepareCommand kills only the direct child on cancel; Windows has no
// process groups to signal.
func prepareCommand(cmd *exec.Cmd) {
	cmd.Cancel = func() error {
		return cmd.Process.Kill()
	}
	cmd.WaitDelay = waitDelay
}
