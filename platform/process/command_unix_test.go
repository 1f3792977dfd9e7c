//go:build !windows

package process

import (
	"os/exec"
	"testing"
)

func TestPrepareCommand_Unix(t *testing.T) {
	cmd := exec.Command("echo", "hello")
	prepareCommand(cmd)

	if cmd.SysProcAttr == nil {
		t.Fatal("SysProcAttr should not be nil")
	}
	if !cmd.SysProcAttr.Setpgid {
		t.Error("Setpgid should be true")
	}
	if cmd.Cancel == nil {
		t.Error("Cancel function should be set")
	}
	if cmd.WaitDelay != waitDelay {
		t.Errorf("WaitDelay = %v, want %v", cmd.WaitDelay, waitDelay)
	}
}
