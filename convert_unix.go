//go:build unix

package docstamp

import (
	"os/exec"
	"syscall"
)

// startInOwnGroup runs cmd as a process group leader and makes context
// cancellation kill the whole group. soffice is a wrapper script that
// forks soffice.bin, which would otherwise survive the kill and hold the
// output pipes open.
func startInOwnGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
