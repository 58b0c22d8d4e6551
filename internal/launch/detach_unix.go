//go:build unix

package launch

import (
	"os/exec"
	"syscall"
)

// detach puts the child in its own process group so terminal signals aimed at
// the launcher do not reach the simulators.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
