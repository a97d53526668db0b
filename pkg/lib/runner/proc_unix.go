//go:build unix

package runner

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// sysProcAttr starts engine subprocesses in their own process group so a
// terminal interrupt reaches flem only; flem decides how to stop them.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

// killGroup kills the process group led by pid.
func killGroup(pid int) error {
	return unix.Kill(-pid, unix.SIGKILL)
}
