//go:build unix

package tools

import (
	"errors"
	"syscall"
)

// isProcessRunning reports whether pid is alive. Signal 0 performs the
// permission and existence checks without delivering anything.
func isProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, syscall.Signal(0))
	switch {
	case err == nil:
		return true
	case errors.Is(err, syscall.EPERM):
		// Alive, owned by someone else
		return true
	default:
		// ESRCH or anything unexpected
		return false
	}
}
