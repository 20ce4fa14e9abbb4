//go:build windows

package tools

import (
	"syscall"
)

// stillActive is the exit code GetExitCodeProcess reports for a live process
const stillActive = 259

// isProcessRunning reports whether pid is alive
func isProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	const access = syscall.PROCESS_QUERY_INFORMATION | syscall.SYNCHRONIZE

	h, err := syscall.OpenProcess(access, false, uint32(pid))
	if err != nil {
		// No such process, or no way to tell
		return false
	}
	defer syscall.CloseHandle(h)

	var code uint32
	if err := syscall.GetExitCodeProcess(h, &code); err != nil {
		return true
	}
	return code == stillActive
}
