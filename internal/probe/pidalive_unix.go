//go:build !windows

package probe

import (
	"errors"
	"syscall"
)

// pidAlive signals pid with signal 0, which checks existence without
// affecting the process. EPERM still means the process exists, just
// owned by someone else.
func pidAlive(pid int) (bool, error) {
	if pid <= 0 {
		return false, nil
	}
	err := syscall.Kill(pid, 0)
	if err == nil || errors.Is(err, syscall.EPERM) {
		return true, nil
	}
	if errors.Is(err, syscall.ESRCH) {
		return false, nil
	}
	return false, err
}
