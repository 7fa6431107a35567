//go:build !windows

package lock

import (
	"errors"

	"golang.org/x/sys/unix"
)

// pidAlive reports whether a lock holder process is still running on this host
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	// EPERM: running under another user
	return err == nil || errors.Is(err, unix.EPERM)
}
