package coordinator

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// The lock marker is a text file holding the PID of the process performing
// an in-flight refresh. It is advisory: ownership is keyed by liveness of
// the recorded PID, not by a true mutual-exclusion primitive, so the narrow
// check-then-write race between two dispatchers is accepted (duplicate
// fetch, not corruption).

// readLockPID returns the PID recorded in the lock marker.
func readLockPID(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

// writeLockPID records the given PID as the in-flight refresh owner.
func writeLockPID(path string, pid int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(pid)), 0644)
}

// RemoveLock deletes the lock marker. Called by the refresh worker when it
// finishes, success or failure, so a later call can detect non-liveness
// without a process-table lookup.
func RemoveLock(path string) {
	os.Remove(path)
}

// refreshInFlight reports whether the lock marker names a live process. A
// marker referencing a dead PID is treated as stale and ignored.
func refreshInFlight(path string) bool {
	pid, ok := readLockPID(path)
	if !ok {
		return false
	}
	return pidAlive(pid)
}

// pidAlive probes a PID with signal 0. EPERM still means the process exists.
func pidAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	return err == syscall.EPERM
}
