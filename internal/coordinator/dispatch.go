package coordinator

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"syscall"
)

// RefreshCommand is the subcommand the spawned worker runs. The worker
// performs one fetch/build/write cycle and removes the lock marker.
const RefreshCommand = "refresh"

// dispatchDetached re-execs the current binary as a detached background
// refresh worker and records its PID in the lock marker. The caller does not
// wait for it; the only back-channel is the cache file itself.
func dispatchDetached(lockPath string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("cannot locate own executable: %w", err)
	}

	cmd := exec.Command(exe, RefreshCommand)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	// New session so the worker outlives the caller and ignores its TTY.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start refresh worker: %w", err)
	}

	if err := writeLockPID(lockPath, cmd.Process.Pid); err != nil {
		// The worker still runs; the lock only guards against duplicates.
		log.Printf("⚠️ Failed to write refresh lock marker: %v", err)
	}

	return cmd.Process.Release()
}
