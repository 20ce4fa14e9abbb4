package tools

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// isProcessRunning is implemented in platform-specific files:
// - lock_unix.go for Unix/Linux/macOS
// - lock_windows.go for Windows

// readLockPID returns the PID stored in the lock file. ok is false when the
// file does not exist.
func readLockPID() (pid int, ok bool, err error) {
	data, err := os.ReadFile(filepath.Join(dataDir, lockFile))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to read lock file: %w", err)
	}
	pid, err = strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, true, fmt.Errorf("invalid PID in lock file: %w", err)
	}
	return pid, true, nil
}

// cleanStaleLock removes the lock file if the owning process is dead or the
// file is unreadable garbage
func cleanStaleLock() error {
	lockPath := filepath.Join(dataDir, lockFile)

	pid, exists, err := readLockPID()
	if !exists && err == nil {
		return nil
	}
	if err != nil {
		if !exists {
			return err
		}
		log.Printf("Warning: Corrupted lock file (%v), removing...", err)
		return os.Remove(lockPath)
	}

	if pid == os.Getpid() {
		return nil
	}
	if isProcessRunning(pid) {
		return fmt.Errorf("lock held by running process %d", pid)
	}

	log.Printf("Stale lock detected (PID %d not running), cleaning...", pid)
	return os.Remove(lockPath)
}

// acquireLock takes the inter-process index lock, waiting up to the configured
// timeout for another process to release it
func acquireLock() error {
	lockPath := filepath.Join(dataDir, lockFile)
	ourPID := os.Getpid()

	if pid, _, err := readLockPID(); err == nil && pid == ourPID {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	startTime := time.Now()
	for {
		if err := cleanStaleLock(); err != nil {
			elapsed := time.Since(startTime)
			if elapsed >= settings.Lock.Timeout {
				return fmt.Errorf("timeout waiting for index lock after %v: %w", elapsed.Round(time.Millisecond), err)
			}
			log.Printf("Index locked by another process, waiting... (%v elapsed)", elapsed.Round(100*time.Millisecond))
			time.Sleep(settings.Lock.RetryWait)
			continue
		}

		if err := os.WriteFile(lockPath, []byte(strconv.Itoa(ourPID)), 0644); err != nil {
			return fmt.Errorf("failed to create lock file: %w", err)
		}
		log.Printf("✓ Index lock acquired (PID %d)", ourPID)
		return nil
	}
}

// releaseLock removes the lock file if this process owns it
func releaseLock() error {
	pid, exists, err := readLockPID()
	if !exists {
		return err
	}
	if err == nil && pid != os.Getpid() {
		log.Printf("Warning: Lock file contains different PID (%d vs %d), not removing", pid, os.Getpid())
		return nil
	}

	if err := os.Remove(filepath.Join(dataDir, lockFile)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	log.Printf("✓ Index lock released")
	return nil
}
