package tools

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

func TestLockMechanism(t *testing.T) {
	useTestEnv(t, nil)
	lockPath := filepath.Join(dataDir, lockFile)

	t.Run("acquire and release lock", func(t *testing.T) {
		os.Remove(lockPath)

		if err := acquireLock(); err != nil {
			t.Fatalf("Failed to acquire lock: %v", err)
		}

		data, err := os.ReadFile(lockPath)
		if err != nil {
			t.Fatalf("Lock file not found: %v", err)
		}
		pid, err := strconv.Atoi(string(data))
		if err != nil {
			t.Fatalf("Invalid PID in lock file: %v", err)
		}
		if pid != os.Getpid() {
			t.Errorf("Lock has wrong PID: got %d, want %d", pid, os.Getpid())
		}

		if err := releaseLock(); err != nil {
			t.Fatalf("Failed to release lock: %v", err)
		}
		if _, err := os.Stat(lockPath); !os.IsNotExist(err) {
			t.Error("Lock file should be removed after release")
		}
	})

	t.Run("detect stale lock", func(t *testing.T) {
		os.Remove(lockPath)

		// Non-existent PID
		if err := os.WriteFile(lockPath, []byte("99999"), 0644); err != nil {
			t.Fatalf("Failed to create stale lock: %v", err)
		}

		if err := acquireLock(); err != nil {
			t.Fatalf("Failed to acquire lock after stale lock: %v", err)
		}
		if pid, _, _ := readLockPID(); pid != os.Getpid() {
			t.Errorf("Expected our PID after cleaning stale lock, got %d", pid)
		}
		releaseLock()
	})

	t.Run("corrupted lock file", func(t *testing.T) {
		os.Remove(lockPath)
		if err := os.WriteFile(lockPath, []byte("not-a-pid"), 0644); err != nil {
			t.Fatalf("Failed to create corrupted lock: %v", err)
		}

		if err := acquireLock(); err != nil {
			t.Fatalf("Failed to acquire lock over corrupted file: %v", err)
		}
		releaseLock()
	})

	t.Run("reacquire same lock", func(t *testing.T) {
		os.Remove(lockPath)

		if err := acquireLock(); err != nil {
			t.Fatalf("Failed to acquire lock: %v", err)
		}
		// Same PID succeeds immediately
		if err := acquireLock(); err != nil {
			t.Fatalf("Failed to reacquire lock: %v", err)
		}
		releaseLock()
	})

	t.Run("release keeps foreign lock", func(t *testing.T) {
		os.Remove(lockPath)
		if err := os.WriteFile(lockPath, []byte("99999"), 0644); err != nil {
			t.Fatalf("Failed to create lock: %v", err)
		}

		if err := releaseLock(); err != nil {
			t.Fatalf("releaseLock failed: %v", err)
		}
		if _, err := os.Stat(lockPath); err != nil {
			t.Error("Lock owned by another process should not be removed")
		}
		os.Remove(lockPath)
	})

	t.Run("release without lock", func(t *testing.T) {
		os.Remove(lockPath)
		if err := releaseLock(); err != nil {
			t.Errorf("Releasing a missing lock should succeed, got %v", err)
		}
	})

	t.Run("timeout on held lock", func(t *testing.T) {
		if os.Getpid() == 1 || !isProcessRunning(1) {
			t.Skip("PID 1 not usable as a foreign lock holder")
		}
		os.Remove(lockPath)

		// PID 1 always exists on Unix
		if err := os.WriteFile(lockPath, []byte("1"), 0644); err != nil {
			t.Fatalf("Failed to create lock: %v", err)
		}
		defer os.Remove(lockPath)

		start := time.Now()
		err := acquireLock()
		elapsed := time.Since(start)

		if err == nil {
			t.Fatal("Expected error acquiring held lock, got nil")
		}
		if elapsed < settings.Lock.Timeout {
			t.Errorf("Gave up after %v, before the %v timeout", elapsed, settings.Lock.Timeout)
		}
	})

	t.Run("is process running", func(t *testing.T) {
		if !isProcessRunning(os.Getpid()) {
			t.Error("Our own process should be detected as running")
		}
		if isProcessRunning(99999) {
			t.Error("Non-existent process should not be detected as running")
		}
	})
}
