//go:build !windows

package index

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"xppkb/internal/errors"
)

func TestAcquireAndReleaseLock(t *testing.T) {
	tmpDir := t.TempDir()

	lock, err := AcquireLock(tmpDir)
	if err != nil {
		t.Fatalf("AcquireLock failed: %v", err)
	}
	if lock == nil {
		t.Fatal("expected non-nil lock")
	}

	lockPath := filepath.Join(tmpDir, lockFile)
	content, err := os.ReadFile(lockPath)
	if err != nil {
		t.Fatalf("failed to read lock file: %v", err)
	}

	pid, err := strconv.Atoi(string(content))
	if err != nil {
		t.Fatalf("lock file should contain PID: %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("PID: got %d, want %d", pid, os.Getpid())
	}

	lock.Release()

	if _, err := os.Stat(lockPath); !os.IsNotExist(err) {
		t.Error("lock file should be removed after release")
	}
}

func TestAcquireLock_AlreadyLocked(t *testing.T) {
	tmpDir := t.TempDir()

	lock1, err := AcquireLock(tmpDir)
	if err != nil {
		t.Fatalf("first AcquireLock failed: %v", err)
	}
	defer lock1.Release()

	lock2, err := AcquireLock(tmpDir)
	if err == nil {
		lock2.Release()
		t.Fatal("second AcquireLock should fail when already locked")
	}
	if !errors.Is(err, errors.IndexLocked) {
		t.Errorf("error code = %s, want INDEX_LOCKED", errors.CodeOf(err))
	}
}

func TestAcquireLock_CreatesDirectory(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), ".xppkb")

	lock, err := AcquireLock(dataDir)
	if err != nil {
		t.Fatalf("AcquireLock failed: %v", err)
	}
	defer lock.Release()

	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		t.Error("data directory should be created by AcquireLock")
	}
}

func TestReleaseLock_NilSafe(t *testing.T) {
	var lock *Lock
	lock.Release()
}
