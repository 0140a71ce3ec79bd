//go:build !windows

package index

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"xppkb/internal/errors"
)

const lockFile = "index.lock"

// Lock is an exclusive, process-wide lock on reindexing a data directory.
type Lock struct {
	path string
	file *os.File
}

// AcquireLock takes the reindex lock for dataDir without blocking.
// Returns an INDEX_LOCKED error if another process holds it.
func AcquireLock(dataDir string) (*Lock, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	path := filepath.Join(dataDir, lockFile)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = file.Close()
		return nil, lockedError(path, err)
	}

	if err := writePID(file); err != nil {
		_ = syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		_ = file.Close()
		return nil, err
	}

	return &Lock{path: path, file: file}, nil
}

func writePID(file *os.File) error {
	if err := file.Truncate(0); err != nil {
		return fmt.Errorf("truncating lock file: %w", err)
	}
	if _, err := file.Seek(0, 0); err != nil {
		return fmt.Errorf("seeking lock file: %w", err)
	}
	if _, err := file.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		return fmt.Errorf("writing PID to lock file: %w", err)
	}
	return nil
}

// lockedError names the holder's PID when the lock file carries one.
func lockedError(path string, cause error) error {
	msg := "index is locked by another process"
	if content, err := os.ReadFile(path); err == nil && len(content) > 0 {
		msg = fmt.Sprintf("index is locked by another process (PID %s)", strings.TrimSpace(string(content)))
	}
	return errors.New(errors.IndexLocked, msg, cause).
		WithFix(errors.GetSuggestedFixes(errors.IndexLocked)[0])
}

// Release releases the lock and removes the lock file.
func (l *Lock) Release() {
	if l == nil || l.file == nil {
		return
	}

	_ = syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	_ = l.file.Close()
	_ = os.Remove(l.path)
}
