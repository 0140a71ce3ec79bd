//go:build windows

package index

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"xppkb/internal/errors"
)

const lockFile = "index.lock"

// Lock is an exclusive, process-wide lock on reindexing a data directory.
// On Windows the lock is the lock file's existence.
type Lock struct {
	path string
	file *os.File
}

// AcquireLock takes the reindex lock for dataDir without blocking.
// Returns an INDEX_LOCKED error if the lock file already exists.
func AcquireLock(dataDir string) (*Lock, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	path := filepath.Join(dataDir, lockFile)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
	if err != nil {
		if os.IsExist(err) {
			msg := "index is locked by another process"
			if content, readErr := os.ReadFile(path); readErr == nil && len(content) > 0 {
				msg = fmt.Sprintf("index is locked by another process (PID %s)", strings.TrimSpace(string(content)))
			}
			return nil, errors.New(errors.IndexLocked, msg, err)
		}
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	if _, err := file.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		file.Close()
		os.Remove(path)
		return nil, fmt.Errorf("writing PID to lock file: %w", err)
	}

	return &Lock{path: path, file: file}, nil
}

// Release releases the lock and removes the lock file.
func (l *Lock) Release() {
	if l == nil || l.file == nil {
		return
	}

	l.file.Close()
	os.Remove(l.path)
}
