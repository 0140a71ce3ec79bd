package workspace

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"xppkb/internal/symbols"
)

// DefaultDebounce is the quiet period before a rescan.
const DefaultDebounce = 500 * time.Millisecond

// Workspace holds the latest scan and keeps it current.
type Workspace struct {
	scanner  *Scanner
	current  atomic.Pointer[Snapshot]
	debounce time.Duration
	logger   *slog.Logger
}

// New creates a workspace over scanner. Nothing is scanned until Refresh
// or Watch runs.
func New(scanner *Scanner, logger *slog.Logger) *Workspace {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Workspace{scanner: scanner, debounce: DefaultDebounce, logger: logger}
}

// Symbols returns the symbols of the latest scan. Safe on a nil receiver.
func (w *Workspace) Symbols() []symbols.Symbol {
	if w == nil {
		return nil
	}
	if snap := w.current.Load(); snap != nil {
		return snap.Symbols
	}
	return nil
}

// Snapshot returns the latest scan, or nil before the first one.
func (w *Workspace) Snapshot() *Snapshot {
	return w.current.Load()
}

// Refresh rescans the workspace and publishes the result.
func (w *Workspace) Refresh(ctx context.Context) error {
	snap, err := w.scanner.Scan(ctx)
	if err != nil {
		return err
	}
	w.current.Store(snap)
	return nil
}

// Watch scans once, then rescans after metadata files change, until ctx
// is done.
func (w *Workspace) Watch(ctx context.Context) error {
	if err := w.Refresh(ctx); err != nil {
		return err
	}
	if w.scanner.Root() == "" {
		<-ctx.Done()
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := w.addDirectories(fsw, w.scanner.Root()); err != nil {
		return fmt.Errorf("add directories: %w", err)
	}

	debouncer := NewDebouncer(w.debounce)
	defer debouncer.Cancel()
	rescan := func() {
		if err := w.Refresh(ctx); err != nil && ctx.Err() == nil {
			w.logger.Warn("Workspace rescan failed", "error", err.Error())
		}
	}

	w.logger.Info("Watching workspace", "root", w.scanner.Root())
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				_ = w.addDirectories(fsw, event.Name)
			}
			if w.relevant(event) {
				debouncer.Trigger(rescan)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Workspace watcher error", "error", err.Error())
		}
	}
}

// relevant reports whether event touches a file the scan covers.
func (w *Workspace) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	rel, err := filepath.Rel(w.scanner.Root(), event.Name)
	if err != nil {
		return false
	}
	return w.scanner.Matches(filepath.ToSlash(rel))
}

// addDirectories watches path and every non-hidden directory below it.
// Paths that are not directories are ignored.
func (w *Workspace) addDirectories(fsw *fsnotify.Watcher, path string) error {
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if p != path && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := fsw.Add(p); err != nil {
			w.logger.Debug("Cannot watch directory", "path", p, "error", err.Error())
		}
		return nil
	})
}
