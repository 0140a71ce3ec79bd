// Package storage is the SQLite-backed symbol store: the symbols table, its
// FTS5 projection, index-run history, and the local cache table.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"xppkb/internal/config"
)

// ErrCorrupt marks failures caused by an unreadable database file.
var ErrCorrupt = errors.New("store corrupt")

// DB is the symbol store.
type DB struct {
	conn      *sql.DB
	logger    *slog.Logger
	dbPath    string
	recovered bool

	// writeMu serializes writers inside the process; SQLite's busy timeout
	// covers other processes.
	writeMu sync.Mutex
}

// Open opens the store configured by cfg, creating it if needed.
func Open(cfg *config.Config, logger *slog.Logger) (*DB, error) {
	return OpenPath(cfg.StorePath(), cfg.Store.BusyTimeoutMs, logger)
}

// OpenPath opens or creates a store at dbPath. A corrupt file is removed
// along with its WAL and shared-memory files and an empty store is created
// in its place; Recovered reports when that happened.
func OpenPath(dbPath string, busyTimeoutMs int, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if busyTimeoutMs <= 0 {
		busyTimeoutMs = 5000
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := open(dbPath, busyTimeoutMs, logger)
	if err == nil {
		return db, nil
	}
	if !IsCorrupt(err) {
		return nil, err
	}

	logger.Warn("Store is corrupt, recreating", "path", dbPath, "error", err)
	if rmErr := removeDBFiles(dbPath); rmErr != nil {
		return nil, fmt.Errorf("failed to remove corrupt store: %w", rmErr)
	}
	db, err = open(dbPath, busyTimeoutMs, logger)
	if err != nil {
		return nil, err
	}
	db.recovered = true
	return db, nil
}

func open(dbPath string, busyTimeoutMs int, logger *slog.Logger) (*DB, error) {
	dbExists := fileExists(dbPath)

	conn, err := sql.Open("sqlite", dsn(dbPath, busyTimeoutMs))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{
		conn:   conn,
		logger: logger,
		dbPath: dbPath,
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open database: %w", classify(err))
	}

	if !dbExists {
		logger.Info("Creating new store", "path", dbPath)
		err = db.initializeSchema()
	} else {
		logger.Debug("Running store migrations", "path", dbPath)
		err = db.runMigrations()
	}
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to prepare schema: %w", classify(err))
	}

	return db, nil
}

// dsn applies the pragmas per connection so every pooled connection gets them.
func dsn(dbPath string, busyTimeoutMs int) string {
	pragmas := []string{
		"journal_mode(WAL)",
		"synchronous(NORMAL)",
		fmt.Sprintf("busy_timeout(%d)", busyTimeoutMs),
		"cache_size(-64000)",
		"temp_store(MEMORY)",
		"mmap_size(268435456)",
	}
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	return "file:" + dbPath + "?" + q.Encode()
}

// IsCorrupt reports whether err stems from a corrupt or non-database file.
func IsCorrupt(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCorrupt) {
		return true
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_CORRUPT, sqlite3.SQLITE_NOTADB:
			return true
		}
	}
	msg := err.Error()
	return strings.Contains(msg, "file is not a database") ||
		strings.Contains(msg, "database disk image is malformed")
}

func classify(err error) error {
	if IsCorrupt(err) && !errors.Is(err, ErrCorrupt) {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return err
}

func removeDBFiles(dbPath string) error {
	for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.dbPath
}

// Recovered reports whether Open replaced a corrupt file with an empty store.
func (db *DB) Recovered() bool {
	return db.recovered
}

// Conn returns the underlying sql.DB connection
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// WithTx executes fn within a transaction under the store write lock.
// If fn returns an error or panics, the transaction is rolled back.
func (db *DB) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", classify(err))
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error("failed to rollback transaction",
				"error", err.Error(),
				"rollback_error", rbErr.Error(),
			)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", classify(err))
	}

	return nil
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}
