package storage

import (
	"database/sql"
	"fmt"
)

// Schema version tracking
//
//	1: symbols + FTS5 projection
//	2: index_runs, cache_entries
const currentSchemaVersion = 2

// initializeSchema creates all tables for a new database
func (db *DB) initializeSchema() error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	steps := []func(*sql.Tx) error{
		createSchemaVersionTable,
		createSymbolsTable,
		createSymbolsFTS,
		createIndexRunsTable,
		createCacheEntriesTable,
	}
	for _, step := range steps {
		if err := step(tx); err != nil {
			return err
		}
	}
	if err := setSchemaVersion(tx, currentSchemaVersion); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	db.logger.Info("Store schema initialized", "version", currentSchemaVersion)
	return nil
}

// runMigrations runs any pending schema migrations
func (db *DB) runMigrations() error {
	version, err := db.getSchemaVersion()
	if err != nil {
		return err
	}

	if version == 0 {
		return db.initializeSchema()
	}
	if version == currentSchemaVersion {
		db.logger.Debug("Store schema is up to date", "version", version)
		return nil
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("store schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	db.logger.Info("Running store migrations",
		"from_version", version,
		"to_version", currentSchemaVersion,
	)

	if version < 2 {
		if err := db.migrateToV2(); err != nil {
			return fmt.Errorf("migration to v2 failed: %w", err)
		}
	}

	return nil
}

func (db *DB) migrateToV2() error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := createIndexRunsTable(tx); err != nil {
		return err
	}
	if err := createCacheEntriesTable(tx); err != nil {
		return err
	}
	if err := setSchemaVersion(tx, 2); err != nil {
		return err
	}
	return tx.Commit()
}

// getSchemaVersion gets the current schema version
func (db *DB) getSchemaVersion() (int, error) {
	var tableName string
	err := db.conn.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableName)

	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var version int
	err = db.conn.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return version, nil
}

// setSchemaVersion sets the schema version
func setSchemaVersion(tx *sql.Tx, version int) error {
	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return err
	}
	_, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

func createSchemaVersionTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	return err
}

// createSymbolsTable creates the symbols table. List attributes are stored
// comma-joined; usage patterns and typical usages are JSON text.
func createSymbolsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS symbols (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			kind TEXT NOT NULL CHECK(kind IN ('class', 'table', 'method', 'field', 'enum')),
			parent TEXT NOT NULL DEFAULT '',
			signature TEXT NOT NULL DEFAULT '',
			source_location TEXT NOT NULL DEFAULT '',
			model TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '',
			used_types TEXT NOT NULL DEFAULT '',
			method_calls TEXT NOT NULL DEFAULT '',
			related_methods TEXT NOT NULL DEFAULT '',
			extends TEXT NOT NULL DEFAULT '',
			api_usage_patterns TEXT NOT NULL DEFAULT '',
			typical_usages TEXT NOT NULL DEFAULT '',
			usage_frequency INTEGER NOT NULL DEFAULT 0,
			complexity INTEGER NOT NULL DEFAULT 0,
			pattern_type TEXT NOT NULL DEFAULT '',
			source_snippet TEXT NOT NULL DEFAULT '',

			CHECK(
				(kind IN ('method', 'field') AND parent != '') OR
				(kind IN ('class', 'table', 'enum') AND parent = '')
			)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create symbols table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name COLLATE NOCASE)",
		"CREATE INDEX IF NOT EXISTS idx_symbols_parent_kind ON symbols(parent COLLATE NOCASE, kind)",
		"CREATE INDEX IF NOT EXISTS idx_symbols_model ON symbols(model)",
		"CREATE INDEX IF NOT EXISTS idx_symbols_pattern_type ON symbols(pattern_type)",
	}
	for _, indexSQL := range indexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// createSymbolsFTS creates the FTS5 projection over symbols and the triggers
// that keep it in step with every write.
func createSymbolsFTS(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS symbols_fts USING fts5(
			name,
			parent,
			signature,
			tags,
			pattern_type,
			content='symbols',
			content_rowid='id'
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create symbols_fts table: %w", err)
	}

	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS symbols_fts_ai AFTER INSERT ON symbols BEGIN
			INSERT INTO symbols_fts(rowid, name, parent, signature, tags, pattern_type)
			VALUES (new.id, new.name, new.parent, new.signature, new.tags, new.pattern_type);
		END`,

		`CREATE TRIGGER IF NOT EXISTS symbols_fts_au AFTER UPDATE ON symbols BEGIN
			INSERT INTO symbols_fts(symbols_fts, rowid, name, parent, signature, tags, pattern_type)
			VALUES ('delete', old.id, old.name, old.parent, old.signature, old.tags, old.pattern_type);
			INSERT INTO symbols_fts(rowid, name, parent, signature, tags, pattern_type)
			VALUES (new.id, new.name, new.parent, new.signature, new.tags, new.pattern_type);
		END`,

		`CREATE TRIGGER IF NOT EXISTS symbols_fts_ad AFTER DELETE ON symbols BEGIN
			INSERT INTO symbols_fts(symbols_fts, rowid, name, parent, signature, tags, pattern_type)
			VALUES ('delete', old.id, old.name, old.parent, old.signature, old.tags, old.pattern_type);
		END`,
	}
	for _, trigger := range triggers {
		if _, err := tx.Exec(trigger); err != nil {
			return fmt.Errorf("failed to create trigger: %w", err)
		}
	}

	return nil
}

func createIndexRunsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS index_runs (
			run_id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			models TEXT NOT NULL DEFAULT '',
			files INTEGER NOT NULL DEFAULT 0,
			symbols INTEGER NOT NULL DEFAULT 0,
			parse_failures INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL CHECK(status IN ('completed', 'failed')),
			error TEXT NOT NULL DEFAULT ''
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create index_runs table: %w", err)
	}
	_, err = tx.Exec("CREATE INDEX IF NOT EXISTS idx_index_runs_finished_at ON index_runs(finished_at)")
	return err
}

// createCacheEntriesTable creates the table behind the local cache backend.
// expires_at is unix milliseconds.
func createCacheEntriesTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS cache_entries (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			tier TEXT NOT NULL,
			expires_at INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create cache_entries table: %w", err)
	}
	_, err = tx.Exec("CREATE INDEX IF NOT EXISTS idx_cache_entries_expires_at ON cache_entries(expires_at)")
	return err
}
