package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CacheGet returns the value stored under key. Expired entries are deleted
// on read and reported as missing.
func (db *DB) CacheGet(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	var expiresAt int64

	err := db.conn.QueryRowContext(ctx, `
		SELECT value, expires_at
		FROM cache_entries
		WHERE key = ?
	`, key).Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache lookup failed: %w", classify(err))
	}

	if time.Now().UnixMilli() >= expiresAt {
		_, _ = db.conn.ExecContext(ctx, "DELETE FROM cache_entries WHERE key = ?", key)
		return nil, false, nil
	}

	return value, true, nil
}

// CacheSet stores value under key for ttl. Last write wins.
func (db *DB) CacheSet(ctx context.Context, key string, value []byte, tier string, ttl time.Duration) error {
	now := time.Now()
	_, err := db.conn.ExecContext(ctx, `
		INSERT OR REPLACE INTO cache_entries (key, value, tier, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, key, value, tier, now.Add(ttl).UnixMilli(), now.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to set cache entry: %w", classify(err))
	}
	return nil
}

// CacheKeys returns up to limit live keys starting with prefix, newest first.
func (db *DB) CacheKeys(ctx context.Context, prefix string, limit int) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT key FROM cache_entries
		WHERE substr(key, 1, ?) = ? AND expires_at > ?
		ORDER BY created_at DESC, key
		LIMIT ?
	`, len(prefix), prefix, time.Now().UnixMilli(), sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("cache key scan failed: %w", classify(err))
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, classify(rows.Err())
}

// CacheClear deletes every entry whose key starts with prefix.
func (db *DB) CacheClear(ctx context.Context, prefix string) (int64, error) {
	res, err := db.conn.ExecContext(ctx, "DELETE FROM cache_entries WHERE substr(key, 1, ?) = ?", len(prefix), prefix)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cache: %w", classify(err))
	}
	return res.RowsAffected()
}

// CachePurgeExpired removes expired entries.
func (db *DB) CachePurgeExpired(ctx context.Context) (int64, error) {
	res, err := db.conn.ExecContext(ctx, "DELETE FROM cache_entries WHERE expires_at <= ?", time.Now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache: %w", classify(err))
	}
	return res.RowsAffected()
}
