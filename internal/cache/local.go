package cache

import (
	"context"
	"time"

	"xppkb/internal/storage"
)

// Local keeps entries in the cache_entries table of the symbol store.
type Local struct {
	db *storage.DB
}

// NewLocal wraps an open store.
func NewLocal(db *storage.DB) *Local {
	return &Local{db: db}
}

func (l *Local) Name() string { return "local" }

func (l *Local) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return l.db.CacheGet(ctx, key)
}

func (l *Local) Set(ctx context.Context, key string, value []byte, tier Tier, ttl time.Duration) error {
	return l.db.CacheSet(ctx, key, value, tier.String(), ttl)
}

func (l *Local) Keys(ctx context.Context, prefix string, limit int) ([]string, error) {
	return l.db.CacheKeys(ctx, prefix, limit)
}

// Clear also drops expired entries under any prefix; reads only remove
// the expired entries they touch.
func (l *Local) Clear(ctx context.Context, prefix string) error {
	if _, err := l.db.CacheClear(ctx, prefix); err != nil {
		return err
	}
	_, err := l.db.CachePurgeExpired(ctx)
	return err
}

// Close is a no-op; the store is owned by the caller.
func (l *Local) Close() error { return nil }
