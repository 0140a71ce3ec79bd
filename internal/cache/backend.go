package cache

import (
	"context"
	"time"
)

// Backend stores encoded entries. Implementations must be safe for
// concurrent use and honour ctx deadlines where the transport allows.
type Backend interface {
	Name() string
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, tier Tier, ttl time.Duration) error
	// Keys returns up to limit live keys starting with prefix.
	Keys(ctx context.Context, prefix string, limit int) ([]string, error)
	// Clear removes every key starting with prefix.
	Clear(ctx context.Context, prefix string) error
	Close() error
}

// Noop is the backend used when no cache is configured. Every lookup misses.
type Noop struct{}

func (Noop) Name() string { return "none" }

func (Noop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (Noop) Set(context.Context, string, []byte, Tier, time.Duration) error { return nil }

func (Noop) Keys(context.Context, string, int) ([]string, error) { return nil, nil }

func (Noop) Clear(context.Context, string) error { return nil }

func (Noop) Close() error { return nil }
