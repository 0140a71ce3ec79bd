package cache

import "context"

// Policy says how WithCache stores a result.
type Policy[T any] struct {
	Tier Tier
	// Fuzzy allows serving the entry of a similar earlier query.
	Fuzzy bool
	// Empty reports not-found results, which are kept for the Negative
	// tier's TTL instead of Tier's.
	Empty func(T) bool
}

// Hit describes where a WithCache result came from.
type Hit struct {
	Cached bool   `json:"cached"`
	Fuzzy  bool   `json:"fuzzy,omitempty"`
	Key    string `json:"key,omitempty"`
}

// WithCache returns the cached value for key or computes, stores, and
// returns it. Cache failures never surface; compute errors are returned
// and nothing is stored.
func WithCache[T any](ctx context.Context, l *Layer, key Key, p Policy[T], compute func(context.Context) (T, error)) (T, Hit, error) {
	if l == nil || !l.Enabled() {
		v, err := compute(ctx)
		return v, Hit{}, err
	}

	var cached T
	if p.Fuzzy {
		if served, ok := l.GetFuzzy(ctx, key, &cached); ok {
			return cached, Hit{Cached: true, Fuzzy: served != key, Key: served.String()}, nil
		}
	} else if l.Get(ctx, key, &cached) {
		return cached, Hit{Cached: true, Key: key.String()}, nil
	}
	l.Miss(key.Op)

	v, err := compute(ctx)
	if err != nil {
		return v, Hit{}, err
	}

	tier := p.Tier
	if p.Empty != nil && p.Empty(v) {
		tier = Negative
	}
	l.Set(ctx, key, v, tier)
	return v, Hit{}, nil
}
