package cache

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"xppkb/internal/config"
	"xppkb/internal/errors"
	"xppkb/internal/fuzzy"
	"xppkb/internal/storage"
)

// Layer fronts a Backend with encoding, timeouts, and fuzzy lookup. Every
// backend failure is logged and reported to the caller as a miss, so a
// broken cache only costs latency.
type Layer struct {
	backend Backend
	cfg     Config
	logger  *slog.Logger
}

// NewLayer wraps backend. A nil backend behaves like Noop.
func NewLayer(backend Backend, cfg Config, logger *slog.Logger) *Layer {
	if backend == nil {
		backend = Noop{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Layer{backend: backend, cfg: cfg, logger: logger}
}

// Open builds the layer named by the [cache] section:
//
//	""                      no cache
//	redis://, rediss://     redis server
//	badger://<dir>          embedded badger (relative dirs live under dataDir)
//	local, sqlite://        cache_entries table of store
//
// A backend that cannot be reached degrades to no cache with a warning.
func Open(ctx context.Context, cc config.CacheConfig, dataDir string, store *storage.DB, logger *slog.Logger) *Layer {
	cfg := FromConfig(cc)
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	backend, err := openBackend(ctx, cc.URL, cfg, dataDir, store)
	if err != nil {
		cacheErrors.WithLabelValues(schemeOf(cc.URL), "connect").Inc()
		logger.Warn("Cache unavailable, continuing without cache",
			"code", errors.CacheUnavailable,
			"url", redactURL(cc.URL),
			"error", err,
		)
		backend = Noop{}
	}
	if _, ok := backend.(Noop); !ok {
		logger.Info("Cache enabled", "backend", backend.Name())
	}
	return NewLayer(backend, cfg, logger)
}

func openBackend(ctx context.Context, rawURL string, cfg Config, dataDir string, store *storage.DB) (Backend, error) {
	switch {
	case rawURL == "":
		return Noop{}, nil
	case strings.HasPrefix(rawURL, "redis://"), strings.HasPrefix(rawURL, "rediss://"):
		return NewRedis(ctx, rawURL, cfg.Timeout)
	case strings.HasPrefix(rawURL, "badger://"):
		dir := strings.TrimPrefix(rawURL, "badger://")
		if dir == "" {
			dir = "cache"
		}
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(dataDir, dir)
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
		return NewBadger(dir)
	case rawURL == "local", strings.HasPrefix(rawURL, "sqlite://"):
		if store == nil {
			return nil, errors.New(errors.CacheUnavailable, "local cache needs an open store", nil)
		}
		return NewLocal(store), nil
	}
	return nil, errors.Newf(errors.CacheUnavailable, "unsupported cache url scheme %q", schemeOf(rawURL))
}

func schemeOf(rawURL string) string {
	if i := strings.Index(rawURL, "://"); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

// redactURL drops credentials from a URL for logging.
func redactURL(rawURL string) string {
	scheme := schemeOf(rawURL)
	rest := strings.TrimPrefix(rawURL, scheme+"://")
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		return scheme + "://***@" + rest[at+1:]
	}
	return rawURL
}

// Enabled reports whether a real backend is configured.
func (l *Layer) Enabled() bool {
	_, noop := l.backend.(Noop)
	return !noop
}

// BackendName names the active backend.
func (l *Layer) BackendName() string {
	return l.backend.Name()
}

// Config returns the layer's tuning.
func (l *Layer) Config() Config {
	return l.cfg
}

func (l *Layer) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, l.cfg.Timeout)
}

func (l *Layer) fail(call, key string, err error) {
	cacheErrors.WithLabelValues(l.backend.Name(), call).Inc()
	l.logger.Debug("Cache call failed",
		"code", errors.CacheUnavailable,
		"backend", l.backend.Name(),
		"call", call,
		"key", key,
		"error", err,
	)
}

// Get decodes the entry stored under key into dst.
func (l *Layer) Get(ctx context.Context, key Key, dst any) bool {
	ok := l.get(ctx, key.String(), dst)
	if ok {
		cacheHits.WithLabelValues(key.Op).Inc()
	}
	return ok
}

func (l *Layer) get(ctx context.Context, key string, dst any) bool {
	cctx, cancel := l.bounded(ctx)
	defer cancel()

	b, ok, err := l.backend.Get(cctx, key)
	if err != nil {
		l.fail("get", key, err)
		return false
	}
	if !ok {
		return false
	}
	if err := decode(b, dst); err != nil {
		l.fail("decode", key, err)
		return false
	}
	return true
}

// Set stores value under key for the tier's TTL. Failures are logged only.
func (l *Layer) Set(ctx context.Context, key Key, value any, tier Tier) {
	b, err := encode(value, l.cfg.CompressThreshold)
	if err != nil {
		l.fail("encode", key.String(), err)
		return
	}

	cctx, cancel := l.bounded(ctx)
	defer cancel()
	if err := l.backend.Set(cctx, key.String(), b, tier, l.cfg.TTL(tier)); err != nil {
		l.fail("set", key.String(), err)
		return
	}
	cacheSets.WithLabelValues(tier.String()).Inc()
}

// GetFuzzy tries key exactly, then the cached entry for the most similar
// query under the same operation and filter whose limit is within the
// configured delta. It returns the key that served the value.
func (l *Layer) GetFuzzy(ctx context.Context, key Key, dst any) (Key, bool) {
	if l.Get(ctx, key, dst) {
		return key, true
	}
	if !l.cfg.FuzzyEnabled || !l.Enabled() {
		return Key{}, false
	}

	best, ok := l.closest(ctx, key)
	if !ok || !l.get(ctx, best.String(), dst) {
		return Key{}, false
	}

	cacheFuzzyHits.WithLabelValues(key.Op).Inc()
	l.logger.Debug("Cache fuzzy hit",
		"requested", key.String(),
		"served", best.String(),
	)
	return best, true
}

// closest samples keys under key's prefix and picks the best match. Ties go
// to the first sampled key.
func (l *Layer) closest(ctx context.Context, key Key) (Key, bool) {
	cctx, cancel := l.bounded(ctx)
	defer cancel()

	keys, err := l.backend.Keys(cctx, key.Prefix(), l.cfg.FuzzySampleSize)
	if err != nil {
		l.fail("keys", key.Prefix(), err)
		return Key{}, false
	}

	var (
		best    Key
		bestSim float64
		found   bool
	)
	for _, raw := range keys {
		cand, err := ParseKey(raw)
		if err != nil || cand == key {
			continue
		}
		delta := cand.Limit - key.Limit
		if delta < 0 {
			delta = -delta
		}
		if delta > l.cfg.FuzzyLimitDelta {
			continue
		}
		sim := fuzzy.Similarity(key.Query, cand.Query)
		if sim >= l.cfg.FuzzyThreshold && sim > bestSim {
			best, bestSim, found = cand, sim, true
		}
	}
	return best, found
}

// Miss records a lookup that fell through to computation.
func (l *Layer) Miss(op string) {
	cacheMisses.WithLabelValues(op).Inc()
}

// Clear drops every entry the layer wrote.
func (l *Layer) Clear(ctx context.Context) error {
	cctx, cancel := l.bounded(ctx)
	defer cancel()
	if err := l.backend.Clear(cctx, KeyPrefix+":"); err != nil {
		l.fail("clear", KeyPrefix+":", err)
		return errors.New(errors.CacheUnavailable, "failed to clear cache", err)
	}
	return nil
}

// Close releases the backend.
func (l *Layer) Close() error {
	return l.backend.Close()
}
