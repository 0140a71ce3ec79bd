package cache

import (
	"time"

	"xppkb/internal/config"
)

// Tier selects how long an entry lives.
type Tier int

const (
	// Short holds search results.
	Short Tier = iota
	// Medium holds pattern analyses.
	Medium
	// Long holds structural lookups.
	Long
	// Negative holds not-found results.
	Negative
)

func (t Tier) String() string {
	switch t {
	case Short:
		return "short"
	case Medium:
		return "medium"
	case Long:
		return "long"
	case Negative:
		return "negative"
	}
	return "unknown"
}

// Config tunes the layer.
type Config struct {
	Timeout           time.Duration
	TTLs              map[Tier]time.Duration
	FuzzyEnabled      bool
	FuzzyThreshold    float64
	FuzzyLimitDelta   int
	FuzzySampleSize   int
	CompressThreshold int
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		Timeout: 500 * time.Millisecond,
		TTLs: map[Tier]time.Duration{
			Short:    30 * time.Minute,
			Medium:   2 * time.Hour,
			Long:     24 * time.Hour,
			Negative: 60 * time.Second,
		},
		FuzzyEnabled:      true,
		FuzzyThreshold:    0.8,
		FuzzyLimitDelta:   10,
		FuzzySampleSize:   100,
		CompressThreshold: 4096,
	}
}

// FromConfig builds a Config from the [cache] section. Zero values keep
// their defaults.
func FromConfig(cc config.CacheConfig) Config {
	c := DefaultConfig()
	seconds := func(tier Tier, v int) {
		if v > 0 {
			c.TTLs[tier] = time.Duration(v) * time.Second
		}
	}
	if cc.TimeoutMs > 0 {
		c.Timeout = time.Duration(cc.TimeoutMs) * time.Millisecond
	}
	seconds(Short, cc.ShortTtlSeconds)
	seconds(Medium, cc.MediumTtlSeconds)
	seconds(Long, cc.LongTtlSeconds)
	seconds(Negative, cc.NegativeTtlSeconds)
	c.FuzzyEnabled = cc.FuzzyEnabled
	if cc.FuzzyThreshold > 0 {
		c.FuzzyThreshold = cc.FuzzyThreshold
	}
	if cc.FuzzyLimitDelta > 0 {
		c.FuzzyLimitDelta = cc.FuzzyLimitDelta
	}
	if cc.FuzzySampleSize > 0 {
		c.FuzzySampleSize = cc.FuzzySampleSize
	}
	if cc.CompressThresholdBytes > 0 {
		c.CompressThreshold = cc.CompressThresholdBytes
	}
	return c
}

// TTL returns the lifetime of tier.
func (c Config) TTL(t Tier) time.Duration {
	if d, ok := c.TTLs[t]; ok {
		return d
	}
	return DefaultConfig().TTLs[t]
}
