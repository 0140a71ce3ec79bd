// Package cache is the result cache in front of search and analysis:
// canonical keys, TTL tiers, exact and fuzzy lookups, and the pluggable
// backends (redis, badger, the local store, or nothing).
package cache

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// KeyPrefix starts every key the layer writes.
const KeyPrefix = "xppkb"

// AllFilter is the filter segment used when a request has no filter.
const AllFilter = "all"

// Key identifies one cached result: xppkb:<op>:<filter>:<limit>:<query>.
type Key struct {
	Op     string
	Filter string
	Limit  int
	Query  string
}

// NewKey builds a key with its filter and query normalized.
func NewKey(op, filter string, limit int, query string) Key {
	return Key{
		Op:     normalizeSegment(op),
		Filter: normalizeFilter(filter),
		Limit:  limit,
		Query:  NormalizeQuery(query),
	}
}

// String renders the key.
func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%s:%d:%s", KeyPrefix, k.Op, k.Filter, k.Limit, k.Query)
}

// Prefix returns the part of the key shared by every request for the same
// operation and filter.
func (k Key) Prefix() string {
	return fmt.Sprintf("%s:%s:%s:", KeyPrefix, k.Op, k.Filter)
}

// ParseKey inverts Key.String.
func ParseKey(s string) (Key, error) {
	parts := strings.SplitN(s, ":", 5)
	if len(parts) != 5 || parts[0] != KeyPrefix {
		return Key{}, fmt.Errorf("malformed cache key %q", s)
	}
	limit, err := strconv.Atoi(parts[3])
	if err != nil {
		return Key{}, fmt.Errorf("malformed cache key %q: bad limit", s)
	}
	return Key{Op: parts[1], Filter: parts[2], Limit: limit, Query: parts[4]}, nil
}

// NormalizeQuery lower-cases q, keeps letters, digits and spaces, and
// collapses runs of spaces.
func NormalizeQuery(q string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(q) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func normalizeFilter(f string) string {
	f = strings.TrimSpace(f)
	if f == "" {
		return AllFilter
	}
	return normalizeSegment(f)
}

// normalizeSegment keeps a segment free of the ':' separator.
func normalizeSegment(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ',' || r == '_' || r == '-' || r == '.' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
