package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"inventory-sync/core/clock"

	"gorm.io/gorm"
)

// DefaultTTL is used when a caller passes a non-positive TTL.
const DefaultTTL = 7 * 24 * time.Hour

// ErrReadOnly is returned by Probe on a read-only store.
var ErrReadOnly = errors.New("kv: store is read-only")

// Store is a string-keyed byte store with per-entry expiry.
type Store interface {
	// Get returns the value for key. found is false when the key is absent or expired.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// Set writes value under key, expiring after ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Scan returns every live key matching a glob pattern where '*' matches
	// any run of characters and '?' a single one.
	Scan(ctx context.Context, pattern string) ([]string, error)
	// Close releases the backend's resources.
	Close() error
}

// Open builds the backend selected by cfg. db is required for the sql backend.
func Open(ctx context.Context, cfg Config, db *gorm.DB, clk clock.Clock) (Store, error) {
	switch cfg.Backend {
	case BackendMemory:
		return NewMemoryStore(clk), nil
	case BackendSQL, "":
		if db == nil {
			return nil, fmt.Errorf("sql state backend requires a database connection")
		}
		return NewSQLStore(ctx, db, clk)
	case BackendNats:
		ttl := cfg.TTL
		if ttl <= 0 {
			ttl = DefaultTTL
		}
		return NewNatsStore(ctx, cfg.NatsURL, cfg.NatsBucket, ttl)
	default:
		return nil, fmt.Errorf("unsupported state backend %q", cfg.Backend)
	}
}

// Probe performs a write/read/delete round trip against the store.
func Probe(ctx context.Context, s Store, key string) error {
	if _, ok := s.(*readOnly); ok {
		return ErrReadOnly
	}

	want := []byte(time.Now().UTC().Format(time.RFC3339Nano))
	if err := s.Set(ctx, key, want, time.Minute); err != nil {
		return fmt.Errorf("write probe: %w", err)
	}
	got, found, err := s.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("read probe: %w", err)
	}
	if !found || string(got) != string(want) {
		return fmt.Errorf("read probe: value not returned")
	}
	if err := s.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete probe: %w", err)
	}
	return nil
}

// matchGlob reports whether key matches pattern. Only '*' and '?' are special.
func matchGlob(pattern, key string) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case '*':
			rest := pattern[1:]
			if rest == "" {
				return true
			}
			for i := 0; i <= len(key); i++ {
				if matchGlob(rest, key[i:]) {
					return true
				}
			}
			return false
		case '?':
			if key == "" {
				return false
			}
			pattern, key = pattern[1:], key[1:]
		default:
			if key == "" || key[0] != pattern[0] {
				return false
			}
			pattern, key = pattern[1:], key[1:]
		}
	}
	return key == ""
}

// literalPrefix returns the part of pattern before the first wildcard.
func literalPrefix(pattern string) string {
	if i := strings.IndexAny(pattern, "*?"); i >= 0 {
		return pattern[:i]
	}
	return pattern
}

func effectiveTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultTTL
	}
	return ttl
}
