package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"inventory-sync/core/clock"
	"inventory-sync/core/kv"
)

// Tracked state field suffixes. Every field is its own key: <prefix>:<id>:<field>.
const (
	FieldFingerprint  = "hash"
	FieldLastSeen     = "last_seen"
	FieldMissingSince = "missing_since"
	FieldLastNotified = "last_notified"
	FieldRegistryRef  = "registry_ref"
	FieldSnapshot     = "data"
)

var errCorruptStats = errors.New("corrupt daily stats")

var allFields = []string{
	FieldFingerprint, FieldLastSeen, FieldMissingSince,
	FieldLastNotified, FieldRegistryRef, FieldSnapshot,
}

// Prior is the tracked state of one entity. Zero times mean "absent".
type Prior struct {
	ID           string      `json:"id"`
	Fingerprint  string      `json:"fingerprint,omitempty"`
	RegistryRef  string      `json:"registry_ref,omitempty"`
	Snapshot     *Attributes `json:"snapshot,omitempty"`
	LastSeen     time.Time   `json:"last_seen,omitempty"`
	MissingSince time.Time   `json:"missing_since,omitempty"`
	LastNotified time.Time   `json:"last_notified,omitempty"`
}

// Known reports whether the entity has a stored fingerprint.
func (p Prior) Known() bool {
	return p.Fingerprint != ""
}

// DailyStats are the per-day NEW/CHANGED counters.
type DailyStats struct {
	New     int `json:"new"`
	Changed int `json:"changed"`
}

// Tracker reads and writes per-entity state over a kv.Store.
type Tracker struct {
	store  kv.Store
	prefix string
	ttl    time.Duration
	clock  clock.Clock
}

// NewTracker creates a tracker. An empty prefix defaults to "datastore".
func NewTracker(store kv.Store, prefix string, ttl time.Duration, clk clock.Clock) *Tracker {
	if prefix == "" {
		prefix = "datastore"
	}
	if ttl <= 0 {
		ttl = kv.DefaultTTL
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &Tracker{store: store, prefix: prefix, ttl: ttl, clock: clk}
}

func (t *Tracker) key(id, field string) string {
	return t.prefix + ":" + id + ":" + field
}

// KnownIDs returns every entity id with a stored fingerprint.
func (t *Tracker) KnownIDs(ctx context.Context) ([]string, error) {
	return t.idsWith(ctx, FieldFingerprint)
}

// MissingIDs returns every entity id with a missing_since marker.
func (t *Tracker) MissingIDs(ctx context.Context) ([]string, error) {
	return t.idsWith(ctx, FieldMissingSince)
}

func (t *Tracker) idsWith(ctx context.Context, field string) ([]string, error) {
	keys, err := t.store.Scan(ctx, t.key("*", field))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStateStore, err)
	}

	head, tail := t.prefix+":", ":"+field
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		id := strings.TrimSuffix(strings.TrimPrefix(k, head), tail)
		if id != "" && id != k {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Load reads every tracked field of an entity.
func (t *Tracker) Load(ctx context.Context, id string) (Prior, error) {
	p := Prior{ID: id}

	for _, field := range allFields {
		raw, found, err := t.store.Get(ctx, t.key(id, field))
		if err != nil {
			return Prior{}, fmt.Errorf("%w: %w", ErrStateStore, err)
		}
		if !found {
			continue
		}
		switch field {
		case FieldFingerprint:
			p.Fingerprint = string(raw)
		case FieldRegistryRef:
			p.RegistryRef = string(raw)
		case FieldSnapshot:
			var attrs Attributes
			if err := json.Unmarshal(raw, &attrs); err == nil {
				p.Snapshot = &attrs
			}
		case FieldLastSeen:
			p.LastSeen = parseTime(raw)
		case FieldMissingSince:
			p.MissingSince = parseTime(raw)
		case FieldLastNotified:
			p.LastNotified = parseTime(raw)
		}
	}
	return p, nil
}

// SaveSynced persists the state that follows a successful registry write.
func (t *Tracker) SaveSynced(ctx context.Context, id, ref, fingerprint string, attrs Attributes) error {
	snapshot, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStateStore, err)
	}
	if err := t.set(ctx, id, FieldRegistryRef, []byte(ref)); err != nil {
		return err
	}
	if err := t.set(ctx, id, FieldSnapshot, snapshot); err != nil {
		return err
	}
	// The fingerprint goes last: it is what marks the entity as known.
	return t.set(ctx, id, FieldFingerprint, []byte(fingerprint))
}

// SetRegistryRef stores an adopted registry reference.
func (t *Tracker) SetRegistryRef(ctx context.Context, id, ref string) error {
	return t.set(ctx, id, FieldRegistryRef, []byte(ref))
}

// MarkSeen records an observation at the current time.
func (t *Tracker) MarkSeen(ctx context.Context, id string) error {
	return t.setTime(ctx, id, FieldLastSeen, t.clock.Now())
}

// MarkMissing sets missing_since.
func (t *Tracker) MarkMissing(ctx context.Context, id string, since time.Time) error {
	return t.setTime(ctx, id, FieldMissingSince, since)
}

// MarkNotified sets last_notified.
func (t *Tracker) MarkNotified(ctx context.Context, id string, at time.Time) error {
	return t.setTime(ctx, id, FieldLastNotified, at)
}

// ClearMissing removes missing_since and last_notified together.
func (t *Tracker) ClearMissing(ctx context.Context, id string) error {
	for _, field := range []string{FieldMissingSince, FieldLastNotified} {
		if err := t.store.Delete(ctx, t.key(id, field)); err != nil {
			return fmt.Errorf("%w: %w", ErrStateStore, err)
		}
	}
	return nil
}

// Purge removes every tracked field of an entity, registry_ref included.
func (t *Tracker) Purge(ctx context.Context, id string) error {
	for _, field := range allFields {
		if err := t.store.Delete(ctx, t.key(id, field)); err != nil {
			return fmt.Errorf("%w: %w", ErrStateStore, err)
		}
	}
	return nil
}

// AddDailyStats adds to the counters of the day containing at. A corrupt
// stored value is replaced, starting that day's counters over.
func (t *Tracker) AddDailyStats(ctx context.Context, at time.Time, newCount, changedCount int) error {
	key := t.statsKey(at)
	stats, err := t.DailyStats(ctx, at)
	if errors.Is(err, errCorruptStats) {
		stats = DailyStats{}
	} else if err != nil {
		return err
	}
	stats.New += newCount
	stats.Changed += changedCount

	raw, _ := json.Marshal(stats)
	if err := t.store.Set(ctx, key, raw, 48*time.Hour); err != nil {
		return fmt.Errorf("%w: %w", ErrStateStore, err)
	}
	return nil
}

// DailyStats returns the counters of the day containing at. A value that
// cannot be decoded fails with ErrStateStore.
func (t *Tracker) DailyStats(ctx context.Context, at time.Time) (DailyStats, error) {
	var stats DailyStats
	key := t.statsKey(at)
	raw, found, err := t.store.Get(ctx, key)
	if err != nil {
		return stats, fmt.Errorf("%w: %w", ErrStateStore, err)
	}
	if !found {
		return stats, nil
	}
	if err := json.Unmarshal(raw, &stats); err != nil {
		return DailyStats{}, fmt.Errorf("%w: %w: %s: %w", ErrStateStore, errCorruptStats, key, err)
	}
	return stats, nil
}

func (t *Tracker) statsKey(at time.Time) string {
	return t.prefix + ":stats:" + at.UTC().Format(time.DateOnly)
}

func (t *Tracker) set(ctx context.Context, id, field string, value []byte) error {
	if err := t.store.Set(ctx, t.key(id, field), value, t.ttl); err != nil {
		return fmt.Errorf("%w: %w", ErrStateStore, err)
	}
	return nil
}

func (t *Tracker) setTime(ctx context.Context, id, field string, at time.Time) error {
	return t.set(ctx, id, field, []byte(at.UTC().Format(time.RFC3339)))
}

func parseTime(raw []byte) time.Time {
	ts, err := time.Parse(time.RFC3339, string(raw))
	if err != nil {
		return time.Time{}
	}
	return ts
}
