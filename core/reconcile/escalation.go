package reconcile

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// EscalationPolicy decides when a missing entity is (re-)notified.
type EscalationPolicy struct {
	// Thresholds are missing durations, ascending.
	Thresholds []time.Duration
	// Repeat is the heartbeat interval for long outages. Zero disables it.
	Repeat time.Duration
}

// DefaultEscalationPolicy notifies at 0h, 1h, 6h and 24h, then every 24h.
func DefaultEscalationPolicy() EscalationPolicy {
	return EscalationPolicy{
		Thresholds: []time.Duration{0, time.Hour, 6 * time.Hour, 24 * time.Hour},
		Repeat:     24 * time.Hour,
	}
}

// ShouldNotify reports whether to notify for an entity missing for missingFor
// whose last notification was sinceNotify ago. notified is false when no
// notification was sent since the entity went missing.
//
// A zero threshold would match every evaluation, so it is skipped here; the
// first notification already covers it.
func (p EscalationPolicy) ShouldNotify(missingFor, sinceNotify time.Duration, notified bool) bool {
	if !notified {
		return true
	}

	for _, threshold := range p.Thresholds {
		if threshold <= 0 {
			continue
		}
		if missingFor >= threshold && sinceNotify >= threshold {
			return true
		}
	}

	return p.Repeat > 0 && sinceNotify >= p.Repeat
}

// ParseThresholds parses a comma-separated duration list such as "0h,1h,6h,24h".
// The result is sorted ascending.
func ParseThresholds(s string) ([]time.Duration, error) {
	var out []time.Duration
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := time.ParseDuration(part)
		if err != nil {
			return nil, fmt.Errorf("invalid escalation threshold %q: %w", part, err)
		}
		if d < 0 {
			return nil, fmt.Errorf("invalid escalation threshold %q: negative", part)
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
