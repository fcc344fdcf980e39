package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

func TestDecide(t *testing.T) {
	attrs := sampleAttributes()
	fp := Fingerprint(attrs)
	e := Entity{ID: "1", Attributes: attrs}

	changed := attrs
	changed.OSVersion = "ONTAP 9.9"

	tests := []struct {
		name    string
		prior   Prior
		entity  Entity
		outcome Outcome
		action  Action
		fields  []string
	}{
		{
			name:    "no ref is new",
			prior:   Prior{ID: "1"},
			entity:  e,
			outcome: OutcomeNew,
			action:  ActionCreate,
		},
		{
			name:    "matching fingerprint is unchanged",
			prior:   Prior{ID: "1", RegistryRef: "7", Fingerprint: fp, Snapshot: &attrs},
			entity:  e,
			outcome: OutcomeUnchanged,
			action:  ActionTouch,
		},
		{
			name:    "changed field is updated",
			prior:   Prior{ID: "1", RegistryRef: "7", Fingerprint: fp, Snapshot: &attrs},
			entity:  Entity{ID: "1", Attributes: changed},
			outcome: OutcomeUpdated,
			action:  ActionUpdate,
			fields:  []string{"os"},
		},
		{
			name:    "fingerprint drift without field change refreshes",
			prior:   Prior{ID: "1", RegistryRef: "7", Fingerprint: "stale", Snapshot: &attrs},
			entity:  e,
			outcome: OutcomeUnchanged,
			action:  ActionRefresh,
		},
		{
			name:    "adopted ref without snapshot diffs against empty",
			prior:   Prior{ID: "1", RegistryRef: "7"},
			entity:  e,
			outcome: OutcomeUpdated,
			action:  ActionUpdate,
			fields:  []string{"hardware", "ip", "name", "os", "serial_a", "serial_b", "status"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.prior, tt.entity, Fingerprint(tt.entity.Attributes), t0)
			assert.Equal(t, tt.outcome, d.Outcome)
			assert.Equal(t, tt.action, d.Action)
			assert.False(t, d.Returned)
			if tt.fields != nil {
				assert.Equal(t, tt.fields, d.Changes.Fields())
			}
		})
	}
}

func TestDecide_Returned(t *testing.T) {
	attrs := sampleAttributes()
	prior := Prior{
		ID:           "1",
		RegistryRef:  "7",
		Fingerprint:  Fingerprint(attrs),
		Snapshot:     &attrs,
		MissingSince: t0.Add(-3 * time.Hour),
	}

	d := Decide(prior, Entity{ID: "1", Attributes: attrs}, Fingerprint(attrs), t0)
	assert.True(t, d.Returned)
	assert.Equal(t, 3*time.Hour, d.Downtime)
	assert.Equal(t, OutcomeUnchanged, d.Outcome)
}

func TestMissingSet(t *testing.T) {
	observed := map[string]struct{}{"A": {}, "C": {}}
	assert.Equal(t, []string{"B"}, MissingSet([]string{"A", "B", "C"}, observed))
	assert.Empty(t, MissingSet([]string{"A"}, observed))
}

func TestEvaluateMissing(t *testing.T) {
	attrs := sampleAttributes()
	policy := DefaultEscalationPolicy()

	t.Run("skips without snapshot", func(t *testing.T) {
		_, ok := EvaluateMissing(Prior{ID: "1"}, t0, policy)
		assert.False(t, ok)
	})

	t.Run("first detection", func(t *testing.T) {
		d, ok := EvaluateMissing(Prior{ID: "1", Snapshot: &attrs}, t0, policy)
		assert.True(t, ok)
		assert.True(t, d.FirstDetected)
		assert.Equal(t, t0, d.MissingSince)
		assert.Zero(t, d.MissingFor)
		assert.True(t, d.Notify)
	})

	t.Run("within first band", func(t *testing.T) {
		prior := Prior{ID: "1", Snapshot: &attrs, MissingSince: t0, LastNotified: t0}
		d, ok := EvaluateMissing(prior, t0.Add(30*time.Minute), policy)
		assert.True(t, ok)
		assert.False(t, d.FirstDetected)
		assert.False(t, d.Notify)
	})

	t.Run("one hour", func(t *testing.T) {
		prior := Prior{ID: "1", Snapshot: &attrs, MissingSince: t0, LastNotified: t0}
		d, _ := EvaluateMissing(prior, t0.Add(time.Hour), policy)
		assert.True(t, d.Notify)
		assert.Equal(t, time.Hour, d.MissingFor)
	})

	t.Run("repeat after long outage", func(t *testing.T) {
		prior := Prior{ID: "1", Snapshot: &attrs, MissingSince: t0, LastNotified: t0.Add(5 * time.Hour)}
		d, _ := EvaluateMissing(prior, t0.Add(30*time.Hour), policy)
		assert.True(t, d.Notify)
	})
}
