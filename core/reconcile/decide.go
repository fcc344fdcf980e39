package reconcile

import (
	"sort"
	"time"
)

// Action is the registry/state work a Decision asks the engine to perform.
type Action string

const (
	// ActionCreate creates the record, then persists ref, fingerprint and snapshot.
	ActionCreate Action = "create"
	// ActionUpdate pushes the changed fields, then persists fingerprint and snapshot.
	ActionUpdate Action = "update"
	// ActionRefresh persists the drifted fingerprint and snapshot and touches the record.
	ActionRefresh Action = "refresh"
	// ActionTouch re-persists the unchanged state, extending its lifetime, and
	// touches the record.
	ActionTouch Action = "touch"
)

// Decision is the outcome of comparing one observed entity with its prior state.
type Decision struct {
	Outcome Outcome
	Action  Action
	Changes Changes
	// Returned is true when the entity was marked missing before this observation.
	Returned bool
	// Downtime is how long a returned entity was absent.
	Downtime time.Duration
}

// Decide classifies an observed entity. prior.RegistryRef must already hold
// any reference adopted from the registry; an empty one means NEW.
func Decide(prior Prior, e Entity, fingerprint string, now time.Time) Decision {
	var d Decision
	if !prior.MissingSince.IsZero() {
		d.Returned = true
		d.Downtime = nonNegative(now.Sub(prior.MissingSince))
	}

	switch {
	case prior.RegistryRef == "":
		d.Outcome, d.Action = OutcomeNew, ActionCreate
	case prior.Fingerprint == fingerprint:
		d.Outcome, d.Action = OutcomeUnchanged, ActionTouch
	default:
		var old Attributes
		if prior.Snapshot != nil {
			old = *prior.Snapshot
		}
		if changes := Diff(old, e.Attributes); len(changes) > 0 {
			d.Outcome, d.Action, d.Changes = OutcomeUpdated, ActionUpdate, changes
		} else {
			d.Outcome, d.Action = OutcomeUnchanged, ActionRefresh
		}
	}
	return d
}

// MissingSet returns the known ids absent from observed, sorted.
func MissingSet(known []string, observed map[string]struct{}) []string {
	var missing []string
	for _, id := range known {
		if _, ok := observed[id]; !ok {
			missing = append(missing, id)
		}
	}
	sort.Strings(missing)
	return missing
}

// MissingDecision is the result of evaluating one missing entity.
type MissingDecision struct {
	// FirstDetected is true when missing_since must be set now.
	FirstDetected bool
	MissingSince  time.Time
	MissingFor    time.Duration
	Notify        bool
}

// EvaluateMissing applies the escalation policy to an entity absent from the
// current fetch. ok is false when the entity has no snapshot and is skipped.
func EvaluateMissing(prior Prior, now time.Time, policy EscalationPolicy) (d MissingDecision, ok bool) {
	if prior.Snapshot == nil {
		return MissingDecision{}, false
	}

	d.MissingSince = prior.MissingSince
	if d.MissingSince.IsZero() {
		d.FirstDetected = true
		d.MissingSince = now
	}
	d.MissingFor = nonNegative(now.Sub(d.MissingSince))

	notified := !prior.LastNotified.IsZero()
	var sinceNotify time.Duration
	if notified {
		sinceNotify = nonNegative(now.Sub(prior.LastNotified))
	}
	d.Notify = policy.ShouldNotify(d.MissingFor, sinceNotify, notified)
	return d, true
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
