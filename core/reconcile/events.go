package reconcile

import "time"

// EventKind names a lifecycle event.
type EventKind string

const (
	EventNew          EventKind = "NEW"
	EventChanged      EventKind = "CHANGED"
	EventMissing      EventKind = "MISSING"
	EventReturned     EventKind = "RETURNED"
	EventDailySummary EventKind = "DAILY_SUMMARY"
	EventError        EventKind = "ERROR"
)

// Event is the payload handed to a Notifier. Fields not relevant to Kind are zero.
type Event struct {
	Kind       EventKind  `json:"kind"`
	EntityID   string     `json:"entity_id,omitempty"`
	Attributes Attributes `json:"attributes"`
	// Location is the resolved registry site (NEW, MISSING).
	Location string `json:"location,omitempty"`
	// Changes is set for CHANGED.
	Changes Changes `json:"changes,omitempty"`
	// Downtime is how long the entity has been (MISSING) or was (RETURNED) absent.
	Downtime time.Duration `json:"downtime,omitempty"`
	// LastSeen is the last observation of a MISSING entity, zero when unknown.
	LastSeen time.Time `json:"last_seen,omitempty"`
	// Report is set for DAILY_SUMMARY.
	Report *DailyReport `json:"report,omitempty"`
	// Message is set for ERROR.
	Message string    `json:"message,omitempty"`
	At      time.Time `json:"at"`
}
