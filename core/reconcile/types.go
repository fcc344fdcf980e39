package reconcile

import (
	"context"
	"time"
)

// Attributes is the attribute set observed for an entity. Any field may be empty.
type Attributes struct {
	DisplayName         string `json:"name"`
	NetworkAddress      string `json:"ip"`
	OSVersion           string `json:"os"`
	SerialA             string `json:"serial_a"`
	SerialB             string `json:"serial_b"`
	HardwareDescription string `json:"hardware"`
	Status              string `json:"status"`
	GroupLabel          string `json:"group"`
}

// Entity is an asset record observed in the inventory source.
type Entity struct {
	// ID is stable and unique within the source.
	ID         string     `json:"id"`
	Attributes Attributes `json:"attributes"`
}

// Record is the normalized form of an entity handed to the registry on create.
type Record struct {
	ForeignID    string     `json:"foreign_id"`
	Attributes   Attributes `json:"attributes"`
	Manufacturer string     `json:"manufacturer"`
	Model        string     `json:"model"`
	Site         string     `json:"site"`
}

// FieldChange holds both sides of a changed field.
type FieldChange struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// Changes maps a compared field name to its change.
type Changes map[string]FieldChange

// Outcome classifies what happened to a single observed entity.
type Outcome string

const (
	OutcomeNew       Outcome = "NEW"
	OutcomeUpdated   Outcome = "UPDATED"
	OutcomeUnchanged Outcome = "UNCHANGED"
	OutcomeError     Outcome = "ERROR"
)

// Summary aggregates the counters of one run.
type Summary struct {
	Total     int `json:"total"`
	New       int `json:"new"`
	Changed   int `json:"changed"`
	Unchanged int `json:"unchanged"`
	Errors    int `json:"errors"`

	// Missing counts entities currently absent from the source.
	Missing int `json:"missing"`
	// Returned counts entities that reappeared in this run.
	Returned int `json:"returned"`
	// Notified counts missing-entity notifications emitted in this run.
	Notified int `json:"notified"`

	DryRun     bool      `json:"dry_run"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Source fetches the complete current entity set.
type Source interface {
	// FetchEntities fails with ErrSourceUnavailable on transport or auth failure.
	FetchEntities(ctx context.Context) ([]Entity, error)
}

// Registry is the system-of-record asset database.
type Registry interface {
	// FindByForeignID looks a record up by its back-reference to the source id.
	FindByForeignID(ctx context.Context, id string) (ref string, found bool, err error)
	// Create inserts a new record and returns its reference.
	Create(ctx context.Context, rec Record) (string, error)
	// Update pushes the changed fields of an existing record.
	Update(ctx context.Context, ref string, attrs Attributes, changes Changes) error
	// Touch refreshes the record's last-synced marker.
	Touch(ctx context.Context, ref string) error
}

// Notifier delivers lifecycle events. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// SiteResolver maps a group label to a registry location.
type SiteResolver interface {
	ResolveSite(groupLabel string) (site string, ok bool)
}
