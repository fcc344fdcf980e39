package reconcile

import "errors"

var (
	// ErrSourceUnavailable aborts a run: the missing-set computation needs a complete fetch.
	ErrSourceUnavailable = errors.New("inventory source unavailable")
	// ErrRegistryLookup is an entity-scoped failure to resolve a registry reference.
	ErrRegistryLookup = errors.New("registry lookup failed")
	// ErrRegistryWrite is an entity-scoped failure to create, update or touch a record.
	ErrRegistryWrite = errors.New("registry write failed")
	// ErrMappingUnresolved means a required mapping (group label to site) has no entry.
	ErrMappingUnresolved = errors.New("mapping unresolved")
	// ErrNotificationDelivery is logged and never affects reconciliation state.
	ErrNotificationDelivery = errors.New("notification delivery failed")
	// ErrStateStore is an entity-scoped failure to read or write tracked state.
	ErrStateStore = errors.New("state store failure")
)
