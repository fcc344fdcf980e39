// Package reconcile implements the inventory reconciliation and
// missing-entity escalation engine.
//
// One Run fetches every entity from the Source, compares each against its
// tracked state, creates or updates the Registry record, and then evaluates
// the entities that were known before but are absent from this fetch.
//
// # Architecture
//
// The package is split between pure decision functions and the Engine that
// executes them:
//
//  1. Fingerprint / Diff: SHA-256 over the tracked attributes gates the
//     comparatively expensive field-level diff.
//
//  2. Decide: classifies an observed entity as NEW, UPDATED or UNCHANGED and
//     names the registry work to do.
//
//  3. EvaluateMissing / EscalationPolicy: decides when an entity that stays
//     missing is notified again (thresholds, then a repeat heartbeat).
//
//  4. Tracker: typed per-field state over a kv.Store, one key per field
//     (<prefix>:<id>:<field>) so every field expires on its own.
//
//  5. Engine: runs entities on a bounded errgroup pool, then the missing
//     set, and logs a Summary.
//
// # Failure model
//
// A fetch failure (ErrSourceUnavailable) aborts the run and emits an ERROR
// event. Registry, mapping and state-store failures are scoped to the entity:
// they are counted in Summary.Errors and leave the stored fingerprint as it
// was, so the next run retries. Notification failures are only logged.
//
// # Concurrency
//
// Each entity touches only its own keys, so entities are processed in
// parallel. Two runs against the same store must not overlap; callers
// serialise runs (see feature/monitor).
//
// # Usage Example
//
//	engine := reconcile.NewEngine(reconcile.Deps{
//	    Source:   zabbixClient,
//	    Registry: netboxRegistry,
//	    Notifier: notifier,
//	    Store:    store,
//	    Sites:    reconcile.DefaultSiteMap(),
//	    Logger:   logger,
//	}, reconcile.Options{Workers: 4})
//
//	summary, err := engine.Run(ctx)
package reconcile
