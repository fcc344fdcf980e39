// Package kv provides the TTL key-value store that holds per-entity tracking
// state between reconciliation runs.
//
// Three backends implement Store:
//   - MemoryStore: process-local map, used by tests and throwaway runs.
//   - SQLStore: a kv_entries table reached through GORM (MySQL or SQLite).
//   - NatsStore: a NATS JetStream key-value bucket with a bucket-level TTL.
//
// Absence of a key always means "unknown"; callers never distinguish an
// expired entry from one that was never written.
//
// # Usage
//
//	store, err := kv.Open(ctx, cfg.State, db, clock.Real())
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	keys, err := store.Scan(ctx, "datastore:*:hash")
//
// ReadOnly wraps any Store so writes are discarded; dry runs use it.
package kv
