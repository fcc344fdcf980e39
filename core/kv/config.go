package kv

import "time"

const (
	BackendMemory = "memory"
	BackendSQL    = "sql"
	BackendNats   = "nats"
)

// Config holds configuration for the state store.
type Config struct {
	// Backend selects the implementation (memory, sql, nats).
	Backend string `mapstructure:"backend" default:"sql"`
	// Prefix is prepended to every tracked key.
	Prefix string `mapstructure:"prefix" default:"datastore"`
	// TTL is the lifetime of every written entry.
	TTL time.Duration `mapstructure:"ttl" default:"168h"`
	// Timeout bounds each store call.
	Timeout time.Duration `mapstructure:"timeout" default:"5s"`
	// NatsURL is the NATS server used by the nats backend.
	NatsURL string `mapstructure:"nats_url" default:"nats://localhost:4222"`
	// NatsBucket is the JetStream key-value bucket name.
	NatsBucket string `mapstructure:"nats_bucket" default:"inventory_sync"`
}

// IsValidBackend checks if the configured backend is known.
func (c Config) IsValidBackend() bool {
	switch c.Backend {
	case BackendMemory, BackendSQL, BackendNats:
		return true
	default:
		return false
	}
}
