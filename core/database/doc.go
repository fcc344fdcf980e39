// Package database handles database connections and schema inspection.
//
// It wraps GORM to open either MySQL (shared deployments) or SQLite (single
// host installs, tests) from the application's configuration. The connection
// backs the SQL implementation of the state store in core/kv.
//
// # Schema Inspection
//
// GetTableColumns and MissingColumns let the service checks verify that the
// state table carries the columns the store expects.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	missing, err := database.MissingColumns(db, "kv_entries", []string{"key", "value", "expires_at"})
package database
