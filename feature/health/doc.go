// Package health checks the services the reconciler depends on.
//
// Required checks:
//
//   - source: log in to Zabbix
//   - registry: query the NetBox status endpoint
//   - state: write, read and delete a probe key
//   - schema: the kv_entries table has every column (sql backend only)
//
// Optional checks (reported, never fatal):
//
//   - telegram: getMe on the bot
//   - storage: the archive bucket exists
//
// The same Service backs the `check` command and GET /health, which answers
// 503 when a required check fails. GET /health/:name runs a single check.
package health
