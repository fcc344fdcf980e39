// Package monitor drives the reconciliation engine: one run at a time,
// on a fixed interval, with a daily report at a configured UTC hour.
//
// Runs are serialized inside the process. Running `reconcile` from cron
// against the same state store as a `start` server is not safe and has to be
// prevented by the deployment.
//
// # HTTP Endpoints
//
//   - GET /monitor/status : scheduler state and the last summary.
//   - GET /monitor/missing : entities currently missing.
//   - POST /monitor/run : run now; 409 while a run is active.
//   - POST /monitor/report : send the daily report now.
//
// Run summaries and daily reports are archived when an Archiver is set.
package monitor
