// Package server holds the HTTP server configuration.
//
// The `start` command builds the Fiber application from Config: the listen
// port, the API key enforced by core/middleware, and the graceful shutdown
// budget.
package server
