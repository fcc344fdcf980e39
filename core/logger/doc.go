// Package logger provides a structured logging facility based on Zap.
//
// It offers a configured logger instance for both the long-running service
// and the one-shot CLI commands, and integrates with the Fiber web framework.
//
// # Context Awareness
//
// WithRayID extracts the RayID (request id) from a Fiber context and attaches it
// to the log entry, so all logs related to a specific request can be correlated.
//
// # Configuration
//
// The package supports configuration for:
//   - Level: debug, info, warn, error
//   - Format: json (production) or console (development)
//   - File: optional file that receives a copy of every entry
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info"})
//	log.Info("Reconciliation started")
//
//	// In a request handler:
//	l := logger.WithRayID(log, c)
//	l.Error("Handler failed", zap.Error(err))
package logger
