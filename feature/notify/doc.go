// Package notify delivers reconciliation events.
//
// Channels are selected with notify.channels:
//
//   - log: structured zap entries
//   - telegram: HTML messages through the Bot API
//   - nats: CloudEvents published to a JetStream stream
//
// A Dispatcher tries every channel for every event and joins the failures.
package notify
