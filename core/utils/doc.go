// Package utils provides small helpers shared by the adapters: loose type
// conversion for JSON-RPC payloads (where numbers often arrive as strings)
// and string normalisation for registry names and slugs.
package utils
