package reconcile

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// trackedFields returns the attributes covered by the fingerprint.
// GroupLabel is deliberately absent.
func (a Attributes) trackedFields() map[string]string {
	return map[string]string{
		"name":     a.DisplayName,
		"status":   a.Status,
		"ip":       a.NetworkAddress,
		"os":       a.OSVersion,
		"serial_a": a.SerialA,
		"serial_b": a.SerialB,
		"hardware": a.HardwareDescription,
	}
}

// Fingerprint returns the SHA-256 hex digest of the tracked attributes.
func Fingerprint(a Attributes) string {
	return FingerprintFields(a.trackedFields())
}

// FingerprintFields hashes an arbitrary field map. encoding/json writes map
// keys in sorted order, so insertion order never affects the digest.
func FingerprintFields(fields map[string]string) string {
	// Marshalling a map[string]string cannot fail.
	payload, _ := json.Marshal(fields)
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
