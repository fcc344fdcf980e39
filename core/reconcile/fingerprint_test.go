package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleAttributes() Attributes {
	return Attributes{
		DisplayName:         "stor-01",
		NetworkAddress:      "10.0.0.1",
		OSVersion:           "ONTAP 9.8",
		SerialA:             "SN-A",
		SerialB:             "SN-B",
		HardwareDescription: "NetApp FAS8200",
		Status:              "0",
		GroupLabel:          "DataStore/DataCenter/Almaty",
	}
}

func TestFingerprint_Deterministic(t *testing.T) {
	a := sampleAttributes()
	assert.Equal(t, Fingerprint(a), Fingerprint(a))
	assert.Len(t, Fingerprint(a), 64)
}

func TestFingerprintFields_OrderIndependent(t *testing.T) {
	first := map[string]string{}
	first["name"] = "x"
	first["ip"] = "1.2.3.4"
	first["os"] = "y"

	second := map[string]string{}
	second["os"] = "y"
	second["ip"] = "1.2.3.4"
	second["name"] = "x"

	assert.Equal(t, FingerprintFields(first), FingerprintFields(second))
}

func TestFingerprint_SensitiveToTrackedFields(t *testing.T) {
	base := sampleAttributes()
	baseFP := Fingerprint(base)

	mutations := map[string]func(a *Attributes){
		"name":     func(a *Attributes) { a.DisplayName = "stor-02" },
		"ip":       func(a *Attributes) { a.NetworkAddress = "10.0.0.2" },
		"os":       func(a *Attributes) { a.OSVersion = "ONTAP 9.9" },
		"serial_a": func(a *Attributes) { a.SerialA = "other" },
		"serial_b": func(a *Attributes) { a.SerialB = "other" },
		"hardware": func(a *Attributes) { a.HardwareDescription = "NetApp AFF" },
		"status":   func(a *Attributes) { a.Status = "1" },
	}

	for field, mutate := range mutations {
		t.Run(field, func(t *testing.T) {
			a := base
			mutate(&a)
			assert.NotEqual(t, baseFP, Fingerprint(a))
		})
	}
}

func TestFingerprint_IgnoresGroupLabel(t *testing.T) {
	a := sampleAttributes()
	b := a
	b.GroupLabel = "DataStore/DataCenter/Atyrau"
	assert.Equal(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprint_FieldBoundaries(t *testing.T) {
	// Moving text between fields must not collide.
	a := Attributes{SerialA: "ab", SerialB: "c"}
	b := Attributes{SerialA: "a", SerialB: "bc"}
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}
