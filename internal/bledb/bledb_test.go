package bledb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCanonicalUUID verifies that every accepted spelling lands on the dashed 128-bit form
func TestCanonicalUUID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "16-bit short form", input: "fff0", expected: "0000fff0-0000-1000-8000-00805f9b34fb"},
		{name: "16-bit upper case with 0x prefix", input: "0xFFF0", expected: "0000fff0-0000-1000-8000-00805f9b34fb"},
		{name: "32-bit form", input: "00001401", expected: "00001401-0000-1000-8000-00805f9b34fb"},
		{name: "full SIG UUID", input: "00001402-0000-1000-8000-00805F9B34FB", expected: "00001402-0000-1000-8000-00805f9b34fb"},
		{name: "full UUID without dashes", input: "6e400001b5a3f393e0a9e50e24dcca9e", expected: "6e400001-b5a3-f393-e0a9-e50e24dcca9e"},
		{name: "UUID with braces", input: "{6E400001-B5A3-F393-E0A9-E50E24DCCA9E}", expected: "6e400001-b5a3-f393-e0a9-e50e24dcca9e"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := CanonicalUUID(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

// TestCanonicalUUIDRejectsGarbage verifies that malformed identifiers are reported
func TestCanonicalUUIDRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "xyz", "12345", "6e400001-b5a3-f393-e0a9"} {
		_, err := CanonicalUUID(input)
		assert.Error(t, err, "input %q MUST be rejected", input)
	}
	assert.Panics(t, func() { MustCanonicalUUID("nope") })
}

// TestNormalizeUUID verifies the short display form
func TestNormalizeUUID(t *testing.T) {
	assert.Equal(t, "180d", NormalizeUUID("0000180d-0000-1000-8000-00805f9b34fb"))
	assert.Equal(t, "180d", NormalizeUUID("0x180D"))
	assert.Equal(t, "6e400001b5a3f393e0a9e50e24dcca9e", NormalizeUUID("6E400001-B5A3-F393-E0A9-E50E24DCCA9E"))
	assert.Equal(t, "notauuid", NormalizeUUID("NOT-A-UUID"))
	assert.Equal(t, []string{"2a19", "1401"}, NormalizeUUIDs([]string{"2A19", "00001401-0000-1000-8000-00805f9b34fb"}))
}

// TestLookup verifies known-name lookups accept both short and full UUIDs
func TestLookup(t *testing.T) {
	assert.Equal(t, "Battery Service", LookupService("0000180f-0000-1000-8000-00805f9b34fb"))
	assert.Equal(t, "Battery Level", LookupCharacteristic("2a19"))
	assert.Equal(t, "Motor", LookupCharacteristic("00001401-0000-1000-8000-00805f9b34fb"))
	assert.Equal(t, "", LookupCharacteristic("abcd"))
}
