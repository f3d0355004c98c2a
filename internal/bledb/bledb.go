// Package bledb canonicalises Bluetooth UUIDs and names the handful of
// assigned numbers the engine logs about.
package bledb

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// sigBaseSuffix is the tail of the Bluetooth SIG base UUID
// (0000xxxx-0000-1000-8000-00805f9b34fb).
const sigBaseSuffix = "-0000-1000-8000-00805f9b34fb"

// CanonicalUUID converts any accepted UUID spelling into the lower-case,
// dashed 128-bit form used as map key across the engine.
// Accepted inputs: 16-bit ("fff0", "0xFFF0"), 32-bit ("0000fff0"),
// 128-bit with or without dashes, optionally wrapped in braces.
func CanonicalUUID(s string) (string, error) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "0x"), "0X")
	raw = strings.TrimSuffix(strings.TrimPrefix(raw, "{"), "}")

	switch len(raw) {
	case 4:
		raw = "0000" + raw + sigBaseSuffix
	case 8:
		raw += sigBaseSuffix
	}

	u, err := uuid.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid UUID %q: %w", s, err)
	}
	return u.String(), nil
}

// MustCanonicalUUID is CanonicalUUID for package-level tables; it panics on bad input.
func MustCanonicalUUID(s string) string {
	c, err := CanonicalUUID(s)
	if err != nil {
		panic(err)
	}
	return c
}

// NormalizeUUID returns the short display form: lower-case without dashes,
// and the 16-bit form for UUIDs built on the SIG base.
// Inputs that do not parse are returned lower-cased with dashes removed.
func NormalizeUUID(s string) string {
	c, err := CanonicalUUID(s)
	if err != nil {
		return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "")
	}
	if strings.HasPrefix(c, "0000") && strings.HasSuffix(c, sigBaseSuffix) {
		return c[4:8]
	}
	return strings.ReplaceAll(c, "-", "")
}

// NormalizeUUIDs normalizes a slice of UUID strings.
func NormalizeUUIDs(uuids []string) []string {
	result := make([]string, len(uuids))
	for i, u := range uuids {
		result[i] = NormalizeUUID(u)
	}
	return result
}

var knownServices = map[string]string{
	"1800": "Generic Access",
	"1801": "Generic Attribute",
	"180a": "Device Information",
	"180f": "Battery Service",
	"6e400001b5a3f393e0a9e50e24dcca9e": "Nordic UART Service",
}

var knownCharacteristics = map[string]string{
	"2a00": "Device Name",
	"2a19": "Battery Level",
	"2a24": "Model Number String",
	"2a29": "Manufacturer Name String",
	"1401": "Motor",
	"1402": "Solenoid",
	"6e400002b5a3f393e0a9e50e24dcca9e": "Nordic UART RX",
	"6e400003b5a3f393e0a9e50e24dcca9e": "Nordic UART TX",
}

// LookupService returns the known name of a service UUID or "".
func LookupService(u string) string {
	return knownServices[NormalizeUUID(u)]
}

// LookupCharacteristic returns the known name of a characteristic UUID or "".
func LookupCharacteristic(u string) string {
	return knownCharacteristics[NormalizeUUID(u)]
}
