package goble

import (
	"github.com/go-ble/ble"
)

var propertyNames = []struct {
	value ble.Property
	name  string
}{
	{ble.CharBroadcast, "Broadcast"},
	{ble.CharRead, "Read"},
	{ble.CharWriteNR, "WriteWithoutResponse"},
	{ble.CharWrite, "Write"},
	{ble.CharNotify, "Notify"},
	{ble.CharIndicate, "Indicate"},
	{ble.CharSignedWrite, "AuthenticatedSignedWrites"},
	{ble.CharExtended, "ExtendedProperties"},
}

// PropertyNames returns the human-readable names of the bits set in p, in bit order.
func PropertyNames(p ble.Property) []string {
	names := make([]string, 0, len(propertyNames))
	for _, prop := range propertyNames {
		if p&prop.value != 0 {
			names = append(names, prop.name)
		}
	}
	return names
}

// writeWithoutResponse reports whether writes must skip the ATT response:
// only when the characteristic offers no acknowledged write at all.
func writeWithoutResponse(p ble.Property) bool {
	return p&ble.CharWrite == 0 && p&ble.CharWriteNR != 0
}

// useIndication reports whether subscriptions must use indications, which
// is the case only when notifications are not offered.
func useIndication(p ble.Property) bool {
	return p&ble.CharNotify == 0 && p&ble.CharIndicate != 0
}

// notifiable reports whether the characteristic can push values.
func notifiable(p ble.Property) bool {
	return p&(ble.CharNotify|ble.CharIndicate) != 0
}
