package device

import (
	"context"
)

// Advertisement is the scan-time view of a peripheral
type Advertisement interface {
	LocalName() string
	ManufacturerData() []byte
	Services() []string
	Connectable() bool
	RSSI() int
	Addr() string
}

// Central scans for advertisements and dials peripherals.
// Scan blocks until ctx is done or the platform fails.
type Central interface {
	Scan(ctx context.Context, allowDup bool, handler func(Advertisement)) error
	Dial(ctx context.Context, address string) (Client, error)
}

// ServiceHandle is an opaque reference to a resolved GATT service
type ServiceHandle interface {
	UUID() string
}

// CharacteristicHandle is an opaque reference to a resolved GATT characteristic
type CharacteristicHandle interface {
	UUID() string
}

// Client is a live GATT connection.
//
// Handles returned by a Client are only valid with that Client. Subscribe
// registers handler for value-changed notifications and enables them on the
// peripheral; the handler stops firing once Unsubscribe succeeds.
type Client interface {
	DiscoverService(uuid string) (ServiceHandle, error)
	DiscoverCharacteristic(svc ServiceHandle, uuid string) (CharacteristicHandle, error)

	ReadCharacteristic(c CharacteristicHandle) ([]byte, error)
	WriteCharacteristic(c CharacteristicHandle, data []byte) error
	Subscribe(c CharacteristicHandle, handler func([]byte)) error
	Unsubscribe(c CharacteristicHandle) error

	// Disconnected is closed when the link drops. It may be nil when the
	// backend cannot report disconnection.
	Disconnected() <-chan struct{}
	CancelConnection() error
}
