package main

import (
	"errors"
	"fmt"

	"github.com/srg/blink/internal/device"
	"github.com/srg/blink/internal/protocol"
)

// Command-level errors
var (
	// ErrConnectionLost indicates the BLE connection was unexpectedly lost during operation.
	// This is distinct from device.ErrNotConnected, which is returned for operations
	// submitted after the loss.
	ErrConnectionLost = errors.New("connection lost")

	ErrDeviceNotFound = errors.New("device not found")
	ErrNoProtocol     = errors.New("no protocol in the catalog accepts this device")
	ErrEmptyCatalog   = errors.New("protocol catalog is empty")
)

// FormatUserError turns engine errors into one line a user can act on.
// Unknown errors are returned as is.
func FormatUserError(err error) string {
	var (
		loadErr  *protocol.LoadError
		commErr  *device.CommunicationError
		notFound *device.NotFoundError
		connErr  *device.ConnectionError
	)

	switch {
	case errors.Is(err, device.ErrBluetoothOff):
		return "Bluetooth is turned off; enable it and retry"
	case errors.Is(err, device.ErrCapabilityUnavailable):
		return fmt.Sprintf("Bluetooth is not available on this host (%v)", err)
	case errors.As(err, &loadErr):
		return fmt.Sprintf("cannot load protocol catalog: %v", loadErr)
	case errors.As(err, &connErr) && connErr.State == device.ConnectionFailed && connErr.Err != nil:
		return fmt.Sprintf("could not connect to the device: %v", connErr.Err)
	case errors.Is(err, ErrConnectionLost), device.IsConnectionState(err, device.NotConnected):
		return "the device disconnected"
	case errors.Is(err, device.ErrUnknownEndpoint) && errors.As(err, &notFound) && len(notFound.UUIDs) > 0:
		return fmt.Sprintf("endpoint %s is not available on this device", notFound.UUIDs[0])
	case errors.As(err, &commErr) && errors.Is(err, device.ErrTimeout):
		return fmt.Sprintf("device did not answer %s on %s in time", commErr.Op, commErr.Endpoint)
	}
	return err.Error()
}
