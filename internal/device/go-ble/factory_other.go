//go:build !darwin && !linux

package goble

import (
	"fmt"
	"runtime"

	"github.com/go-ble/ble"
	"github.com/srg/blink/internal/device"
)

// Supported reports whether this build has a go-ble backend.
const Supported = false

// DeviceFactory creates ble.Device instances (can be overridden in tests)
//
//nolint:revive // DeviceFactory name is intentional for test mocking
var DeviceFactory = func() (ble.Device, error) {
	return nil, fmt.Errorf("%w: no go-ble backend for %s", device.ErrCapabilityUnavailable, runtime.GOOS)
}
