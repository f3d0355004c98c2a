package devicefactory

import (
	"github.com/sirupsen/logrus"
	"github.com/srg/blink/internal/device"
	"github.com/srg/blink/internal/device/go-ble"
)

// CentralFactory creates the platform device.Central used for scanning and dialing.
// This is a variable so that it can be overridden in tests.
var CentralFactory = func(logger *logrus.Logger) (device.Central, error) {
	return goble.NewCentral(logger)
}

// Supported reports whether the host has a BLE backend at all.
// This is a variable so that it can be overridden in tests.
var Supported = func() bool {
	return goble.Supported
}

// NewCentral creates a central through CentralFactory, substituting a default logger.
func NewCentral(logger *logrus.Logger) (device.Central, error) {
	if logger == nil {
		logger = logrus.New()
	}
	return CentralFactory(logger)
}
