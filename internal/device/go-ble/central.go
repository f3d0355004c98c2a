package goble

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/blink/internal/device"
)

// bleCentral wraps ble.Device to implement device.Central
type bleCentral struct {
	dev    ble.Device
	logger *logrus.Logger
}

// NewCentral creates a device.Central backed by the platform's go-ble device.
// A missing or disabled radio surfaces as device.ErrCapabilityUnavailable.
func NewCentral(logger *logrus.Logger) (device.Central, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if !Supported {
		return nil, fmt.Errorf("%w: this platform has no go-ble backend", device.ErrCapabilityUnavailable)
	}

	dev, err := DeviceFactory()
	if err != nil {
		normalized := NormalizeError(err)
		if !errors.Is(normalized, device.ErrCapabilityUnavailable) {
			normalized = fmt.Errorf("%w: %v", device.ErrCapabilityUnavailable, err)
		}
		logger.WithField("error", err).Error("Failed to create BLE device")
		return nil, normalized
	}
	return &bleCentral{dev: dev, logger: logger}, nil
}

// Scan wraps the raw ble.Device.Scan to convert ble.Advertisement to device.Advertisement
func (c *bleCentral) Scan(ctx context.Context, allowDup bool, handler func(device.Advertisement)) error {
	// Adapter: convert a handler expecting a device.Advertisement to the one expecting ble.Advertisement
	bleHandler := func(adv ble.Advertisement) {
		handler(NewBLEAdvertisement(adv))
	}
	return NormalizeError(c.dev.Scan(ctx, allowDup, bleHandler))
}

// Dial connects to the peripheral with the given address
func (c *bleCentral) Dial(ctx context.Context, address string) (device.Client, error) {
	if strings.TrimSpace(address) == "" {
		return nil, fmt.Errorf("device address is empty")
	}

	c.logger.WithField("address", address).Debug("Dialing BLE device...")
	client, err := c.dev.Dial(ctx, ble.NewAddr(address))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to device with address %q: %w", address, NormalizeError(err))
	}
	return newBLEClient(client, c.logger), nil
}
