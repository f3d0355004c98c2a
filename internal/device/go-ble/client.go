package goble

import (
	"fmt"
	"sync"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/blink/internal/bledb"
	"github.com/srg/blink/internal/device"
)

// BLEService is a resolved GATT service
type BLEService struct {
	uuid      string
	knownName string
	svc       *ble.Service
}

func newBLEService(uuid string, svc *ble.Service) *BLEService {
	return &BLEService{uuid: uuid, knownName: bledb.LookupService(uuid), svc: svc}
}

func (s *BLEService) UUID() string      { return s.uuid }
func (s *BLEService) KnownName() string { return s.knownName }

// BLECharacteristic is a resolved GATT characteristic
type BLECharacteristic struct {
	uuid      string
	knownName string
	BLEChar   *ble.Characteristic
}

func newBLECharacteristic(uuid string, ch *ble.Characteristic) *BLECharacteristic {
	return &BLECharacteristic{uuid: uuid, knownName: bledb.LookupCharacteristic(uuid), BLEChar: ch}
}

func (c *BLECharacteristic) UUID() string      { return c.uuid }
func (c *BLECharacteristic) KnownName() string { return c.knownName }

// bleClient implements device.Client on a ble.Client
type bleClient struct {
	client ble.Client
	logger *logrus.Logger

	mu       sync.Mutex
	services []*ble.Service // discovered lazily, once
}

func newBLEClient(client ble.Client, logger *logrus.Logger) *bleClient {
	return &bleClient{client: client, logger: logger}
}

// DiscoverService resolves a single primary service by UUID.
// Returns a NotFoundError if the peripheral does not expose it.
//
// The full service list is discovered once and matched on canonical UUIDs:
// backends report SIG services in their 16-bit form, which a 128-bit
// discovery filter would not match.
func (c *bleClient) DiscoverService(uuid string) (device.ServiceHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.services == nil {
		services, err := c.client.DiscoverServices(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to discover services: %w", NormalizeError(err))
		}
		c.services = services
		c.logger.WithField("services", len(services)).Debug("Services discovered")
	}

	for _, svc := range c.services {
		if canonicalFromBLE(svc.UUID) == uuid {
			found := newBLEService(uuid, svc)
			c.logger.WithFields(logrus.Fields{
				"service_uuid": uuid,
				"known_name":   found.KnownName(),
			}).Debug("Found service")
			return found, nil
		}
	}
	return nil, &device.NotFoundError{Resource: "service", UUIDs: []string{uuid}}
}

// DiscoverCharacteristic resolves one characteristic of a resolved service.
// Descriptors are discovered for notifiable characteristics so the CCCD is
// known when subscribing.
func (c *bleClient) DiscoverCharacteristic(svc device.ServiceHandle, uuid string) (device.CharacteristicHandle, error) {
	bleSvc, ok := svc.(*BLEService)
	if !ok {
		return nil, fmt.Errorf("service handle %s does not belong to this connection", svc.UUID())
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if bleSvc.svc.Characteristics == nil {
		if _, err := c.client.DiscoverCharacteristics(nil, bleSvc.svc); err != nil {
			return nil, fmt.Errorf("failed to discover characteristics of %s: %w", bleSvc.uuid, NormalizeError(err))
		}
	}

	for _, ch := range bleSvc.svc.Characteristics {
		if canonicalFromBLE(ch.UUID) != uuid {
			continue
		}
		if notifiable(ch.Property) && ch.CCCD == nil {
			if _, err := c.client.DiscoverDescriptors(nil, ch); err != nil {
				c.logger.WithFields(logrus.Fields{
					"service_uuid": bleSvc.uuid,
					"char_uuid":    uuid,
					"error":        err,
				}).Warn("Failed to discover descriptors; notifications may be unavailable")
			}
		}
		found := newBLECharacteristic(uuid, ch)
		c.logger.WithFields(logrus.Fields{
			"service_uuid": bleSvc.uuid,
			"char_uuid":    uuid,
			"known_name":   found.KnownName(),
			"properties":   PropertyNames(ch.Property),
		}).Debug("Found characteristic")
		return found, nil
	}
	return nil, &device.NotFoundError{Resource: "characteristic", UUIDs: []string{bleSvc.uuid, uuid}}
}

func (c *bleClient) ReadCharacteristic(ch device.CharacteristicHandle) ([]byte, error) {
	bleChar, err := c.unwrap(ch)
	if err != nil {
		return nil, err
	}
	data, err := c.client.ReadCharacteristic(bleChar)
	if err != nil {
		return nil, NormalizeError(err)
	}
	return data, nil
}

func (c *bleClient) WriteCharacteristic(ch device.CharacteristicHandle, data []byte) error {
	bleChar, err := c.unwrap(ch)
	if err != nil {
		return err
	}
	return NormalizeError(c.client.WriteCharacteristic(bleChar, data, writeWithoutResponse(bleChar.Property)))
}

func (c *bleClient) Subscribe(ch device.CharacteristicHandle, handler func([]byte)) error {
	bleChar, err := c.unwrap(ch)
	if err != nil {
		return err
	}
	if !notifiable(bleChar.Property) {
		return fmt.Errorf("characteristic %s does not support notifications: %w", ch.UUID(), device.ErrUnsupported)
	}
	return NormalizeError(c.client.Subscribe(bleChar, useIndication(bleChar.Property), func(data []byte) {
		handler(data)
	}))
}

func (c *bleClient) Unsubscribe(ch device.CharacteristicHandle) error {
	bleChar, err := c.unwrap(ch)
	if err != nil {
		return err
	}
	return NormalizeError(c.client.Unsubscribe(bleChar, useIndication(bleChar.Property)))
}

// Disconnected returns the go-ble disconnect channel when the backend has one
func (c *bleClient) Disconnected() <-chan struct{} {
	if dc, ok := c.client.(interface{ Disconnected() <-chan struct{} }); ok {
		return dc.Disconnected()
	}
	c.logger.Debug("Client does not support Disconnected() channel")
	return nil
}

func (c *bleClient) CancelConnection() error {
	return NormalizeError(c.client.CancelConnection())
}

func (c *bleClient) unwrap(ch device.CharacteristicHandle) (*ble.Characteristic, error) {
	bleChar, ok := ch.(*BLECharacteristic)
	if !ok || bleChar.BLEChar == nil {
		return nil, fmt.Errorf("characteristic %s not initialized", ch.UUID())
	}
	return bleChar.BLEChar, nil
}
