//go:build test

package testutils

import (
	"context"

	"github.com/srg/blink/internal/bledb"
	"github.com/srg/blink/internal/device"
	"github.com/stretchr/testify/mock"
)

// CharacteristicConfig describes one mocked characteristic and how it fails
type CharacteristicConfig struct {
	UUID           string
	Value          []byte
	ReadErr        error
	WriteErr       error
	SubscribeErr   error
	UnsubscribeErr error
	// WriteGate, when set, holds every write until it is closed
	WriteGate <-chan struct{}
}

// ServiceConfig describes one mocked service
type ServiceConfig struct {
	UUID            string
	Characteristics []*CharacteristicConfig
}

// PeripheralBuilder builds a MockCentral whose Dial returns a MockClient
// exposing the configured services and characteristics. Anything not
// configured is reported as not found.
//
//	central := testutils.NewPeripheralBuilder().
//	    WithAddress("AA:BB:CC:DD:EE:FF").
//	    WithService("fff0").
//	    WithCharacteristic("fff1", []byte{0x01}).
//	    WithCharacteristic("fff2", nil).WithWriteError(errors.New("gatt: write rejected")).
//	    Build()
type PeripheralBuilder struct {
	address        string
	services       []*ServiceConfig
	dialErr        error
	advertisements []device.Advertisement
}

// NewPeripheralBuilder creates a builder for a peripheral at AA:BB:CC:DD:EE:FF
func NewPeripheralBuilder() *PeripheralBuilder {
	return &PeripheralBuilder{address: "AA:BB:CC:DD:EE:FF"}
}

// Address returns the configured peripheral address
func (b *PeripheralBuilder) Address() string {
	return b.address
}

// WithAddress sets the address Dial accepts
func (b *PeripheralBuilder) WithAddress(address string) *PeripheralBuilder {
	b.address = address
	return b
}

// WithDialError makes Dial fail with err
func (b *PeripheralBuilder) WithDialError(err error) *PeripheralBuilder {
	b.dialErr = err
	return b
}

// WithAdvertisements sets what Scan reports, in order
func (b *PeripheralBuilder) WithAdvertisements(ads ...device.Advertisement) *PeripheralBuilder {
	b.advertisements = append(b.advertisements, ads...)
	return b
}

// WithService adds a service to the device profile
func (b *PeripheralBuilder) WithService(uuid string) *PeripheralBuilder {
	b.services = append(b.services, &ServiceConfig{UUID: bledb.MustCanonicalUUID(uuid)})
	return b
}

// WithCharacteristic adds a characteristic to the last added service
func (b *PeripheralBuilder) WithCharacteristic(uuid string, value []byte) *PeripheralBuilder {
	if len(b.services) == 0 {
		panic("WithCharacteristic: no service added yet, call WithService first")
	}
	svc := b.services[len(b.services)-1]
	svc.Characteristics = append(svc.Characteristics, &CharacteristicConfig{
		UUID:  bledb.MustCanonicalUUID(uuid),
		Value: value,
	})
	return b
}

// WithReadError makes reads of the last added characteristic fail
func (b *PeripheralBuilder) WithReadError(err error) *PeripheralBuilder {
	b.lastCharacteristic("WithReadError").ReadErr = err
	return b
}

// WithWriteError makes writes to the last added characteristic fail
func (b *PeripheralBuilder) WithWriteError(err error) *PeripheralBuilder {
	b.lastCharacteristic("WithWriteError").WriteErr = err
	return b
}

// WithSubscribeError makes subscribing to the last added characteristic fail
func (b *PeripheralBuilder) WithSubscribeError(err error) *PeripheralBuilder {
	b.lastCharacteristic("WithSubscribeError").SubscribeErr = err
	return b
}

// WithUnsubscribeError makes unsubscribing from the last added characteristic fail
func (b *PeripheralBuilder) WithUnsubscribeError(err error) *PeripheralBuilder {
	b.lastCharacteristic("WithUnsubscribeError").UnsubscribeErr = err
	return b
}

// WithWriteGate holds writes to the last added characteristic until gate is closed
func (b *PeripheralBuilder) WithWriteGate(gate <-chan struct{}) *PeripheralBuilder {
	b.lastCharacteristic("WithWriteGate").WriteGate = gate
	return b
}

func (b *PeripheralBuilder) lastCharacteristic(caller string) *CharacteristicConfig {
	if len(b.services) == 0 {
		panic(caller + ": no service added yet, call WithService first")
	}
	svc := b.services[len(b.services)-1]
	if len(svc.Characteristics) == 0 {
		panic(caller + ": no characteristic added yet, call WithCharacteristic first")
	}
	return svc.Characteristics[len(svc.Characteristics)-1]
}

// BuildClient creates the MockClient for the configured profile
func (b *PeripheralBuilder) BuildClient() *MockClient {
	client := NewMockClient()

	for _, svc := range b.services {
		client.On("DiscoverService", svc.UUID).Return(&Handle{ID: svc.UUID}, nil)

		for _, ch := range svc.Characteristics {
			client.On("DiscoverCharacteristic", svc.UUID, ch.UUID).Return(&Handle{ID: ch.UUID}, nil)

			if ch.ReadErr != nil {
				client.On("ReadCharacteristic", ch.UUID).Return([]byte(nil), ch.ReadErr)
			} else {
				client.On("ReadCharacteristic", ch.UUID).Return(ch.Value, nil)
			}

			write := client.On("WriteCharacteristic", ch.UUID, mock.Anything).Return(ch.WriteErr)
			if gate := ch.WriteGate; gate != nil {
				write.Run(func(mock.Arguments) { <-gate })
			}

			client.On("Subscribe", ch.UUID).Return(ch.SubscribeErr)
			client.On("Unsubscribe", ch.UUID).Return(ch.UnsubscribeErr)
		}
	}

	client.On("DiscoverService", mock.Anything).
		Return(nil, &device.NotFoundError{Resource: "service"})
	client.On("DiscoverCharacteristic", mock.Anything, mock.Anything).
		Return(nil, &device.NotFoundError{Resource: "characteristic"})
	client.On("CancelConnection").Return(nil)

	return client
}

// Build creates the MockCentral; its Client field holds the connection Dial returns
func (b *PeripheralBuilder) Build() *MockCentral {
	central := &MockCentral{}

	if b.dialErr != nil {
		central.On("Dial", mock.Anything, b.address).Return(nil, b.dialErr)
	} else {
		central.Client = b.BuildClient()
		central.On("Dial", mock.Anything, b.address).Return(central.Client, nil)
	}

	ads := b.advertisements
	central.On("Scan", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			handler := args.Get(2).(func(device.Advertisement))
			for _, adv := range ads {
				if ctx.Err() != nil {
					return
				}
				handler(adv)
			}
			<-ctx.Done()
		}).
		Return(nil)

	return central
}
