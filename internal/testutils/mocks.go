//go:build test

package testutils

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/srg/blink/internal/bledb"
	"github.com/srg/blink/internal/device"
	"github.com/stretchr/testify/mock"
)

// Handle is the service and characteristic handle handed out by MockClient
type Handle struct {
	ID string
}

func (h *Handle) UUID() string { return h.ID }

// MockCentral is a testify mock of device.Central.
// Client is the connection Dial returns when configured by PeripheralBuilder.
type MockCentral struct {
	mock.Mock
	Client *MockClient
}

func (m *MockCentral) Scan(ctx context.Context, allowDup bool, handler func(device.Advertisement)) error {
	args := m.Called(ctx, allowDup, handler)
	return args.Error(0)
}

func (m *MockCentral) Dial(ctx context.Context, address string) (device.Client, error) {
	args := m.Called(ctx, address)
	client, _ := args.Get(0).(device.Client)
	return client, args.Error(1)
}

// MockClient is a testify mock of device.Client.
// Expectations are matched on canonical UUID strings rather than handles.
// Subscribe records the handler on success so Notify can drive it, and
// the disconnect channel is driven by SimulateDisconnect.
type MockClient struct {
	mock.Mock

	mu             sync.Mutex
	handlers       map[string]func([]byte)
	disconnected   chan struct{}
	disconnectOnce sync.Once
	writes         atomic.Int32
}

// NewMockClient creates a MockClient with no expectations
func NewMockClient() *MockClient {
	return &MockClient{
		handlers:     make(map[string]func([]byte)),
		disconnected: make(chan struct{}),
	}
}

func (m *MockClient) DiscoverService(uuid string) (device.ServiceHandle, error) {
	args := m.Called(uuid)
	h, _ := args.Get(0).(device.ServiceHandle)
	return h, args.Error(1)
}

func (m *MockClient) DiscoverCharacteristic(svc device.ServiceHandle, uuid string) (device.CharacteristicHandle, error) {
	args := m.Called(svc.UUID(), uuid)
	h, _ := args.Get(0).(device.CharacteristicHandle)
	return h, args.Error(1)
}

func (m *MockClient) ReadCharacteristic(c device.CharacteristicHandle) ([]byte, error) {
	args := m.Called(c.UUID())
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockClient) WriteCharacteristic(c device.CharacteristicHandle, data []byte) error {
	m.writes.Add(1)
	args := m.Called(c.UUID(), data)
	return args.Error(0)
}

func (m *MockClient) Subscribe(c device.CharacteristicHandle, handler func([]byte)) error {
	args := m.Called(c.UUID())
	if err := args.Error(0); err != nil {
		return err
	}
	m.mu.Lock()
	m.handlers[c.UUID()] = handler
	m.mu.Unlock()
	return nil
}

func (m *MockClient) Unsubscribe(c device.CharacteristicHandle) error {
	args := m.Called(c.UUID())
	if err := args.Error(0); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.handlers, c.UUID())
	m.mu.Unlock()
	return nil
}

func (m *MockClient) Disconnected() <-chan struct{} {
	return m.disconnected
}

func (m *MockClient) CancelConnection() error {
	args := m.Called()
	return args.Error(0)
}

// Notify delivers data to the handler subscribed on charUUID, synchronously,
// as the platform callback would. It reports whether a handler was registered.
func (m *MockClient) Notify(charUUID string, data []byte) bool {
	m.mu.Lock()
	handler, ok := m.handlers[bledb.MustCanonicalUUID(charUUID)]
	m.mu.Unlock()
	if !ok {
		return false
	}
	handler(data)
	return true
}

// IsSubscribed reports whether a notification handler is registered for charUUID
func (m *MockClient) IsSubscribed(charUUID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.handlers[bledb.MustCanonicalUUID(charUUID)]
	return ok
}

// WriteCount returns how many writes reached the client, including ones still blocked
func (m *MockClient) WriteCount() int {
	return int(m.writes.Load())
}

// SimulateDisconnect closes the disconnect channel; later calls are no-ops
func (m *MockClient) SimulateDisconnect() {
	m.disconnectOnce.Do(func() { close(m.disconnected) })
}

// MockAdvertisement is a fixed device.Advertisement
type MockAdvertisement struct {
	Name         string
	Address      string
	Signal       int
	ServiceUUIDs []string
	Manufacturer []byte
	NotConnect   bool
}

func (a *MockAdvertisement) LocalName() string        { return a.Name }
func (a *MockAdvertisement) ManufacturerData() []byte { return a.Manufacturer }
func (a *MockAdvertisement) Services() []string       { return a.ServiceUUIDs }
func (a *MockAdvertisement) Connectable() bool        { return !a.NotConnect }
func (a *MockAdvertisement) RSSI() int                { return a.Signal }
func (a *MockAdvertisement) Addr() string             { return a.Address }
