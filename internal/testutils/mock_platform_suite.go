//go:build test

package testutils

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/blink/internal/device"
	"github.com/srg/blink/internal/devicefactory"
	"github.com/stretchr/testify/suite"
)

// MockPlatformSuite provides a reusable test suite with a mocked BLE platform.
//
// The suite swaps devicefactory.CentralFactory for a MockCentral built from
// PeripheralBuilder before each test and restores it afterwards.
//
// Basic usage (default peripheral with a Battery Service):
//
//	type SimpleSuite struct {
//	    testutils.MockPlatformSuite
//	}
//
//	func TestSimpleSuite(t *testing.T) {
//	    suite.Run(t, new(SimpleSuite))
//	}
//
// Custom peripheral:
//
//	func (s *MySuite) SetupTest() {
//	    s.WithPeripheral().
//	        WithService("fff0").
//	        WithCharacteristic("fff1", []byte{0x01})
//
//	    s.MockPlatformSuite.SetupTest() // Call parent last to apply configuration
//	}
type MockPlatformSuite struct {
	suite.Suite

	// Core test utilities
	Helper *TestHelper
	Logger *logrus.Logger

	TestTimeout time.Duration

	// Mock peripheral configuration
	PeripheralBuilder *PeripheralBuilder

	// Central is the mock handed out by devicefactory for the current test
	Central *MockCentral

	originalFactory   func(*logrus.Logger) (device.Central, error)
	originalSupported func() bool
}

// SetupSuite saves the real factories. Called once before all tests in the suite.
func (s *MockPlatformSuite) SetupSuite() {
	s.Helper = NewTestHelper(s.T())
	s.Logger = s.Helper.Logger
	s.TestTimeout = 5 * time.Second

	s.originalFactory = devicefactory.CentralFactory
	s.originalSupported = devicefactory.Supported

	s.T().Cleanup(func() {
		devicefactory.CentralFactory = s.originalFactory
		devicefactory.Supported = s.originalSupported
	})

	s.Logger.Debug("Suite setup completed")
}

// SetupTest installs the mock central. Called before each test method.
func (s *MockPlatformSuite) SetupTest() {
	if s.PeripheralBuilder == nil {
		s.PeripheralBuilder = createDefaultPeripheralBuilder()
	}

	s.Central = s.PeripheralBuilder.Build()
	central := s.Central
	devicefactory.CentralFactory = func(*logrus.Logger) (device.Central, error) {
		return central, nil
	}
	devicefactory.Supported = func() bool { return true }

	s.Logger.Debug("Test setup completed - ready for execution")
}

// TearDownTest restores the factories and resets the builder. Called after each test method.
func (s *MockPlatformSuite) TearDownTest() {
	devicefactory.CentralFactory = s.originalFactory
	devicefactory.Supported = s.originalSupported

	s.PeripheralBuilder = nil
	s.Central = nil
}

// WithPeripheral returns the peripheral builder for fluent configuration.
// Use this method in SetupTest before calling the parent SetupTest.
func (s *MockPlatformSuite) WithPeripheral() *PeripheralBuilder {
	if s.PeripheralBuilder == nil {
		s.PeripheralBuilder = NewPeripheralBuilder()
	}
	return s.PeripheralBuilder
}

// createDefaultPeripheralBuilder returns a peripheral with Battery Service (180F)
// and Battery Level characteristic (2A19) set to 50%.
func createDefaultPeripheralBuilder() *PeripheralBuilder {
	return NewPeripheralBuilder().
		WithService("180F").
		WithCharacteristic("2A19", []byte{50})
}
