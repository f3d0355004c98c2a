//go:build test

package discovery_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/blink/internal/device"
	"github.com/srg/blink/internal/devicefactory"
	"github.com/srg/blink/internal/discovery"
	"github.com/srg/blink/internal/protocol"
	"github.com/srg/blink/internal/testutils"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

const discoveryCatalog = `
protocols:
  - name: generic
    names: ["Device-*"]
    services:
      - uuid: "180f"
        characteristics:
          rxblebattery: "2a19"
  - name: lush
    names: ["Lush"]
    services:
      - uuid: "fff0"
        characteristics:
          tx: "fff2"
`

type ManagerSuite struct {
	testutils.MockPlatformSuite

	catalog *protocol.Catalog
	events  chan discovery.Event
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	catalog, err := protocol.ParseCatalog([]byte(discoveryCatalog))
	s.Require().NoError(err)
	s.catalog = catalog
	s.events = make(chan discovery.Event)

	s.WithPeripheral().
		WithService("180F").
		WithCharacteristic("2A19", []byte{50}).
		WithAdvertisements(
			&testutils.MockAdvertisement{Name: "Device-1", Address: "AA:BB:CC:DD:EE:FF", Signal: -40},
			&testutils.MockAdvertisement{Name: "Device-1", Address: "AA:BB:CC:DD:EE:FF", Signal: -42},
			&testutils.MockAdvertisement{Name: "Keyboard", Address: "11:11:11:11:11:11"},
			&testutils.MockAdvertisement{Address: "22:22:22:22:22:22"},
			&testutils.MockAdvertisement{Name: "Lush", Address: "33:33:33:33:33:33", Signal: -70},
		)

	s.MockPlatformSuite.SetupTest()
}

func (s *ManagerSuite) newManager(timeout time.Duration) *discovery.Manager {
	opts := discovery.DefaultOptions()
	opts.ScanTimeout = timeout
	return discovery.NewManager(s.catalog, s.events, opts, s.Logger)
}

func (s *ManagerSuite) next() discovery.Event {
	select {
	case ev := <-s.events:
		return ev
	case <-time.After(s.TestTimeout):
		s.FailNow("timed out waiting for discovery event")
		return nil
	}
}

func (s *ManagerSuite) TestFoundOncePerAddress() {
	// GOAL: Verify matching devices are reported once per address and the scan finishes once
	//
	// TEST SCENARIO: Duplicate, unmatched and unnamed advertisements → two found events → one finished event

	m := s.newManager(100 * time.Millisecond)
	s.Require().NoError(m.StartScanning(context.Background()))

	first, ok := s.next().(discovery.EventDeviceFound)
	s.Require().True(ok, "first event MUST be a found device")
	s.Assert().Equal("Device-1", first.Name)
	s.Assert().Equal("AA:BB:CC:DD:EE:FF", first.Address)
	s.Assert().Equal(-40, first.RSSI)
	s.Assert().NotNil(first.Connector)

	second, ok := s.next().(discovery.EventDeviceFound)
	s.Require().True(ok)
	s.Assert().Equal("Lush", second.Name, "exact-name filter MUST match")

	finished, ok := s.next().(discovery.EventScanningFinished)
	s.Require().True(ok, "scan MUST end with scanning-finished")
	s.Assert().Equal(2, finished.Found)
	s.Assert().False(m.IsScanning())

	select {
	case ev := <-s.events:
		s.Failf("unexpected event after finish", "%#v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func (s *ManagerSuite) TestStopScanning() {
	// GOAL: Verify no device is reported after StopScanning returns
	//
	// TEST SCENARIO: Nobody reads found events → StopScanning → only scanning-finished arrives

	m := s.newManager(0)
	s.Require().NoError(m.StartScanning(context.Background()))
	time.Sleep(50 * time.Millisecond) // let the scan block on the first found event

	m.StopScanning()
	m.StopScanning()

	finished, ok := s.next().(discovery.EventScanningFinished)
	s.Require().True(ok, "only scanning-finished MUST follow a stop")
	s.Assert().Zero(finished.Found)

	m.StopScanning()
}

func (s *ManagerSuite) TestScanContextCancelled() {
	// GOAL: Verify cancelling the scan owner's context ends the scan even with an unread found event
	//
	// TEST SCENARIO: Nobody reads events → owner ctx cancelled → scan stops → a new scan can start

	ctx, cancel := context.WithCancel(context.Background())
	m := s.newManager(0)
	s.Require().NoError(m.StartScanning(ctx))
	time.Sleep(50 * time.Millisecond) // let the scan block on the first found event

	cancel()
	s.Require().Eventually(func() bool { return !m.IsScanning() }, s.TestTimeout, 10*time.Millisecond,
		"scan MUST end once its owner context is cancelled")

	restartCtx, restartCancel := context.WithCancel(context.Background())
	defer restartCancel()
	s.Require().NoError(m.StartScanning(restartCtx), "a cancelled scan MUST allow a new one")
	m.StopScanning()

	finished, ok := s.next().(discovery.EventScanningFinished)
	s.Require().True(ok, "restarted scan MUST end with scanning-finished")
	s.Assert().Zero(finished.Found)
}

func (s *ManagerSuite) TestAlreadyScanning() {
	m := s.newManager(0)
	s.Require().NoError(m.StartScanning(context.Background()))
	s.Assert().ErrorIs(m.StartScanning(context.Background()), discovery.ErrAlreadyScanning)
	s.Assert().True(m.IsScanning())

	m.StopScanning()
	for {
		if _, done := s.next().(discovery.EventScanningFinished); done {
			break
		}
	}

	s.Require().NoError(m.StartScanning(context.Background()), "a finished scan MUST allow a new one")
	m.StopScanning()
	for {
		if _, done := s.next().(discovery.EventScanningFinished); done {
			break
		}
	}
}

func (s *ManagerSuite) TestCapabilityUnavailable() {
	// GOAL: Verify a host without BLE support fails the scan attempt
	//
	// TEST SCENARIO: no backend → ErrCapabilityUnavailable; radio off → ErrCapabilityUnavailable

	m := s.newManager(0)
	s.Assert().Equal("GoBLECommunicationManager", m.Name())
	s.Assert().True(m.CanScan())

	devicefactory.Supported = func() bool { return false }
	s.Assert().False(m.CanScan())
	s.Assert().ErrorIs(m.StartScanning(context.Background()), device.ErrCapabilityUnavailable)

	devicefactory.Supported = func() bool { return true }
	devicefactory.CentralFactory = func(*logrus.Logger) (device.Central, error) {
		return nil, device.ErrBluetoothOff
	}
	s.Assert().ErrorIs(m.StartScanning(context.Background()), device.ErrCapabilityUnavailable)
	s.Assert().False(m.IsScanning())
}

func (s *ManagerSuite) TestPlatformScanErrorFinishes() {
	// GOAL: Verify platform scan failures are folded into scanning-finished
	//
	// TEST SCENARIO: Scan returns an error → no error surfaces → finished with zero devices

	central := &testutils.MockCentral{}
	central.On("Scan", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("hci: command disallowed"))
	devicefactory.CentralFactory = func(*logrus.Logger) (device.Central, error) {
		return central, nil
	}

	m := s.newManager(0)
	s.Require().NoError(m.StartScanning(context.Background()))

	finished, ok := s.next().(discovery.EventScanningFinished)
	s.Require().True(ok)
	s.Assert().Zero(finished.Found)
}

func (s *ManagerSuite) TestFoundConnectorConnects() {
	// GOAL: Verify a found device's connector drives the handshake end to end
	//
	// TEST SCENARIO: found Device-1 → catalog lookup → Connect → Specialize → battery endpoint readable

	m := s.newManager(0)
	s.Require().NoError(m.StartScanning(context.Background()))
	found, ok := s.next().(discovery.EventDeviceFound)
	s.Require().True(ok)
	m.StopScanning()
	for {
		if _, done := s.next().(discovery.EventScanningFinished); done {
			break
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.TestTimeout)
	defer cancel()

	s.Assert().True(found.Connector.Specifier().Matches(found.Name))
	specializer, err := found.Connector.Connect(ctx)
	s.Require().NoError(err)
	hw, err := specializer.Specialize(ctx, s.catalog.Lookup(found.Name))
	s.Require().NoError(err)
	defer hw.Close()

	reading, err := hw.Read(ctx, protocol.RxBLEBattery)
	s.Require().NoError(err)
	s.Assert().Equal([]byte{50}, reading.Data)
}
