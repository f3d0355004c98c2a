//go:build test

package main

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/srg/blink/internal/device"
	"github.com/srg/blink/internal/testutils"
)

type CommandsSuite struct {
	CommandTestSuite
}

func TestCommandsSuite(t *testing.T) {
	suite.Run(t, new(CommandsSuite))
}

// TestScanReportsCatalogDevices verifies scan output only lists accepted devices
func (s *CommandsSuite) TestScanReportsCatalogDevices() {
	// GOAL: Verify scan lists devices the catalog accepts, with their protocols
	//
	// TEST SCENARIO: Mock advertises UART-01 and Other → scan as JSON → only UART-01 reported

	out, err := s.ExecuteCommand("scan", "--duration", "200ms", "--format", "json")
	s.Require().NoError(err, "scan MUST succeed")

	var devices []foundDevice
	s.Require().NoError(json.Unmarshal([]byte(out), &devices), "scan output MUST be valid JSON")
	s.Require().Len(devices, 1, "only the catalog device MUST be reported")
	s.Equal(TestDeviceName, devices[0].Name)
	s.Equal(TestDeviceAddress, devices[0].Address)
	s.Equal(-42, devices[0].RSSI)
	s.Equal([]string{"nordic-uart"}, devices[0].Protocols)
}

// TestScanTable verifies the default table output
func (s *CommandsSuite) TestScanTable() {
	out, err := s.ExecuteCommand("scan", "--duration", "200ms", "--format", "table")
	s.Require().NoError(err, "scan MUST succeed")

	s.Contains(out, "NAME")
	s.Contains(out, TestDeviceName)
	s.Contains(out, "-42 dBm")
	s.NotContains(out, "Other", "devices outside the catalog MUST NOT be listed")
}

// TestScanRejectsUnknownFormat verifies config validation of the format flag
func (s *CommandsSuite) TestScanRejectsUnknownFormat() {
	_, err := s.ExecuteCommand("scan", "--format", "xml")
	s.Require().Error(err, "unknown format MUST be rejected")
	s.Contains(err.Error(), "invalid output format")
}

// TestReadByAddress verifies several endpoints are read and printed in order
func (s *CommandsSuite) TestReadByAddress() {
	// GOAL: Verify read resolves endpoints through the catalog
	//
	// TEST SCENARIO: Read rx and rxblebattery as hex → both values printed in argument order

	out, err := s.ExecuteCommand("read", TestDeviceAddress, "rx,rxblebattery", "--hex")
	s.Require().NoError(err, "read MUST succeed")
	s.Equal("rx: 68656c6c6f\nrxblebattery: 55\n", out)
}

// TestReadByName verifies the device can be addressed by its advertised name
func (s *CommandsSuite) TestReadByName() {
	out, err := s.ExecuteCommand("read", TestDeviceName, "rx")
	s.Require().NoError(err, "read MUST succeed")
	s.Equal("hello\n", out)
}

// TestReadUnknownEndpoint verifies endpoints absent from the session map fail cleanly
func (s *CommandsSuite) TestReadUnknownEndpoint() {
	_, err := s.ExecuteCommand("read", TestDeviceAddress, "firmware")
	s.Require().Error(err, "unbound endpoint MUST fail")
	s.True(errors.Is(err, device.ErrUnknownEndpoint), "error MUST match ErrUnknownEndpoint, got %v", err)
	s.Equal("endpoint firmware is not available on this device", FormatUserError(err))
}

// TestReadDeviceNotFound verifies the scan gives up after the configured timeout
func (s *CommandsSuite) TestReadDeviceNotFound() {
	_, err := s.ExecuteCommand("read", "11:22:33:44:55:66", "rx")
	s.Require().Error(err, "missing device MUST fail")
	s.True(errors.Is(err, ErrDeviceNotFound), "error MUST be ErrDeviceNotFound, got %v", err)
}

// TestReadConnectFailure verifies dial errors surface as connection failures
func (s *CommandsSuite) TestReadConnectFailure() {
	s.UsePeripheral(DefaultTestDevice().WithDialError(errors.New("le-connection-abort-by-local")))

	_, err := s.ExecuteCommand("read", TestDeviceAddress, "rx")
	s.Require().Error(err, "dial failure MUST fail the command")
	s.True(device.IsConnectionState(err, device.ConnectionFailed), "error MUST be a connection failure, got %v", err)
	s.Contains(FormatUserError(err), "could not connect to the device")
}

// TestWriteHex verifies hex payloads reach the characteristic decoded
func (s *CommandsSuite) TestWriteHex() {
	out, err := s.ExecuteCommand("write", TestDeviceAddress, "tx", "0x01 ff:00", "--hex")
	s.Require().NoError(err, "write MUST succeed")
	s.Equal("Wrote 3 bytes to tx\n", out)

	s.Central.Client.AssertCalled(s.T(), "WriteCharacteristic", uartTx, []byte{0x01, 0xff, 0x00})
}

// TestWriteFailure verifies platform write errors come back as CommunicationError
func (s *CommandsSuite) TestWriteFailure() {
	s.UsePeripheral(testutils.NewPeripheralBuilder().
		WithAddress(TestDeviceAddress).
		WithAdvertisements(&testutils.MockAdvertisement{Name: TestDeviceName, Address: TestDeviceAddress}).
		WithService(uartService).
		WithCharacteristic(uartTx, nil).WithWriteError(errors.New("write rejected")))

	_, err := s.ExecuteCommand("write", TestDeviceAddress, "tx", "ping")
	s.Require().Error(err, "write MUST fail")

	var commErr *device.CommunicationError
	s.Require().True(errors.As(err, &commErr), "error MUST be a CommunicationError, got %v", err)
	s.Equal("tx", commErr.Endpoint)
}

// TestWriteRejectsBadHex verifies argument validation happens before connecting
func (s *CommandsSuite) TestWriteRejectsBadHex() {
	_, err := s.ExecuteCommand("write", TestDeviceAddress, "tx", "zz", "--hex")
	s.Require().Error(err, "invalid hex MUST be rejected")
	s.Contains(err.Error(), "invalid hex data")
	s.Central.AssertNotCalled(s.T(), "Dial", mock.Anything, TestDeviceAddress)
}

// TestSubscribeStreamsNotifications verifies notifications are printed until --count
func (s *CommandsSuite) TestSubscribeStreamsNotifications() {
	// GOAL: Verify subscribe prints notifications in arrival order
	//
	// TEST SCENARIO: Subscribe to rx with --count 2 → device notifies twice → both printed, command ends

	result := s.runAsync("subscribe", TestDeviceAddress, "rx", "--count", "2")

	s.Require().Eventually(func() bool {
		return s.Central.Client.IsSubscribed(uartRx)
	}, s.TestTimeout, 10*time.Millisecond, "rx MUST be subscribed")

	s.True(s.Central.Client.Notify(uartRx, []byte("one")))
	s.True(s.Central.Client.Notify(uartRx, []byte("two")))

	r := s.await(result)
	s.Require().NoError(r.err, "subscribe MUST finish after --count notifications")
	s.Equal("one\ntwo\n", r.out)
}

// TestSubscribeConnectionLost verifies a disconnect ends the stream with an error
func (s *CommandsSuite) TestSubscribeConnectionLost() {
	result := s.runAsync("subscribe", TestDeviceAddress, "rx,rxblebattery", "--hex")

	s.Require().Eventually(func() bool {
		return s.Central.Client.IsSubscribed(uartRx) && s.Central.Client.IsSubscribed("2a19")
	}, s.TestTimeout, 10*time.Millisecond, "both endpoints MUST be subscribed")

	s.True(s.Central.Client.Notify("2a19", []byte{0x40}))
	s.Central.Client.SimulateDisconnect()

	r := s.await(result)
	s.Require().Error(r.err, "disconnect MUST end subscribe with an error")
	s.True(errors.Is(r.err, ErrConnectionLost), "error MUST be ErrConnectionLost, got %v", r.err)
	s.Equal("rxblebattery: 40\n", r.out)
}

// TestProtocolsLookup verifies the catalog listing narrowed by device name
func (s *CommandsSuite) TestProtocolsLookup() {
	out, err := s.ExecuteCommand("protocols", TestDeviceName)
	s.Require().NoError(err, "protocols MUST succeed")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	s.Require().NotEmpty(lines)
	s.True(strings.HasPrefix(lines[0], "nordic-uart"), "first line MUST name the protocol, got %q", lines[0])
	s.Contains(out, "6e400001b5a3f393e0a9e50e24dcca9e (Nordic UART Service)")
	s.Contains(out, "2a19 (Battery Level)")
	s.NotContains(out, "vendor-motor")

	_, err = s.ExecuteCommand("protocols", "Nope")
	s.True(errors.Is(err, ErrNoProtocol), "unknown name MUST fail with ErrNoProtocol, got %v", err)
}

type commandResult struct {
	out string
	err error
}

func (s *CommandsSuite) runAsync(args ...string) <-chan commandResult {
	result := make(chan commandResult, 1)
	go func() {
		out, err := s.ExecuteCommand(args...)
		result <- commandResult{out: out, err: err}
	}()
	return result
}

func (s *CommandsSuite) await(result <-chan commandResult) commandResult {
	select {
	case r := <-result:
		return r
	case <-time.After(s.TestTimeout):
		s.Require().FailNow("command did not finish in time")
		return commandResult{}
	}
}
