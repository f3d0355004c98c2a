//go:build test

package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/srg/blink/internal/testutils"
)

// Mock device identification, accepted by the embedded catalog
const (
	TestDeviceAddress = "00:00:00:00:00:01"
	TestDeviceName    = "UART-01"

	uartService = "6e400001-b5a3-f393-e0a9-e50e24dcca9e"
	uartTx      = "6e400002-b5a3-f393-e0a9-e50e24dcca9e"
	uartRx      = "6e400003-b5a3-f393-e0a9-e50e24dcca9e"
)

// CommandTestSuite extends MockPlatformSuite with command testing utilities.
// All cmd/blink test suites should embed this instead of MockPlatformSuite.
type CommandTestSuite struct {
	testutils.MockPlatformSuite

	// ConfigPath is a config file with a short scan timeout
	ConfigPath string
}

// SetupSuite writes the test config. Called once before all tests in the suite.
func (s *CommandTestSuite) SetupSuite() {
	s.MockPlatformSuite.SetupSuite()

	s.ConfigPath = filepath.Join(s.T().TempDir(), "blink.yaml")
	cfg := "log_level: error\nscan_timeout: 300ms\noperation_timeout: 2s\n"
	s.Require().NoError(os.WriteFile(s.ConfigPath, []byte(cfg), 0o600), "config file MUST be written")
}

// SetupTest installs a UART device advertising next to an unrelated one
func (s *CommandTestSuite) SetupTest() {
	resetCommandFlags()
	if s.PeripheralBuilder == nil {
		s.PeripheralBuilder = DefaultTestDevice()
	}
	s.MockPlatformSuite.SetupTest()
}

// DefaultTestDevice returns the peripheral most command tests talk to
func DefaultTestDevice() *testutils.PeripheralBuilder {
	return testutils.NewPeripheralBuilder().
		WithAddress(TestDeviceAddress).
		WithAdvertisements(
			&testutils.MockAdvertisement{Name: "Other", Address: "00:00:00:00:00:99", Signal: -80},
			&testutils.MockAdvertisement{Name: TestDeviceName, Address: TestDeviceAddress, Signal: -42},
		).
		WithService(uartService).
		WithCharacteristic(uartTx, nil).
		WithCharacteristic(uartRx, []byte("hello")).
		WithService("180f").
		WithCharacteristic("2a19", []byte{0x55})
}

// UsePeripheral replaces the mock device for the current test
func (s *CommandTestSuite) UsePeripheral(b *testutils.PeripheralBuilder) {
	s.PeripheralBuilder = b
	s.MockPlatformSuite.SetupTest()
}

// ExecuteCommand runs the root command with args plus the test config.
// It returns what the command printed to stdout.
func (s *CommandTestSuite) ExecuteCommand(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(append(args, "--config", s.ConfigPath, "--no-color"))
	defer rootCmd.SetOut(nil)
	defer rootCmd.SetErr(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

// resetCommandFlags restores every flag to its default between tests
func resetCommandFlags() {
	resetFlags(rootCmd)
	for _, c := range rootCmd.Commands() {
		resetFlags(c)
	}
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
}
