package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/srg/blink/internal/protocol"
)

// writeCmd represents the write command
var writeCmd = &cobra.Command{
	Use:   "write <device> <endpoint> <data>",
	Short: "Write data to an endpoint",
	Long: fmt.Sprintf(`Writes data to one endpoint and waits for the device to acknowledge it.

Examples:
  # Write a text command
  blink write %s tx "hello"

  # Write raw bytes
  blink write %s command "01 ff 00" --hex

%s`, exampleDeviceAddress, exampleDeviceAddress, deviceArgNote),
	Args: cobra.ExactArgs(3),
	RunE: runWrite,
}

var writeHex bool

func init() {
	writeCmd.Flags().BoolVar(&writeHex, "hex", false, "Interpret data as hex (e.g., 'ff01', '0xff 0x01')")
}

func runWrite(cmd *cobra.Command, args []string) error {
	ep, err := protocol.ParseEndpoint(args[1])
	if err != nil {
		return err
	}
	data, err := parseData(args[2], writeHex)
	if err != nil {
		return fmt.Errorf("invalid hex data: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("nothing to write")
	}
	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	ctx := cmd.Context()
	hw, err := connectDevice(ctx, env, args[0])
	if err != nil {
		return err
	}
	defer releaseHardware(hw)

	if err := hw.Write(ctx, ep, data); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d bytes to %s\n", len(data), labelColor.Sprint(ep))
	return nil
}
