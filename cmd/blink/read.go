package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/srg/blink/internal/hardware"
	"github.com/srg/blink/internal/protocol"
)

// readCmd represents the read command
var readCmd = &cobra.Command{
	Use:   "read <device> <endpoint>[,<endpoint>...]",
	Short: "Read endpoint values",
	Long: fmt.Sprintf(`Reads the current value of one or more endpoints. Several endpoints are
read concurrently and printed in the order given.

Examples:
  # Read the battery endpoint
  blink read %s rxblebattery --hex

  # Read two endpoints of a device found by name
  blink read UART-01 rx,rxblebattery --hex

%s`, exampleDeviceAddress, deviceArgNote),
	Args: cobra.MinimumNArgs(2),
	RunE: runRead,
}

var readHex bool

func init() {
	readCmd.Flags().BoolVar(&readHex, "hex", false, "Output as hex string (e.g., 'ff01'); raw bytes by default")
}

func runRead(cmd *cobra.Command, args []string) error {
	endpoints, err := parseEndpoints(args[1:])
	if err != nil {
		return err
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

	readings, err := readEndpoints(ctx, hw, endpoints)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	for _, r := range readings {
		if len(readings) > 1 {
			fmt.Fprintf(w, "%s: ", labelColor.Sprint(r.Endpoint))
		}
		fmt.Fprintln(w, valueColor.Sprint(formatData(r.Data, readHex)))
	}
	return nil
}

// readEndpoints issues every read at once and waits for all of them.
// The first failure in argument order is returned.
func readEndpoints(ctx context.Context, hw *hardware.Hardware, endpoints []protocol.Endpoint) ([]*hardware.Reading, error) {
	readings := make([]*hardware.Reading, len(endpoints))
	errs := make([]error, len(endpoints))

	var wg sync.WaitGroup
	for i, ep := range endpoints {
		wg.Add(1)
		go func() {
			defer wg.Done()
			readings[i], errs[i] = hw.Read(ctx, ep)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return readings, nil
}
