package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/srg/blink/internal/hardware"
	"github.com/srg/blink/internal/protocol"
)

// subscribeCmd represents the subscribe command
var subscribeCmd = &cobra.Command{
	Use:   "subscribe <device> <endpoint>[,<endpoint>...]",
	Short: "Stream endpoint notifications",
	Long: fmt.Sprintf(`Subscribes to one or more endpoints and prints every notification until
Ctrl+C, --count notifications or the device disconnecting.

Examples:
  # Stream the rx endpoint
  blink subscribe %s rx

  # Stream two endpoints as hex, stop after 10 notifications
  blink subscribe %s rx,rxblebattery --hex --count 10

%s`, exampleDeviceAddress, exampleDeviceAddress, deviceArgNote),
	Args: cobra.MinimumNArgs(2),
	RunE: runSubscribe,
}

var (
	subscribeHex   bool
	subscribeCount int
)

// unsubscribeTimeout bounds the best-effort unsubscribe on exit
const unsubscribeTimeout = 2 * time.Second

func init() {
	subscribeCmd.Flags().BoolVar(&subscribeHex, "hex", false, "Output as hex string; raw bytes by default")
	subscribeCmd.Flags().IntVarP(&subscribeCount, "count", "n", 0, "Stop after this many notifications (0 streams until interrupted)")
}

func runSubscribe(cmd *cobra.Command, args []string) error {
	endpoints, err := parseEndpoints(args[1:])
	if err != nil {
		return err
	}
	if subscribeCount < 0 {
		return fmt.Errorf("--count cannot be negative")
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

	// Open the stream first so no notification is missed
	stream := hw.EventStream()
	defer stream.Close()

	for _, ep := range endpoints {
		if err := hw.Subscribe(ctx, ep); err != nil {
			return err
		}
	}
	defer unsubscribeAll(hw, endpoints, env.logger)

	if len(endpoints) == 1 {
		fmt.Fprintf(cmd.ErrOrStderr(), "Subscribed to %s. Press Ctrl+C to stop...\n", endpoints[0])
	} else {
		fmt.Fprintf(cmd.ErrOrStderr(), "Subscribed to %d endpoints. Press Ctrl+C to stop...\n", len(endpoints))
	}

	return streamNotifications(ctx, cmd.OutOrStdout(), stream, len(endpoints) > 1)
}

// streamNotifications prints notifications until ctx is done, the count is
// reached or the device disconnects
func streamNotifications(ctx context.Context, w io.Writer, stream *hardware.Subscription, withEndpoint bool) error {
	received := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-stream.C():
			if !ok || ev.Kind == hardware.EventDisconnected {
				return ErrConnectionLost
			}
			if withEndpoint {
				fmt.Fprintf(w, "%s: ", labelColor.Sprint(ev.Endpoint))
			}
			fmt.Fprintln(w, formatData(ev.Data, subscribeHex))

			received++
			if subscribeCount > 0 && received >= subscribeCount {
				return nil
			}
		}
	}
}

func unsubscribeAll(hw *hardware.Hardware, endpoints []protocol.Endpoint, logger *logrus.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), unsubscribeTimeout)
	defer cancel()

	for _, ep := range endpoints {
		if err := hw.Unsubscribe(ctx, ep); err != nil {
			logger.WithFields(logrus.Fields{"endpoint": ep, "error": err}).Debug("Unsubscribe failed")
		}
	}
}
