package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/srg/blink/internal/discovery"
	"github.com/srg/blink/pkg/config"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for devices accepted by the catalog",
	Long: `Scan for Bluetooth Low Energy devices whose advertised names match a protocol
of the catalog, and display their names, addresses, RSSI and matching protocols.

The scan ends after --duration or on Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

var (
	scanDuration        time.Duration
	scanFormat          string
	scanAllowDuplicates bool
)

func init() {
	scanCmd.Flags().DurationVarP(&scanDuration, "duration", "d", 0, "Scan duration (default from config, 10s)")
	scanCmd.Flags().StringVarP(&scanFormat, "format", "f", "", "Output format (table, json; default from config)")
	scanCmd.Flags().BoolVar(&scanAllowDuplicates, "duplicates", false, "Ask the platform to report repeated advertisements")
}

// foundDevice is one scan result row
type foundDevice struct {
	Name      string   `json:"name"`
	Address   string   `json:"address"`
	RSSI      int      `json:"rssi"`
	Protocols []string `json:"protocols"`
}

func runScan(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}
	if scanDuration > 0 {
		env.cfg.ScanTimeout = scanDuration
	}
	if scanFormat != "" {
		env.cfg.OutputFormat = scanFormat
	}
	if scanAllowDuplicates {
		env.cfg.AllowDuplicates = true
	}
	if err := env.cfg.Validate(); err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	devices, err := scanDevices(cmd.Context(), env)
	if err != nil {
		return err
	}
	return displayDevices(cmd.OutOrStdout(), devices, env.cfg.OutputFormat)
}

// scanDevices runs one scan to completion and collects what it reports.
// Cancelling ctx stops the scan and keeps the devices found so far.
func scanDevices(ctx context.Context, env *environment) ([]foundDevice, error) {
	events := make(chan discovery.Event, 16)
	mgr := discovery.NewManager(env.catalog, events, env.cfg.DiscoveryOptions(), env.logger)

	scanCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()
	if err := mgr.StartScanning(scanCtx); err != nil {
		return nil, err
	}

	var devices []foundDevice
	interrupted := ctx.Done()
	for {
		select {
		case <-interrupted:
			env.logger.Debug("Scan interrupted")
			mgr.StopScanning()
			interrupted = nil
		case ev := <-events:
			switch e := ev.(type) {
			case discovery.EventDeviceFound:
				var protocols []string
				for _, spec := range env.catalog.Lookup(e.Name) {
					protocols = append(protocols, spec.Name)
				}
				devices = append(devices, foundDevice{
					Name:      e.Name,
					Address:   e.Address,
					RSSI:      e.RSSI,
					Protocols: protocols,
				})
			case discovery.EventScanningFinished:
				return devices, nil
			}
		}
	}
}

func displayDevices(w io.Writer, devices []foundDevice, format string) error {
	sort.Slice(devices, func(i, j int) bool {
		if devices[i].Name != devices[j].Name {
			return devices[i].Name < devices[j].Name
		}
		return devices[i].Address < devices[j].Address
	})

	if format == config.FormatJSON {
		if devices == nil {
			devices = []foundDevice{}
		}
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(devices)
	}

	if len(devices) == 0 {
		fmt.Fprintln(w, noteColor.Sprint("No devices discovered"))
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tADDRESS\tRSSI\tPROTOCOLS")
	fmt.Fprintln(tw, strings.Repeat("-", 64))
	for _, d := range devices {
		name := d.Name
		if len(name) > 24 {
			name = name[:21] + "..."
		}
		fmt.Fprintf(tw, "%s\t%s\t%d dBm\t%s\n", name, d.Address, d.RSSI, strings.Join(d.Protocols, ","))
	}
	return tw.Flush()
}
