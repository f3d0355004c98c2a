package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/srg/blink/internal/discovery"
	"github.com/srg/blink/internal/hardware"
	"github.com/srg/blink/internal/protocol"
)

const (
	exampleDeviceAddress = "AA:BB:CC:DD:EE:FF"
	deviceArgNote        = `<device> is either the device address or its advertised name; the device
must be accepted by one of the catalog protocols.`
)

// findDevice scans until a device whose address or name equals target is
// reported and returns its connector. The scan is stopped before returning.
func findDevice(ctx context.Context, env *environment, target string) (*hardware.Connector, error) {
	opts := env.cfg.DiscoveryOptions()
	events := make(chan discovery.Event, 16)
	mgr := discovery.NewManager(env.catalog, events, opts, env.logger)

	scanCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := mgr.StartScanning(scanCtx); err != nil {
		return nil, err
	}
	defer mgr.StopScanning()

	for {
		select {
		case ev := <-events:
			switch e := ev.(type) {
			case discovery.EventDeviceFound:
				if strings.EqualFold(e.Address, target) || e.Name == target {
					return e.Connector, nil
				}
				env.logger.WithFields(logrus.Fields{
					"device":  e.Name,
					"address": e.Address,
				}).Debug("Skipping device, looking for another one")
			case discovery.EventScanningFinished:
				return nil, fmt.Errorf("%w: %s (%d other matching devices seen)", ErrDeviceNotFound, target, e.Found)
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// connectDevice runs the full handshake: discovery, Connect, and Specialize
// with every catalog protocol accepting the device name.
func connectDevice(ctx context.Context, env *environment, target string) (*hardware.Hardware, error) {
	connector, err := findDevice(ctx, env, target)
	if err != nil {
		return nil, err
	}

	candidates := env.catalog.Lookup(connector.Specifier().Name)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoProtocol, connector.Name())
	}

	specializer, err := connector.Connect(ctx)
	if err != nil {
		return nil, err
	}
	hw, err := specializer.Specialize(ctx, candidates)
	if err != nil {
		return nil, err
	}

	env.logger.WithFields(logrus.Fields{
		"device":    hw.Name(),
		"address":   hw.Address(),
		"protocol":  hw.Specifier().Name,
		"endpoints": len(hw.Endpoints()),
	}).Info("Device ready")
	return hw, nil
}

// parseEndpoints validates endpoint arguments, accepting comma-separated lists
func parseEndpoints(args []string) ([]protocol.Endpoint, error) {
	var out []protocol.Endpoint
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			ep, err := protocol.ParseEndpoint(part)
			if err != nil {
				return nil, err
			}
			out = append(out, ep)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no endpoint provided")
	}
	return out, nil
}

// releaseTimeout bounds how long a command waits for the link to be released on exit
const releaseTimeout = 5 * time.Second

// releaseHardware closes hw and waits for the session to cancel the connection
func releaseHardware(hw *hardware.Hardware) {
	_ = hw.Close()
	select {
	case <-hw.Done():
	case <-time.After(releaseTimeout):
	}
}
