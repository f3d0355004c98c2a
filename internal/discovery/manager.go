package discovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"

	"github.com/srg/blink/internal/device"
	"github.com/srg/blink/internal/devicefactory"
	"github.com/srg/blink/internal/groutine"
	"github.com/srg/blink/internal/hardware"
	"github.com/srg/blink/internal/protocol"
)

// ManagerName identifies this backend to an outer registry
const ManagerName = "GoBLECommunicationManager"

// ErrAlreadyScanning is returned by StartScanning while a scan is running
var ErrAlreadyScanning = errors.New("scan already in progress")

// Event is emitted on the manager's event channel
type Event interface {
	isEvent()
}

// EventDeviceFound reports a matching device, once per address and scan.
// Connector is fresh and owned by the receiver.
type EventDeviceFound struct {
	Name      string
	Address   string
	RSSI      int
	Connector *hardware.Connector
}

// EventScanningFinished ends every started scan; Found counts the devices reported
type EventScanningFinished struct {
	Found int
}

func (EventDeviceFound) isEvent()      {}
func (EventScanningFinished) isEvent() {}

// Options configures scanning
type Options struct {
	// ScanTimeout ends the scan on its own; zero scans until stopped
	ScanTimeout time.Duration `default:"10s"`
	// AllowDuplicates asks the platform to report repeated advertisements
	AllowDuplicates bool `default:"false"`
	// Hardware is handed to every Connector; nil uses hardware.DefaultOptions
	Hardware *hardware.Options
}

// DefaultOptions returns Options with every field at its default
func DefaultOptions() *Options {
	opts := &Options{}
	defaults.SetDefaults(opts)
	return opts
}

// Manager discovers devices accepted by a protocol catalog.
type Manager struct {
	catalog *protocol.Catalog
	events  chan<- Event
	opts    Options
	logger  *logrus.Logger

	mu      sync.Mutex
	current *scan
}

// scan is the state of one StartScanning call
type scan struct {
	cancel   context.CancelFunc
	stop     chan struct{}
	stopOnce sync.Once

	emitMu   sync.Mutex
	stopped  bool
	reported int

	seen *hashmap.Map[string, struct{}]
}

// NewManager creates a Manager emitting on events. A nil opts uses DefaultOptions.
func NewManager(catalog *protocol.Catalog, events chan<- Event, opts *Options, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.New()
	}
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Manager{
		catalog: catalog,
		events:  events,
		opts:    *opts,
		logger:  logger,
	}
}

// Name returns ManagerName
func (m *Manager) Name() string {
	return ManagerName
}

// CanScan reports whether this host has a BLE backend at all
func (m *Manager) CanScan() bool {
	return devicefactory.Supported()
}

// IsScanning reports whether a scan is running
func (m *Manager) IsScanning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}

// StartScanning starts a scan and returns immediately. The scan ends after
// ScanTimeout, on StopScanning or when ctx is done, and emits one
// EventScanningFinished. Once ctx is done, pending found events are dropped
// and the finished event is delivered only if the channel accepts it at once.
func (m *Manager) StartScanning(ctx context.Context) error {
	if !m.CanScan() {
		return fmt.Errorf("%w: no BLE backend on this platform", device.ErrCapabilityUnavailable)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		return ErrAlreadyScanning
	}

	central, err := devicefactory.NewCentral(m.logger)
	if err != nil {
		if !errors.Is(err, device.ErrCapabilityUnavailable) {
			err = fmt.Errorf("%w: %v", device.ErrCapabilityUnavailable, err)
		}
		return err
	}

	filters := BuildFilters(m.catalog)
	var (
		scanCtx context.Context
		cancel  context.CancelFunc
	)
	if m.opts.ScanTimeout > 0 {
		scanCtx, cancel = context.WithTimeout(ctx, m.opts.ScanTimeout)
	} else {
		scanCtx, cancel = context.WithCancel(ctx)
	}

	sc := &scan{
		cancel: cancel,
		stop:   make(chan struct{}),
		seen:   hashmap.New[string, struct{}](),
	}
	m.current = sc

	m.logger.WithFields(logrus.Fields{
		"timeout":           m.opts.ScanTimeout,
		"filters":           len(filters.Filters),
		"optional_services": len(filters.OptionalServices),
	}).Info("Starting BLE scan...")

	groutine.Go(ctx, "blink-scan", func(context.Context) {
		m.run(ctx, scanCtx, sc, central, filters)
	})
	return nil
}

// StopScanning ends the running scan. No EventDeviceFound is emitted after it
// returns; EventScanningFinished still follows. Stopping when idle is a no-op.
func (m *Manager) StopScanning() {
	m.mu.Lock()
	sc := m.current
	m.mu.Unlock()
	if sc == nil {
		return
	}

	sc.stopOnce.Do(func() {
		close(sc.stop)
		sc.emitMu.Lock()
		sc.stopped = true
		sc.emitMu.Unlock()
		sc.cancel()
	})
	m.logger.Debug("Scan stop requested")
}

func (m *Manager) run(parent, scanCtx context.Context, sc *scan, central device.Central, filters FilterSet) {
	defer sc.cancel()

	err := central.Scan(scanCtx, m.opts.AllowDuplicates, func(adv device.Advertisement) {
		m.handleAdvertisement(scanCtx, sc, central, filters, adv)
	})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		m.logger.WithField("error", err).Warn("BLE scan failed, finishing with the devices found so far")
	}

	sc.emitMu.Lock()
	found := sc.reported
	sc.emitMu.Unlock()

	m.mu.Lock()
	if m.current == sc {
		m.current = nil
	}
	m.mu.Unlock()

	m.logger.WithField("device_count", found).Info("BLE scan completed")

	finished := EventScanningFinished{Found: found}
	select {
	case m.events <- finished:
		return
	case <-parent.Done():
	}
	// The owner is gone: deliver only if the channel can take it right away.
	select {
	case m.events <- finished:
	default:
		m.logger.Debug("Scan owner gone, scanning-finished not delivered")
	}
}

func (m *Manager) handleAdvertisement(scanCtx context.Context, sc *scan, central device.Central, filters FilterSet, adv device.Advertisement) {
	name := adv.LocalName()
	if !filters.Match(name) {
		return
	}
	address := adv.Addr()
	if address == "" {
		return
	}

	sc.emitMu.Lock()
	defer sc.emitMu.Unlock()
	if sc.stopped {
		return
	}
	if _, loaded := sc.seen.GetOrInsert(address, struct{}{}); loaded {
		return
	}

	m.logger.WithFields(logrus.Fields{
		"device":  name,
		"address": address,
		"rssi":    adv.RSSI(),
	}).Info("Discovered new device")

	connector := hardware.NewConnector(hardware.Descriptor{
		Central:          central,
		Name:             name,
		Address:          address,
		RSSI:             adv.RSSI(),
		OptionalServices: filters.OptionalServices,
	}, m.opts.Hardware, m.logger)

	select {
	case m.events <- EventDeviceFound{Name: name, Address: address, RSSI: adv.RSSI(), Connector: connector}:
		sc.reported++
	case <-sc.stop:
	case <-scanCtx.Done():
	}
}
