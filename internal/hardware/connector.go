package hardware

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/srg/blink/internal/device"
	"github.com/srg/blink/internal/devicefactory"
	"github.com/srg/blink/internal/groutine"
	"github.com/srg/blink/internal/protocol"
)

// Descriptor identifies one discovered device.
// Central may be nil, in which case Connect creates one through devicefactory.
// OptionalServices is the allowlist of canonical service UUIDs the session
// may resolve; empty allows every service.
type Descriptor struct {
	Central          device.Central
	Name             string
	Address          string
	RSSI             int
	OptionalServices []string
}

// Connector is phase one of the handshake: it holds an unconnected device
// until Connect consumes it.
type Connector struct {
	mu       sync.Mutex
	desc     Descriptor
	consumed bool
	opts     Options
	logger   *logrus.Logger
}

// NewConnector creates a Connector for desc. A nil opts uses DefaultOptions.
func NewConnector(desc Descriptor, opts *Options, logger *logrus.Logger) *Connector {
	if logger == nil {
		logger = logrus.New()
	}
	return &Connector{desc: desc, opts: opts.normalized(), logger: logger}
}

func (c *Connector) Name() string    { return c.desc.Name }
func (c *Connector) Address() string { return c.desc.Address }
func (c *Connector) RSSI() int       { return c.desc.RSSI }

// Specifier returns the name-only specifier of this device, used to narrow
// the catalog before connecting.
func (c *Connector) Specifier() *protocol.Specifier {
	return protocol.NewDeviceSpecifier(c.desc.Name)
}

// Connect consumes the descriptor and moves to phase two.
// A second call returns ErrConnectorConsumed.
func (c *Connector) Connect(ctx context.Context) (*Specializer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.consumed {
		return nil, ErrConnectorConsumed
	}

	desc := c.desc
	if desc.Central == nil {
		central, err := devicefactory.NewCentral(c.logger)
		if err != nil {
			return nil, err
		}
		desc.Central = central
	}
	c.consumed = true

	return &Specializer{desc: desc, opts: c.opts, logger: c.logger}, nil
}

// Specializer is phase two: it binds the device to a protocol and starts the session.
type Specializer struct {
	mu       sync.Mutex
	desc     Descriptor
	consumed bool
	opts     Options
	logger   *logrus.Logger
}

// Specialize starts the session for the first candidate and blocks until it
// has connected or failed. ctx bounds the connection attempt; the session
// itself outlives it.
//
// candidates must not be empty: Specialize panics otherwise. A failed
// startup is reported as a *device.ConnectionError with state
// ConnectionFailed wrapping the platform cause.
func (s *Specializer) Specialize(ctx context.Context, candidates []*protocol.Specifier) (*Hardware, error) {
	if len(candidates) == 0 {
		panic("hardware: Specialize called without candidate specifiers")
	}

	s.mu.Lock()
	if s.consumed {
		s.mu.Unlock()
		return nil, ErrConnectorConsumed
	}
	s.consumed = true
	s.mu.Unlock()

	spec := candidates[0]
	logger := s.logger.WithFields(logrus.Fields{
		"address":  s.desc.Address,
		"protocol": spec.Name,
	})
	for _, ignored := range candidates[1:] {
		logger.WithField("ignored", ignored.Name).Info("Several protocols match, using the first one")
	}

	sess := newSession(ctx, s.desc, spec, s.opts, s.logger)
	startup := make(chan sessionEvent, 1)

	groutine.GoRecover(sess.ctx, "blink-session-"+s.desc.Address, func(context.Context) {
		sess.run(ctx, startup)
	}, func(p *groutine.PanicError) {
		logger.WithFields(logrus.Fields{
			"error": p,
			"stack": string(p.Stack),
		}).Error("Session loop panicked")
		select {
		case startup <- sessionEvent{err: p}:
		default:
		}
	})

	ev := <-startup
	if ev.err != nil {
		return nil, &device.ConnectionError{
			State: device.ConnectionFailed,
			Msg:   fmt.Sprintf("failed to connect to %s", s.desc.Address),
			Err:   ev.err,
		}
	}
	return newHardware(sess), nil
}
