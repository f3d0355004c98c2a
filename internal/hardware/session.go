package hardware

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/srg/blink/internal/bledb"
	"github.com/srg/blink/internal/device"
	"github.com/srg/blink/internal/groutine"
	"github.com/srg/blink/internal/protocol"
)

// endpointOverrides remaps vendor characteristics onto the canonical
// endpoints, whatever name the protocol table gives them.
var endpointOverrides = map[string]protocol.Endpoint{
	bledb.MustCanonicalUUID("1401"): protocol.Tx, // motor
	bledb.MustCanonicalUUID("1402"): protocol.Rx, // solenoid
}

// sessionEvent is the one-shot startup signal; a nil err means connected
type sessionEvent struct {
	err error
}

// session owns one device.Client. Only the loop goroutine and the tasks it
// spawns touch the client; everything else talks to it through commands.
type session struct {
	desc   Descriptor
	spec   *protocol.Specifier
	opts   Options
	logger *logrus.Logger

	client    device.Client
	endpoints map[protocol.Endpoint]device.CharacteristicHandle

	commands chan *Command
	events   *broadcaster

	ctx    context.Context
	cancel context.CancelFunc
	tasks  sync.WaitGroup
	done   chan struct{}

	// platform counts client calls still running, including ones whose
	// command already gave up on them
	platform sync.WaitGroup

	disconnected atomic.Bool

	handleMu    sync.RWMutex
	handles     int
	queueClosed bool
}

func newSession(ctx context.Context, desc Descriptor, spec *protocol.Specifier, opts Options, logger *logrus.Logger) *session {
	sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	return &session{
		desc:      desc,
		spec:      spec,
		opts:      opts,
		logger:    logger,
		endpoints: make(map[protocol.Endpoint]device.CharacteristicHandle),
		commands:  make(chan *Command, opts.CommandQueueSize),
		events:    newBroadcaster(opts.EventBufferSize, logger),
		ctx:       sctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		handles:   1,
	}
}

func (s *session) log() *logrus.Entry {
	return s.logger.WithFields(logrus.Fields{
		"address":  s.desc.Address,
		"protocol": s.spec.Name,
	})
}

// run performs startup, reports it on startup and then serves commands
// until the queue is closed. dialCtx bounds the connection attempt only.
func (s *session) run(dialCtx context.Context, startup chan<- sessionEvent) {
	defer close(s.done)

	client, err := s.dial(dialCtx)
	if err != nil {
		s.cancel()
		startup <- sessionEvent{err: err}
		return
	}
	s.client = client
	defer s.shutdown()

	s.resolveEndpoints()
	s.watchDisconnect()

	s.log().WithField("endpoints", len(s.endpoints)).Info("Session connected")
	startup <- sessionEvent{}

	for cmd := range s.commands {
		s.dispatch(cmd)
	}
	s.log().Debug("Command queue closed")
}

func (s *session) dial(ctx context.Context) (device.Client, error) {
	if s.opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.ConnectTimeout)
		defer cancel()
	}

	s.log().Info("Connecting to BLE device...")
	client, err := s.desc.Central.Dial(ctx, s.desc.Address)
	if err != nil {
		s.log().WithField("error", err).Error("Failed to connect")
		return nil, err
	}
	return client, nil
}

// resolveEndpoints builds the endpoint map. Services outside the
// advertised allowlist and resources the device lacks are skipped.
func (s *session) resolveEndpoints() {
	allowed := make(map[string]struct{}, len(s.desc.OptionalServices))
	for _, u := range s.desc.OptionalServices {
		allowed[u] = struct{}{}
	}
	overridden := make(map[protocol.Endpoint]bool)

	for _, svcUUID := range s.spec.Services() {
		logger := s.log().WithField("service_uuid", svcUUID)

		if len(allowed) > 0 {
			if _, ok := allowed[svcUUID]; !ok {
				logger.Warn("Service is not in the optional services allowlist, skipping")
				continue
			}
		}

		svc, err := s.client.DiscoverService(svcUUID)
		if err != nil {
			logger.WithField("error", err).Warn("Service not resolved, its endpoints are unavailable")
			continue
		}

		for _, b := range s.spec.Bindings(svcUUID) {
			charLogger := logger.WithFields(logrus.Fields{"endpoint": b.Endpoint, "char_uuid": b.UUID})

			ch, err := s.client.DiscoverCharacteristic(svc, b.UUID)
			if err != nil {
				charLogger.WithField("error", err).Warn("Characteristic not resolved, endpoint unavailable")
				continue
			}

			ep := b.Endpoint
			if override, ok := endpointOverrides[b.UUID]; ok {
				if override != ep {
					charLogger.WithField("override", override).Debug("Endpoint remapped by vendor override")
				}
				ep = override
				overridden[ep] = true
			} else if overridden[ep] {
				charLogger.Debug("Endpoint already bound by vendor override, keeping it")
				continue
			}

			s.endpoints[ep] = ch
			charLogger.WithField("endpoint", ep).Debug("Endpoint bound")
		}
	}
}

// watchDisconnect broadcasts exactly one disconnected event when the link drops
func (s *session) watchDisconnect() {
	dc := s.client.Disconnected()
	if dc == nil {
		s.log().Debug("Backend cannot report disconnection")
		return
	}

	s.tasks.Add(1)
	groutine.Go(s.ctx, "blink-disconnect-"+s.desc.Address, func(ctx context.Context) {
		defer s.tasks.Done()
		select {
		case <-dc:
			s.disconnected.Store(true)
			s.log().Warn("Device disconnected")
			s.events.publish(Event{Kind: EventDisconnected, DeviceID: s.desc.Address})
		case <-ctx.Done():
		}
	})
}

// dispatch hands cmd to its own task; the loop never waits on I/O
func (s *session) dispatch(cmd *Command) {
	s.tasks.Add(1)
	name := fmt.Sprintf("blink-%s-%s", cmd.Kind, cmd.Endpoint)
	groutine.GoRecover(s.ctx, name, func(ctx context.Context) {
		defer s.tasks.Done()
		s.execute(ctx, cmd)
	}, func(p *groutine.PanicError) {
		s.log().WithFields(logrus.Fields{
			"endpoint": cmd.Endpoint,
			"error":    p,
			"stack":    string(p.Stack),
		}).Error("Command task panicked")
		cmd.completion.resolve(nil, &device.CommunicationError{Op: cmd.Kind.String(), Endpoint: string(cmd.Endpoint), Err: p})
	})
}

func (s *session) execute(ctx context.Context, cmd *Command) {
	logger := s.log().WithFields(logrus.Fields{
		"command":  cmd.Kind.String(),
		"endpoint": cmd.Endpoint,
		"task":     groutine.GetName(ctx),
	})

	handle, ok := s.endpoints[cmd.Endpoint]
	if !ok {
		logger.Debug("Unknown endpoint")
		cmd.completion.resolve(nil, &device.NotFoundError{Resource: "endpoint", UUIDs: []string{string(cmd.Endpoint)}})
		return
	}
	if s.disconnected.Load() {
		cmd.completion.resolve(nil, errNotConnected(s.desc.Address))
		return
	}

	logger.Debug("Executing command")
	var (
		data []byte
		err  error
	)
	switch cmd.Kind {
	case CommandWrite:
		_, err = s.call(ctx, cmd, func() ([]byte, error) {
			return nil, s.client.WriteCharacteristic(handle, cmd.Data)
		})
	case CommandRead:
		data, err = s.call(ctx, cmd, func() ([]byte, error) {
			return s.client.ReadCharacteristic(handle)
		})
	case CommandSubscribe:
		_, err = s.call(ctx, cmd, func() ([]byte, error) {
			return nil, s.client.Subscribe(handle, s.notificationHandler(cmd.Endpoint))
		})
	case CommandUnsubscribe:
		_, err = s.call(ctx, cmd, func() ([]byte, error) {
			return nil, s.client.Unsubscribe(handle)
		})
	default:
		err = fmt.Errorf("unsupported command %s: %w", cmd.Kind, device.ErrUnsupported)
	}

	if err != nil {
		logger.WithField("error", err).Debug("Command failed")
		cmd.completion.resolve(nil, err)
		return
	}

	var reading *Reading
	if cmd.Kind == CommandRead {
		reading = &Reading{Endpoint: cmd.Endpoint, Data: append([]byte(nil), data...)}
	}
	cmd.completion.resolve(reading, nil)
}

// call runs one platform operation bounded by the session context and the
// operation timeout. Platform failures come back as CommunicationError.
// An operation that outlives its command keeps running and is waited for
// by shutdown before the link is released.
func (s *session) call(ctx context.Context, cmd *Command, op func() ([]byte, error)) ([]byte, error) {
	type outcome struct {
		data []byte
		err  error
	}
	result := make(chan outcome, 1)

	s.platform.Add(1)
	groutine.GoRecover(ctx, "blink-platform-"+cmd.Kind.String(), func(context.Context) {
		defer s.platform.Done()
		data, err := op()
		result <- outcome{data: data, err: err}
	}, func(p *groutine.PanicError) {
		result <- outcome{err: p}
	})

	var timeout <-chan time.Time
	if s.opts.OperationTimeout > 0 {
		timer := time.NewTimer(s.opts.OperationTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	commErr := func(err error) error {
		return &device.CommunicationError{Op: cmd.Kind.String(), Endpoint: string(cmd.Endpoint), Err: err}
	}

	select {
	case r := <-result:
		if r.err != nil {
			return nil, commErr(r.err)
		}
		return r.data, nil
	case <-ctx.Done():
		return nil, errSessionClosed(fmt.Sprintf("%s %s interrupted", cmd.Kind, cmd.Endpoint))
	case <-timeout:
		return nil, commErr(fmt.Errorf("no response after %s: %w", s.opts.OperationTimeout, device.ErrTimeout))
	}
}

// notificationHandler forwards value changes of ep onto the event stream.
// It runs on the platform callback, which delivers one characteristic's
// notifications in order.
func (s *session) notificationHandler(ep protocol.Endpoint) func([]byte) {
	return func(data []byte) {
		s.events.publish(Event{
			Kind:     EventNotification,
			DeviceID: s.desc.Address,
			Endpoint: ep,
			Data:     append([]byte(nil), data...),
		})
	}
}

// shutdown runs once the queue is closed: the event stream ends, pending
// tasks resolve with ErrSessionClosed, running platform calls are drained
// and the platform link is released.
func (s *session) shutdown() {
	s.events.close()
	s.cancel()
	s.tasks.Wait()
	s.drainPlatform()

	if err := s.client.CancelConnection(); err != nil {
		s.log().WithField("error", err).Warn("Failed to cancel connection")
	}
	s.log().Info("Session closed")
}

// drainPlatform waits for abandoned platform calls. The wait is bounded by
// OperationTimeout when one is set; a zero timeout waits for them to return.
func (s *session) drainPlatform() {
	drained := make(chan struct{})
	groutine.Go(s.ctx, "blink-drain-"+s.desc.Address, func(context.Context) {
		s.platform.Wait()
		close(drained)
	})

	var timeout <-chan time.Time
	if s.opts.OperationTimeout > 0 {
		timer := time.NewTimer(s.opts.OperationTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-drained:
	case <-timeout:
		s.log().WithField("timeout", s.opts.OperationTimeout).Warn("Platform call still running, releasing the link anyway")
	}
}

// submit enqueues cmd, blocking while the queue is full
func (s *session) submit(ctx context.Context, cmd *Command) error {
	s.handleMu.RLock()
	defer s.handleMu.RUnlock()

	if s.queueClosed {
		return errSessionClosed("session handles released")
	}
	select {
	case s.commands <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return errSessionClosed("session loop exited")
	}
}

// retain adds a handle; it fails once the queue has been closed
func (s *session) retain() bool {
	s.handleMu.Lock()
	defer s.handleMu.Unlock()
	if s.queueClosed {
		return false
	}
	s.handles++
	return true
}

// release drops one handle; the last one closes the command queue
func (s *session) release() {
	s.handleMu.Lock()
	defer s.handleMu.Unlock()
	s.handles--
	if s.handles == 0 && !s.queueClosed {
		s.queueClosed = true
		close(s.commands)
	}
}
