package hardware

import (
	"context"
	"sort"
	"sync/atomic"

	"github.com/srg/blink/internal/protocol"
)

// Hardware is a handle to one connected session. Handles are cheap: Clone
// makes another one, and the session shuts down when the last is closed.
// All methods are safe for concurrent use.
type Hardware struct {
	s      *session
	closed atomic.Bool
}

func newHardware(s *session) *Hardware {
	return &Hardware{s: s}
}

// Name returns the device name reported at discovery
func (h *Hardware) Name() string { return h.s.desc.Name }

// Address returns the device address, also used as the event DeviceID
func (h *Hardware) Address() string { return h.s.desc.Address }

// Specifier returns the protocol the session was specialised with
func (h *Hardware) Specifier() *protocol.Specifier { return h.s.spec }

// Endpoints returns the resolved endpoints, sorted by name
func (h *Hardware) Endpoints() []protocol.Endpoint {
	out := make([]protocol.Endpoint, 0, len(h.s.endpoints))
	for ep := range h.s.endpoints {
		out = append(out, ep)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Read returns the current value of ep
func (h *Hardware) Read(ctx context.Context, ep protocol.Endpoint) (*Reading, error) {
	return h.do(ctx, newCommand(CommandRead, ep, nil))
}

// Write sends data to ep. data is not retained after Write returns.
func (h *Hardware) Write(ctx context.Context, ep protocol.Endpoint, data []byte) error {
	_, err := h.do(ctx, newCommand(CommandWrite, ep, append([]byte(nil), data...)))
	return err
}

// Subscribe enables notifications on ep; they arrive on every EventStream
func (h *Hardware) Subscribe(ctx context.Context, ep protocol.Endpoint) error {
	_, err := h.do(ctx, newCommand(CommandSubscribe, ep, nil))
	return err
}

// Unsubscribe disables notifications on ep
func (h *Hardware) Unsubscribe(ctx context.Context, ep protocol.Endpoint) error {
	_, err := h.do(ctx, newCommand(CommandUnsubscribe, ep, nil))
	return err
}

// EventStream returns a new subscription to the session's events
func (h *Hardware) EventStream() *Subscription {
	return h.s.events.subscribe()
}

// Disconnect is a no-op: the link is released when the last handle is closed.
func (h *Hardware) Disconnect(ctx context.Context) error {
	h.s.log().Debug("Disconnect requested; link is released when every handle is closed")
	return nil
}

// Clone returns another handle to the same session
func (h *Hardware) Clone() *Hardware {
	clone := &Hardware{s: h.s}
	if h.closed.Load() || !h.s.retain() {
		clone.closed.Store(true)
	}
	return clone
}

// Close releases this handle. Closing twice is a no-op.
func (h *Hardware) Close() error {
	if h.closed.CompareAndSwap(false, true) {
		h.s.release()
	}
	return nil
}

// Done is closed once the session loop has exited
func (h *Hardware) Done() <-chan struct{} {
	return h.s.done
}

func (h *Hardware) do(ctx context.Context, cmd *Command) (*Reading, error) {
	if h.closed.Load() {
		return nil, errSessionClosed("hardware handle closed")
	}
	if err := h.s.submit(ctx, cmd); err != nil {
		return nil, err
	}
	return cmd.completion.wait(ctx, h.s.done)
}
