package hardware

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/srg/blink/internal/protocol"
	"github.com/srg/blink/internal/ringchan"
)

// EventKind tags an Event
type EventKind int

const (
	EventDisconnected EventKind = iota
	EventNotification
)

func (k EventKind) String() string {
	switch k {
	case EventDisconnected:
		return "disconnected"
	case EventNotification:
		return "notification"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is broadcast to every Subscription of a session.
// Endpoint and Data are set for notifications only; Data is shared between
// subscribers and must not be modified.
type Event struct {
	Kind     EventKind
	DeviceID string
	Endpoint protocol.Endpoint
	Data     []byte
}

// Subscription is one independent consumer of a session's events. It only
// sees events published after it was created; when it falls behind the
// oldest buffered events are dropped.
type Subscription struct {
	ring *ringchan.RingChannel[Event]
	b    *broadcaster
}

// C returns the event channel. It is closed by Close or when the session ends.
func (s *Subscription) C() <-chan Event {
	return s.ring.C()
}

// Dropped returns how many events were overwritten before being received
func (s *Subscription) Dropped() int64 {
	return s.ring.GetMetrics().Overwritten
}

// Close detaches the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.b.remove(s)
}

// broadcaster fans events out to subscriptions without ever blocking the publisher
type broadcaster struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
	size   int
	logger *logrus.Logger
}

func newBroadcaster(size int, logger *logrus.Logger) *broadcaster {
	return &broadcaster{
		subs:   make(map[*Subscription]struct{}),
		size:   size,
		logger: logger,
	}
}

func (b *broadcaster) subscribe() *Subscription {
	sub := &Subscription{ring: ringchan.New[Event](b.size), b: b}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		sub.ring.Close()
		return sub
	}
	b.subs[sub] = struct{}{}
	return sub
}

// publish delivers ev to every subscription. Publishing after close is a no-op.
func (b *broadcaster) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for sub := range b.subs {
		if sub.ring.ForceSend(ev) {
			b.logger.WithFields(logrus.Fields{
				"device":   ev.DeviceID,
				"event":    ev.Kind.String(),
				"endpoint": ev.Endpoint,
			}).Warn("Event subscriber is falling behind, oldest event dropped")
		}
	}
}

func (b *broadcaster) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		sub.ring.Close()
	}
}

// close ends the stream: every subscription channel is closed
func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		sub.ring.Close()
	}
	b.subs = nil
}
