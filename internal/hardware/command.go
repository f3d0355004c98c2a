package hardware

import (
	"context"
	"fmt"
	"sync"

	"github.com/srg/blink/internal/protocol"
)

// CommandKind tags a Command
type CommandKind int

const (
	CommandWrite CommandKind = iota
	CommandRead
	CommandSubscribe
	CommandUnsubscribe
)

func (k CommandKind) String() string {
	switch k {
	case CommandWrite:
		return "write"
	case CommandRead:
		return "read"
	case CommandSubscribe:
		return "subscribe"
	case CommandUnsubscribe:
		return "unsubscribe"
	default:
		return fmt.Sprintf("command(%d)", int(k))
	}
}

// Reading is the result of a read: the requested endpoint and a private copy of the value
type Reading struct {
	Endpoint protocol.Endpoint
	Data     []byte
}

// Command is one operation addressed to the session loop.
// Data is only meaningful for writes.
type Command struct {
	Kind     CommandKind
	Endpoint protocol.Endpoint
	Data     []byte

	completion *Completion
}

func newCommand(kind CommandKind, ep protocol.Endpoint, data []byte) *Command {
	return &Command{Kind: kind, Endpoint: ep, Data: data, completion: newCompletion()}
}

// Completion receives exactly one result. Later resolutions are ignored.
type Completion struct {
	once sync.Once
	ch   chan completionResult
}

type completionResult struct {
	reading *Reading
	err     error
}

func newCompletion() *Completion {
	return &Completion{ch: make(chan completionResult, 1)}
}

// resolve stores the result and reports whether this call was the first
func (c *Completion) resolve(reading *Reading, err error) bool {
	first := false
	c.once.Do(func() {
		c.ch <- completionResult{reading: reading, err: err}
		first = true
	})
	return first
}

// wait blocks until the completion is resolved, ctx is done or loopDone is
// closed. A loop that exited without resolving yields ErrSessionClosed.
func (c *Completion) wait(ctx context.Context, loopDone <-chan struct{}) (*Reading, error) {
	select {
	case r := <-c.ch:
		return r.reading, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-loopDone:
		select {
		case r := <-c.ch:
			return r.reading, r.err
		default:
			return nil, errSessionClosed("session loop exited")
		}
	}
}
