package hardware

import (
	"time"

	"github.com/mcuadros/go-defaults"
)

// Options tunes one session. Zero sizes fall back to their defaults; a zero
// timeout disables that bound.
type Options struct {
	// ConnectTimeout bounds the platform dial
	ConnectTimeout time.Duration `default:"30s"`
	// OperationTimeout bounds every read, write, subscribe and unsubscribe
	OperationTimeout time.Duration `default:"30s"`
	// CommandQueueSize is the capacity of the command queue; producers block when it is full
	CommandQueueSize int `default:"256"`
	// EventBufferSize is the per-subscriber ring capacity of the event stream
	EventBufferSize int `default:"256"`
}

// DefaultOptions returns Options with every field at its default
func DefaultOptions() *Options {
	opts := &Options{}
	defaults.SetDefaults(opts)
	return opts
}

func (o *Options) normalized() Options {
	if o == nil {
		return *DefaultOptions()
	}
	out := *o
	d := DefaultOptions()
	if out.CommandQueueSize <= 0 {
		out.CommandQueueSize = d.CommandQueueSize
	}
	if out.EventBufferSize <= 0 {
		out.EventBufferSize = d.EventBufferSize
	}
	return out
}
