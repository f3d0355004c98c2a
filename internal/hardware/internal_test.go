package hardware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/blink/internal/device"
)

func TestCompletionResolvesOnce(t *testing.T) {
	c := newCompletion()
	first := errors.New("first")

	assert.True(t, c.resolve(nil, first), "first resolution MUST win")
	assert.False(t, c.resolve(&Reading{Endpoint: "rx"}, nil), "second resolution MUST be ignored")

	reading, err := c.wait(context.Background(), nil)
	assert.Nil(t, reading)
	assert.Same(t, first, err)
}

func TestCompletionWaitAfterLoopExit(t *testing.T) {
	done := make(chan struct{})
	close(done)

	_, err := newCompletion().wait(context.Background(), done)
	assert.ErrorIs(t, err, device.ErrSessionClosed, "unresolved completion MUST fail once the loop is gone")

	resolved := newCompletion()
	resolved.resolve(&Reading{Endpoint: "rx", Data: []byte{1}}, nil)
	reading, err := resolved.wait(context.Background(), done)
	require.NoError(t, err, "a result delivered before exit MUST still be returned")
	assert.Equal(t, []byte{1}, reading.Data)
}

func TestCompletionWaitHonoursContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := newCompletion().wait(ctx, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBroadcasterIsLossy(t *testing.T) {
	b := newBroadcaster(2, logrus.New())
	slow := b.subscribe()
	defer slow.Close()

	for i := byte(1); i <= 4; i++ {
		b.publish(Event{Kind: EventNotification, Endpoint: "rx", Data: []byte{i}})
	}

	assert.Equal(t, int64(2), slow.Dropped(), "oldest events MUST be overwritten")
	assert.Equal(t, []byte{3}, (<-slow.C()).Data)
	assert.Equal(t, []byte{4}, (<-slow.C()).Data)
}

func TestBroadcasterClose(t *testing.T) {
	b := newBroadcaster(4, logrus.New())
	sub := b.subscribe()

	b.close()
	b.close()
	b.publish(Event{Kind: EventDisconnected})

	_, ok := <-sub.C()
	assert.False(t, ok, "close MUST close every subscription")
	sub.Close()
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, 30*time.Second, opts.ConnectTimeout)
	assert.Equal(t, 30*time.Second, opts.OperationTimeout)
	assert.Equal(t, 256, opts.CommandQueueSize)
	assert.Equal(t, 256, opts.EventBufferSize)

	var nilOpts *Options
	assert.Equal(t, *opts, nilOpts.normalized())

	custom := (&Options{OperationTimeout: time.Second}).normalized()
	assert.Equal(t, time.Second, custom.OperationTimeout)
	assert.Zero(t, custom.ConnectTimeout, "explicit zero timeout MUST be kept")
	assert.Equal(t, 256, custom.CommandQueueSize)
}

func TestCommandKindString(t *testing.T) {
	assert.Equal(t, "write", CommandWrite.String())
	assert.Equal(t, "unsubscribe", CommandUnsubscribe.String())
	assert.Equal(t, "command(9)", CommandKind(9).String())
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "disconnected", EventDisconnected.String())
	assert.Equal(t, "notification", EventNotification.String())
	assert.Equal(t, "event(7)", EventKind(7).String(), "invalid kinds MUST NOT read as notifications")
}
