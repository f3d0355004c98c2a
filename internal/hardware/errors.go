package hardware

import (
	"errors"

	"github.com/srg/blink/internal/device"
)

// ErrConnectorConsumed is returned when a Connector or Specializer is used twice
var ErrConnectorConsumed = errors.New("connector already consumed")

func errSessionClosed(msg string) error {
	return &device.ConnectionError{State: device.SessionClosed, Msg: msg}
}

func errNotConnected(address string) error {
	return &device.ConnectionError{State: device.NotConnected, Msg: "device " + address + " disconnected"}
}
