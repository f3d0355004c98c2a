package device

import (
	"errors"
	"fmt"
	"strings"
)

// NotFoundError represents an error when a BLE resource or a logical endpoint is not found
type NotFoundError struct {
	Resource string   // "service", "characteristic", "endpoint"
	UUIDs    []string // One or more identifiers (e.g., [serviceUUID] or [serviceUUID, charUUID])
}

func (e *NotFoundError) Error() string {
	if len(e.UUIDs) == 0 {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	if len(e.UUIDs) == 1 {
		return fmt.Sprintf("%s %q not found", e.Resource, e.UUIDs[0])
	}
	// characteristic is in service
	return fmt.Sprintf("%s %q not found in service %q", e.Resource, e.UUIDs[len(e.UUIDs)-1], e.UUIDs[0])
}

// Is makes errors.Is(err, ErrUnknownEndpoint) match endpoint lookups
func (e *NotFoundError) Is(target error) bool {
	return target == ErrUnknownEndpoint && e.Resource == "endpoint"
}

// ErrUnknownEndpoint matches a NotFoundError raised for an endpoint absent from the session map
var ErrUnknownEndpoint = errors.New("unknown endpoint")

// ConnectionState represents the specific kind of connection state failure
type ConnectionState string

const (
	NotConnected     ConnectionState = "not_connected"
	ConnectionFailed ConnectionState = "connection_failed"
	SessionClosed    ConnectionState = "session_closed"
)

// ConnectionError represents any connection-related problem
type ConnectionError struct {
	State ConnectionState
	Msg   string
	Err   error
}

// Error implements the error interface
func (e *ConnectionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := string(e.State)
	if e.Msg != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes the platform cause
func (e *ConnectionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is allows errors.Is to compare ConnectionError values by State
func (e *ConnectionError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*ConnectionError)
	if !ok {
		return false
	}
	return e.State == t.State
}

// Predefined sentinel errors for connection states
var (
	ErrNotConnected     = &ConnectionError{State: NotConnected}
	ErrConnectionFailed = &ConnectionError{State: ConnectionFailed}
	ErrSessionClosed    = &ConnectionError{State: SessionClosed}
)

// Platform and operation errors
var (
	ErrCapabilityUnavailable = errors.New("bluetooth capability unavailable")
	ErrBluetoothOff          = fmt.Errorf("bluetooth is turned off: %w", ErrCapabilityUnavailable)
	ErrTimeout               = errors.New("timeout")
	ErrUnsupported           = errors.New("unsupported")
)

// CommunicationError is a platform failure of one read/write/subscribe/unsubscribe
type CommunicationError struct {
	Op       string
	Endpoint string
	Err      error
}

func (e *CommunicationError) Error() string {
	return fmt.Sprintf("failed to %s endpoint %q: %v", e.Op, e.Endpoint, e.Err)
}

func (e *CommunicationError) Unwrap() error {
	return e.Err
}

// IsConnectionState reports whether err is a ConnectionError with the given state
func IsConnectionState(err error, state ConnectionState) bool {
	var cerr *ConnectionError
	if errors.As(err, &cerr) {
		return cerr.State == state
	}
	return false
}

// ContainsIgnoreCase checks substring case-insensitively
func ContainsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
