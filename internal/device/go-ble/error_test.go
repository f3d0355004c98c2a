package goble

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/srg/blink/internal/device"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeError(t *testing.T) {
	// GOAL: Verify platform error strings are folded into the device error taxonomy
	//
	// TEST SCENARIO: raw go-ble errors → sentinel in chain → original text preserved

	tests := []struct {
		name          string
		err           error
		expectIsError error
	}{
		{
			name:          "darwin Bluetooth off",
			err:           errors.New("central manager has invalid state: have=4 want=5: is Bluetooth turned on?"),
			expectIsError: device.ErrBluetoothOff,
		},
		{
			name:          "generic Bluetooth off is a capability failure",
			err:           errors.New("Bluetooth is turned off"),
			expectIsError: device.ErrCapabilityUnavailable,
		},
		{
			name:          "linux without HCI",
			err:           errors.New("can't init hci: no devices available"),
			expectIsError: device.ErrCapabilityUnavailable,
		},
		{
			name:          "disconnected peripheral",
			err:           errors.New("peripheral disconnected"),
			expectIsError: device.ErrNotConnected,
		},
		{
			name:          "ATT timeout",
			err:           errors.New("ATT request timed out"),
			expectIsError: device.ErrTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			normalized := NormalizeError(tt.err)
			assert.ErrorIs(t, normalized, tt.expectIsError, "error chain MUST contain expected sentinel error")
			assert.Contains(t, normalized.Error(), tt.err.Error(), "original message MUST be preserved")
		})
	}

	t.Run("passes through context errors and unknown errors", func(t *testing.T) {
		assert.Nil(t, NormalizeError(nil))
		assert.Same(t, context.Canceled, NormalizeError(context.Canceled))

		wrapped := fmt.Errorf("scan: %w", context.DeadlineExceeded)
		assert.Equal(t, wrapped, NormalizeError(wrapped))

		other := errors.New("some other error")
		assert.Equal(t, other, NormalizeError(other))
	})
}
