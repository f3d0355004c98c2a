package protocol

import (
	"fmt"
	"strings"
)

// Endpoint is a logical channel name a caller addresses, independent of the
// characteristic backing it on a particular device. The set is open: catalogs
// may bind any device-specific name.
type Endpoint string

// Well-known endpoints
const (
	Tx           Endpoint = "tx"
	Rx           Endpoint = "rx"
	Command      Endpoint = "command"
	Firmware     Endpoint = "firmware"
	TxMode       Endpoint = "txmode"
	TxVibrate    Endpoint = "txvibrate"
	RxBLEBattery Endpoint = "rxblebattery"
)

// ParseEndpoint lower-cases and trims name. Empty names are rejected.
func ParseEndpoint(name string) (Endpoint, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return "", fmt.Errorf("endpoint name cannot be empty")
	}
	return Endpoint(n), nil
}

func (e Endpoint) String() string {
	return string(e)
}
