// Package device defines the platform boundary of the engine: the narrow
// Central/Client view of a BLE stack that sessions are built on, and the
// error taxonomy every layer above reports with.
//
// The interfaces are small:
//   - Central scans for advertisements and dials peripherals
//   - Client resolves services and characteristics on a live connection
//   - Client performs characteristic read, write, subscribe and unsubscribe
//   - Client signals disconnection over a channel
//
// The go-ble backed implementation lives in the go-ble subpackage.
package device
