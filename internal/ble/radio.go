// Package ble provides the radio capability the session manager drives: one
// GATT input service on a BLE peripheral, with advertising control and
// report notification. The real backend wraps tinygo.org/x/bluetooth (BlueZ
// on the target board); FakeRadio is the scripted double used in tests.
package ble

import (
	"errors"
	"time"
)

// 16-bit vendor UUIDs of the input service, matching the stock firmware.
const (
	ServiceUUID        = 0xFF00
	ReportCharUUID     = 0xFF01 // input reports, notify
	DescriptorCharUUID = 0xFF02 // HID report descriptor blob, read
	ControlCharUUID    = 0xFF03 // peer configuration writes
)

// ErrNotEnabled is returned by radio operations before Enable succeeds.
var ErrNotEnabled = errors.New("ble: radio not enabled")

// Peer identifies the connected central.
type Peer struct {
	Addr string
}

// Events are the radio callbacks. They arrive on the backend's goroutine;
// handlers must be quick and must not call back into the Radio.
type Events struct {
	// OnConnect fires when a central connects.
	OnConnect func(p Peer)
	// OnDisconnect fires when the central drops, for any reason.
	OnDisconnect func(p Peer)
	// OnSecured fires when the link is paired; bonded reports whether the
	// peer holds persistent keys.
	OnSecured func(p Peer, bonded bool)
	// OnSubscribe fires when the peer enables or disables report
	// notifications.
	OnSubscribe func(p Peer, enabled bool)
	// OnWrite fires when the peer writes the control characteristic.
	OnWrite func(p Peer, value []byte)
}

// Config carries the GATT surface parameters.
type Config struct {
	// DeviceName is the advertised local name.
	DeviceName string
	// AdvertisingInterval is the broadcast interval.
	AdvertisingInterval time.Duration
	// Descriptor is the report descriptor blob served read-only.
	Descriptor []byte
}

// Radio is the capability interface over the BLE stack.
type Radio interface {
	// Enable powers the adapter, registers the GATT service, and installs
	// the event handlers. It must be called exactly once, before any other
	// method.
	Enable(cfg Config, ev Events) error

	// Advertise starts or stops peripheral advertising.
	Advertise(enabled bool) error

	// Notify pushes a report payload to the subscribed peer.
	Notify(payload []byte) error

	// Close stops advertising and releases the adapter.
	Close() error
}
