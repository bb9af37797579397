// Package input abstracts the physical controller. A Source is polled once
// per tick and must never block on hardware: drivers that read from a device
// stream do so on their own goroutine and publish the latest state here.
//
// The real drivers are the Linux joystick device and raw GPIO lines; a
// keyboard driver exists for bench work on a desktop, and Fake is the
// scripted source used by tests.
package input

import "errors"

// MaxChannels is the number of physical channels a Source can report,
// matching the width of State.Buttons.
const MaxChannels = 16

// ErrDeviceUnavailable marks a recoverable device failure. Sample still
// returns the last known state alongside it; drivers keep retrying in the
// background and clear the error once the device is back.
var ErrDeviceUnavailable = errors.New("input: device unavailable")

// State is one raw controller sample. Bit i of Buttons is physical channel
// i; Scratch is the turntable position, already converted to the doubled
// 0..254 range the report carries.
type State struct {
	Buttons uint16
	Scratch uint8
}

// Channel reports whether physical channel i is active.
func (s State) Channel(i int) bool {
	if i < 0 || i >= MaxChannels {
		return false
	}
	return s.Buttons&(1<<i) != 0
}

// Source is a polled controller driver.
type Source interface {
	// Sample returns the current raw state. It must not block on the
	// device. On device failure it returns the last known state together
	// with an error wrapping ErrDeviceUnavailable.
	Sample() (State, error)

	// Close releases the device.
	Close() error
}

// LampControl is implemented by sources with a controllable lamp output.
// Peer configuration writes latch it; sources without one are simply never
// asked.
type LampControl interface {
	SetLamp(on bool) error
}
