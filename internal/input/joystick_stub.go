//go:build !linux

package input

import "errors"

// Joystick is only available on Linux (the joystick character device is a
// Linux kernel interface).
type Joystick struct{}

// OpenJoystick returns an error on non-Linux platforms.
func OpenJoystick(path string) (*Joystick, error) {
	return nil, errors.New("input: joystick requires linux")
}

func (j *Joystick) Sample() (State, error) {
	return State{}, errors.New("input: joystick not supported")
}

func (j *Joystick) Close() error { return nil }
