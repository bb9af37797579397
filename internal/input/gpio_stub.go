//go:build !linux

package input

import "errors"

// GPIO is only available on Linux (gpiocdev drives the character device).
type GPIO struct{}

// OpenGPIO returns an error on non-Linux platforms.
func OpenGPIO(chipName string, keyPins []int, lampPin int) (*GPIO, error) {
	return nil, errors.New("input: gpio requires linux")
}

func (g *GPIO) Sample() (State, error) {
	return State{}, errors.New("input: gpio not supported")
}

func (g *GPIO) SetLamp(on bool) error { return nil }

func (g *GPIO) Close() error { return nil }
