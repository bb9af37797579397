//go:build !linux

package ble

import "errors"

// Agent requires BlueZ, so it only exists on Linux.
type Agent struct{}

// RegisterAgent returns an error on non-Linux platforms.
func RegisterAgent() (*Agent, error) {
	return nil, errors.New("ble: pairing agent requires linux")
}

func (a *Agent) Close() error { return nil }
