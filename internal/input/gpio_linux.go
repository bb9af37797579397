//go:build linux

package input

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

// GPIO reads buttons wired straight to GPIO lines, one line per channel.
// Lines are requested as inputs with pull-up; a pressed button shorts the
// line to ground, so raw 0 = pressed. An optional lamp line is driven by
// peer configuration writes.
type GPIO struct {
	chip *gpiocdev.Chip
	keys []*gpiocdev.Line

	mu   sync.Mutex
	last State
	lamp *gpiocdev.Line
}

// OpenGPIO requests keyPins in channel order on the named chip. lampPin < 0
// means no lamp output.
func OpenGPIO(chipName string, keyPins []int, lampPin int) (*GPIO, error) {
	if len(keyPins) == 0 {
		return nil, fmt.Errorf("input: gpio: no key pins configured")
	}
	if len(keyPins) > MaxChannels {
		return nil, fmt.Errorf("input: gpio: %d key pins, at most %d supported", len(keyPins), MaxChannels)
	}

	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("input: open gpio chip %s: %w", chipName, err)
	}

	g := &GPIO{chip: chip}
	for i, pin := range keyPins {
		line, err := chip.RequestLine(pin, gpiocdev.AsInput, gpiocdev.WithPullUp)
		if err != nil {
			g.Close()
			return nil, fmt.Errorf("input: request key pin %d (channel %d): %w", pin, i, err)
		}
		g.keys = append(g.keys, line)
	}

	if lampPin >= 0 {
		line, err := chip.RequestLine(lampPin, gpiocdev.AsOutput(0))
		if err != nil {
			g.Close()
			return nil, fmt.Errorf("input: request lamp pin %d: %w", lampPin, err)
		}
		g.lamp = line
	}

	return g, nil
}

func (g *GPIO) Sample() (State, error) {
	var s State
	for i, line := range g.keys {
		raw, err := line.Value()
		if err != nil {
			g.mu.Lock()
			last := g.last
			g.mu.Unlock()
			return last, fmt.Errorf("input: read channel %d: %v: %w", i, err, ErrDeviceUnavailable)
		}
		// Pull-up wiring: raw 0 = pressed.
		if raw == 0 {
			s.Buttons |= 1 << i
		}
	}

	g.mu.Lock()
	g.last = s
	g.mu.Unlock()
	return s, nil
}

// SetLamp drives the lamp line. A no-op when no lamp pin is configured.
func (g *GPIO) SetLamp(on bool) error {
	if g.lamp == nil {
		return nil
	}
	v := 0
	if on {
		v = 1
	}
	if err := g.lamp.SetValue(v); err != nil {
		return fmt.Errorf("input: set lamp: %w", err)
	}
	return nil
}

// Close releases all requested lines and the chip.
func (g *GPIO) Close() error {
	var errs []error
	for i, line := range g.keys {
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close channel %d: %w", i, err))
		}
	}
	if g.lamp != nil {
		// Leave the lamp off for the next boot.
		if err := g.lamp.Reconfigure(gpiocdev.AsInput); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure lamp: %w", err))
		}
		if err := g.lamp.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close lamp: %w", err))
		}
	}
	if g.chip != nil {
		if err := g.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("input: gpio close: %v", errs)
	}
	return nil
}

var (
	_ Source      = (*GPIO)(nil)
	_ LampControl = (*GPIO)(nil)
)
