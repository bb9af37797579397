// Package debounce turns raw, bouncy switch samples into a stable stream of
// logical key events. It is pure logic with no hardware or OS dependencies;
// time always arrives as a parameter so tests control the clock.
package debounce

import (
	"time"

	"github.com/enokida/padbridge/internal/input"
	"github.com/enokida/padbridge/internal/keymap"
)

// Event is one debounced key edge.
type Event struct {
	Key     keymap.Key
	Pressed bool
	At      time.Time
}

// Counts tracks emitted edges since startup, for heartbeats and the status
// page.
type Counts struct {
	Presses  int
	Releases int
}

// channelState is the per-channel debounce window. A channel's stable value
// changes only after the pending value has persisted for the full interval.
type channelState struct {
	stable       bool
	pending      bool
	pendingSince time.Time
}

// Mapper debounces the bound physical channels and maps committed edges to
// logical keys. All channels start released; a button held at startup
// commits its first press once the interval elapses.
type Mapper struct {
	interval time.Duration
	km       *keymap.Map
	states   [input.MaxChannels]channelState
	pressed  keymap.Set
	scratch  uint8
	counts   Counts
}

// NewMapper creates a Mapper over the given keymap. An interval of zero
// disables debouncing: every raw edge commits on the tick it is sampled.
func NewMapper(km *keymap.Map, interval time.Duration) *Mapper {
	return &Mapper{interval: interval, km: km}
}

// Update feeds one raw sample. It returns the edges committed on this tick,
// ordered by channel index so identical input sequences always produce
// identical event sequences. The scratch axis is continuous and passes
// through undebounced.
func (m *Mapper) Update(raw input.State, now time.Time) []Event {
	var events []Event
	for _, ch := range m.km.Channels() {
		s := &m.states[ch]
		v := raw.Channel(ch)

		if v != s.pending {
			s.pending = v
			s.pendingSince = now
		}
		if s.pending == s.stable {
			continue
		}
		if now.Sub(s.pendingSince) < m.interval {
			continue
		}

		s.stable = s.pending
		key, _ := m.km.Lookup(ch)
		if s.stable {
			m.pressed = m.pressed.Add(key)
			m.counts.Presses++
		} else {
			m.pressed = m.pressed.Remove(key)
			m.counts.Releases++
		}
		events = append(events, Event{Key: key, Pressed: s.stable, At: now})
	}

	m.scratch = raw.Scratch
	return events
}

// Pressed returns the committed pressed-key set.
func (m *Mapper) Pressed() keymap.Set {
	return m.pressed
}

// Scratch returns the most recently sampled scratch axis position.
func (m *Mapper) Scratch() uint8 {
	return m.scratch
}

// Counts returns the edge totals since startup.
func (m *Mapper) Counts() Counts {
	return m.counts
}
