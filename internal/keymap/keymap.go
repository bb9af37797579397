// Package keymap defines the logical key space of the controller and the
// static mapping from physical input channels to logical keys. The mapping is
// built once at startup and read-only afterwards.
package keymap

import (
	"fmt"
	"math/bits"
	"sort"
	"strings"

	"github.com/enokida/padbridge/internal/input"
)

// Key identifies one logical controller key.
type Key uint8

// The seven play keys and the four option buttons. Key ids double as bit
// positions in Set and as the priority order for report truncation (lower
// id = higher priority, so option buttons are shed before play keys).
const (
	KeyB1 Key = iota
	KeyB2
	KeyB3
	KeyB4
	KeyB5
	KeyB6
	KeyB7
	KeyE1
	KeyE2
	KeyE3
	KeyE4

	// KeyCount is the size of the logical key space.
	KeyCount = 11
)

var keyNames = [KeyCount]string{
	"B1", "B2", "B3", "B4", "B5", "B6", "B7",
	"E1", "E2", "E3", "E4",
}

func (k Key) String() string {
	if int(k) < len(keyNames) {
		return keyNames[k]
	}
	return fmt.Sprintf("Key(%d)", uint8(k))
}

// ParseKey converts a config-file key name ("B1".."B7", "E1".."E4",
// case-insensitive) into a Key.
func ParseKey(name string) (Key, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for i, n := range keyNames {
		if n == upper {
			return Key(i), nil
		}
	}
	return 0, fmt.Errorf("keymap: unknown key %q", name)
}

// Set is a pressed-key set, one bit per Key id.
type Set uint16

// Add returns s with k included.
func (s Set) Add(k Key) Set { return s | 1<<k }

// Remove returns s without k.
func (s Set) Remove(k Key) Set { return s &^ (1 << k) }

// Has reports whether k is in the set.
func (s Set) Has(k Key) bool { return s&(1<<k) != 0 }

// Count returns the number of pressed keys.
func (s Set) Count() int { return bits.OnesCount16(uint16(s)) }

// Keys returns the members of the set in ascending id order.
func (s Set) Keys() []Key {
	keys := make([]Key, 0, s.Count())
	for k := Key(0); k < KeyCount; k++ {
		if s.Has(k) {
			keys = append(keys, k)
		}
	}
	return keys
}

// Lowest returns a copy of s truncated to its n lowest key ids.
func (s Set) Lowest(n int) Set {
	var out Set
	for k := Key(0); k < KeyCount && n > 0; k++ {
		if s.Has(k) {
			out = out.Add(k)
			n--
		}
	}
	return out
}

func (s Set) String() string {
	if s == 0 {
		return "none"
	}
	names := make([]string, 0, s.Count())
	for _, k := range s.Keys() {
		names = append(names, k.String())
	}
	return strings.Join(names, "+")
}

// Map is the immutable physical-channel to logical-key mapping. Channels
// are addressed by the sample bitmask position, [0, input.MaxChannels).
type Map struct {
	byChannel [input.MaxChannels]Key
	mapped    [input.MaxChannels]bool
	channels  []int
}

// New builds a Map from channel->key bindings. Every channel must be within
// [0, input.MaxChannels) and no two channels may share a key.
func New(bindings map[int]Key) (*Map, error) {
	if len(bindings) == 0 {
		return nil, fmt.Errorf("keymap: no bindings")
	}
	m := &Map{}
	var taken [KeyCount]bool
	for ch, key := range bindings {
		if ch < 0 || ch >= input.MaxChannels {
			return nil, fmt.Errorf("keymap: channel %d out of range [0,%d)", ch, input.MaxChannels)
		}
		if key >= KeyCount {
			return nil, fmt.Errorf("keymap: channel %d bound to unknown key %d", ch, key)
		}
		if taken[key] {
			return nil, fmt.Errorf("keymap: key %s bound twice", key)
		}
		taken[key] = true
		m.byChannel[ch] = key
		m.mapped[ch] = true
		m.channels = append(m.channels, ch)
	}
	sort.Ints(m.channels)
	return m, nil
}

// DefaultBindings returns the entry-model channel bindings: channels 0..6
// are the play keys B1..B7, channels 8..11 are the option buttons E1..E4.
// Channel 7 is intentionally unbound (the stock controller reports nothing
// there).
func DefaultBindings() map[int]Key {
	return map[int]Key{
		0: KeyB1, 1: KeyB2, 2: KeyB3, 3: KeyB4, 4: KeyB5, 5: KeyB6, 6: KeyB7,
		8: KeyE1, 9: KeyE2, 10: KeyE3, 11: KeyE4,
	}
}

// Default returns the entry-model controller layout.
func Default() *Map {
	m, err := New(DefaultBindings())
	if err != nil {
		panic(err) // static table, cannot fail
	}
	return m
}

// Lookup returns the key bound to channel, if any.
func (m *Map) Lookup(channel int) (Key, bool) {
	if channel < 0 || channel >= input.MaxChannels || !m.mapped[channel] {
		return 0, false
	}
	return m.byChannel[channel], true
}

// Channels returns the bound channel indexes in ascending order. The slice
// is shared; callers must not modify it.
func (m *Map) Channels() []int {
	return m.channels
}
