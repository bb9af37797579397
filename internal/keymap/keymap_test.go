package keymap

import (
	"testing"

	"github.com/enokida/padbridge/internal/input"
)

func TestParseKey(t *testing.T) {
	tests := []struct {
		in      string
		want    Key
		wantErr bool
	}{
		{"B1", KeyB1, false},
		{"b7", KeyB7, false},
		{" e1 ", KeyE1, false},
		{"E4", KeyE4, false},
		{"B8", 0, true},
		{"", 0, true},
		{"scratch", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseKey(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseKey(%q): expected error, got %v", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseKey(%q): unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseKey(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetOperations(t *testing.T) {
	var s Set
	s = s.Add(KeyB1).Add(KeyB7).Add(KeyE2)

	if !s.Has(KeyB1) || !s.Has(KeyB7) || !s.Has(KeyE2) {
		t.Errorf("set missing added keys: %v", s)
	}
	if s.Has(KeyB2) {
		t.Errorf("set contains key that was never added: %v", s)
	}
	if s.Count() != 3 {
		t.Errorf("Count() = %d, want 3", s.Count())
	}

	s = s.Remove(KeyB7)
	if s.Has(KeyB7) {
		t.Errorf("KeyB7 still present after Remove")
	}
	if s.Count() != 2 {
		t.Errorf("Count() after remove = %d, want 2", s.Count())
	}
}

func TestSetKeysAscending(t *testing.T) {
	var s Set
	s = s.Add(KeyE4).Add(KeyB3).Add(KeyB1)

	keys := s.Keys()
	want := []Key{KeyB1, KeyB3, KeyE4}
	if len(keys) != len(want) {
		t.Fatalf("Keys() = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("Keys()[%d] = %v, want %v", i, keys[i], want[i])
		}
	}
}

func TestSetLowest(t *testing.T) {
	var s Set
	for k := Key(0); k < KeyCount; k++ {
		s = s.Add(k)
	}

	got := s.Lowest(7)
	if got.Count() != 7 {
		t.Fatalf("Lowest(7).Count() = %d, want 7", got.Count())
	}
	for k := Key(0); k < 7; k++ {
		if !got.Has(k) {
			t.Errorf("Lowest(7) missing %v", k)
		}
	}
	for k := Key(7); k < KeyCount; k++ {
		if got.Has(k) {
			t.Errorf("Lowest(7) kept %v, want it dropped", k)
		}
	}
}

func TestSetString(t *testing.T) {
	var s Set
	if s.String() != "none" {
		t.Errorf("empty set String() = %q, want %q", s.String(), "none")
	}
	s = s.Add(KeyB1).Add(KeyE1)
	if s.String() != "B1+E1" {
		t.Errorf("String() = %q, want %q", s.String(), "B1+E1")
	}
}

func TestDefaultMap(t *testing.T) {
	m := Default()

	tests := []struct {
		channel int
		want    Key
		bound   bool
	}{
		{0, KeyB1, true},
		{6, KeyB7, true},
		{7, 0, false}, // stock controller has no channel 7
		{8, KeyE1, true},
		{11, KeyE4, true},
		{12, 0, false},
	}
	for _, tt := range tests {
		got, ok := m.Lookup(tt.channel)
		if ok != tt.bound {
			t.Errorf("Lookup(%d): bound = %v, want %v", tt.channel, ok, tt.bound)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("Lookup(%d) = %v, want %v", tt.channel, got, tt.want)
		}
	}

	chans := m.Channels()
	if len(chans) != 11 {
		t.Errorf("Channels() has %d entries, want 11", len(chans))
	}
	for i := 1; i < len(chans); i++ {
		if chans[i] <= chans[i-1] {
			t.Errorf("Channels() not ascending: %v", chans)
		}
	}
}

func TestNewMapRejectsBadBindings(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("New(nil): expected error")
	}
	if _, err := New(map[int]Key{-1: KeyB1}); err == nil {
		t.Error("negative channel: expected error")
	}
	if _, err := New(map[int]Key{input.MaxChannels: KeyB1}); err == nil {
		t.Error("channel out of range: expected error")
	}
	if _, err := New(map[int]Key{0: KeyCount}); err == nil {
		t.Error("unknown key: expected error")
	}
	if _, err := New(map[int]Key{0: KeyB1, 1: KeyB1}); err == nil {
		t.Error("duplicate key target: expected error")
	}
}

func TestLookupOutOfRange(t *testing.T) {
	m := Default()
	if _, ok := m.Lookup(-1); ok {
		t.Error("Lookup(-1) reported bound")
	}
	if _, ok := m.Lookup(input.MaxChannels); ok {
		t.Error("Lookup(input.MaxChannels) reported bound")
	}
}
