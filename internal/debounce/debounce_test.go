package debounce

import (
	"testing"
	"time"

	"github.com/enokida/padbridge/internal/input"
	"github.com/enokida/padbridge/internal/keymap"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func press(channels ...int) input.State {
	var s input.State
	for _, ch := range channels {
		s.Buttons |= 1 << ch
	}
	return s
}

func newTestMapper(t *testing.T, interval time.Duration) *Mapper {
	t.Helper()
	return NewMapper(keymap.Default(), interval)
}

func TestBounceShorterThanIntervalSuppressed(t *testing.T) {
	m := newTestMapper(t, 10*time.Millisecond)

	events := m.Update(press(0), base)
	events = append(events, m.Update(press(), base.Add(5*time.Millisecond))...)
	events = append(events, m.Update(press(), base.Add(15*time.Millisecond))...)

	if len(events) != 0 {
		t.Fatalf("bounce produced %d events, want 0: %v", len(events), events)
	}
	if m.Pressed() != 0 {
		t.Errorf("pressed set = %v, want empty", m.Pressed())
	}
}

func TestHeldPressCommitsOnce(t *testing.T) {
	m := newTestMapper(t, 10*time.Millisecond)

	if ev := m.Update(press(0), base); len(ev) != 0 {
		t.Fatalf("press committed before interval: %v", ev)
	}
	ev := m.Update(press(0), base.Add(10*time.Millisecond))
	if len(ev) != 1 {
		t.Fatalf("got %d events, want 1: %v", len(ev), ev)
	}
	if ev[0].Key != keymap.KeyB1 || !ev[0].Pressed {
		t.Errorf("event = %+v, want Pressed(B1)", ev[0])
	}
	if !ev[0].At.Equal(base.Add(10 * time.Millisecond)) {
		t.Errorf("event at %v, want %v", ev[0].At, base.Add(10*time.Millisecond))
	}

	// Holding longer emits nothing further.
	if ev := m.Update(press(0), base.Add(20*time.Millisecond)); len(ev) != 0 {
		t.Errorf("hold re-emitted: %v", ev)
	}
	if !m.Pressed().Has(keymap.KeyB1) {
		t.Errorf("pressed set missing B1: %v", m.Pressed())
	}
}

func TestReleaseDebouncedLikePress(t *testing.T) {
	m := newTestMapper(t, 10*time.Millisecond)

	m.Update(press(0), base)
	m.Update(press(0), base.Add(10*time.Millisecond))

	// Release flaps once, then settles.
	if ev := m.Update(press(), base.Add(12*time.Millisecond)); len(ev) != 0 {
		t.Fatalf("release committed early: %v", ev)
	}
	if ev := m.Update(press(0), base.Add(14*time.Millisecond)); len(ev) != 0 {
		t.Fatalf("flap back committed: %v", ev)
	}
	m.Update(press(), base.Add(16*time.Millisecond))
	ev := m.Update(press(), base.Add(26*time.Millisecond))
	if len(ev) != 1 || ev[0].Pressed || ev[0].Key != keymap.KeyB1 {
		t.Fatalf("got %v, want single Released(B1)", ev)
	}
	if m.Pressed().Has(keymap.KeyB1) {
		t.Errorf("pressed set still has B1 after release")
	}
}

func TestFlapRestartsWindow(t *testing.T) {
	m := newTestMapper(t, 10*time.Millisecond)

	m.Update(press(0), base)
	// Raw value changes at 8ms, restarting the window.
	m.Update(press(), base.Add(8*time.Millisecond))
	m.Update(press(0), base.Add(9*time.Millisecond))
	// 10ms after the original edge but only 9ms after the restart.
	if ev := m.Update(press(0), base.Add(18*time.Millisecond)); len(ev) != 0 {
		t.Fatalf("committed before restarted window elapsed: %v", ev)
	}
	ev := m.Update(press(0), base.Add(19*time.Millisecond))
	if len(ev) != 1 || !ev[0].Pressed {
		t.Fatalf("got %v, want single Pressed after restarted window", ev)
	}
}

func TestSimultaneousEdgesOrderedByChannel(t *testing.T) {
	m := newTestMapper(t, 10*time.Millisecond)

	m.Update(press(6, 0, 8), base)
	ev := m.Update(press(6, 0, 8), base.Add(10*time.Millisecond))

	if len(ev) != 3 {
		t.Fatalf("got %d events, want 3: %v", len(ev), ev)
	}
	want := []keymap.Key{keymap.KeyB1, keymap.KeyB7, keymap.KeyE1}
	for i, k := range want {
		if ev[i].Key != k {
			t.Errorf("event %d = %v, want %v", i, ev[i].Key, k)
		}
	}
}

func TestZeroIntervalPassesThrough(t *testing.T) {
	m := newTestMapper(t, 0)

	ev := m.Update(press(2), base)
	if len(ev) != 1 || ev[0].Key != keymap.KeyB3 || !ev[0].Pressed {
		t.Fatalf("got %v, want immediate Pressed(B3)", ev)
	}
	ev = m.Update(press(), base.Add(time.Millisecond))
	if len(ev) != 1 || ev[0].Pressed {
		t.Fatalf("got %v, want immediate Released(B3)", ev)
	}
}

func TestChannelsSettleIndependently(t *testing.T) {
	m := newTestMapper(t, 10*time.Millisecond)

	m.Update(press(0), base)
	m.Update(press(0, 1), base.Add(5*time.Millisecond))

	// Channel 0 has been stable 10ms, channel 1 only 5ms.
	ev := m.Update(press(0, 1), base.Add(10*time.Millisecond))
	if len(ev) != 1 || ev[0].Key != keymap.KeyB1 {
		t.Fatalf("got %v, want only Pressed(B1)", ev)
	}
	ev = m.Update(press(0, 1), base.Add(15*time.Millisecond))
	if len(ev) != 1 || ev[0].Key != keymap.KeyB2 {
		t.Fatalf("got %v, want only Pressed(B2)", ev)
	}
}

func TestUnboundChannelIgnored(t *testing.T) {
	m := newTestMapper(t, 0)

	// Channel 7 is unbound in the default layout.
	if ev := m.Update(press(7), base); len(ev) != 0 {
		t.Fatalf("unbound channel emitted: %v", ev)
	}
	if m.Pressed() != 0 {
		t.Errorf("pressed set = %v, want empty", m.Pressed())
	}
}

func TestScratchPassesThroughUndebounced(t *testing.T) {
	m := newTestMapper(t, 10*time.Millisecond)

	m.Update(input.State{Scratch: 50}, base)
	if m.Scratch() != 50 {
		t.Errorf("scratch = %d, want 50", m.Scratch())
	}
	m.Update(input.State{Scratch: 200}, base.Add(time.Millisecond))
	if m.Scratch() != 200 {
		t.Errorf("scratch = %d, want 200", m.Scratch())
	}
}

func TestCounts(t *testing.T) {
	m := newTestMapper(t, 0)

	m.Update(press(0, 1), base)
	m.Update(press(), base.Add(time.Millisecond))
	m.Update(press(0), base.Add(2*time.Millisecond))

	c := m.Counts()
	if c.Presses != 3 {
		t.Errorf("Presses = %d, want 3", c.Presses)
	}
	if c.Releases != 2 {
		t.Errorf("Releases = %d, want 2", c.Releases)
	}
}
