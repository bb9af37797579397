package telemetry

import (
	"errors"
	"testing"
	"time"
)

// gatedPublisher blocks PublishKey until the gate opens, so tests can hold
// the worker mid-publish deterministically.
type gatedPublisher struct {
	*FakePublisher
	started chan struct{}
	gate    chan struct{}
}

func newGatedPublisher() *gatedPublisher {
	return &gatedPublisher{
		FakePublisher: NewFakePublisher(),
		started:       make(chan struct{}, 16),
		gate:          make(chan struct{}),
	}
}

func (g *gatedPublisher) PublishKey(event KeyEvent) error {
	g.started <- struct{}{}
	<-g.gate
	return g.FakePublisher.PublishKey(event)
}

func TestAsyncDrainsInOrder(t *testing.T) {
	fake := NewFakePublisher()
	a := NewAsync(fake, 8)

	a.PublishKey(KeyEvent{At: testTime, Key: "B1", Pressed: true})
	a.PublishKey(KeyEvent{At: testTime, Key: "B1", Pressed: false})
	a.PublishSession(SessionEvent{At: testTime, State: "connected"})
	a.PublishSystem(SystemEvent{At: testTime, Event: "HEARTBEAT"})

	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	keys, sessions, systems := fake.Snapshot()
	if len(keys) != 2 || !keys[0].Pressed || keys[1].Pressed {
		t.Errorf("key events = %+v", keys)
	}
	if len(sessions) != 1 || sessions[0].State != "connected" {
		t.Errorf("session events = %+v", sessions)
	}
	if len(systems) != 1 || systems[0].Event != "HEARTBEAT" {
		t.Errorf("system events = %+v", systems)
	}
	if !fake.Closed {
		t.Error("wrapped publisher was not closed")
	}
	if got := a.Dropped(); got != 0 {
		t.Errorf("dropped = %d, want 0", got)
	}
}

func TestAsyncDropsWhenFull(t *testing.T) {
	g := newGatedPublisher()
	a := NewAsync(g, 1)

	a.PublishKey(KeyEvent{Key: "B1"})
	// Wait until the worker is inside PublishKey, holding the gate. The
	// queue slot is now free.
	<-g.started

	a.PublishKey(KeyEvent{Key: "B2"}) // fills the queue
	a.PublishKey(KeyEvent{Key: "B3"}) // dropped
	a.PublishKey(KeyEvent{Key: "B4"}) // dropped

	close(g.gate)
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	keys, _, _ := g.Snapshot()
	if len(keys) != 2 || keys[0].Key != "B1" || keys[1].Key != "B2" {
		t.Errorf("delivered keys = %+v, want B1 then B2", keys)
	}
	if got := a.Dropped(); got != 2 {
		t.Errorf("dropped = %d, want 2", got)
	}
}

func TestAsyncEmitAfterClose(t *testing.T) {
	fake := NewFakePublisher()
	a := NewAsync(fake, 4)
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Must not panic or deadlock.
	a.PublishKey(KeyEvent{Key: "B1"})
	a.PublishSystem(SystemEvent{Event: "HEARTBEAT"})

	keys, _, _ := fake.Snapshot()
	if len(keys) != 0 {
		t.Errorf("events delivered after close: %+v", keys)
	}
	if err := a.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestAsyncSurvivesPublishErrors(t *testing.T) {
	fake := NewFakePublisher()
	fake.PublishError = errors.New("test publish failure")
	a := NewAsync(fake, 4)

	a.PublishKey(KeyEvent{Key: "B1"})
	a.PublishSession(SessionEvent{State: "advertising"})

	done := make(chan error, 1)
	go func() { done <- a.Close() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Close: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Close blocked on a failing publisher")
	}
}
