package telemetry

import "sync"

// FakePublisher records published events for test assertions.
type FakePublisher struct {
	mu sync.Mutex

	// KeyEvents contains all key edges that were published.
	KeyEvents []KeyEvent

	// SessionEvents contains all session snapshots that were published.
	SessionEvents []SessionEvent

	// SystemEvents contains all lifecycle events that were published.
	SystemEvents []SystemEvent

	// PublishError, if set, is returned by every Publish method.
	PublishError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishKey records the key edge.
func (f *FakePublisher) PublishKey(event KeyEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.KeyEvents = append(f.KeyEvents, event)
	return nil
}

// PublishSession records the session snapshot.
func (f *FakePublisher) PublishSession(event SessionEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.SessionEvents = append(f.SessionEvents, event)
	return nil
}

// PublishSystem records the lifecycle event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.SystemEvents = append(f.SystemEvents, event)
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// Snapshot returns copies of the recorded events.
func (f *FakePublisher) Snapshot() (keys []KeyEvent, sessions []SessionEvent, systems []SystemEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys = append(keys, f.KeyEvents...)
	sessions = append(sessions, f.SessionEvents...)
	systems = append(systems, f.SystemEvents...)
	return keys, sessions, systems
}

var _ Publisher = (*FakePublisher)(nil)
var _ ConnectionStatus = (*FakePublisher)(nil)
