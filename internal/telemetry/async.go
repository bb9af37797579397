package telemetry

import (
	"log/slog"
	"sync"
)

const (
	kindKey = iota
	kindSession
	kindSystem
)

type message struct {
	kind    int
	key     KeyEvent
	session SessionEvent
	system  SystemEvent
}

// Async decorates a Publisher so the report path never waits on broker
// latency. Publish methods enqueue and return immediately; a single worker
// drains the queue to the wrapped publisher. When the queue is full new
// events are dropped, never blocked on.
type Async struct {
	p    Publisher
	ch   chan message
	done chan struct{}

	mu      sync.Mutex
	closed  bool
	dropped uint64
}

// NewAsync wraps a publisher with a queue of the given depth.
func NewAsync(p Publisher, depth int) *Async {
	if depth <= 0 {
		depth = 256
	}
	a := &Async{
		p:    p,
		ch:   make(chan message, depth),
		done: make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) run() {
	defer close(a.done)
	for msg := range a.ch {
		var err error
		switch msg.kind {
		case kindKey:
			err = a.p.PublishKey(msg.key)
		case kindSession:
			err = a.p.PublishSession(msg.session)
		case kindSystem:
			err = a.p.PublishSystem(msg.system)
		}
		if err != nil {
			slog.Warn("[Telemetry] publish failed", "error", err)
		}
	}
}

// PublishKey enqueues a key edge. Never fails; a full queue drops the event.
func (a *Async) PublishKey(event KeyEvent) error {
	a.enqueue(message{kind: kindKey, key: event})
	return nil
}

// PublishSession enqueues a session snapshot.
func (a *Async) PublishSession(event SessionEvent) error {
	a.enqueue(message{kind: kindSession, session: event})
	return nil
}

// PublishSystem enqueues a lifecycle event.
func (a *Async) PublishSystem(event SystemEvent) error {
	a.enqueue(message{kind: kindSystem, system: event})
	return nil
}

func (a *Async) enqueue(msg message) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	select {
	case a.ch <- msg:
	default:
		a.dropped++
		if a.dropped == 1 {
			slog.Warn("[Telemetry] queue full, dropping events")
		}
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (a *Async) Dropped() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dropped
}

// IsConnected reports the wrapped publisher's broker connection, when it
// exposes one.
func (a *Async) IsConnected() bool {
	if cs, ok := a.p.(ConnectionStatus); ok {
		return cs.IsConnected()
	}
	return false
}

// Close drains the queue, waits for the worker, and closes the wrapped
// publisher.
func (a *Async) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	close(a.ch)
	<-a.done
	return a.p.Close()
}

var _ Publisher = (*Async)(nil)
var _ ConnectionStatus = (*Async)(nil)
