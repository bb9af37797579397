package ble

import "sync"

// FakeRadio is a scripted Radio for tests. Simulate* methods play the role
// of the BLE stack, firing the installed event handlers on the caller's
// goroutine exactly as the real backend fires them from its event loop.
type FakeRadio struct {
	mu          sync.Mutex
	enabled     bool
	cfg         Config
	ev          Events
	advertising bool
	payloads    [][]byte
	notifyErr   error
	enableErr   error
	closed      bool
}

// NewFakeRadio returns an idle fake.
func NewFakeRadio() *FakeRadio {
	return &FakeRadio{}
}

func (f *FakeRadio) Enable(cfg Config, ev Events) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.enableErr != nil {
		return f.enableErr
	}
	f.cfg = cfg
	f.ev = ev
	f.enabled = true
	return nil
}

func (f *FakeRadio) Advertise(enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.enabled {
		return ErrNotEnabled
	}
	f.advertising = enabled
	return nil
}

func (f *FakeRadio) Notify(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.enabled {
		return ErrNotEnabled
	}
	if f.notifyErr != nil {
		return f.notifyErr
	}
	f.payloads = append(f.payloads, append([]byte(nil), payload...))
	return nil
}

func (f *FakeRadio) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.advertising = false
	return nil
}

// SetEnableErr makes the next Enable fail, for startup failure tests.
func (f *FakeRadio) SetEnableErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enableErr = err
}

// SetNotifyErr sets or clears the error Notify returns.
func (f *FakeRadio) SetNotifyErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifyErr = err
}

// SimulateConnect plays a central connecting.
func (f *FakeRadio) SimulateConnect(addr string) {
	if cb := f.handler(func(ev Events) func(Peer) { return ev.OnConnect }); cb != nil {
		cb(Peer{Addr: addr})
	}
}

// SimulateDisconnect plays the central dropping.
func (f *FakeRadio) SimulateDisconnect(addr string) {
	if cb := f.handler(func(ev Events) func(Peer) { return ev.OnDisconnect }); cb != nil {
		cb(Peer{Addr: addr})
	}
}

// SimulateSecured plays pairing completion.
func (f *FakeRadio) SimulateSecured(addr string, bonded bool) {
	f.mu.Lock()
	cb := f.ev.OnSecured
	f.mu.Unlock()
	if cb != nil {
		cb(Peer{Addr: addr}, bonded)
	}
}

// SimulateSubscribe plays the peer toggling report notifications.
func (f *FakeRadio) SimulateSubscribe(addr string, enabled bool) {
	f.mu.Lock()
	cb := f.ev.OnSubscribe
	f.mu.Unlock()
	if cb != nil {
		cb(Peer{Addr: addr}, enabled)
	}
}

// SimulateWrite plays a control characteristic write from the peer.
func (f *FakeRadio) SimulateWrite(addr string, value []byte) {
	f.mu.Lock()
	cb := f.ev.OnWrite
	f.mu.Unlock()
	if cb != nil {
		cb(Peer{Addr: addr}, append([]byte(nil), value...))
	}
}

func (f *FakeRadio) handler(pick func(Events) func(Peer)) func(Peer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return pick(f.ev)
}

// Advertising reports the current advertising state.
func (f *FakeRadio) Advertising() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.advertising
}

// Payloads returns copies of every notified payload, in order.
func (f *FakeRadio) Payloads() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.payloads))
	for i, p := range f.payloads {
		out[i] = append([]byte(nil), p...)
	}
	return out
}

// NotifyCount returns how many payloads were accepted.
func (f *FakeRadio) NotifyCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

// DeviceName returns the name passed to Enable.
func (f *FakeRadio) DeviceName() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cfg.DeviceName
}

// Closed reports whether Close was called.
func (f *FakeRadio) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

var _ Radio = (*FakeRadio)(nil)
