// Package session owns the BLE peripheral connection lifecycle: advertising,
// pairing, bonding, notification delivery, and automatic re-advertising
// after a disconnect. The manager is the sole writer of session state; radio
// callbacks and the tick loop's Notify both funnel through its mutex, and
// everyone else observes through value snapshots.
package session

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/enokida/padbridge/internal/ble"
	"github.com/enokida/padbridge/internal/bond"
	"github.com/enokida/padbridge/internal/report"
)

// State is the connection lifecycle state.
type State int

const (
	Idle State = iota
	Advertising
	Connecting
	Bonded
	Connected
	Disconnecting
)

var stateNames = [...]string{
	"idle", "advertising", "connecting", "bonded", "connected", "disconnecting",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var (
	// ErrNotConnected is returned by Notify when no subscribed peer is
	// attached. Expected during normal operation; callers skip the send.
	ErrNotConnected = errors.New("session: no connected peer")

	// ErrLink marks a radio failure while pushing a report. The session has
	// already fallen back to advertising when Notify returns it.
	ErrLink = errors.New("session: link failure")
)

// DefaultMTU is assumed until the stack reports otherwise.
const DefaultMTU = 23

// Peer is the connected central. At most one exists at a time.
type Peer struct {
	// ID is a fresh ulid per connection, for log correlation.
	ID           string
	Addr         string
	Bonded       bool
	MTU          int
	ConnectedAt  time.Time
	LastActivity time.Time
}

// Snapshot is a point-in-time copy of the session state.
type Snapshot struct {
	State State
	Peer  *Peer // copy, nil unless a peer is attached
}

// Transition describes one state change, for telemetry and the status page.
type Transition struct {
	From, To State
	Addr     string
	At       time.Time
}

// Options configure the manager.
type Options struct {
	// DeviceName is the advertised local name.
	DeviceName string
	// AdvertisingInterval is the broadcast interval.
	AdvertisingInterval time.Duration
	// Descriptor is the report descriptor blob served to the peer.
	Descriptor []byte
	// Bonds persists which peers have bonded. Required.
	Bonds *bond.Store
	// Clock is the time source, injectable for tests.
	Clock func() time.Time
}

// DefaultOptions returns the stock controller identity.
func DefaultOptions() Options {
	return Options{
		DeviceName:          "IIDX Entry model",
		AdvertisingInterval: 100 * time.Millisecond,
		Descriptor:          report.DefaultDescriptor().Blob(),
		Clock:               time.Now,
	}
}

// Manager drives a Radio through the session state machine.
type Manager struct {
	radio ble.Radio
	opts  Options

	mu      sync.Mutex
	state   State
	peer    *Peer
	seq     uint8
	started bool
	entropy io.Reader

	onTransition func(Transition)
	onWrite      func(value []byte)
}

// NewManager creates a Manager over the given radio. Start must be called
// before anything else.
func NewManager(radio ble.Radio, opts Options) *Manager {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Manager{
		radio:   radio,
		opts:    opts,
		state:   Idle,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// OnTransition registers a callback fired after every state change. It runs
// on the goroutine that caused the transition; keep it quick. Must be set
// before Start.
func (m *Manager) OnTransition(cb func(Transition)) {
	m.onTransition = cb
}

// OnControlWrite registers a callback for peer configuration writes. Must be
// set before Start.
func (m *Manager) OnControlWrite(cb func(value []byte)) {
	m.onWrite = cb
}

// Start enables the radio, registers the GATT surface, and begins
// advertising. A radio enable failure is the one startup error the process
// cannot recover from; everything after this degrades gracefully.
func (m *Manager) Start() error {
	ev := ble.Events{
		OnConnect:    m.handleConnect,
		OnDisconnect: m.handleDisconnect,
		OnSecured:    m.handleSecured,
		OnSubscribe:  m.handleSubscribe,
		OnWrite:      m.handleWrite,
	}
	cfg := ble.Config{
		DeviceName:          m.opts.DeviceName,
		AdvertisingInterval: m.opts.AdvertisingInterval,
		Descriptor:          m.opts.Descriptor,
	}
	if err := m.radio.Enable(cfg, ev); err != nil {
		return fmt.Errorf("session: enable radio: %w", err)
	}

	m.mu.Lock()
	m.started = true
	m.mu.Unlock()

	m.transition(Advertising, "")
	if err := m.radio.Advertise(true); err != nil {
		return fmt.Errorf("session: start advertising: %w", err)
	}
	slog.Info("[Session] advertising", "name", m.opts.DeviceName)
	return nil
}

// Shutdown forces the session to Idle and releases the radio. Safe to call
// from any state.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if !m.started || m.state == Idle {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	m.transition(Disconnecting, "")
	if err := m.radio.Advertise(false); err != nil {
		slog.Warn("[Session] stop advertising", "error", err)
	}
	err := m.radio.Close()
	m.transition(Idle, "")
	if err != nil {
		return fmt.Errorf("session: close radio: %w", err)
	}
	return nil
}

// Snapshot returns a copy of the current state for read-only observers.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := Snapshot{State: m.state}
	if m.peer != nil {
		p := *m.peer
		snap.Peer = &p
	}
	return snap
}

// Notify pushes one report to the subscribed peer, stamping the rolling
// frame sequence. Returns ErrNotConnected when no peer is ready (no radio
// I/O happens); wraps ErrLink on radio failure, after falling back to
// advertising.
func (m *Manager) Notify(r report.Report) error {
	m.mu.Lock()
	if m.state != Connected {
		m.mu.Unlock()
		return ErrNotConnected
	}
	seq := m.seq
	m.seq += 2
	m.mu.Unlock()

	if err := m.radio.Notify(r.Stamp(seq)); err != nil {
		m.resetToAdvertising("notify failed: " + err.Error())
		return fmt.Errorf("session: notify: %v: %w", err, ErrLink)
	}

	m.mu.Lock()
	if m.peer != nil {
		m.peer.LastActivity = m.opts.Clock()
	}
	m.mu.Unlock()
	return nil
}

func (m *Manager) handleConnect(p ble.Peer) {
	now := m.opts.Clock()

	m.mu.Lock()
	if m.state != Advertising {
		m.mu.Unlock()
		slog.Warn("[Session] connect ignored", "state", m.state, "peer", p.Addr)
		return
	}
	_, known := m.opts.Bonds.Lookup(p.Addr)
	m.peer = &Peer{
		ID:           ulid.MustNew(ulid.Timestamp(now), m.entropy).String(),
		Addr:         p.Addr,
		Bonded:       known,
		MTU:          DefaultMTU,
		ConnectedAt:  now,
		LastActivity: now,
	}
	m.seq = 0
	connID := m.peer.ID
	m.mu.Unlock()

	m.transition(Connecting, p.Addr)
	slog.Info("[Session] central connected", "peer", p.Addr, "conn", connID, "bonded", known)
}

func (m *Manager) handleSecured(p ble.Peer, bonded bool) {
	m.mu.Lock()
	if m.state != Connecting || m.peer == nil || m.peer.Addr != p.Addr {
		m.mu.Unlock()
		return
	}
	m.peer.Bonded = m.peer.Bonded || bonded
	m.mu.Unlock()

	m.transition(Bonded, p.Addr)

	if !bonded {
		return
	}
	if _, err := m.opts.Bonds.Remember(p.Addr, m.opts.Clock()); err != nil {
		// Non-fatal: the session continues, the peer re-pairs after the
		// next restart.
		slog.Warn("[Session] bond persist failed", "peer", p.Addr, "error", err)
	}
}

func (m *Manager) handleSubscribe(p ble.Peer, enabled bool) {
	m.mu.Lock()
	if m.peer == nil || m.peer.Addr != p.Addr {
		m.mu.Unlock()
		return
	}
	state := m.state
	m.mu.Unlock()

	switch {
	case enabled && state == Bonded:
		m.transition(Connected, p.Addr)
		slog.Info("[Session] peer subscribed, reports flowing", "peer", p.Addr)
	case !enabled && state == Connected:
		m.transition(Bonded, p.Addr)
		slog.Info("[Session] peer unsubscribed", "peer", p.Addr)
	}
}

func (m *Manager) handleDisconnect(p ble.Peer) {
	m.mu.Lock()
	if m.peer == nil || m.state == Idle || m.state == Disconnecting {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	slog.Info("[Session] central disconnected", "peer", p.Addr)
	m.resetToAdvertising("peer disconnected")
}

func (m *Manager) handleWrite(p ble.Peer, value []byte) {
	m.mu.Lock()
	if m.peer != nil && m.peer.Addr == p.Addr {
		m.peer.LastActivity = m.opts.Clock()
	}
	cb := m.onWrite
	m.mu.Unlock()

	if cb != nil {
		cb(value)
	}
}

// resetToAdvertising drops the peer and resumes advertising. Unconditional:
// the state moves even if the radio refuses to re-advertise.
func (m *Manager) resetToAdvertising(reason string) {
	m.mu.Lock()
	if m.state == Idle || m.state == Disconnecting {
		m.mu.Unlock()
		return
	}
	m.peer = nil
	m.mu.Unlock()

	m.transition(Advertising, "")
	if err := m.radio.Advertise(true); err != nil {
		slog.Error("[Session] resume advertising failed", "reason", reason, "error", err)
		return
	}
	slog.Info("[Session] advertising resumed", "reason", reason)
}

// transition moves to the new state and fires the callback outside the lock.
func (m *Manager) transition(to State, addr string) {
	m.mu.Lock()
	from := m.state
	if from == to {
		m.mu.Unlock()
		return
	}
	m.state = to
	cb := m.onTransition
	at := m.opts.Clock()
	m.mu.Unlock()

	slog.Debug("[Session] transition", "from", from, "to", to, "peer", addr)
	if cb != nil {
		cb(Transition{From: from, To: to, Addr: addr, At: at})
	}
}
