// Package status provides a thread-safe status tracker for the bridge
// daemon, served over HTTP for bench debugging.
package status

import (
	"sync"
	"time"

	"github.com/enokida/padbridge/internal/debounce"
)

// Config contains daemon configuration for display.
type Config struct {
	DeviceName  string
	Driver      string
	Device      string
	TickHz      int
	DebounceMs  int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Session   string
	PeerAddr  string
	ConnID    string
	Bonded    bool
	Keys      string
	Scratch   uint8
	Counts    debounce.Counts
	InputErr  string
	Reports   uint64
	LinkDrops uint64

	MQTTConnected    bool
	TelemetryDropped uint64

	StartTime time.Time
	Now       time.Time
	Config    Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Session:   "idle",
			Keys:      "none",
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// UpdateInput sets the debounced chord, scratch position, and edge counts.
// Called from the tick loop.
func (t *Tracker) UpdateInput(keys string, scratch uint8, counts debounce.Counts) {
	t.mu.Lock()
	t.snap.Keys = keys
	t.snap.Scratch = scratch
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetInputError records the last input failure; empty clears it.
func (t *Tracker) SetInputError(msg string) {
	t.mu.Lock()
	t.snap.InputErr = msg
	t.mu.Unlock()
}

// UpdateSession sets the session state and peer identity.
func (t *Tracker) UpdateSession(state, peerAddr, connID string, bonded bool) {
	t.mu.Lock()
	t.snap.Session = state
	t.snap.PeerAddr = peerAddr
	t.snap.ConnID = connID
	t.snap.Bonded = bonded
	t.mu.Unlock()
}

// UpdateTx sets the transmit counters.
func (t *Tracker) UpdateTx(reports, linkDrops uint64) {
	t.mu.Lock()
	t.snap.Reports = reports
	t.snap.LinkDrops = linkDrops
	t.mu.Unlock()
}

// SetMQTTConnected sets the broker connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetTelemetryDropped sets the count of telemetry events shed under load.
func (t *Tracker) SetTelemetryDropped(n uint64) {
	t.mu.Lock()
	t.snap.TelemetryDropped = n
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
