// Package telemetry publishes bridge events to an MQTT broker with
// abstraction for testing. Telemetry is strictly best-effort: nothing here
// may stall or crash the report path.
package telemetry

import (
	"encoding/json"
	"time"
)

// Topic suffixes under the configured prefix.
const (
	// TopicEvents carries debounced key edges. QoS 0, not retained.
	TopicEvents = "events"
	// TopicSession carries the session snapshot. Retained so late
	// subscribers see the current state.
	TopicSession = "session"
	// TopicSystem carries lifecycle events (startup, shutdown, heartbeat).
	// QoS 1.
	TopicSystem = "system"
)

// Publisher publishes bridge telemetry.
type Publisher interface {
	// PublishKey sends a debounced key edge to the broker.
	// Returns error if publishing fails (must not crash the process).
	PublishKey(event KeyEvent) error

	// PublishSession sends the current session state, retained.
	PublishSession(event SessionEvent) error

	// PublishSystem sends a system lifecycle event.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the broker connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// KeyEvent is one debounced key edge.
type KeyEvent struct {
	At      time.Time
	Key     string // logical key name, e.g. "B1", "E4"
	Pressed bool
}

// SessionEvent is a session state change.
type SessionEvent struct {
	At       time.Time
	State    string // session state name, e.g. "advertising", "connected"
	PeerAddr string
	ConnID   string
	Bonded   bool
}

// SystemEvent is a process lifecycle event.
type SystemEvent struct {
	At     time.Time
	Event  string // e.g. "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason string // e.g. "SIGTERM" (shutdown only)
}

type keyPayload struct {
	Pad keyPayloadInner `json:"pad"`
}

type keyPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Key       string `json:"key"`
	State     string `json:"state"`
}

// FormatKeyPayload creates the JSON payload for a key edge.
func FormatKeyPayload(event KeyEvent) ([]byte, error) {
	state := "released"
	if event.Pressed {
		state = "pressed"
	}
	payload := keyPayload{
		Pad: keyPayloadInner{
			Timestamp: event.At.UTC().Format(time.RFC3339),
			Key:       event.Key,
			State:     state,
		},
	}
	return json.Marshal(payload)
}

type sessionPayload struct {
	Session sessionPayloadInner `json:"session"`
}

type sessionPayloadInner struct {
	Timestamp string `json:"timestamp"`
	State     string `json:"state"`
	Peer      string `json:"peer,omitempty"`
	Conn      string `json:"conn,omitempty"`
	Bonded    bool   `json:"bonded"`
}

// FormatSessionPayload creates the JSON payload for a session snapshot.
func FormatSessionPayload(event SessionEvent) ([]byte, error) {
	payload := sessionPayload{
		Session: sessionPayloadInner{
			Timestamp: event.At.UTC().Format(time.RFC3339),
			State:     event.State,
			Peer:      event.PeerAddr,
			Conn:      event.ConnID,
			Bonded:    event.Bonded,
		},
	}
	return json.Marshal(payload)
}

type systemPayload struct {
	System systemPayloadInner `json:"system"`
}

type systemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event. A zero
// At is omitted, used for the broker will where no timestamp exists yet.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	inner := systemPayloadInner{
		Event:  event.Event,
		Reason: event.Reason,
	}
	if !event.At.IsZero() {
		inner.Timestamp = event.At.UTC().Format(time.RFC3339)
	}
	return json.Marshal(systemPayload{System: inner})
}

// Nop is a Publisher that discards everything, used when telemetry is not
// configured.
type Nop struct{}

func (Nop) PublishKey(KeyEvent) error         { return nil }
func (Nop) PublishSession(SessionEvent) error { return nil }
func (Nop) PublishSystem(SystemEvent) error   { return nil }
func (Nop) Close() error                      { return nil }

var _ Publisher = Nop{}
