package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Session       SessionJSON `json:"session"`
	Input         InputJSON   `json:"input"`
	TX            TXJSON      `json:"tx"`
	MQTT          MQTTStatus  `json:"mqtt"`
	UptimeSeconds int64       `json:"uptime_seconds"`
	StartTime     string      `json:"start_time"`
	Timestamp     string      `json:"timestamp"`
	Config        ConfigJSON  `json:"config"`
}

// SessionJSON reports the BLE session state.
type SessionJSON struct {
	State  string `json:"state"`
	Peer   string `json:"peer,omitempty"`
	Conn   string `json:"conn,omitempty"`
	Bonded bool   `json:"bonded"`
}

// InputJSON reports the controller state.
type InputJSON struct {
	Driver   string `json:"driver"`
	Device   string `json:"device,omitempty"`
	Keys     string `json:"keys"`
	Scratch  uint8  `json:"scratch"`
	Presses  int    `json:"presses"`
	Releases int    `json:"releases"`
	Error    string `json:"error,omitempty"`
}

// TXJSON reports report delivery counters.
type TXJSON struct {
	Reports   uint64 `json:"reports"`
	LinkDrops uint64 `json:"link_drops"`
}

// MQTTStatus reports broker connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker,omitempty"`
	Dropped   uint64 `json:"dropped,omitempty"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	DeviceName  string `json:"device_name"`
	TickHz      int    `json:"tick_hz"`
	DebounceMs  int64  `json:"debounce_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	HTTPAddr    string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	return StatusInner{
		Session: SessionJSON{
			State:  snap.Session,
			Peer:   snap.PeerAddr,
			Conn:   snap.ConnID,
			Bonded: snap.Bonded,
		},
		Input: InputJSON{
			Driver:   snap.Config.Driver,
			Device:   snap.Config.Device,
			Keys:     snap.Keys,
			Scratch:  snap.Scratch,
			Presses:  snap.Counts.Presses,
			Releases: snap.Counts.Releases,
			Error:    snap.InputErr,
		},
		TX: TXJSON{
			Reports:   snap.Reports,
			LinkDrops: snap.LinkDrops,
		},
		MQTT: MQTTStatus{
			Connected: snap.MQTTConnected,
			Broker:    snap.Config.Broker,
			Dropped:   snap.TelemetryDropped,
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Config: ConfigJSON{
			DeviceName:  snap.Config.DeviceName,
			TickHz:      snap.Config.TickHz,
			DebounceMs:  snap.Config.DebounceMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}
