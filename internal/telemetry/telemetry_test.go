package telemetry

import (
	"errors"
	"testing"
	"time"
)

var testTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestFormatKeyPayload(t *testing.T) {
	tests := []struct {
		name  string
		event KeyEvent
		want  string
	}{
		{
			name:  "pressed",
			event: KeyEvent{At: testTime, Key: "B1", Pressed: true},
			want:  `{"pad":{"timestamp":"2025-06-01T12:00:00Z","key":"B1","state":"pressed"}}`,
		},
		{
			name:  "released",
			event: KeyEvent{At: testTime, Key: "E4", Pressed: false},
			want:  `{"pad":{"timestamp":"2025-06-01T12:00:00Z","key":"E4","state":"released"}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatKeyPayload(tt.event)
			if err != nil {
				t.Fatalf("FormatKeyPayload: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("payload = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFormatSessionPayload(t *testing.T) {
	got, err := FormatSessionPayload(SessionEvent{
		At:       testTime,
		State:    "connected",
		PeerAddr: "AA:BB:CC:DD:EE:FF",
		ConnID:   "01HZXY",
		Bonded:   true,
	})
	if err != nil {
		t.Fatalf("FormatSessionPayload: %v", err)
	}
	want := `{"session":{"timestamp":"2025-06-01T12:00:00Z","state":"connected","peer":"AA:BB:CC:DD:EE:FF","conn":"01HZXY","bonded":true}}`
	if string(got) != want {
		t.Errorf("payload = %s, want %s", got, want)
	}
}

func TestFormatSessionPayloadOmitsEmptyPeer(t *testing.T) {
	got, err := FormatSessionPayload(SessionEvent{At: testTime, State: "advertising"})
	if err != nil {
		t.Fatalf("FormatSessionPayload: %v", err)
	}
	want := `{"session":{"timestamp":"2025-06-01T12:00:00Z","state":"advertising","bonded":false}}`
	if string(got) != want {
		t.Errorf("payload = %s, want %s", got, want)
	}
}

func TestFormatSystemPayload(t *testing.T) {
	tests := []struct {
		name  string
		event SystemEvent
		want  string
	}{
		{
			name:  "startup",
			event: SystemEvent{At: testTime, Event: "STARTUP"},
			want:  `{"system":{"timestamp":"2025-06-01T12:00:00Z","event":"STARTUP"}}`,
		},
		{
			name:  "shutdown with reason",
			event: SystemEvent{At: testTime, Event: "SHUTDOWN", Reason: "SIGTERM"},
			want:  `{"system":{"timestamp":"2025-06-01T12:00:00Z","event":"SHUTDOWN","reason":"SIGTERM"}}`,
		},
		{
			name:  "will has no timestamp",
			event: SystemEvent{Event: "OFFLINE"},
			want:  `{"system":{"event":"OFFLINE"}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatSystemPayload(tt.event)
			if err != nil {
				t.Fatalf("FormatSystemPayload: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("payload = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFakeRecordsEvents(t *testing.T) {
	f := NewFakePublisher()
	if err := f.PublishKey(KeyEvent{At: testTime, Key: "B1", Pressed: true}); err != nil {
		t.Fatalf("PublishKey: %v", err)
	}
	if err := f.PublishSession(SessionEvent{At: testTime, State: "connected"}); err != nil {
		t.Fatalf("PublishSession: %v", err)
	}
	if err := f.PublishSystem(SystemEvent{At: testTime, Event: "STARTUP"}); err != nil {
		t.Fatalf("PublishSystem: %v", err)
	}

	keys, sessions, systems := f.Snapshot()
	if len(keys) != 1 || keys[0].Key != "B1" {
		t.Errorf("key events = %+v", keys)
	}
	if len(sessions) != 1 || sessions[0].State != "connected" {
		t.Errorf("session events = %+v", sessions)
	}
	if len(systems) != 1 || systems[0].Event != "STARTUP" {
		t.Errorf("system events = %+v", systems)
	}
}

func TestFakePublishError(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("broker down")
	if err := f.PublishKey(KeyEvent{Key: "B1"}); err == nil {
		t.Error("PublishKey succeeded despite PublishError")
	}
	keys, _, _ := f.Snapshot()
	if len(keys) != 0 {
		t.Errorf("event recorded despite error: %+v", keys)
	}
}

func TestNopDiscards(t *testing.T) {
	var p Publisher = Nop{}
	if err := p.PublishKey(KeyEvent{Key: "B1"}); err != nil {
		t.Errorf("PublishKey: %v", err)
	}
	if err := p.PublishSession(SessionEvent{}); err != nil {
		t.Errorf("PublishSession: %v", err)
	}
	if err := p.PublishSystem(SystemEvent{}); err != nil {
		t.Errorf("PublishSystem: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
