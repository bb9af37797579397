package telemetry

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// RealPublisher publishes to an actual MQTT broker.
type RealPublisher struct {
	client paho.Client
	prefix string
}

// NewRealPublisher creates a publisher connected to the given broker. The
// prefix is prepended to every topic, e.g. "arcade/padbridge".
func NewRealPublisher(broker, prefix string) (*RealPublisher, error) {
	if prefix == "" {
		prefix = "padbridge"
	}

	// The broker marks us offline if the process dies without a clean
	// shutdown.
	will, err := FormatSystemPayload(SystemEvent{Event: "OFFLINE"})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("padbridge").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetBinaryWill(prefix+"/"+TopicSystem, will, 1, false)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return &RealPublisher{client: client, prefix: prefix}, nil
}

// PublishKey sends a key edge to the broker.
func (p *RealPublisher) PublishKey(event KeyEvent) error {
	payload, err := FormatKeyPayload(event)
	if err != nil {
		return fmt.Errorf("format key payload: %w", err)
	}
	// QoS 0 (at-most-once): key edges are high-rate and perishable.
	return p.publish(TopicEvents, 0, false, payload)
}

// PublishSession sends the session snapshot, retained so late subscribers
// see the current state.
func (p *RealPublisher) PublishSession(event SessionEvent) error {
	payload, err := FormatSessionPayload(event)
	if err != nil {
		return fmt.Errorf("format session payload: %w", err)
	}
	return p.publish(TopicSession, 0, true, payload)
}

// PublishSystem sends a lifecycle event.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once): shutdown events must arrive.
	return p.publish(TopicSystem, 1, false, payload)
}

func (p *RealPublisher) publish(suffix string, qos byte, retained bool, payload []byte) error {
	token := p.client.Publish(p.prefix+"/"+suffix, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s: timeout", suffix)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", suffix, err)
	}
	return nil
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnected()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}

var _ Publisher = (*RealPublisher)(nil)
var _ ConnectionStatus = (*RealPublisher)(nil)
