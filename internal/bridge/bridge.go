// Package bridge runs the fixed-rate loop that carries controller state to
// the connected peer: sample the source, debounce, encode, notify. One tick
// is one pass; nothing inside the loop blocks on hardware or the network
// beyond the notify itself, and no tick error ever stops the loop.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/enokida/padbridge/internal/debounce"
	"github.com/enokida/padbridge/internal/input"
	"github.com/enokida/padbridge/internal/report"
	"github.com/enokida/padbridge/internal/session"
	"github.com/enokida/padbridge/internal/status"
	"github.com/enokida/padbridge/internal/telemetry"
)

// Control write opcodes. The peer writes [opcode, arg] to the control
// characteristic; unknown opcodes are acknowledged and ignored.
const (
	opLamp = 0x01
)

// Notifier delivers a stamped report to the subscribed peer.
// *session.Manager is the production implementation.
type Notifier interface {
	Notify(r report.Report) error
}

// Options wires a Bridge. Source, Mapper, Encoder and Session are required;
// the rest default to disabled.
type Options struct {
	Source  input.Source
	Mapper  *debounce.Mapper
	Encoder *report.Encoder
	Session Notifier

	Telemetry telemetry.Publisher        // nil publishes nothing
	Tracker   *status.Tracker            // nil disables status updates
	Lamp      input.LampControl          // nil acknowledges lamp writes without output
	Broker    telemetry.ConnectionStatus // nil reports the broker as down
	Heartbeat time.Duration              // 0 disables heartbeat events
}

// queueStats is implemented by publishers that can lose events, such as the
// bounded async queue.
type queueStats interface {
	Dropped() uint64
}

// Bridge owns the tick loop. All loop state is confined to the Run
// goroutine; ForceResend and HandleControlWrite are the only entry points
// other goroutines touch.
type Bridge struct {
	src     input.Source
	mapper  *debounce.Mapper
	enc     *report.Encoder
	sess    Notifier
	pub     telemetry.Publisher
	tracker *status.Tracker
	lamp    input.LampControl
	broker  telemetry.ConnectionStatus
	queue   queueStats

	heartbeat time.Duration
	lastBeat  time.Time

	lastSent report.Report
	haveSent bool
	reports  uint64
	drops    uint64
	dirty    atomic.Bool

	sampleLog *rate.Limiter
	encodeLog *rate.Limiter
	notifyLog *rate.Limiter
}

// New validates the wiring and returns a Bridge ready to Run.
func New(opts Options) (*Bridge, error) {
	switch {
	case opts.Source == nil:
		return nil, fmt.Errorf("bridge: input source is required")
	case opts.Mapper == nil:
		return nil, fmt.Errorf("bridge: debounce mapper is required")
	case opts.Encoder == nil:
		return nil, fmt.Errorf("bridge: report encoder is required")
	case opts.Session == nil:
		return nil, fmt.Errorf("bridge: session is required")
	}
	pub := opts.Telemetry
	if pub == nil {
		pub = telemetry.Nop{}
	}
	b := &Bridge{
		src:       opts.Source,
		mapper:    opts.Mapper,
		enc:       opts.Encoder,
		sess:      opts.Session,
		pub:       pub,
		tracker:   opts.Tracker,
		lamp:      opts.Lamp,
		broker:    opts.Broker,
		heartbeat: opts.Heartbeat,
		sampleLog: rate.NewLimiter(rate.Every(time.Second), 1),
		encodeLog: rate.NewLimiter(rate.Every(time.Second), 1),
		notifyLog: rate.NewLimiter(rate.Every(time.Second), 1),
	}
	if q, ok := pub.(queueStats); ok {
		b.queue = q
	}
	return b, nil
}

// Run drives the loop until ctx is cancelled. The tick channel sets the
// cadence and now supplies timestamps; tests pass a manual channel and a
// fixed clock, main passes a time.Ticker and time.Now. Run always returns
// nil on cancellation: a shutdown is not an error.
func (b *Bridge) Run(ctx context.Context, tick <-chan time.Time, now func() time.Time) error {
	if now == nil {
		now = time.Now
	}
	b.lastBeat = now()
	slog.Info("[Bridge] loop running")
	for {
		select {
		case <-ctx.Done():
			slog.Info("[Bridge] loop stopped")
			return nil
		case <-tick:
			b.tick(now())
		}
	}
}

// ForceResend marks the transmit state dirty so the next tick notifies even
// when the encoded report has not changed. Wire it to the session transition
// hook: a freshly subscribed peer needs the current state, not silence until
// the next key edge.
func (b *Bridge) ForceResend() {
	b.dirty.Store(true)
}

func (b *Bridge) tick(now time.Time) {
	state, err := b.src.Sample()
	if err != nil {
		// The driver returned its last known state alongside the error;
		// the tick proceeds with it and the sample is retried next tick.
		if b.sampleLog.Allow() {
			slog.Warn("[Bridge] input sample failed, holding last state",
				"error", err, "at", now)
		}
		b.setInputError(err.Error())
	} else {
		b.setInputError("")
	}

	for _, ev := range b.mapper.Update(state, now) {
		slog.Debug("[Bridge] key edge", "key", ev.Key.String(), "pressed", ev.Pressed)
		b.pub.PublishKey(telemetry.KeyEvent{
			At:      ev.At,
			Key:     ev.Key.String(),
			Pressed: ev.Pressed,
		})
	}

	r, err := b.enc.Encode(b.mapper.Pressed(), b.mapper.Scratch())
	if err != nil {
		// Truncated, not unusable: the lowest key ids still go out.
		if b.encodeLog.Allow() {
			slog.Warn("[Bridge] report truncated",
				"keys", b.mapper.Pressed().String(), "error", err, "at", now)
		}
	}

	if b.dirty.Swap(false) {
		b.haveSent = false
	}
	if !b.haveSent || r != b.lastSent {
		b.notify(r, now)
	}

	if b.heartbeat > 0 && now.Sub(b.lastBeat) >= b.heartbeat {
		b.lastBeat = now
		slog.Debug("[Bridge] heartbeat")
		b.pub.PublishSystem(telemetry.SystemEvent{At: now, Event: "HEARTBEAT"})
	}

	if b.tracker != nil {
		b.tracker.UpdateInput(b.mapper.Pressed().String(), b.mapper.Scratch(), b.mapper.Counts())
		b.tracker.UpdateTx(b.reports, b.drops)
		if b.broker != nil {
			b.tracker.SetMQTTConnected(b.broker.IsConnected())
		}
		if b.queue != nil {
			b.tracker.SetTelemetryDropped(b.queue.Dropped())
		}
	}
}

func (b *Bridge) notify(r report.Report, now time.Time) {
	switch err := b.sess.Notify(r); {
	case err == nil:
		b.lastSent = r
		b.haveSent = true
		b.reports++
	case errors.Is(err, session.ErrNotConnected):
		// No subscribed peer. Keep quiet and keep ticking; the state goes
		// out as soon as one subscribes.
		b.haveSent = false
	default:
		b.drops++
		b.haveSent = false
		if b.notifyLog.Allow() {
			slog.Warn("[Bridge] notify failed", "error", err, "at", now)
		}
	}
}

// HandleControlWrite decodes a peer write to the control characteristic.
// Wire it to the session's write hook; it is called on the radio goroutine
// and touches no loop state.
func (b *Bridge) HandleControlWrite(value []byte) {
	if len(value) == 0 {
		return
	}
	switch value[0] {
	case opLamp:
		if len(value) < 2 {
			slog.Warn("[Bridge] short lamp write", "len", len(value))
			return
		}
		on := value[1] != 0
		if b.lamp == nil {
			slog.Debug("[Bridge] lamp write acknowledged, no lamp output", "on", on)
			return
		}
		if err := b.lamp.SetLamp(on); err != nil {
			slog.Warn("[Bridge] lamp update failed", "error", err)
			return
		}
		slog.Debug("[Bridge] lamp", "on", on)
	default:
		slog.Debug("[Bridge] control write ignored", "opcode", value[0])
	}
}

func (b *Bridge) setInputError(msg string) {
	if b.tracker != nil {
		b.tracker.SetInputError(msg)
	}
}

var _ Notifier = (*session.Manager)(nil)
