//go:build linux

package input

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Joystick reads a Linux joystick device (/dev/input/jsN). A background
// goroutine consumes the event stream and keeps the latest state; Sample
// never touches the device. If the device drops (ENODEV on unplug), the
// reader keeps the last known state, flags the error, and retries the open
// with backoff until the device returns or the source is closed.
type Joystick struct {
	path string

	mu     sync.Mutex
	f      *os.File
	state  State
	err    error
	closed bool
}

// OpenJoystick opens the device and starts the reader.
func OpenJoystick(path string) (*Joystick, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("input: open joystick %s: %w", path, err)
	}
	j := &Joystick{path: path, f: f}
	go j.readLoop()
	slog.Info("[Input] joystick opened", "path", path)
	return j, nil
}

func (j *Joystick) Sample() (State, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state, j.err
}

// Close releases the device and stops the reader. Safe to call twice.
func (j *Joystick) Close() error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return nil
	}
	j.closed = true
	f := j.f
	j.f = nil
	j.mu.Unlock()

	if f != nil {
		return f.Close()
	}
	return nil
}

func (j *Joystick) readLoop() {
	buf := make([]byte, jsEventLen)
	for {
		j.mu.Lock()
		f, closed := j.f, j.closed
		j.mu.Unlock()
		if closed || f == nil {
			return
		}

		if _, err := io.ReadFull(f, buf); err != nil {
			j.mu.Lock()
			if j.closed {
				j.mu.Unlock()
				return
			}
			j.err = fmt.Errorf("input: joystick %s: %v: %w", j.path, err, ErrDeviceUnavailable)
			j.f = nil
			j.mu.Unlock()
			f.Close()
			slog.Error("[Input] joystick read failed, retrying", "path", j.path, "error", err)
			if !j.reopen() {
				return
			}
			continue
		}

		ev := decodeJSEvent(buf)
		j.mu.Lock()
		ev.apply(&j.state)
		j.err = nil
		j.mu.Unlock()
	}
}

// reopen retries the device open until it succeeds or the source is closed.
func (j *Joystick) reopen() bool {
	for attempt := 0; ; attempt++ {
		time.Sleep(reopenDelay(attempt))

		j.mu.Lock()
		closed := j.closed
		j.mu.Unlock()
		if closed {
			return false
		}

		f, err := os.Open(j.path)
		if err != nil {
			continue
		}

		j.mu.Lock()
		if j.closed {
			j.mu.Unlock()
			f.Close()
			return false
		}
		j.f = f
		j.mu.Unlock()
		slog.Info("[Input] joystick reconnected", "path", j.path, "attempts", attempt+1)
		return true
	}
}

// reopenDelay is exponential from 1s, capped at 5s.
func reopenDelay(attempt int) time.Duration {
	delay := 1 << uint(attempt)
	if delay > 5 {
		delay = 5
	}
	return time.Duration(delay) * time.Second
}

var _ Source = (*Joystick)(nil)
