package input

import (
	"errors"
	"fmt"
	"sync"

	hook "github.com/robotn/gohook"
)

// Keyboard turns desktop keyboard keys into controller channels, for bench
// work without hardware. keys[i] is bound to channel i. The hook is
// process-global, so at most one Keyboard may be open at a time.
type Keyboard struct {
	mu    sync.Mutex
	state State

	done chan struct{}
	once sync.Once
}

// OpenKeyboard registers the key hooks and starts the event pump.
// Key names are lowercase gohook names (e.g. "s", "d", "space").
func OpenKeyboard(keys []string) (*Keyboard, error) {
	if len(keys) == 0 {
		return nil, errors.New("input: keyboard: no keys bound")
	}
	if len(keys) > MaxChannels {
		return nil, fmt.Errorf("input: keyboard: %d keys, at most %d supported", len(keys), MaxChannels)
	}

	k := &Keyboard{done: make(chan struct{})}
	for i, name := range keys {
		ch := i
		hook.Register(hook.KeyDown, []string{name}, func(hook.Event) {
			k.set(ch, true)
		})
		hook.Register(hook.KeyUp, []string{name}, func(hook.Event) {
			k.set(ch, false)
		})
	}
	go k.run()
	return k, nil
}

func (k *Keyboard) run() {
	evChan := hook.Start()
	go func() {
		<-k.done
		hook.End()
	}()
	<-hook.Process(evChan)
}

func (k *Keyboard) set(channel int, pressed bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if pressed {
		k.state.Buttons |= 1 << channel
	} else {
		k.state.Buttons &^= 1 << channel
	}
}

func (k *Keyboard) Sample() (State, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.state, nil
}

// Close stops the event pump. Safe to call multiple times.
func (k *Keyboard) Close() error {
	k.once.Do(func() {
		close(k.done)
	})
	return nil
}

var _ Source = (*Keyboard)(nil)
