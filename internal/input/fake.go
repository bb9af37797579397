package input

import "sync"

// Fake is a scripted Source for tests. Each Sample consumes the next
// scripted state; once exhausted, the last state repeats. Setting Err makes
// Sample return the current state alongside it, mirroring the real drivers'
// degraded mode.
type Fake struct {
	mu      sync.Mutex
	samples []State
	index   int
	err     error
	closed  bool
}

// NewFake creates a Fake that serves the given states in order.
func NewFake(samples ...State) *Fake {
	if len(samples) == 0 {
		samples = []State{{}}
	}
	return &Fake{samples: samples}
}

func (f *Fake) Sample() (State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.samples[f.index]
	if f.index < len(f.samples)-1 {
		f.index++
	}
	return s, f.err
}

// Set replaces the script with a single state served from now on.
func (f *Fake) Set(s State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.samples = []State{s}
	f.index = 0
}

// SetErr sets or clears the error returned by Sample.
func (f *Fake) SetErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Closed reports whether Close was called.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

var _ Source = (*Fake)(nil)
