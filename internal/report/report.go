// Package report encodes the debounced logical key state into the fixed
// 10-byte input report the game client expects. Encoding is a pure function
// of the pressed-key set and the scratch axis; the rolling frame sequence is
// stamped separately at transmit time so identical states stay comparable.
package report

import (
	"errors"
	"fmt"

	"github.com/enokida/padbridge/internal/keymap"
)

// ErrOverflow is returned when more keys are pressed than the descriptor can
// carry. The encoder still returns a usable report truncated to the lowest
// key ids; callers log the overflow and transmit the truncated report.
var ErrOverflow = errors.New("report: pressed keys exceed descriptor capacity")

// Report byte layout: two mirrored 5-byte frames.
const (
	Len      = 10
	frameLen = 5

	offScratch = 0 // scratch axis position
	offNormal  = 2 // B1..B7 bitmask, bit 0 = B1
	offOption  = 3 // E1..E4 bitmask, bit 0 = E1
	offSeq     = 4 // rolling frame sequence, stamped at transmit
)

// Report is one encoded input report with the sequence bytes left zero.
// Reports are value types and compare with ==.
type Report [Len]byte

// Stamp returns the wire payload with the frame sequence applied. The first
// frame carries seq, the mirrored frame seq+1, matching the stock firmware's
// doubled-frame stream.
func (r Report) Stamp(seq uint8) []byte {
	buf := make([]byte, Len)
	copy(buf, r[:])
	buf[offSeq] = seq
	buf[frameLen+offSeq] = seq + 1
	return buf
}

// Encoder builds Reports against a fixed descriptor.
type Encoder struct {
	desc Descriptor
}

// NewEncoder returns an Encoder for the given descriptor.
func NewEncoder(desc Descriptor) *Encoder {
	return &Encoder{desc: desc}
}

// Encode converts the pressed-key set and scratch axis position into a
// Report. When the set exceeds the descriptor's simultaneous-key capacity it
// returns the report truncated to the lowest key ids together with an error
// wrapping ErrOverflow.
func (e *Encoder) Encode(keys keymap.Set, scratch uint8) (Report, error) {
	var err error
	if n := keys.Count(); n > e.desc.MaxPressed {
		err = fmt.Errorf("report: %d keys pressed, descriptor carries %d: %w",
			n, e.desc.MaxPressed, ErrOverflow)
		keys = keys.Lowest(e.desc.MaxPressed)
	}

	var normal, option uint8
	for k := keymap.KeyB1; k <= keymap.KeyB7; k++ {
		if keys.Has(k) {
			normal |= 1 << k
		}
	}
	for k := keymap.KeyE1; k <= keymap.KeyE4; k++ {
		if keys.Has(k) {
			option |= 1 << (k - keymap.KeyE1)
		}
	}

	var r Report
	for _, off := range [2]int{0, frameLen} {
		r[off+offScratch] = scratch
		r[off+offNormal] = normal
		r[off+offOption] = option
	}
	return r, err
}
