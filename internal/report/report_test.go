package report

import (
	"bytes"
	"errors"
	"testing"

	"github.com/enokida/padbridge/internal/keymap"
)

func TestEncodeLayout(t *testing.T) {
	enc := NewEncoder(DefaultDescriptor())

	var keys keymap.Set
	keys = keys.Add(keymap.KeyB1).Add(keymap.KeyB3).Add(keymap.KeyE2)

	r, err := enc.Encode(keys, 0x42)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	want := Report{
		0x42, 0x00, 0b0000_0101, 0b0010, 0x00,
		0x42, 0x00, 0b0000_0101, 0b0010, 0x00,
	}
	if r != want {
		t.Errorf("Encode = % x, want % x", r[:], want[:])
	}
}

func TestEncodeDeterministic(t *testing.T) {
	enc := NewEncoder(DefaultDescriptor())

	var keys keymap.Set
	keys = keys.Add(keymap.KeyB2).Add(keymap.KeyB7).Add(keymap.KeyE4)

	a, err := enc.Encode(keys, 128)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	b, err := enc.Encode(keys, 128)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if a != b {
		t.Errorf("same input produced different reports: % x vs % x", a[:], b[:])
	}
}

func TestEncodeEmpty(t *testing.T) {
	enc := NewEncoder(DefaultDescriptor())

	r, err := enc.Encode(0, 0)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if r != (Report{}) {
		t.Errorf("empty state encoded non-zero report: % x", r[:])
	}
}

func TestEncodeOverflowTruncatesToLowestIds(t *testing.T) {
	enc := NewEncoder(Descriptor{MaxPressed: 3})

	var keys keymap.Set
	keys = keys.Add(keymap.KeyB1).Add(keymap.KeyB2).Add(keymap.KeyB5).
		Add(keymap.KeyE1).Add(keymap.KeyE3)

	r, err := enc.Encode(keys, 0)
	if !errors.Is(err, ErrOverflow) {
		t.Fatalf("Encode error = %v, want ErrOverflow", err)
	}

	// B1, B2, B5 survive; E1 and E3 are shed.
	if r[2] != 0b0001_0011 {
		t.Errorf("normal mask = %08b, want 00010011", r[2])
	}
	if r[3] != 0 {
		t.Errorf("option mask = %08b, want 0", r[3])
	}
}

func TestEncodeAllKeysOverflowsDefaultDescriptor(t *testing.T) {
	enc := NewEncoder(DefaultDescriptor())

	var keys keymap.Set
	for k := keymap.Key(0); k < keymap.KeyCount; k++ {
		keys = keys.Add(k)
	}

	r, err := enc.Encode(keys, 0)
	if !errors.Is(err, ErrOverflow) {
		t.Fatalf("Encode error = %v, want ErrOverflow", err)
	}
	// 8 lowest ids kept: B1..B7 plus E1.
	if r[2] != 0b0111_1111 {
		t.Errorf("normal mask = %08b, want 01111111", r[2])
	}
	if r[3] != 0b0001 {
		t.Errorf("option mask = %08b, want 0001", r[3])
	}
}

func TestEncodeAtCapacityNoError(t *testing.T) {
	enc := NewEncoder(Descriptor{MaxPressed: 2})

	var keys keymap.Set
	keys = keys.Add(keymap.KeyB1).Add(keymap.KeyB2)

	if _, err := enc.Encode(keys, 0); err != nil {
		t.Errorf("Encode at exact capacity: unexpected error %v", err)
	}
}

func TestStamp(t *testing.T) {
	enc := NewEncoder(DefaultDescriptor())

	var keys keymap.Set
	keys = keys.Add(keymap.KeyB4)

	r, err := enc.Encode(keys, 0x10)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	buf := as10(t, r.Stamp(0x20))
	if buf[4] != 0x20 || buf[9] != 0x21 {
		t.Errorf("sequence bytes = %#x, %#x; want 0x20, 0x21", buf[4], buf[9])
	}
	// Stamping must not disturb the encoded fields.
	if buf[0] != 0x10 || buf[5] != 0x10 {
		t.Errorf("scratch bytes disturbed: % x", buf)
	}
	if buf[2] != 0b1000 || buf[7] != 0b1000 {
		t.Errorf("normal mask disturbed: % x", buf)
	}
	// The source report stays untouched.
	if r[4] != 0 || r[9] != 0 {
		t.Errorf("Stamp mutated the report: % x", r[:])
	}
}

func TestStampSequenceWraps(t *testing.T) {
	var r Report
	buf := as10(t, r.Stamp(0xFF))
	if buf[4] != 0xFF || buf[9] != 0x00 {
		t.Errorf("wrap: seq bytes = %#x, %#x; want 0xff, 0x00", buf[4], buf[9])
	}
}

func TestFramesMirror(t *testing.T) {
	enc := NewEncoder(DefaultDescriptor())

	var keys keymap.Set
	keys = keys.Add(keymap.KeyB6).Add(keymap.KeyE1)

	r, err := enc.Encode(keys, 200)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(r[0:4], r[5:9]) {
		t.Errorf("frames differ outside sequence bytes: % x", r[:])
	}
}

func TestDescriptorValidate(t *testing.T) {
	if err := DefaultDescriptor().Validate(); err != nil {
		t.Errorf("default descriptor invalid: %v", err)
	}
	if err := (Descriptor{MaxPressed: 0}).Validate(); err == nil {
		t.Error("MaxPressed 0: expected error")
	}
	if err := (Descriptor{MaxPressed: 12}).Validate(); err == nil {
		t.Error("MaxPressed 12: expected error")
	}
}

func TestDescriptorBlobNotEmpty(t *testing.T) {
	blob := DefaultDescriptor().Blob()
	if len(blob) == 0 {
		t.Fatal("descriptor blob is empty")
	}
	// Application collection open and close.
	if blob[0] != 0x05 || blob[len(blob)-1] != 0xC0 {
		t.Errorf("blob does not look like a report descriptor: % x ... % x", blob[0], blob[len(blob)-1])
	}
}

func as10(t *testing.T, buf []byte) []byte {
	t.Helper()
	if len(buf) != Len {
		t.Fatalf("payload length = %d, want %d", len(buf), Len)
	}
	return buf
}
