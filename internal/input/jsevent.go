package input

import "encoding/binary"

// Linux joystick API wire format, one 8-byte event per read.
// https://www.kernel.org/doc/Documentation/input/joystick-api.txt
const jsEventLen = 8

const (
	jsTypeButton = 0x01
	jsTypeAxis   = 0x02
	jsTypeInit   = 0x80 // synthetic events replayed on open
)

type jsEvent struct {
	Time   uint32
	Value  int16
	Type   uint8
	Number uint8
}

func decodeJSEvent(buf []byte) jsEvent {
	return jsEvent{
		Time:   binary.LittleEndian.Uint32(buf[0:4]),
		Value:  int16(binary.LittleEndian.Uint16(buf[4:6])),
		Type:   buf[6],
		Number: buf[7],
	}
}

// apply folds the event into the running state. Init events are replays of
// the state at open time and are dropped, matching the stock firmware. Any
// axis moves the scratch; the entry-model controller only has the one.
func (e jsEvent) apply(s *State) {
	if e.Type&jsTypeInit != 0 {
		return
	}
	switch e.Type {
	case jsTypeButton:
		if int(e.Number) >= MaxChannels {
			return
		}
		if e.Value != 0 {
			s.Buttons |= 1 << e.Number
		} else {
			s.Buttons &^= 1 << e.Number
		}
	case jsTypeAxis:
		s.Scratch = convertScratch(e.Value)
	}
}

// convertScratch maps a raw axis value (0..255 in the low byte) to the wire
// scratch byte. Sensitivity is doubled, wrapping at 0xFF.
func convertScratch(value int16) uint8 {
	return uint8(uint16(uint8(value)) * 2 % 0xFF)
}
