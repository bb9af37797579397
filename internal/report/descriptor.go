package report

import "fmt"

// Descriptor describes the report layout exposed to the peer. The blob is
// static and must match what Encode produces byte for byte; the capacity
// bound is enforced by the encoder at runtime.
type Descriptor struct {
	// MaxPressed is the number of keys the report can carry at once. The
	// stock controller PCB registers at most 8 simultaneous switches.
	MaxPressed int
}

// DefaultDescriptor returns the descriptor matching the stock entry-model
// controller.
func DefaultDescriptor() Descriptor {
	return Descriptor{MaxPressed: 8}
}

// Validate checks the descriptor bounds.
func (d Descriptor) Validate() error {
	if d.MaxPressed < 1 || d.MaxPressed > 11 {
		return fmt.Errorf("report: max pressed keys %d out of range [1,11]", d.MaxPressed)
	}
	return nil
}

// Blob returns the HID report descriptor served from the descriptor
// characteristic. It describes one 5-byte frame: scratch axis, a reserved
// byte, seven play keys plus padding, four option buttons plus padding, and
// the frame sequence counter. The notify payload carries two such frames.
func (d Descriptor) Blob() []byte {
	return descriptorBlob
}

var descriptorBlob = []byte{
	0x05, 0x01, // Usage Page (Generic Desktop)
	0x09, 0x05, // Usage (Gamepad)
	0xA1, 0x01, // Collection (Application)
	0x09, 0x30, //   Usage (X) - scratch
	0x15, 0x00, //   Logical Minimum (0)
	0x26, 0xFF, 0x00, //   Logical Maximum (255)
	0x75, 0x08, //   Report Size (8)
	0x95, 0x01, //   Report Count (1)
	0x81, 0x02, //   Input (Data,Var,Abs)
	0x75, 0x08, //   Report Size (8) - reserved byte
	0x95, 0x01, //   Report Count (1)
	0x81, 0x01, //   Input (Const)
	0x05, 0x09, //   Usage Page (Button)
	0x19, 0x01, //   Usage Minimum (Button 1)
	0x29, 0x07, //   Usage Maximum (Button 7)
	0x15, 0x00, //   Logical Minimum (0)
	0x25, 0x01, //   Logical Maximum (1)
	0x75, 0x01, //   Report Size (1)
	0x95, 0x07, //   Report Count (7)
	0x81, 0x02, //   Input (Data,Var,Abs)
	0x75, 0x01, //   Report Size (1) - pad to byte
	0x95, 0x01, //   Report Count (1)
	0x81, 0x01, //   Input (Const)
	0x19, 0x09, //   Usage Minimum (Button 9) - E1..E4
	0x29, 0x0C, //   Usage Maximum (Button 12)
	0x75, 0x01, //   Report Size (1)
	0x95, 0x04, //   Report Count (4)
	0x81, 0x02, //   Input (Data,Var,Abs)
	0x75, 0x01, //   Report Size (1) - pad to byte
	0x95, 0x04, //   Report Count (4)
	0x81, 0x01, //   Input (Const)
	0x06, 0x00, 0xFF, //   Usage Page (Vendor Defined)
	0x09, 0x01, //   Usage (Vendor Usage 1) - frame sequence
	0x15, 0x00, //   Logical Minimum (0)
	0x26, 0xFF, 0x00, //   Logical Maximum (255)
	0x75, 0x08, //   Report Size (8)
	0x95, 0x01, //   Report Count (1)
	0x81, 0x02, //   Input (Data,Var,Abs)
	0xC0, // End Collection
}
