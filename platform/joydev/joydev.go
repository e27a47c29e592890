// Package joydev reads Linux joystick devices through the kernel's joydev
// interface. The event layout and sample accumulation live here and are
// portable; device discovery, hotplug and the blocking readers sit behind
// the linux build tag.
package joydev

import (
	"math"

	"github.com/Alia5/CONDUIT/source"
)

// EventSize is the length of one joydev record on the wire.
const EventSize = 8

// Event types from linux/joystick.h. The kernel ORs EventInit into the
// type of the synthetic events that describe device state at open time.
const (
	EventButton = 0x01
	EventAxis   = 0x02
	EventInit   = 0x80
)

// Event is one joydev record: 8 bytes, little-endian.
type Event struct {
	Time   uint32
	Value  int16
	Type   uint8
	Number uint8
}

// Button and axis numbering follow the xpad driver's joydev mapping.
const (
	axisLX   = 0
	axisLY   = 1
	axisLT   = 2
	axisRX   = 3
	axisRY   = 4
	axisRT   = 5
	axisHatX = 6
	axisHatY = 7
)

// buttonBits maps joydev button numbers to sample bits. The guide button
// (8) has no slot in the bitfield and is dropped.
var buttonBits = [11]uint32{
	0:  source.GamepadA,
	1:  source.GamepadB,
	2:  source.GamepadX,
	3:  source.GamepadY,
	4:  source.GamepadLShoulder,
	5:  source.GamepadRShoulder,
	6:  source.GamepadBack,
	7:  source.GamepadStart,
	9:  source.GamepadLThumb,
	10: source.GamepadRThumb,
}

// Accumulator folds a stream of joydev events into a gamepad sample.
// Joydev reports deltas per control; the sample is the running state.
type Accumulator struct {
	sample source.GamepadSample
}

// Fold merges one event into the running sample. Init events fold exactly
// like live ones. Unknown buttons and axes are ignored.
func (a *Accumulator) Fold(e Event) {
	switch e.Type &^ EventInit {
	case EventButton:
		if int(e.Number) >= len(buttonBits) {
			return
		}
		bit := buttonBits[e.Number]
		if bit == 0 {
			return
		}
		if e.Value != 0 {
			a.sample.Buttons |= bit
		} else {
			a.sample.Buttons &^= bit
		}
	case EventAxis:
		a.foldAxis(e.Number, e.Value)
	}
}

// Sample returns the current accumulated reading.
func (a *Accumulator) Sample() source.GamepadSample {
	return a.sample
}

func (a *Accumulator) foldAxis(number uint8, v int16) {
	switch number {
	case axisLX:
		a.sample.LX = v
	case axisLY:
		a.sample.LY = flip(v)
	case axisLT:
		a.sample.LT = triggerByte(v)
	case axisRX:
		a.sample.RX = v
	case axisRY:
		a.sample.RY = flip(v)
	case axisRT:
		a.sample.RT = triggerByte(v)
	case axisHatX:
		a.hat(v, source.GamepadDPadLeft, source.GamepadDPadRight)
	case axisHatY:
		a.hat(v, source.GamepadDPadUp, source.GamepadDPadDown)
	}
}

// hat translates one hat axis into its pair of d-pad bits.
func (a *Accumulator) hat(v int16, negative, positive uint32) {
	a.sample.Buttons &^= negative | positive
	switch {
	case v < 0:
		a.sample.Buttons |= negative
	case v > 0:
		a.sample.Buttons |= positive
	}
}

// flip converts joydev's downward-positive vertical axes to the sample's
// upward-positive convention.
func flip(v int16) int16 {
	if v == math.MinInt16 {
		return math.MaxInt16
	}
	return -v
}

// triggerByte rescales a trigger axis, resting at -32767, to 0..255.
func triggerByte(v int16) uint8 {
	return uint8((int32(v) + 32767) * 255 / 65534)
}
