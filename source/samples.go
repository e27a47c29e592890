package source

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/Alia5/CONDUIT/geom"
)

// Wire sizes of the fixed-length sample encodings. Stream producers write
// exactly one encoded sample per frame; consumers read fixed-size frames.
const (
	MouseSampleSize   = 15
	TouchSampleSize   = 10
	GamepadSampleSize = 14
	MotionSampleSize  = 62
)

// SampleSize returns the wire size for a family's sample encoding, or 0 for
// an unknown family.
func SampleSize(f Family) int {
	switch f.Norm() {
	case FamilyMouse:
		return MouseSampleSize
	case FamilyTouch:
		return TouchSampleSize
	case FamilyGamepad:
		return GamepadSampleSize
	case FamilyMotion:
		return MotionSampleSize
	default:
		return 0
	}
}

// Mouse button bitmasks.
const (
	MouseButtonLeft   = 0x01
	MouseButtonRight  = 0x02
	MouseButtonMiddle = 0x04
)

// MouseSample is one frame's mouse reading: absolute cursor position plus
// the relative motion and wheel ticks accumulated since the last frame.
type MouseSample struct {
	// Button bitfield: bit 0=Left, 1=Right, 2=Middle
	Buttons uint8
	// Absolute cursor position in screen units
	X, Y int32
	// Relative motion since the previous sample
	DX, DY int16
	// Vertical wheel ticks since the previous sample
	Wheel int16
}

// MarshalBinary encodes the sample to 15 bytes.
//
// Layout:
//
//	Byte 0: Button bitfield
//	Bytes 1-4: X (int32 little-endian)
//	Bytes 5-8: Y (int32 little-endian)
//	Bytes 9-10: DX (int16 little-endian)
//	Bytes 11-12: DY (int16 little-endian)
//	Bytes 13-14: Wheel (int16 little-endian)
func (m *MouseSample) MarshalBinary() ([]byte, error) {
	b := make([]byte, MouseSampleSize)
	b[0] = m.Buttons
	binary.LittleEndian.PutUint32(b[1:5], uint32(m.X))
	binary.LittleEndian.PutUint32(b[5:9], uint32(m.Y))
	binary.LittleEndian.PutUint16(b[9:11], uint16(m.DX))
	binary.LittleEndian.PutUint16(b[11:13], uint16(m.DY))
	binary.LittleEndian.PutUint16(b[13:15], uint16(m.Wheel))
	return b, nil
}

// UnmarshalBinary decodes 15 bytes into the sample.
func (m *MouseSample) UnmarshalBinary(data []byte) error {
	if len(data) < MouseSampleSize {
		return io.ErrUnexpectedEOF
	}
	m.Buttons = data[0]
	m.X = int32(binary.LittleEndian.Uint32(data[1:5]))
	m.Y = int32(binary.LittleEndian.Uint32(data[5:9]))
	m.DX = int16(binary.LittleEndian.Uint16(data[9:11]))
	m.DY = int16(binary.LittleEndian.Uint16(data[11:13]))
	m.Wheel = int16(binary.LittleEndian.Uint16(data[13:15]))
	return nil
}

// TouchPhase is the per-contact lifecycle phase reported by touch platforms.
type TouchPhase uint8

const (
	TouchBegan TouchPhase = iota
	TouchMoved
	TouchStationary
	TouchEnded
	TouchCanceled
)

func (p TouchPhase) String() string {
	switch p {
	case TouchBegan:
		return "began"
	case TouchMoved:
		return "moved"
	case TouchStationary:
		return "stationary"
	case TouchEnded:
		return "ended"
	case TouchCanceled:
		return "canceled"
	default:
		return "touchphase(?)"
	}
}

// TouchSample is one frame's reading for a single finger contact. Each
// contact is its own source; the contact id is the source id.
type TouchSample struct {
	Phase TouchPhase
	// Contact position in screen units
	X, Y float32
	// Platform tap count at touch end (double tap = 2)
	TapCount uint8
}

// Position returns the contact position as a vector.
func (t *TouchSample) Position() geom.Vec2 {
	return geom.Vec2{X: t.X, Y: t.Y}
}

// MarshalBinary encodes the sample to 10 bytes.
//
// Layout:
//
//	Byte 0: Phase
//	Bytes 1-4: X (float32 bits, little-endian)
//	Bytes 5-8: Y (float32 bits, little-endian)
//	Byte 9: TapCount
func (t *TouchSample) MarshalBinary() ([]byte, error) {
	b := make([]byte, TouchSampleSize)
	b[0] = byte(t.Phase)
	binary.LittleEndian.PutUint32(b[1:5], math.Float32bits(t.X))
	binary.LittleEndian.PutUint32(b[5:9], math.Float32bits(t.Y))
	b[9] = t.TapCount
	return b, nil
}

// UnmarshalBinary decodes 10 bytes into the sample.
func (t *TouchSample) UnmarshalBinary(data []byte) error {
	if len(data) < TouchSampleSize {
		return io.ErrUnexpectedEOF
	}
	t.Phase = TouchPhase(data[0])
	t.X = math.Float32frombits(binary.LittleEndian.Uint32(data[1:5]))
	t.Y = math.Float32frombits(binary.LittleEndian.Uint32(data[5:9]))
	t.TapCount = data[9]
	return nil
}

// Gamepad button bitmasks (XInput-compatible layout).
const (
	GamepadDPadUp    = 0x0001
	GamepadDPadDown  = 0x0002
	GamepadDPadLeft  = 0x0004
	GamepadDPadRight = 0x0008
	GamepadStart     = 0x0010
	GamepadBack      = 0x0020
	GamepadLThumb    = 0x0040
	GamepadRThumb    = 0x0080
	GamepadLShoulder = 0x0100
	GamepadRShoulder = 0x0200
	GamepadA         = 0x1000
	GamepadB         = 0x2000
	GamepadX         = 0x4000
	GamepadY         = 0x8000
)

// GamepadSample is one frame's raw gamepad reading. Triggers and sticks keep
// their native integer ranges; the gamepad adapter normalizes them.
type GamepadSample struct {
	// Button bitfield (lower 16 bits used)
	Buttons uint32
	// Triggers: 0-255
	LT, RT uint8
	// Sticks: signed 16-bit, full scale
	LX, LY int16
	RX, RY int16
}

// MarshalBinary encodes the sample to 14 bytes.
//
// Layout:
//
//	Bytes 0-3: Buttons (uint32 little-endian)
//	Byte 4: LT, Byte 5: RT
//	Bytes 6-7: LX, 8-9: LY, 10-11: RX, 12-13: RY (int16 little-endian)
func (g *GamepadSample) MarshalBinary() ([]byte, error) {
	b := make([]byte, GamepadSampleSize)
	binary.LittleEndian.PutUint32(b[0:4], g.Buttons)
	b[4] = g.LT
	b[5] = g.RT
	binary.LittleEndian.PutUint16(b[6:8], uint16(g.LX))
	binary.LittleEndian.PutUint16(b[8:10], uint16(g.LY))
	binary.LittleEndian.PutUint16(b[10:12], uint16(g.RX))
	binary.LittleEndian.PutUint16(b[12:14], uint16(g.RY))
	return b, nil
}

// UnmarshalBinary decodes 14 bytes into the sample.
func (g *GamepadSample) UnmarshalBinary(data []byte) error {
	if len(data) < GamepadSampleSize {
		return io.ErrUnexpectedEOF
	}
	g.Buttons = binary.LittleEndian.Uint32(data[0:4])
	g.LT = data[4]
	g.RT = data[5]
	g.LX = int16(binary.LittleEndian.Uint16(data[6:8]))
	g.LY = int16(binary.LittleEndian.Uint16(data[8:10]))
	g.RX = int16(binary.LittleEndian.Uint16(data[10:12]))
	g.RY = int16(binary.LittleEndian.Uint16(data[12:14]))
	return nil
}

// Motion controller button bitmasks.
const (
	MotionSelectPressed = 0x01
	MotionGripPressed   = 0x02
	MotionThumbPressed  = 0x04
	MotionMenuPressed   = 0x08
)

// MotionSample is one frame's reading from a spatial motion controller:
// grip and pointer poses in playspace units plus the analog and button
// states.
type MotionSample struct {
	Grip    geom.Pose
	Pointer geom.Pose
	// Select trigger: 0-255
	Select uint8
	// Button bitfield, see Motion* masks
	Buttons uint8
	// Thumbstick: signed 16-bit, full scale
	TX, TY int16
}

// Pressed reports whether the given Motion* mask bit is set.
func (m *MotionSample) Pressed(mask uint8) bool {
	return m.Buttons&mask != 0
}

// MarshalBinary encodes the sample to 62 bytes.
//
// Layout:
//
//	Bytes 0-27: Grip pose (position x,y,z then orientation w,x,y,z;
//	            float32 bits, little-endian)
//	Bytes 28-55: Pointer pose, same layout
//	Byte 56: Select (0-255)
//	Byte 57: Buttons bitfield
//	Bytes 58-59: TX, 60-61: TY (int16 little-endian)
func (m *MotionSample) MarshalBinary() ([]byte, error) {
	b := make([]byte, MotionSampleSize)
	putPose(b[0:28], m.Grip)
	putPose(b[28:56], m.Pointer)
	b[56] = m.Select
	b[57] = m.Buttons
	binary.LittleEndian.PutUint16(b[58:60], uint16(m.TX))
	binary.LittleEndian.PutUint16(b[60:62], uint16(m.TY))
	return b, nil
}

// UnmarshalBinary decodes 62 bytes into the sample.
func (m *MotionSample) UnmarshalBinary(data []byte) error {
	if len(data) < MotionSampleSize {
		return io.ErrUnexpectedEOF
	}
	m.Grip = getPose(data[0:28])
	m.Pointer = getPose(data[28:56])
	m.Select = data[56]
	m.Buttons = data[57]
	m.TX = int16(binary.LittleEndian.Uint16(data[58:60]))
	m.TY = int16(binary.LittleEndian.Uint16(data[60:62]))
	return nil
}

func putPose(b []byte, p geom.Pose) {
	binary.LittleEndian.PutUint32(b[0:4], math.Float32bits(p.Position.X))
	binary.LittleEndian.PutUint32(b[4:8], math.Float32bits(p.Position.Y))
	binary.LittleEndian.PutUint32(b[8:12], math.Float32bits(p.Position.Z))
	binary.LittleEndian.PutUint32(b[12:16], math.Float32bits(p.Orientation.W))
	binary.LittleEndian.PutUint32(b[16:20], math.Float32bits(p.Orientation.X))
	binary.LittleEndian.PutUint32(b[20:24], math.Float32bits(p.Orientation.Y))
	binary.LittleEndian.PutUint32(b[24:28], math.Float32bits(p.Orientation.Z))
}

func getPose(b []byte) geom.Pose {
	return geom.Pose{
		Position: geom.Vec3{
			X: math.Float32frombits(binary.LittleEndian.Uint32(b[0:4])),
			Y: math.Float32frombits(binary.LittleEndian.Uint32(b[4:8])),
			Z: math.Float32frombits(binary.LittleEndian.Uint32(b[8:12])),
		},
		Orientation: geom.Quat{
			W: math.Float32frombits(binary.LittleEndian.Uint32(b[12:16])),
			X: math.Float32frombits(binary.LittleEndian.Uint32(b[16:20])),
			Y: math.Float32frombits(binary.LittleEndian.Uint32(b[20:24])),
			Z: math.Float32frombits(binary.LittleEndian.Uint32(b[24:28])),
		},
	}
}
