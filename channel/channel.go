// Package channel implements the interaction-channel model: one named,
// typed input value stream per channel, diffed against its previous sample
// to decide whether a change notification is due. Channels are grouped into
// tables owned by one adapter; the table is the single authoritative
// representation of an adapter's mapping.
package channel

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Alia5/CONDUIT/geom"
)

// Axis is the shape tag of a channel's value: exactly one of the typed
// slots of Value is active, selected by this tag.
type Axis uint8

const (
	AxisBool Axis = iota
	AxisScalar
	AxisVec2
	AxisPose
)

func (a Axis) String() string {
	switch a {
	case AxisBool:
		return "bool"
	case AxisScalar:
		return "scalar"
	case AxisVec2:
		return "vec2"
	case AxisPose:
		return "pose"
	default:
		return fmt.Sprintf("axis(%d)", uint8(a))
	}
}

// ParseAxis parses the textual axis form used in profiles.
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bool", "boolean", "digital":
		return AxisBool, nil
	case "scalar", "float", "analog":
		return AxisScalar, nil
	case "vec2", "vector2", "dual":
		return AxisVec2, nil
	case "pose", "sixdof":
		return AxisPose, nil
	default:
		return AxisBool, fmt.Errorf("unknown axis %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a Axis) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Axis) UnmarshalText(text []byte) error {
	parsed, err := ParseAxis(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Kind is the input-kind tag of a channel: what the value means, not how it
// is shaped. Every kind has a canonical axis and an update phase.
type Kind uint8

const (
	KindNone Kind = iota
	KindSpatialPointer
	KindSpatialGrip
	KindPointerPosition
	KindPointerDelta
	KindTrigger
	KindTriggerSecondary
	KindTriggerPress
	KindGripPress
	KindThumbstick
	KindThumbstickSecondary
	KindThumbstickPress
	KindTouchpad
	KindTouchContact
	KindPrimaryButton
	KindSecondaryButton
	KindTertiaryButton
	KindScroll
	KindDPad
	KindMenu
)

var kindNames = map[Kind]string{
	KindNone:                "none",
	KindSpatialPointer:      "spatial-pointer",
	KindSpatialGrip:         "spatial-grip",
	KindPointerPosition:     "pointer-position",
	KindPointerDelta:        "pointer-delta",
	KindTrigger:             "trigger",
	KindTriggerSecondary:    "trigger-secondary",
	KindTriggerPress:        "trigger-press",
	KindGripPress:           "grip-press",
	KindThumbstick:          "thumbstick",
	KindThumbstickSecondary: "thumbstick-secondary",
	KindThumbstickPress:     "thumbstick-press",
	KindTouchpad:            "touchpad",
	KindTouchContact:        "touch-contact",
	KindPrimaryButton:       "primary-button",
	KindSecondaryButton:     "secondary-button",
	KindTertiaryButton:      "tertiary-button",
	KindScroll:              "scroll",
	KindDPad:                "dpad",
	KindMenu:                "menu",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind parses the textual kind form used in profiles.
func ParseKind(s string) (Kind, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for k, n := range kindNames {
		if n == want {
			return k, nil
		}
	}
	return KindNone, fmt.Errorf("unknown input kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Axis returns the canonical axis shape for the kind.
func (k Kind) Axis() Axis {
	switch k {
	case KindSpatialPointer, KindSpatialGrip:
		return AxisPose
	case KindPointerPosition, KindPointerDelta, KindThumbstick, KindThumbstickSecondary, KindTouchpad, KindDPad:
		return AxisVec2
	case KindTrigger, KindTriggerSecondary, KindScroll:
		return AxisScalar
	default:
		return AxisBool
	}
}

// UpdatePhase says on which of the two per-frame passes a channel is
// recomputed. Pose-phase channels carry spatial data and are updated for
// all sources before any interaction-phase channel is touched.
type UpdatePhase uint8

const (
	PhasePose UpdatePhase = iota
	PhaseInteraction
)

// Phase returns the update phase for the kind. Spatial poses and pointer
// positions belong to the pose pass; everything else is interaction.
func (k Kind) Phase() UpdatePhase {
	switch k {
	case KindSpatialPointer, KindSpatialGrip, KindPointerPosition:
		return PhasePose
	default:
		return PhaseInteraction
	}
}

// Binding names the application action a channel is bound to, e.g.
// "ui.select". Empty means unbound.
type Binding string

// Value is the axis-tagged union carried by a channel. Only the slot
// selected by Axis is meaningful; the others stay zero.
type Value struct {
	Axis   Axis
	Bool   bool
	Scalar float32
	Vec    geom.Vec2
	Pose   geom.Pose
}

// BoolValue wraps b as a boolean-axis value.
func BoolValue(b bool) Value {
	return Value{Axis: AxisBool, Bool: b}
}

// ScalarValue wraps f as a scalar-axis value.
func ScalarValue(f float32) Value {
	return Value{Axis: AxisScalar, Scalar: f}
}

// Vec2Value wraps v as a vector-axis value.
func Vec2Value(v geom.Vec2) Value {
	return Value{Axis: AxisVec2, Vec: v}
}

// PoseValue wraps p as a pose-axis value.
func PoseValue(p geom.Pose) Value {
	return Value{Axis: AxisPose, Pose: p}
}

// Zero returns the zero value for an axis.
func Zero(a Axis) Value {
	return Value{Axis: a}
}

// Equal compares only the active slot. Values of different axes are never
// equal.
func (v Value) Equal(o Value) bool {
	if v.Axis != o.Axis {
		return false
	}
	switch v.Axis {
	case AxisBool:
		return v.Bool == o.Bool
	case AxisScalar:
		return v.Scalar == o.Scalar
	case AxisVec2:
		return v.Vec == o.Vec
	case AxisPose:
		return v.Pose == o.Pose
	default:
		return false
	}
}

// ErrAxisMismatch is returned when a value of the wrong axis is written to
// a channel.
var ErrAxisMismatch = errors.New("value axis does not match channel axis")

// Channel is one named, typed input value stream. It keeps the current and
// the previous sample; "changed" means the two differ under the active
// slot's equality.
type Channel struct {
	Index  int
	Label  string
	Axis   Axis
	Kind   Kind
	Action Binding

	current  Value
	previous Value
}

// Current returns the latest written value.
func (c *Channel) Current() Value {
	return c.current
}

// Previous returns the value before the latest write.
func (c *Channel) Previous() Value {
	return c.previous
}

// Changed reports whether the latest write differed from the value before
// it.
func (c *Channel) Changed() bool {
	return !c.current.Equal(c.previous)
}

// Write shifts the current value into previous, stores v and reports
// whether the channel changed. Writing a value of the wrong axis leaves the
// channel untouched and returns ErrAxisMismatch.
func (c *Channel) Write(v Value) (bool, error) {
	if v.Axis != c.Axis {
		return false, fmt.Errorf("channel %q: %w", c.Label, ErrAxisMismatch)
	}
	c.previous = c.current
	c.current = v
	return !c.current.Equal(c.previous), nil
}

// Reset zeroes both the current and the previous value.
func (c *Channel) Reset() {
	c.current = Zero(c.Axis)
	c.previous = Zero(c.Axis)
}
