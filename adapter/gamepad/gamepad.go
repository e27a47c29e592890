// Package gamepad adapts gamepad sources. Raw XInput-range values are
// normalized here: triggers to 0..1, sticks to -1..1 with a radial
// deadzone, the d-pad bits to a direction vector.
package gamepad

import (
	"time"

	"github.com/Alia5/CONDUIT/adapter"
	"github.com/Alia5/CONDUIT/channel"
	"github.com/Alia5/CONDUIT/geom"
	"github.com/Alia5/CONDUIT/source"
)

// Deadzone is the radial stick deadzone as a fraction of full deflection.
const Deadzone = 0.15

type registration struct{}

func init() {
	adapter.Register(source.FamilyGamepad, &registration{})
}

// NewAdapter implements adapter.Registration.
func (r *registration) NewAdapter(o *adapter.CreateOptions) (adapter.Adapter, error) {
	a := &padAdapter{Base: adapter.NewBase(source.FamilyGamepad, o)}
	return a, nil
}

func defaultChannels() []channel.Definition {
	return []channel.Definition{
		{Label: "A Button", Axis: channel.AxisBool, Kind: channel.KindPrimaryButton, Action: "ui.select"},
		{Label: "B Button", Axis: channel.AxisBool, Kind: channel.KindSecondaryButton, Action: "ui.back"},
		{Label: "X Button", Axis: channel.AxisBool, Kind: channel.KindTertiaryButton},
		{Label: "Start", Axis: channel.AxisBool, Kind: channel.KindMenu, Action: "ui.menu"},
		{Label: "D-Pad", Axis: channel.AxisVec2, Kind: channel.KindDPad},
		{Label: "Left Thumbstick", Axis: channel.AxisVec2, Kind: channel.KindThumbstick, Action: "move"},
		{Label: "Right Thumbstick", Axis: channel.AxisVec2, Kind: channel.KindThumbstickSecondary, Action: "look"},
		{Label: "Left Thumbstick Press", Axis: channel.AxisBool, Kind: channel.KindThumbstickPress},
		{Label: "Left Trigger", Axis: channel.AxisScalar, Kind: channel.KindTrigger},
		{Label: "Right Trigger", Axis: channel.AxisScalar, Kind: channel.KindTriggerSecondary},
	}
}

type padAdapter struct {
	adapter.Base
}

// Configure implements adapter.Configurable.
func (a *padAdapter) Configure() bool {
	return a.ConfigureFrom(defaultChannels())
}

// UpdatePose implements adapter.PoseUpdatable. Gamepads carry no spatial
// channels by default; a profile that maps one is a configuration error
// surfaced here.
func (a *padAdapter) UpdatePose(now time.Time, st *source.State) {
	if !a.Enabled() || st.Gamepad == nil {
		return
	}
	for _, ch := range a.Channels().Pose() {
		a.Fail("No pose handler for input kind", "kind", ch.Kind)
		return
	}
}

// UpdateInteractions implements adapter.InteractionUpdatable.
func (a *padAdapter) UpdateInteractions(now time.Time, st *source.State) {
	if !a.Enabled() || st.Gamepad == nil {
		return
	}
	s := st.Gamepad
	for _, ch := range a.Channels().Interaction() {
		switch ch.Kind {
		case channel.KindPrimaryButton:
			a.Apply(now, ch, button(s, source.GamepadA))
		case channel.KindSecondaryButton:
			a.Apply(now, ch, button(s, source.GamepadB))
		case channel.KindTertiaryButton:
			a.Apply(now, ch, button(s, source.GamepadX))
		case channel.KindMenu:
			a.Apply(now, ch, button(s, source.GamepadStart))
		case channel.KindThumbstickPress:
			a.Apply(now, ch, button(s, source.GamepadLThumb))
		case channel.KindDPad:
			a.Apply(now, ch, channel.Vec2Value(dpad(s.Buttons)))
		case channel.KindThumbstick:
			a.Apply(now, ch, channel.Vec2Value(stick(s.LX, s.LY)))
		case channel.KindThumbstickSecondary:
			a.Apply(now, ch, channel.Vec2Value(stick(s.RX, s.RY)))
		case channel.KindTrigger:
			a.Apply(now, ch, channel.ScalarValue(trigger(s.LT)))
		case channel.KindTriggerSecondary:
			a.Apply(now, ch, channel.ScalarValue(trigger(s.RT)))
		default:
			a.Fail("No interaction handler for input kind", "kind", ch.Kind)
			return
		}
	}
}

func button(s *source.GamepadSample, mask uint32) channel.Value {
	return channel.BoolValue(s.Buttons&mask != 0)
}

func trigger(raw uint8) float32 {
	return float32(raw) / 255
}

// stick normalizes a raw stick pair to -1..1 and zeroes readings inside the
// radial deadzone.
func stick(x, y int16) geom.Vec2 {
	v := geom.Vec2{X: float32(x) / 32767, Y: float32(y) / 32767}
	if v.X < -1 {
		v.X = -1
	}
	if v.Y < -1 {
		v.Y = -1
	}
	if v.LenSq() < Deadzone*Deadzone {
		return geom.Vec2{}
	}
	return v
}

func dpad(buttons uint32) geom.Vec2 {
	var v geom.Vec2
	if buttons&source.GamepadDPadUp != 0 {
		v.Y++
	}
	if buttons&source.GamepadDPadDown != 0 {
		v.Y--
	}
	if buttons&source.GamepadDPadRight != 0 {
		v.X++
	}
	if buttons&source.GamepadDPadLeft != 0 {
		v.X--
	}
	return v
}
