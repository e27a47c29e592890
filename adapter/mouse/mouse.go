// Package mouse adapts mouse sources: absolute pointer position on the
// pose pass, buttons, motion delta and wheel on the interaction pass.
package mouse

import (
	"time"

	"github.com/Alia5/CONDUIT/adapter"
	"github.com/Alia5/CONDUIT/channel"
	"github.com/Alia5/CONDUIT/geom"
	"github.com/Alia5/CONDUIT/source"
)

type registration struct{}

func init() {
	adapter.Register(source.FamilyMouse, &registration{})
}

// NewAdapter implements adapter.Registration.
func (r *registration) NewAdapter(o *adapter.CreateOptions) (adapter.Adapter, error) {
	a := &mouseAdapter{Base: adapter.NewBase(source.FamilyMouse, o)}
	return a, nil
}

func defaultChannels() []channel.Definition {
	return []channel.Definition{
		{Label: "Pointer Position", Axis: channel.AxisVec2, Kind: channel.KindPointerPosition},
		{Label: "Pointer Delta", Axis: channel.AxisVec2, Kind: channel.KindPointerDelta},
		{Label: "Left Button", Axis: channel.AxisBool, Kind: channel.KindPrimaryButton, Action: "pointer.select"},
		{Label: "Right Button", Axis: channel.AxisBool, Kind: channel.KindSecondaryButton, Action: "pointer.menu"},
		{Label: "Middle Button", Axis: channel.AxisBool, Kind: channel.KindTertiaryButton},
		{Label: "Wheel", Axis: channel.AxisScalar, Kind: channel.KindScroll},
	}
}

type mouseAdapter struct {
	adapter.Base
}

// Configure implements adapter.Configurable.
func (a *mouseAdapter) Configure() bool {
	return a.ConfigureFrom(defaultChannels())
}

// UpdatePose implements adapter.PoseUpdatable.
func (a *mouseAdapter) UpdatePose(now time.Time, st *source.State) {
	if !a.Enabled() || st.Mouse == nil {
		return
	}
	s := st.Mouse
	for _, ch := range a.Channels().Pose() {
		switch ch.Kind {
		case channel.KindPointerPosition:
			a.Apply(now, ch, channel.Vec2Value(geom.Vec2{X: float32(s.X), Y: float32(s.Y)}))
		default:
			a.Fail("No pose handler for input kind", "kind", ch.Kind)
			return
		}
	}
}

// UpdateInteractions implements adapter.InteractionUpdatable.
func (a *mouseAdapter) UpdateInteractions(now time.Time, st *source.State) {
	if !a.Enabled() || st.Mouse == nil {
		return
	}
	s := st.Mouse
	for _, ch := range a.Channels().Interaction() {
		switch ch.Kind {
		case channel.KindPointerDelta:
			a.Apply(now, ch, channel.Vec2Value(geom.Vec2{X: float32(s.DX), Y: float32(s.DY)}))
		case channel.KindPrimaryButton:
			a.Apply(now, ch, channel.BoolValue(s.Buttons&source.MouseButtonLeft != 0))
		case channel.KindSecondaryButton:
			a.Apply(now, ch, channel.BoolValue(s.Buttons&source.MouseButtonRight != 0))
		case channel.KindTertiaryButton:
			a.Apply(now, ch, channel.BoolValue(s.Buttons&source.MouseButtonMiddle != 0))
		case channel.KindScroll:
			a.Apply(now, ch, channel.ScalarValue(float32(s.Wheel)))
		default:
			a.Fail("No interaction handler for input kind", "kind", ch.Kind)
			return
		}
	}
}
