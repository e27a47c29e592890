// Package motion adapts spatial motion controllers: grip and pointer poses
// on the pose pass, the select trigger, grip, thumbstick and menu controls
// on the interaction pass. Motion sources are handed; profiles may map the
// left and right controller differently.
package motion

import (
	"time"

	"github.com/Alia5/CONDUIT/adapter"
	"github.com/Alia5/CONDUIT/channel"
	"github.com/Alia5/CONDUIT/geom"
	"github.com/Alia5/CONDUIT/source"
)

type registration struct{}

func init() {
	adapter.Register(source.FamilyMotion, &registration{})
}

// NewAdapter implements adapter.Registration.
func (r *registration) NewAdapter(o *adapter.CreateOptions) (adapter.Adapter, error) {
	a := &motionAdapter{Base: adapter.NewBase(source.FamilyMotion, o)}
	return a, nil
}

func defaultChannels() []channel.Definition {
	return []channel.Definition{
		{Label: "Spatial Pointer", Axis: channel.AxisPose, Kind: channel.KindSpatialPointer},
		{Label: "Spatial Grip", Axis: channel.AxisPose, Kind: channel.KindSpatialGrip},
		{Label: "Select", Axis: channel.AxisScalar, Kind: channel.KindTrigger, Action: "ui.select"},
		{Label: "Select Press", Axis: channel.AxisBool, Kind: channel.KindTriggerPress},
		{Label: "Grip Press", Axis: channel.AxisBool, Kind: channel.KindGripPress, Action: "ui.grab"},
		{Label: "Thumbstick", Axis: channel.AxisVec2, Kind: channel.KindThumbstick},
		{Label: "Thumbstick Press", Axis: channel.AxisBool, Kind: channel.KindThumbstickPress},
		{Label: "Menu", Axis: channel.AxisBool, Kind: channel.KindMenu, Action: "ui.menu"},
	}
}

type motionAdapter struct {
	adapter.Base
}

// Configure implements adapter.Configurable.
func (a *motionAdapter) Configure() bool {
	return a.ConfigureFrom(defaultChannels())
}

// UpdatePose implements adapter.PoseUpdatable.
func (a *motionAdapter) UpdatePose(now time.Time, st *source.State) {
	if !a.Enabled() || st.Motion == nil {
		return
	}
	s := st.Motion
	for _, ch := range a.Channels().Pose() {
		switch ch.Kind {
		case channel.KindSpatialPointer:
			a.Apply(now, ch, channel.PoseValue(s.Pointer))
		case channel.KindSpatialGrip:
			a.Apply(now, ch, channel.PoseValue(s.Grip))
		default:
			a.Fail("No pose handler for input kind", "kind", ch.Kind)
			return
		}
	}
}

// UpdateInteractions implements adapter.InteractionUpdatable.
func (a *motionAdapter) UpdateInteractions(now time.Time, st *source.State) {
	if !a.Enabled() || st.Motion == nil {
		return
	}
	s := st.Motion
	for _, ch := range a.Channels().Interaction() {
		switch ch.Kind {
		case channel.KindTrigger:
			a.Apply(now, ch, channel.ScalarValue(float32(s.Select)/255))
		case channel.KindTriggerPress:
			a.Apply(now, ch, channel.BoolValue(s.Pressed(source.MotionSelectPressed)))
		case channel.KindGripPress:
			a.Apply(now, ch, channel.BoolValue(s.Pressed(source.MotionGripPressed)))
		case channel.KindThumbstick:
			a.Apply(now, ch, channel.Vec2Value(geom.Vec2{
				X: float32(s.TX) / 32767,
				Y: float32(s.TY) / 32767,
			}))
		case channel.KindThumbstickPress:
			a.Apply(now, ch, channel.BoolValue(s.Pressed(source.MotionThumbPressed)))
		case channel.KindMenu:
			a.Apply(now, ch, channel.BoolValue(s.Pressed(source.MotionMenuPressed)))
		default:
			a.Fail("No interaction handler for input kind", "kind", ch.Kind)
			return
		}
	}
}
