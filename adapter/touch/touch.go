// Package touch adapts one finger contact per source and runs the touch
// gesture lifecycle on top of the channel updates: a contact starts as a
// hold, is promoted to manipulation (or navigation, when the recognizer
// captures that) once it travels far enough, and resolves on release into
// exactly one of tap-click, gesture-completed or cancelled-only.
package touch

import (
	"time"

	"github.com/Alia5/CONDUIT/adapter"
	"github.com/Alia5/CONDUIT/channel"
	"github.com/Alia5/CONDUIT/event"
	"github.com/Alia5/CONDUIT/geom"
	"github.com/Alia5/CONDUIT/gesture"
	"github.com/Alia5/CONDUIT/source"
)

const (
	// ManipulationThreshold is the cumulative travel from the hold start,
	// in screen units, beyond which a hold becomes a manipulation.
	ManipulationThreshold float32 = 5.0
	// MaxTapDuration is the longest contact lifetime that still counts as
	// a tap on release.
	MaxTapDuration = 500 * time.Millisecond
	// ContactEpsilon is the debounce for grazing contacts: a shorter
	// lifetime cancels the open gesture on release without raising a
	// click.
	ContactEpsilon = 30 * time.Millisecond
)

type registration struct{}

func init() {
	adapter.Register(source.FamilyTouch, &registration{})
}

// NewAdapter implements adapter.Registration.
func (r *registration) NewAdapter(o *adapter.CreateOptions) (adapter.Adapter, error) {
	a := &touchAdapter{Base: adapter.NewBase(source.FamilyTouch, o)}
	return a, nil
}

func defaultChannels() []channel.Definition {
	return []channel.Definition{
		{Label: "Pointer Position", Axis: channel.AxisVec2, Kind: channel.KindPointerPosition},
		{Label: "Touch Contact", Axis: channel.AxisBool, Kind: channel.KindTouchContact, Action: "pointer.select"},
	}
}

type touchAdapter struct {
	adapter.Base

	touching  bool
	open      event.Gesture
	startPos  geom.Vec2
	lastPos   geom.Vec2
	startTime time.Time
}

// Configure implements adapter.Configurable.
func (a *touchAdapter) Configure() bool {
	return a.ConfigureFrom(defaultChannels())
}

// UpdatePose implements adapter.PoseUpdatable.
func (a *touchAdapter) UpdatePose(now time.Time, st *source.State) {
	if !a.Enabled() || st.Touch == nil {
		return
	}
	s := st.Touch
	for _, ch := range a.Channels().Pose() {
		switch ch.Kind {
		case channel.KindPointerPosition:
			a.Apply(now, ch, channel.Vec2Value(s.Position()))
		default:
			a.Fail("No pose handler for input kind", "kind", ch.Kind)
			return
		}
	}
}

// UpdateInteractions implements adapter.InteractionUpdatable. The gesture
// lifecycle runs first, then the interaction channels are diffed as usual.
func (a *touchAdapter) UpdateInteractions(now time.Time, st *source.State) {
	if !a.Enabled() || st.Touch == nil {
		return
	}
	s := st.Touch
	a.step(now, s)
	for _, ch := range a.Channels().Interaction() {
		switch ch.Kind {
		case channel.KindTouchContact:
			a.Apply(now, ch, channel.BoolValue(a.touching))
		case channel.KindPointerDelta:
			a.Apply(now, ch, channel.Vec2Value(s.Position().Sub(a.lastPos)))
		default:
			a.Fail("No interaction handler for input kind", "kind", ch.Kind)
			return
		}
	}
	a.lastPos = s.Position()
}

// Detach implements adapter.Detacher: an open gesture is forced to a
// cancelled notification and the pointer released, so teardown never leaves
// a started gesture unmatched.
func (a *touchAdapter) Detach(now time.Time) {
	if !a.touching {
		return
	}
	if a.open != event.GestureNone {
		a.Emit(now, event.Event{Kind: event.GestureCancelled, Gesture: a.open})
	}
	a.Emit(now, event.Event{Kind: event.PointerUp})
	a.reset()
}

func (a *touchAdapter) step(now time.Time, s *source.TouchSample) {
	switch s.Phase {
	case source.TouchBegan:
		a.begin(now, s)
	case source.TouchMoved:
		if !a.touching {
			a.begin(now, s)
			return
		}
		a.move(now, s)
	case source.TouchStationary:
		if !a.touching {
			a.begin(now, s)
		}
	case source.TouchEnded:
		a.finish(now, s, true)
	case source.TouchCanceled:
		a.finish(now, s, false)
	}
}

func (a *touchAdapter) begin(now time.Time, s *source.TouchSample) {
	if a.touching {
		return
	}
	a.touching = true
	a.open = event.GestureHold
	a.startPos = s.Position()
	a.lastPos = s.Position()
	a.startTime = now
	a.Emit(now, event.Event{Kind: event.PointerDown})
	a.Emit(now, event.Event{Kind: event.GestureStarted, Gesture: event.GestureHold})
}

func (a *touchAdapter) move(now time.Time, s *source.TouchSample) {
	pos := s.Position()
	delta := pos.Sub(a.startPos)

	if a.open == event.GestureHold && delta.LenSq() > ManipulationThreshold*ManipulationThreshold {
		a.Emit(now, event.Event{Kind: event.GestureCancelled, Gesture: event.GestureHold})
		next := event.GestureManipulation
		if rec := a.Recognizer(); rec != nil && rec.Capturing() && rec.Mode() == gesture.ModeNavigation {
			next = event.GestureNavigation
		}
		a.open = next
		a.Emit(now, event.Event{Kind: event.GestureStarted, Gesture: next})
		return
	}

	if a.open != event.GestureManipulation && a.open != event.GestureNavigation {
		return
	}
	if pos == a.lastPos {
		// same sample processed again, nothing new to report
		return
	}
	if a.open == event.GestureNavigation {
		if rec := a.Recognizer(); rec != nil && rec.UseRails() {
			delta = rail(delta)
		}
	}
	a.Emit(now, event.Event{Kind: event.GestureUpdated, Gesture: a.open, Delta: delta})
}

func (a *touchAdapter) finish(now time.Time, s *source.TouchSample, clean bool) {
	if !a.touching {
		return
	}
	lifetime := now.Sub(a.startTime)

	if a.open != event.GestureNone {
		switch {
		case !clean || lifetime < ContactEpsilon:
			a.Emit(now, event.Event{Kind: event.GestureCancelled, Gesture: a.open})
		case lifetime < MaxTapDuration:
			a.Emit(now, event.Event{Kind: event.GestureCancelled, Gesture: a.open})
			a.Emit(now, event.Event{Kind: event.PointerClick, TapCount: int(s.TapCount)})
		default:
			a.Emit(now, event.Event{Kind: event.GestureCompleted, Gesture: a.open})
		}
	}
	a.Emit(now, event.Event{Kind: event.PointerUp})
	a.reset()
}

func (a *touchAdapter) reset() {
	a.touching = false
	a.open = event.GestureNone
	a.startPos = geom.Vec2{}
	a.startTime = time.Time{}
	if t := a.Channels(); t != nil {
		t.ResetSpatial()
	}
}

// rail locks a navigation delta to its dominant axis.
func rail(v geom.Vec2) geom.Vec2 {
	abs := geom.Abs2(v)
	if abs.X >= abs.Y {
		return geom.Vec2{X: v.X}
	}
	return geom.Vec2{Y: v.Y}
}
