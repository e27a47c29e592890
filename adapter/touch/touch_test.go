package touch_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/CONDUIT/adapter"
	"github.com/Alia5/CONDUIT/adapter/touch"
	"github.com/Alia5/CONDUIT/channel"
	"github.com/Alia5/CONDUIT/event"
	"github.com/Alia5/CONDUIT/geom"
	"github.com/Alia5/CONDUIT/gesture"
	"github.com/Alia5/CONDUIT/source"
)

// harness drives one touch adapter the way the hub does: pose pass, then
// interaction pass, with the frame time under test control.
type harness struct {
	t   *testing.T
	ad  adapter.Adapter
	rec *event.Recorder
	t0  time.Time
}

func newHarness(t *testing.T, recog *gesture.Recognizer) *harness {
	t.Helper()
	rec := &event.Recorder{}
	reg := adapter.Lookup(source.FamilyTouch)
	require.NotNil(t, reg)
	ad, err := reg.NewAdapter(&adapter.CreateOptions{
		Source:     1,
		Sink:       rec,
		Recognizer: recog,
	})
	require.NoError(t, err)
	require.True(t, ad.(adapter.Configurable).Configure())
	return &harness{t: t, ad: ad, rec: rec, t0: time.Unix(1000, 0)}
}

func (h *harness) step(offset time.Duration, s *source.TouchSample) {
	h.t.Helper()
	now := h.t0.Add(offset)
	st := &source.State{ID: 1, Family: source.FamilyTouch, Phase: source.PhaseActive, Touch: s}
	h.ad.(adapter.PoseUpdatable).UpdatePose(now, st)
	h.ad.(adapter.InteractionUpdatable).UpdateInteractions(now, st)
}

func began(x, y float32) *source.TouchSample {
	return &source.TouchSample{Phase: source.TouchBegan, X: x, Y: y}
}

func moved(x, y float32) *source.TouchSample {
	return &source.TouchSample{Phase: source.TouchMoved, X: x, Y: y}
}

func ended(x, y float32, taps uint8) *source.TouchSample {
	return &source.TouchSample{Phase: source.TouchEnded, X: x, Y: y, TapCount: taps}
}

func TestDefaultChannels(t *testing.T) {
	h := newHarness(t, nil)
	tbl := h.ad.Channels()
	require.Equal(t, 2, tbl.Len())

	pos := tbl.ByLabel("Pointer Position")
	require.NotNil(t, pos)
	assert.Equal(t, channel.KindPointerPosition, pos.Kind)
	assert.Len(t, tbl.Pose(), 1)

	contact := tbl.ByLabel("Touch Contact")
	require.NotNil(t, contact)
	assert.Equal(t, channel.KindTouchContact, contact.Kind)
	assert.Equal(t, channel.Binding("pointer.select"), contact.Action)
	assert.Len(t, tbl.Interaction(), 1)
}

func TestTapRaisesClick(t *testing.T) {
	h := newHarness(t, nil)

	h.step(0, began(10, 20))
	assert.Equal(t, []event.Kind{
		event.PositionChanged,
		event.PointerDown,
		event.GestureStarted,
		event.Down,
	}, h.rec.Kinds())

	h.rec.Clear()
	h.step(100*time.Millisecond, ended(10, 20, 1))
	assert.Equal(t, []event.Kind{
		event.GestureCancelled,
		event.PointerClick,
		event.PointerUp,
		event.Up,
	}, h.rec.Kinds())

	evs := h.rec.Events()
	assert.Equal(t, event.GestureHold, evs[0].Gesture)
	assert.Equal(t, 1, evs[1].TapCount)
}

func TestGrazeIsDebounced(t *testing.T) {
	h := newHarness(t, nil)

	h.step(0, began(10, 20))
	h.rec.Clear()

	// Shorter than the contact epsilon: the open gesture is cancelled and
	// the pointer released, but no click is raised even though the
	// platform counted a tap.
	h.step(10*time.Millisecond, ended(10, 20, 1))
	assert.Equal(t, []event.Kind{
		event.GestureCancelled,
		event.PointerUp,
		event.Up,
	}, h.rec.Kinds())
}

func TestCanceledContactNeverClicks(t *testing.T) {
	h := newHarness(t, nil)

	h.step(0, began(10, 20))
	h.rec.Clear()

	h.step(100*time.Millisecond, &source.TouchSample{Phase: source.TouchCanceled, X: 10, Y: 20, TapCount: 1})
	assert.Equal(t, []event.Kind{
		event.GestureCancelled,
		event.PointerUp,
		event.Up,
	}, h.rec.Kinds())
}

func TestLongHoldCompletes(t *testing.T) {
	h := newHarness(t, nil)

	h.step(0, began(10, 20))
	h.rec.Clear()

	h.step(600*time.Millisecond, ended(10, 20, 1))
	assert.Equal(t, []event.Kind{
		event.GestureCompleted,
		event.PointerUp,
		event.Up,
	}, h.rec.Kinds())
	assert.Equal(t, event.GestureHold, h.rec.Events()[0].Gesture)
}

func TestManipulationPromotion(t *testing.T) {
	h := newHarness(t, nil)

	h.step(0, began(0, 0))
	h.rec.Clear()

	// Travel is measured from the hold start and compared strictly: five
	// units on the nose stays a hold.
	h.step(50*time.Millisecond, moved(3, 0))
	h.step(100*time.Millisecond, moved(touch.ManipulationThreshold, 0))
	for _, ev := range h.rec.Events() {
		assert.NotEqual(t, event.GestureStarted, ev.Kind)
	}

	h.rec.Clear()
	h.step(150*time.Millisecond, moved(6, 0))
	assert.Equal(t, []event.Kind{
		event.PositionChanged,
		event.GestureCancelled,
		event.GestureStarted,
		event.Held,
	}, h.rec.Kinds())
	assert.Equal(t, event.GestureHold, h.rec.Events()[1].Gesture)
	assert.Equal(t, event.GestureManipulation, h.rec.Events()[2].Gesture)

	// Further movement streams deltas relative to the start position.
	h.rec.Clear()
	h.step(200*time.Millisecond, moved(10, 2))
	assert.Equal(t, []event.Kind{
		event.PositionChanged,
		event.GestureUpdated,
		event.Held,
	}, h.rec.Kinds())
	assert.Equal(t, geom.Vec2{X: 10, Y: 2}, h.rec.Events()[1].Delta)

	h.rec.Clear()
	h.step(600*time.Millisecond, ended(10, 2, 0))
	assert.Equal(t, []event.Kind{
		event.GestureCompleted,
		event.PointerUp,
		event.Up,
	}, h.rec.Kinds())
	assert.Equal(t, event.GestureManipulation, h.rec.Events()[0].Gesture)
}

func TestFastDragStillClicks(t *testing.T) {
	h := newHarness(t, nil)

	h.step(0, began(0, 0))
	h.step(50*time.Millisecond, moved(40, 0))
	h.rec.Clear()

	// Releasing inside the tap window resolves as a click no matter which
	// gesture was open.
	h.step(100*time.Millisecond, ended(40, 0, 1))
	assert.Equal(t, []event.Kind{
		event.GestureCancelled,
		event.PointerClick,
		event.PointerUp,
		event.Up,
	}, h.rec.Kinds())
	assert.Equal(t, event.GestureManipulation, h.rec.Events()[0].Gesture)
}

func TestDoubleUpdateIdempotence(t *testing.T) {
	h := newHarness(t, nil)

	// The same began sample processed again only repeats the held notice.
	s := began(10, 20)
	h.step(0, s)
	h.rec.Clear()
	h.step(10*time.Millisecond, s)
	assert.Equal(t, []event.Kind{event.Held}, h.rec.Kinds())

	// The release resolves exactly once. Reprocessing the ended sample
	// re-applies the position the spatial reset zeroed, then goes silent.
	e := ended(10, 20, 1)
	h.step(100*time.Millisecond, e)
	h.rec.Clear()
	h.step(110*time.Millisecond, e)
	assert.Equal(t, []event.Kind{event.PositionChanged}, h.rec.Kinds())
	h.rec.Clear()
	h.step(120*time.Millisecond, e)
	assert.Empty(t, h.rec.Kinds())
}

func TestDetachForcesCancellation(t *testing.T) {
	h := newHarness(t, nil)

	h.step(0, began(10, 20))
	h.rec.Clear()

	d, ok := h.ad.(adapter.Detacher)
	require.True(t, ok)
	d.Detach(h.t0.Add(50 * time.Millisecond))
	assert.Equal(t, []event.Kind{
		event.GestureCancelled,
		event.PointerUp,
	}, h.rec.Kinds())

	// Idempotent once the contact is resolved.
	h.rec.Clear()
	d.Detach(h.t0.Add(60 * time.Millisecond))
	assert.Empty(t, h.rec.Kinds())
}

func TestNavigationCaptureWithRails(t *testing.T) {
	recog := gesture.NewRecognizer(nil)
	recog.SetUseRails(true)
	recog.Start(gesture.ModeNavigation)

	h := newHarness(t, recog)
	h.step(0, began(0, 0))
	h.rec.Clear()

	h.step(50*time.Millisecond, moved(7, 3))
	assert.Equal(t, []event.Kind{
		event.PositionChanged,
		event.GestureCancelled,
		event.GestureStarted,
		event.Held,
	}, h.rec.Kinds())
	assert.Equal(t, event.GestureNavigation, h.rec.Events()[2].Gesture)

	// Rails lock the delta to its dominant axis.
	h.rec.Clear()
	h.step(100*time.Millisecond, moved(9, 4))
	upd := h.rec.Events()[1]
	assert.Equal(t, event.GestureUpdated, upd.Kind)
	assert.Equal(t, geom.Vec2{X: 9, Y: 0}, upd.Delta)

	h.rec.Clear()
	h.step(600*time.Millisecond, ended(9, 4, 0))
	assert.Equal(t, event.GestureCompleted, h.rec.Events()[0].Kind)
	assert.Equal(t, event.GestureNavigation, h.rec.Events()[0].Gesture)
}

func TestNavigationNotCapturingFallsBackToManipulation(t *testing.T) {
	recog := gesture.NewRecognizer(nil)
	recog.Start(gesture.ModeNavigation)
	recog.Stop()

	h := newHarness(t, recog)
	h.step(0, began(0, 0))
	h.rec.Clear()

	// A stopped recognizer never captures; the promotion stays a plain
	// manipulation.
	h.step(50*time.Millisecond, moved(10, 0))
	assert.Equal(t, event.GestureManipulation, h.rec.Events()[2].Gesture)
}
