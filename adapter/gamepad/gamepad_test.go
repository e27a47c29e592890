package gamepad_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/CONDUIT/adapter"
	"github.com/Alia5/CONDUIT/adapter/gamepad"
	"github.com/Alia5/CONDUIT/channel"
	"github.com/Alia5/CONDUIT/event"
	"github.com/Alia5/CONDUIT/geom"
	"github.com/Alia5/CONDUIT/source"
)

func newPadAdapter(t *testing.T) (adapter.Adapter, *event.Recorder) {
	t.Helper()
	rec := &event.Recorder{}
	ad, err := adapter.Lookup(source.FamilyGamepad).NewAdapter(&adapter.CreateOptions{
		Source: 4,
		Sink:   rec,
	})
	require.NoError(t, err)
	require.True(t, ad.(adapter.Configurable).Configure())
	return ad, rec
}

func step(ad adapter.Adapter, now time.Time, s *source.GamepadSample) {
	st := &source.State{ID: 4, Family: source.FamilyGamepad, Phase: source.PhaseActive, Gamepad: s}
	ad.(adapter.PoseUpdatable).UpdatePose(now, st)
	ad.(adapter.InteractionUpdatable).UpdateInteractions(now, st)
}

func TestPadChannels(t *testing.T) {
	ad, _ := newPadAdapter(t)
	tbl := ad.Channels()
	assert.Equal(t, 10, tbl.Len())
	// No spatial channels: everything updates on the interaction pass.
	assert.Empty(t, tbl.Pose())
	assert.Len(t, tbl.Interaction(), 10)
}

func TestPadButtons(t *testing.T) {
	ad, rec := newPadAdapter(t)
	now := time.Now()

	step(ad, now, &source.GamepadSample{
		Buttons: source.GamepadA | source.GamepadStart | source.GamepadLThumb,
	})

	downs := map[string]bool{}
	for _, ev := range rec.Events() {
		if ev.Kind == event.Down {
			downs[ev.Channel] = true
		}
	}
	assert.Equal(t, map[string]bool{
		"A Button":              true,
		"Start":                 true,
		"Left Thumbstick Press": true,
	}, downs)

	assert.Equal(t, channel.Binding("ui.select"),
		ad.Channels().ByLabel("A Button").Action)
}

func TestPadStickNormalization(t *testing.T) {
	type testCase struct {
		name     string
		x, y     int16
		expected geom.Vec2
	}

	cases := []testCase{
		{
			name: "inside deadzone reads zero",
			x:    2000, y: 2000,
			expected: geom.Vec2{},
		},
		{
			name: "full deflection",
			x:    32767, y: 32767,
			expected: geom.Vec2{X: 1, Y: 1},
		},
		{
			name: "negative extreme clamps to -1",
			x:    -32768, y: 0,
			expected: geom.Vec2{X: -1, Y: 0},
		},
		{
			name: "half deflection passes through",
			x:    16384, y: 0,
			expected: geom.Vec2{X: float32(16384) / 32767, Y: 0},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ad, _ := newPadAdapter(t)
			step(ad, time.Now(), &source.GamepadSample{LX: tc.x, LY: tc.y})
			got := ad.Channels().ByLabel("Left Thumbstick").Current().Vec
			assert.InDelta(t, tc.expected.X, got.X, 1e-6)
			assert.InDelta(t, tc.expected.Y, got.Y, 1e-6)
		})
	}
}

func TestPadTriggers(t *testing.T) {
	ad, _ := newPadAdapter(t)
	step(ad, time.Now(), &source.GamepadSample{LT: 255, RT: 51})

	tbl := ad.Channels()
	assert.Equal(t, channel.ScalarValue(1), tbl.ByLabel("Left Trigger").Current())
	assert.InDelta(t, 0.2, float64(tbl.ByLabel("Right Trigger").Current().Scalar), 1e-6)
}

func TestPadDPad(t *testing.T) {
	type testCase struct {
		name     string
		buttons  uint32
		expected geom.Vec2
	}

	cases := []testCase{
		{name: "up", buttons: source.GamepadDPadUp, expected: geom.Vec2{Y: 1}},
		{name: "down-left", buttons: source.GamepadDPadDown | source.GamepadDPadLeft, expected: geom.Vec2{X: -1, Y: -1}},
		{name: "opposing cancel", buttons: source.GamepadDPadUp | source.GamepadDPadDown, expected: geom.Vec2{}},
		{name: "right", buttons: source.GamepadDPadRight, expected: geom.Vec2{X: 1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ad, _ := newPadAdapter(t)
			step(ad, time.Now(), &source.GamepadSample{Buttons: tc.buttons})
			assert.Equal(t, channel.Vec2Value(tc.expected), ad.Channels().ByLabel("D-Pad").Current())
		})
	}
}

func TestPadDeadzoneConstant(t *testing.T) {
	// Just below the deadzone radius stays zero, just above passes.
	full := float32(32767)
	edge := int16(full * gamepad.Deadzone)
	ad, _ := newPadAdapter(t)
	step(ad, time.Now(), &source.GamepadSample{LX: edge - 100})
	assert.Equal(t, geom.Vec2{}, ad.Channels().ByLabel("Left Thumbstick").Current().Vec)

	ad2, _ := newPadAdapter(t)
	step(ad2, time.Now(), &source.GamepadSample{LX: edge + 100})
	assert.NotEqual(t, geom.Vec2{}, ad2.Channels().ByLabel("Left Thumbstick").Current().Vec)
}
