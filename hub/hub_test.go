package hub_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/CONDUIT/adapter"
	"github.com/Alia5/CONDUIT/channel"
	"github.com/Alia5/CONDUIT/event"
	"github.com/Alia5/CONDUIT/gesture"
	"github.com/Alia5/CONDUIT/hub"
	th "github.com/Alia5/CONDUIT/internal/testing"
	"github.com/Alia5/CONDUIT/profile"
	"github.com/Alia5/CONDUIT/source"
)

// scriptAdapter records the calls the hub makes so tests can assert pass
// ordering and teardown behavior.
type scriptAdapter struct {
	adapter.Base
	allowConfigure *bool
	calls          *[]string
	detached       int
}

func (a *scriptAdapter) Configure() bool {
	if a.allowConfigure != nil && !*a.allowConfigure {
		return false
	}
	return a.ConfigureFrom([]channel.Definition{
		{Label: "Contact", Axis: channel.AxisBool, Kind: channel.KindTouchContact},
	})
}

func (a *scriptAdapter) UpdatePose(now time.Time, st *source.State) {
	if a.calls != nil {
		*a.calls = append(*a.calls, "pose:"+string(st.Family))
	}
}

func (a *scriptAdapter) UpdateInteractions(now time.Time, st *source.State) {
	if a.calls != nil {
		*a.calls = append(*a.calls, "inter:"+string(st.Family))
	}
}

func (a *scriptAdapter) Detach(now time.Time) {
	a.detached++
}

func registerScript(t *testing.T, family source.Family, allow *bool, calls *[]string) *[]*scriptAdapter {
	t.Helper()
	created := &[]*scriptAdapter{}
	adapter.Register(family, th.CreateMockRegistration(t, family,
		func(o *adapter.CreateOptions) (adapter.Adapter, error) {
			a := &scriptAdapter{
				Base:           adapter.NewBase(family, o),
				allowConfigure: allow,
				calls:          calls,
			}
			*created = append(*created, a)
			return a, nil
		}))
	return created
}

func activeState(id source.ID, family source.Family) source.State {
	return source.State{ID: id, Family: family, Phase: source.PhaseActive}
}

func TestHubAdapterLifecycle(t *testing.T) {
	created := registerScript(t, "fake-lifecycle", nil, nil)

	h := hub.New(hub.Config{}, nil, nil, nil)
	rec := &event.Recorder{}
	h.AttachSink(rec)
	h.Enable(nil)
	require.True(t, h.Enabled())

	now := time.Now()
	snap := &source.Snapshot{Time: now, Sources: []source.State{
		activeState(1, "fake-lifecycle"),
	}}
	h.Step(snap)
	h.Step(snap)

	// One adapter per source id, detected exactly once.
	require.Len(t, *created, 1)
	assert.Equal(t, []event.Kind{event.SourceDetected}, filterKinds(rec, event.SourceDetected))
	infos := h.Sources()
	require.Len(t, infos, 1)
	assert.Equal(t, source.ID(1), infos[0].ID)
	assert.Equal(t, source.Family("fake-lifecycle"), infos[0].Family)
	assert.True(t, infos[0].Enabled)
	assert.Equal(t, 1, infos[0].Channels)

	// Terminal phase: interactions still run this frame, then exactly one
	// SourceLost with the detach hook invoked.
	term := &source.Snapshot{Time: now, Sources: []source.State{
		{ID: 1, Family: "fake-lifecycle", Phase: source.PhaseEnded},
	}}
	h.Step(term)
	h.Step(&source.Snapshot{Time: now})

	assert.Equal(t, []event.Kind{event.SourceLost}, filterKinds(rec, event.SourceLost))
	assert.Equal(t, 1, (*created)[0].detached)
	assert.Empty(t, h.Sources())
}

func TestHubSourceVanishesWithoutTerminalPhase(t *testing.T) {
	created := registerScript(t, "fake-vanish", nil, nil)

	h := hub.New(hub.Config{}, nil, nil, nil)
	rec := &event.Recorder{}
	h.AttachSink(rec)
	h.Enable(nil)

	now := time.Now()
	h.Step(&source.Snapshot{Time: now, Sources: []source.State{activeState(9, "fake-vanish")}})
	require.Len(t, h.Sources(), 1)

	// The platform stopped reporting the source: torn down all the same.
	h.Step(&source.Snapshot{Time: now})
	assert.Equal(t, []event.Kind{event.SourceLost}, filterKinds(rec, event.SourceLost))
	assert.Equal(t, 1, (*created)[0].detached)
	assert.Empty(t, h.Sources())
}

func TestHubTwoPhaseOrder(t *testing.T) {
	var calls []string
	registerScript(t, "fake-order", nil, &calls)

	h := hub.New(hub.Config{}, nil, nil, nil)
	h.Enable(nil)

	snap := &source.Snapshot{Time: time.Now(), Sources: []source.State{
		activeState(1, "fake-order"),
		activeState(2, "fake-order"),
	}}
	h.Step(snap)
	calls = nil
	h.Step(snap)

	// Every pose update lands before any interaction update.
	assert.Equal(t, []string{
		"pose:fake-order", "pose:fake-order",
		"inter:fake-order", "inter:fake-order",
	}, calls)
}

func TestHubConfigureFailureRetriesNextFrame(t *testing.T) {
	allow := false
	created := registerScript(t, "fake-retry", &allow, nil)

	h := hub.New(hub.Config{}, nil, nil, nil)
	rec := &event.Recorder{}
	h.AttachSink(rec)
	h.Enable(nil)

	snap := &source.Snapshot{Time: time.Now(), Sources: []source.State{
		activeState(4, "fake-retry"),
	}}
	h.Step(snap)
	h.Step(snap)
	assert.Empty(t, rec.Kinds())
	assert.Empty(t, h.Sources())
	// One fresh creation attempt per frame, no backoff.
	assert.Len(t, *created, 2)

	allow = true
	h.Step(snap)
	assert.Equal(t, []event.Kind{event.SourceDetected}, filterKinds(rec, event.SourceDetected))
	require.Len(t, h.Sources(), 1)
}

func TestHubUnknownFamilyWarnsOnce(t *testing.T) {
	var buf bytes.Buffer
	h := hub.New(hub.Config{}, nil, nil, slog.New(slog.NewTextHandler(&buf, nil)))
	rec := &event.Recorder{}
	h.AttachSink(rec)
	h.Enable(nil)

	snap := &source.Snapshot{Time: time.Now(), Sources: []source.State{
		activeState(5, "ghost"),
	}}
	h.Step(snap)
	h.Step(snap)
	h.Step(snap)

	assert.Equal(t, 1, strings.Count(buf.String(), "No adapter registered for device family"))
	assert.Empty(t, rec.Kinds())

	// A different source id of the same family warns on its own.
	h.Step(&source.Snapshot{Time: time.Now(), Sources: []source.State{
		activeState(5, "ghost"),
		activeState(6, "ghost"),
	}})
	assert.Equal(t, 2, strings.Count(buf.String(), "No adapter registered for device family"))
}

func TestHubDisableDrains(t *testing.T) {
	created := registerScript(t, "fake-drain", nil, nil)

	r := gesture.NewRecognizer(nil)
	h := hub.New(hub.Config{}, nil, r, nil)
	rec := &event.Recorder{}
	h.AttachSink(rec)
	h.Enable(nil)
	r.Start(gesture.ModeGestures)

	now := time.Now()
	h.Step(&source.Snapshot{Time: now, Sources: []source.State{
		activeState(1, "fake-drain"),
		activeState(2, "fake-drain"),
	}})
	require.Len(t, h.Sources(), 2)

	h.Disable(now)

	// Exactly one SourceLost per adapter, capture stopped, map empty.
	lost := map[source.ID]int{}
	for _, ev := range rec.Events() {
		if ev.Kind == event.SourceLost {
			lost[ev.Source]++
		}
	}
	assert.Equal(t, map[source.ID]int{1: 1, 2: 1}, lost)
	for _, a := range *created {
		assert.Equal(t, 1, a.detached)
	}
	assert.Empty(t, h.Sources())
	assert.False(t, h.Enabled())
	assert.False(t, r.Capturing())

	// A disabled hub ignores frames entirely.
	rec.Clear()
	h.Step(&source.Snapshot{Time: now, Sources: []source.State{activeState(3, "fake-drain")}})
	assert.Empty(t, rec.Kinds())
	h.Disable(now)
	assert.Empty(t, rec.Kinds())
}

func TestHubFamilyScope(t *testing.T) {
	registerScript(t, "fake-scoped", nil, nil)
	registerScript(t, "fake-other", nil, nil)

	var buf bytes.Buffer
	h := hub.New(hub.Config{Families: []source.Family{"Fake-Scoped"}}, nil, nil,
		slog.New(slog.NewTextHandler(&buf, nil)))
	h.Enable(nil)

	h.Step(&source.Snapshot{Time: time.Now(), Sources: []source.State{
		activeState(1, "fake-scoped"),
		activeState(2, "fake-other"),
	}})

	infos := h.Sources()
	require.Len(t, infos, 1)
	assert.Equal(t, source.Family("fake-scoped"), infos[0].Family)
	// Out-of-scope families are skipped silently, not warned about.
	assert.NotContains(t, buf.String(), "No adapter registered")
}

func TestHubEnableSeedAndGestureAutoStart(t *testing.T) {
	registerScript(t, "fake-seed", nil, nil)

	profiles := &profile.Set{
		Gestures: profile.GestureSettings{AutoStart: true, Navigation: true, UseRails: true},
	}
	require.NoError(t, profiles.Validate())

	r := gesture.NewRecognizer(nil)
	h := hub.New(hub.Config{}, profiles, r, nil)
	rec := &event.Recorder{}
	h.AttachSink(rec)

	now := time.Now()
	seed := &source.Snapshot{Time: now, Sources: []source.State{
		activeState(1, "fake-seed"),
		activeState(1, "fake-seed"),
	}}
	h.Enable(seed)

	// Duplicate seed ids collapse into one adapter.
	assert.Len(t, h.Sources(), 1)
	assert.Equal(t, []event.Kind{event.SourceDetected}, filterKinds(rec, event.SourceDetected))

	assert.True(t, r.Capturing())
	assert.Equal(t, gesture.ModeNavigation, r.Mode())
	assert.True(t, r.UseRails())

	// Enable is idempotent while enabled.
	h.Enable(seed)
	assert.Len(t, h.Sources(), 1)
}

func TestHubTerminalOnFirstSight(t *testing.T) {
	registerScript(t, "fake-stillborn", nil, nil)

	h := hub.New(hub.Config{}, nil, nil, nil)
	rec := &event.Recorder{}
	h.AttachSink(rec)
	h.Enable(nil)

	// A source that is already terminal when first reported is never
	// adapted: no detected, no lost.
	h.Step(&source.Snapshot{Time: time.Now(), Sources: []source.State{
		{ID: 8, Family: "fake-stillborn", Phase: source.PhaseCancelled},
	}})
	assert.Empty(t, rec.Kinds())
	assert.Empty(t, h.Sources())
}

func filterKinds(rec *event.Recorder, want event.Kind) []event.Kind {
	var out []event.Kind
	for _, k := range rec.Kinds() {
		if k == want {
			out = append(out, k)
		}
	}
	return out
}
