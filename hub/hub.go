// Package hub implements the device manager: it owns the set of live
// controller adapters, creates them as platform sources appear, drives the
// two-phase per-frame update and tears adapters down when their source
// goes away. The hub is driven from a single goroutine; the only entry
// safe to call concurrently with the frame loop is AttachSink.
package hub

import (
	"log/slog"
	"sort"
	"time"

	"github.com/Alia5/CONDUIT/adapter"
	"github.com/Alia5/CONDUIT/event"
	"github.com/Alia5/CONDUIT/gesture"
	"github.com/Alia5/CONDUIT/profile"
	"github.com/Alia5/CONDUIT/source"
)

// Config scopes a hub.
type Config struct {
	// Families restricts which device families this hub adapts; empty
	// means every registered family.
	Families []source.Family
}

// Hub is the device manager. One adapter exists per live source id; a
// source id never maps to more than one adapter.
type Hub struct {
	log      *slog.Logger
	cfg      Config
	profiles *profile.Set
	fanout   *event.Fanout
	rec      *gesture.Recognizer

	families map[source.Family]struct{}
	adapters map[source.ID]adapter.Adapter
	unknown  map[source.ID]struct{}
	enabled  bool
}

// New builds a disabled hub. A nil profile set means adapter defaults
// only; a nil recognizer disables gesture capture configuration.
func New(cfg Config, profiles *profile.Set, rec *gesture.Recognizer, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if profiles == nil {
		profiles = profile.Default()
	}
	h := &Hub{
		log:      logger,
		cfg:      cfg,
		profiles: profiles,
		fanout:   event.NewFanout(),
		rec:      rec,
		adapters: make(map[source.ID]adapter.Adapter),
		unknown:  make(map[source.ID]struct{}),
	}
	if len(cfg.Families) > 0 {
		h.families = make(map[source.Family]struct{}, len(cfg.Families))
		for _, f := range cfg.Families {
			h.families[f.Norm()] = struct{}{}
		}
	}
	return h
}

// AttachSink subscribes a sink to every event the hub's adapters raise.
// Safe to call from any goroutine; close the registration to unsubscribe.
func (h *Hub) AttachSink(s event.Sink) *event.Registration {
	return h.fanout.Attach(s)
}

// Recognizer returns the hub's gesture recognizer, nil when none was
// supplied.
func (h *Hub) Recognizer() *gesture.Recognizer {
	return h.rec
}

// Enabled reports whether the hub processes frames.
func (h *Hub) Enabled() bool {
	return h.enabled
}

// Enable starts the hub: it seeds the adapter map from the given snapshot
// (duplicate ids in the seed are taken once) and auto-starts gesture
// capture when the profile asks for it. A nil seed starts empty.
func (h *Hub) Enable(seed *source.Snapshot) {
	if h.enabled {
		return
	}
	h.enabled = true

	if h.rec != nil && h.profiles.Gestures.AutoStart {
		h.rec.SetUseRails(h.profiles.Gestures.UseRails)
		mode := gesture.ModeGestures
		if h.profiles.Gestures.Navigation {
			mode = gesture.ModeNavigation
		}
		h.rec.Start(mode)
	}

	if seed != nil {
		for i := range seed.Sources {
			h.resolve(seed.Time, &seed.Sources[i])
		}
	}
	h.log.Debug("Hub enabled", "seeded", len(h.adapters))
}

// PreUpdate is the pose pass: every reported source is resolved (created
// and configured on first sight) and its pose channels recomputed. A
// source whose adapter fails to configure stays unresolved and is retried
// on the next frame; there is no backoff.
func (h *Hub) PreUpdate(snap *source.Snapshot) {
	if !h.enabled || snap == nil {
		return
	}
	for i := range snap.Sources {
		st := &snap.Sources[i]
		ad := h.resolve(snap.Time, st)
		if ad == nil {
			continue
		}
		if pu, ok := ad.(adapter.PoseUpdatable); ok {
			pu.UpdatePose(snap.Time, st)
		}
	}
}

// Update is the interaction pass: channels are diffed for every reported
// source, then sources that ended this frame and map entries the platform
// no longer reports are torn down with a SourceLost each. Update never
// creates adapters; that is PreUpdate's job.
func (h *Hub) Update(snap *source.Snapshot) {
	if !h.enabled || snap == nil {
		return
	}
	present := make(map[source.ID]struct{}, len(snap.Sources))
	for i := range snap.Sources {
		st := &snap.Sources[i]
		present[st.ID] = struct{}{}
		ad, ok := h.adapters[st.ID]
		if !ok {
			continue
		}
		if iu, ok := ad.(adapter.InteractionUpdatable); ok {
			iu.UpdateInteractions(snap.Time, st)
		}
		if st.Phase.Terminal() {
			h.lost(snap.Time, st.ID, ad)
		}
	}

	for id, ad := range h.adapters {
		if _, ok := present[id]; !ok {
			h.lost(snap.Time, id, ad)
		}
	}
	for id := range h.unknown {
		if _, ok := present[id]; !ok {
			delete(h.unknown, id)
		}
	}
}

// Step runs one full frame: the pose pass completes for all sources before
// any interaction update begins, so pose data read during interaction-phase
// gesture math is frame-coherent.
func (h *Hub) Step(snap *source.Snapshot) {
	h.PreUpdate(snap)
	h.Update(snap)
}

// Disable stops gesture capture, drains the adapter map with exactly one
// SourceLost per remaining adapter and leaves the hub disabled.
func (h *Hub) Disable(now time.Time) {
	if !h.enabled {
		return
	}
	if h.rec != nil {
		h.rec.Stop()
	}
	for id, ad := range h.adapters {
		h.lost(now, id, ad)
	}
	h.unknown = make(map[source.ID]struct{})
	h.enabled = false
	h.log.Debug("Hub disabled")
}

// resolve returns the adapter for a reported source, creating and
// configuring one on first sight. Returns nil when the source cannot be
// adapted yet.
func (h *Hub) resolve(now time.Time, st *source.State) adapter.Adapter {
	if ad, ok := h.adapters[st.ID]; ok {
		return ad
	}
	if st.Phase.Terminal() {
		return nil
	}
	if h.families != nil {
		if _, ok := h.families[st.Family.Norm()]; !ok {
			return nil
		}
	}

	reg := adapter.Lookup(st.Family)
	if reg == nil {
		if _, warned := h.unknown[st.ID]; !warned {
			h.log.Warn("No adapter registered for device family", "family", st.Family, "source", st.ID)
			h.unknown[st.ID] = struct{}{}
		}
		return nil
	}

	ad, err := reg.NewAdapter(&adapter.CreateOptions{
		Source:     st.ID,
		Hand:       st.Hand,
		Profiles:   h.profiles,
		Sink:       h.fanout,
		Recognizer: h.rec,
		Logger:     h.log,
	})
	if err != nil {
		h.log.Warn("Adapter creation failed", "family", st.Family, "source", st.ID, "error", err)
		return nil
	}
	if c, ok := ad.(adapter.Configurable); ok && !c.Configure() {
		// not usable yet, retried next frame
		return nil
	}

	h.adapters[st.ID] = ad
	h.fanout.Dispatch(event.Event{
		Time:   now,
		Kind:   event.SourceDetected,
		Source: st.ID,
		Family: ad.Family(),
		Hand:   ad.Hand(),
	})
	h.log.Info("Source detected", "family", ad.Family(), "source", st.ID, "hand", ad.Hand())
	return ad
}

func (h *Hub) lost(now time.Time, id source.ID, ad adapter.Adapter) {
	if d, ok := ad.(adapter.Detacher); ok {
		d.Detach(now)
	}
	delete(h.adapters, id)
	h.fanout.Dispatch(event.Event{
		Time:   now,
		Kind:   event.SourceLost,
		Source: id,
		Family: ad.Family(),
		Hand:   ad.Hand(),
	})
	h.log.Info("Source lost", "family", ad.Family(), "source", id)
}

// Info describes one active adapter for tooling.
type Info struct {
	ID       source.ID
	Family   source.Family
	Hand     source.Handedness
	Enabled  bool
	Channels int
}

// Sources reports the active adapters sorted by id.
func (h *Hub) Sources() []Info {
	out := make([]Info, 0, len(h.adapters))
	for id, ad := range h.adapters {
		n := 0
		if t := ad.Channels(); t != nil {
			n = t.Len()
		}
		out = append(out, Info{
			ID:       id,
			Family:   ad.Family(),
			Hand:     ad.Hand(),
			Enabled:  ad.Enabled(),
			Channels: n,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
