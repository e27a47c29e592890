// Package adapter defines the controller-adapter contract: one adapter per
// live platform source, translating that source's raw samples into channel
// writes and dispatched events. Device variants implement the capability
// interfaces they support instead of extending a common class; the hub only
// ever talks to capabilities it can type-assert.
package adapter

import (
	"log/slog"
	"time"

	"github.com/Alia5/CONDUIT/channel"
	"github.com/Alia5/CONDUIT/event"
	"github.com/Alia5/CONDUIT/gesture"
	"github.com/Alia5/CONDUIT/profile"
	"github.com/Alia5/CONDUIT/source"
)

// CreateOptions carries everything a registration needs to build an
// adapter for one source.
type CreateOptions struct {
	// Source is the platform id the adapter is bound to.
	Source source.ID
	// Hand is the handedness the platform reported for the source.
	Hand source.Handedness
	// Profiles is the loaded mapping profile set; nil means defaults only.
	Profiles *profile.Set
	// Sink receives every notification the adapter raises.
	Sink event.Sink
	// Recognizer is consulted for gesture capture mode; may be nil.
	Recognizer *gesture.Recognizer
	Logger     *slog.Logger
}

// Adapter is the minimal surface every variant provides.
type Adapter interface {
	Family() source.Family
	Hand() source.Handedness
	// Enabled reports whether the adapter processes updates. Adapters are
	// disabled by failed configuration or by a runtime fault; disabled
	// adapters skip update calls entirely.
	Enabled() bool
	// Channels returns the adapter's mapping table, nil before a
	// successful Configure.
	Channels() *channel.Table
}

// Configurable loads the channel mapping. Configure resolves a profile for
// the adapter's family and handedness, falls back to the variant's
// hardcoded defaults, and returns false if neither yields at least one
// channel (the adapter then stays disabled, cause logged).
type Configurable interface {
	Configure() bool
}

// PoseUpdatable recomputes the pose-phase channels from a sample.
type PoseUpdatable interface {
	UpdatePose(now time.Time, st *source.State)
}

// InteractionUpdatable recomputes the interaction-phase channels from a
// sample.
type InteractionUpdatable interface {
	UpdateInteractions(now time.Time, st *source.State)
}

// Detacher is implemented by adapters holding multi-frame state (open
// gestures). Detach forces that state to a terminal notification; the hub
// calls it before discarding the adapter so a started gesture is never
// left unmatched.
type Detacher interface {
	Detach(now time.Time)
}
