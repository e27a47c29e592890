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

// Base carries the state and behavior shared by all variants: identity,
// the channel table, profile resolution and the generic diff-and-dispatch
// step. Variants embed it and keep only their default channel set, their
// per-kind value computation and any extra device semantics.
type Base struct {
	family source.Family
	hand   source.Handedness
	src    source.ID

	profiles   *profile.Set
	sink       event.Sink
	recognizer *gesture.Recognizer
	log        *slog.Logger

	table    *channel.Table
	enabled  bool
	failOnce bool
}

// NewBase builds the shared state from the creation options.
func NewBase(family source.Family, o *CreateOptions) Base {
	logger := o.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	sink := o.Sink
	if sink == nil {
		sink = event.Discard
	}
	return Base{
		family:     family.Norm(),
		hand:       o.Hand,
		src:        o.Source,
		profiles:   o.Profiles,
		sink:       sink,
		recognizer: o.Recognizer,
		log:        logger.With("family", family.Norm(), "source", o.Source, "hand", o.Hand),
	}
}

// Family implements Adapter.
func (b *Base) Family() source.Family {
	return b.family
}

// Hand implements Adapter.
func (b *Base) Hand() source.Handedness {
	return b.hand
}

// Source returns the platform id the adapter is bound to.
func (b *Base) Source() source.ID {
	return b.src
}

// Enabled implements Adapter.
func (b *Base) Enabled() bool {
	return b.enabled
}

// Channels implements Adapter.
func (b *Base) Channels() *channel.Table {
	return b.table
}

// Recognizer returns the gesture recognizer, nil when none was supplied.
func (b *Base) Recognizer() *gesture.Recognizer {
	return b.recognizer
}

// Logger returns the adapter-scoped logger.
func (b *Base) Logger() *slog.Logger {
	return b.log
}

// ConfigureFrom resolves the channel mapping: a profile matching family and
// handedness wins, the variant's hardcoded defaults are the fallback. When
// neither yields a channel the adapter stays disabled with the cause
// warn-logged, and false is returned. A profile that asks for a controller
// visual without naming an asset is reported as an error but is purely
// cosmetic; the adapter still enables.
func (b *Base) ConfigureFrom(defaults []channel.Definition) bool {
	defs := defaults
	var visual profile.Visual
	fromProfile := false
	if b.profiles != nil {
		if p := b.profiles.Match(b.family, b.hand); p != nil && len(p.Definitions()) > 0 {
			defs = p.Definitions()
			visual = p.Visual
			fromProfile = true
		}
	}

	if len(defs) == 0 {
		b.log.Warn("No channel mapping for device, adapter disabled")
		b.enabled = false
		b.failOnce = true
		return false
	}

	table, err := channel.NewTable(defs)
	if err != nil {
		b.log.Warn("Invalid channel mapping, adapter disabled", "error", err)
		b.enabled = false
		b.failOnce = true
		return false
	}

	b.table = table
	b.enabled = true
	b.log.Debug("Adapter configured", "channels", table.Len(), "profile", fromProfile)

	if visual.Enabled && visual.Asset == "" {
		b.log.Error("Controller visual requested but no asset named, skipping visualization")
	}
	return true
}

// Fail disables the adapter and logs the cause once. Used for conditions
// that should not occur with a valid mapping, like an input kind the
// variant has no handler for.
func (b *Base) Fail(cause string, args ...any) {
	if !b.failOnce {
		b.log.Error(cause, args...)
		b.failOnce = true
	}
	b.enabled = false
}

// Emit stamps the event with the adapter's identity and the frame time and
// hands it to the sink.
func (b *Base) Emit(now time.Time, ev event.Event) {
	ev.Time = now
	ev.Source = b.src
	ev.Family = b.family
	ev.Hand = b.hand
	b.sink.Dispatch(ev)
}

// Apply is the generic diff-and-dispatch step: write the recomputed value,
// and notify only when it differs from the previous sample under the
// channel's active-slot equality. Boolean channels additionally repeat a
// Held notification every pass they stay true. Writing a value of the
// wrong axis shape disables the adapter.
func (b *Base) Apply(now time.Time, ch *channel.Channel, v channel.Value) {
	changed, err := ch.Write(v)
	if err != nil {
		b.Fail("Channel rejected value, adapter disabled", "channel", ch.Label, "error", err)
		return
	}

	var kind event.Kind
	switch ch.Axis {
	case channel.AxisBool:
		switch {
		case changed && ch.Current().Bool:
			kind = event.Down
		case changed:
			kind = event.Up
		case ch.Current().Bool:
			kind = event.Held
		default:
			return
		}
	case channel.AxisScalar:
		if !changed {
			return
		}
		kind = event.ValueChanged
	case channel.AxisVec2:
		if !changed {
			return
		}
		if ch.Kind == channel.KindPointerPosition {
			kind = event.PositionChanged
		} else {
			kind = event.ValueChanged
		}
	case channel.AxisPose:
		if !changed {
			return
		}
		kind = event.PoseChanged
	default:
		return
	}

	b.Emit(now, event.Event{
		Kind:    kind,
		Channel: ch.Label,
		Input:   ch.Kind,
		Action:  ch.Action,
		Value:   ch.Current(),
	})
}
